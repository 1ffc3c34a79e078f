package domain

import "time"

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadClosed    LeadStatus = "closed"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadClosed:
		return true
	}
	return false
}

type Lead struct {
	ID            int64      `json:"id"`
	PropertyID    int64      `json:"property_id"`
	PropertyTitle string     `json:"property_title,omitempty"`
	UserID        *int64     `json:"user_id,omitempty"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	Message       string     `json:"message"`
	Status        LeadStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type LeadsQuery struct {
	Status     LeadStatus
	PropertyID *int64
	// OwnerID restricts to leads on listings owned by this user.
	OwnerID *int64
	Page    int
	Limit   int
}

type LeadsPage struct {
	Items []Lead `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
