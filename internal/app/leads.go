package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"estate_api/internal/domain"
)

type LeadInput struct {
	PropertyID int64   `json:"property_id" validate:"required,gt=0"`
	Name       string  `json:"name" validate:"required,min=2,max=100"`
	Email      string  `json:"email" validate:"required,email,max=320"`
	Phone      *string `json:"phone" validate:"omitempty,max=40"`
	Message    string  `json:"message" validate:"required,min=1,max=5000"`
}

type LeadService struct {
	leads  domain.LeadRepository
	props  domain.PropertyRepository
	events domain.AnalyticsRepository
}

func NewLeadService(l domain.LeadRepository, p domain.PropertyRepository, ev domain.AnalyticsRepository) *LeadService {
	return &LeadService{leads: l, props: p, events: ev}
}

func (s *LeadService) Create(ctx context.Context, who *domain.Principal, in LeadInput) (domain.Lead, error) {
	in.Email = normEmail(in.Email)
	sanitize(&in.Name, &in.Message)
	in.Phone = sanitized(in.Phone)
	if err := Validate(in); err != nil {
		return domain.Lead{}, err
	}
	p, err := s.props.GetProperty(ctx, in.PropertyID)
	if err != nil {
		return domain.Lead{}, err
	}
	if p.Status != domain.StatusPublished {
		return domain.Lead{}, fmt.Errorf("property %d: %w", p.ID, domain.ErrNotFound)
	}
	l := domain.Lead{
		PropertyID: p.ID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      cleanPtr(in.Phone),
		Message:    in.Message,
		Status:     domain.LeadNew,
	}
	if who != nil {
		l.UserID = &who.UserID
	}
	out, err := s.leads.CreateLead(ctx, l)
	if err != nil {
		return domain.Lead{}, err
	}
	out.PropertyTitle = p.Title
	if s.events != nil {
		if err := s.events.RecordEvent(ctx, domain.Event{EventType: domain.EventLeadCreated, PropertyID: &p.ID, UserID: l.UserID}); err != nil {
			log.Warn().Err(err).Msg("record lead event failed")
		}
	}
	log.Info().Int64("lead_id", out.ID).Int64("property_id", p.ID).Msg("lead created")
	return out, nil
}

// List scopes agents to leads on their own listings.
func (s *LeadService) List(ctx context.Context, who domain.Principal, q domain.LeadsQuery) (domain.LeadsPage, error) {
	switch who.Role {
	case domain.RoleAdmin:
	case domain.RoleAgent:
		q.OwnerID = &who.UserID
	default:
		return domain.LeadsPage{}, fmt.Errorf("%w: leads are only visible to agents", domain.ErrForbidden)
	}
	if q.Status != "" && !q.Status.Valid() {
		return domain.LeadsPage{}, domain.Invalid("invalid lead status " + string(q.Status))
	}
	return s.leads.ListLeads(ctx, q)
}

func (s *LeadService) authorize(ctx context.Context, who domain.Principal, id int64) (domain.Lead, error) {
	l, err := s.leads.GetLead(ctx, id)
	if err != nil {
		return domain.Lead{}, err
	}
	if who.IsAdmin() {
		return l, nil
	}
	p, err := s.props.GetProperty(ctx, l.PropertyID)
	if err != nil {
		return domain.Lead{}, err
	}
	if p.OwnerID != who.UserID {
		return domain.Lead{}, fmt.Errorf("%w: lead %d belongs to another agent", domain.ErrForbidden, id)
	}
	return l, nil
}

func (s *LeadService) Get(ctx context.Context, who domain.Principal, id int64) (domain.Lead, error) {
	return s.authorize(ctx, who, id)
}

func (s *LeadService) SetStatus(ctx context.Context, who domain.Principal, id int64, st domain.LeadStatus) (domain.Lead, error) {
	if !st.Valid() {
		return domain.Lead{}, domain.Invalid("invalid lead status " + string(st))
	}
	if _, err := s.authorize(ctx, who, id); err != nil {
		return domain.Lead{}, err
	}
	if err := s.leads.SetLeadStatus(ctx, id, st); err != nil {
		return domain.Lead{}, err
	}
	return s.leads.GetLead(ctx, id)
}

func (s *LeadService) Delete(ctx context.Context, who domain.Principal, id int64) error {
	if !who.IsAdmin() {
		return fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return s.leads.DeleteLead(ctx, id)
}
