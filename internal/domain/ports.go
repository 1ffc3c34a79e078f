package domain

import (
	"context"
	"io"
	"time"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetUserRole(ctx context.Context, id int64, role Role) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, q UsersQuery) (UsersPage, error)
}

type PropertyRepository interface {
	CreateProperty(ctx context.Context, p Property) (Property, error)
	GetProperty(ctx context.Context, id int64) (Property, error)
	UpdateProperty(ctx context.Context, p Property) (Property, error)
	DeleteProperty(ctx context.Context, id int64) error
	SetPropertyStatus(ctx context.Context, id int64, s PropertyStatus) error
	SetPropertyFeatured(ctx context.Context, id int64, featured bool) error
	// ListProperties returns every listing in one of statuses (all when empty).
	// Filtering beyond status happens in memory over the payload.
	ListProperties(ctx context.Context, statuses []PropertyStatus) ([]Property, error)
	GetPropertyDetail(ctx context.Context, id int64) (PropertyDetail, error)
	RecordView(ctx context.Context, v PropertyView) error
	ListLocations(ctx context.Context) ([]Location, error)
}

type LeadRepository interface {
	CreateLead(ctx context.Context, l Lead) (Lead, error)
	GetLead(ctx context.Context, id int64) (Lead, error)
	ListLeads(ctx context.Context, q LeadsQuery) (LeadsPage, error)
	SetLeadStatus(ctx context.Context, id int64, s LeadStatus) error
	DeleteLead(ctx context.Context, id int64) error
}

type WishlistRepository interface {
	AddWishlist(ctx context.Context, userID, propertyID int64) (WishlistItem, error)
	RemoveWishlist(ctx context.Context, userID, propertyID int64) error
	ListWishlist(ctx context.Context, userID int64) ([]WishlistItem, error)
	InWishlist(ctx context.Context, userID, propertyID int64) (bool, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, r Review) (Review, error)
	GetReview(ctx context.Context, id int64) (Review, error)
	UpdateReview(ctx context.Context, r Review) (Review, error)
	DeleteReview(ctx context.Context, id int64) error
	ListReviews(ctx context.Context, propertyID int64) (ReviewsPage, error)
}

type AmenityRepository interface {
	ListAmenities(ctx context.Context) ([]Amenity, error)
	GetAmenity(ctx context.Context, id int64) (Amenity, error)
	CreateAmenity(ctx context.Context, a Amenity) (Amenity, error)
	UpdateAmenity(ctx context.Context, a Amenity) (Amenity, error)
	DeleteAmenity(ctx context.Context, id int64) error
}

type DraftRepository interface {
	CreateDraft(ctx context.Context, d Draft) (Draft, error)
	GetDraft(ctx context.Context, id int64) (Draft, error)
	UpdateDraft(ctx context.Context, d Draft) (Draft, error)
	DeleteDraft(ctx context.Context, id int64) error
	ListDrafts(ctx context.Context, userID int64) ([]Draft, error)
	// PublishDraft saves p (insert when p.ID == 0, update otherwise) and
	// deletes the draft atomically.
	PublishDraft(ctx context.Context, draftID int64, p Property) (Property, error)
}

type AnalyticsRepository interface {
	RecordEvent(ctx context.Context, e Event) error
	Report(ctx context.Context, since time.Time, top int) (AnalyticsReport, error)
}

type AdminRepository interface {
	CountUsersByRole(ctx context.Context) (map[string]int, error)
	CountPropertiesByStatus(ctx context.Context) (map[string]int, error)
	CountLeadsByStatus(ctx context.Context) (map[string]int, error)
	CountReviews(ctx context.Context) (int, error)
	CountWishlist(ctx context.Context) (int, error)
	CountViewsSince(ctx context.Context, since time.Time) (int, error)
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, kv map[string]string) error
	// PropertyIDsByUser lists listings the user owns or has reviewed.
	PropertyIDsByUser(ctx context.Context, userID int64) ([]int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, keys ...string) error
}

type MediaStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (MediaFile, error)
	Delete(ctx context.Context, fileID string) error
}

type TokenIssuer interface {
	Issue(u User) (string, error)
	Parse(token string) (Principal, error)
}
