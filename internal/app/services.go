package app

import (
	"context"
	"time"

	"estate_api/internal/domain"
)

// Store is the full persistence surface; sqlstore.Repo implements it.
type Store interface {
	domain.UserRepository
	domain.PropertyRepository
	domain.LeadRepository
	domain.WishlistRepository
	domain.ReviewRepository
	domain.AmenityRepository
	domain.DraftRepository
	domain.AnalyticsRepository
	domain.AdminRepository
}

type Options struct {
	CacheTTL   time.Duration
	BcryptCost int
}

type Services struct {
	Auth       *AuthService
	Properties *PropertyService
	Leads      *LeadService
	Wishlist   *WishlistService
	Reviews    *ReviewService
	Amenities  *AmenityService
	Drafts     *DraftService
	Admin      *AdminService
	Analytics  *AnalyticsService
	Media      *MediaService
}

// NewServices wires every service over one store. media may be nil.
func NewServices(st Store, cache domain.Cache, tokens domain.TokenIssuer, media domain.MediaStore, o Options) *Services {
	props := NewPropertyService(st, st, cache, o.CacheTTL)
	return &Services{
		Auth:       NewAuthService(st, tokens, o.BcryptCost),
		Properties: props,
		Leads:      NewLeadService(st, st, st),
		Wishlist:   NewWishlistService(st, st, st),
		Reviews:    NewReviewService(st, st, func(ctx context.Context, id int64) { props.Invalidate(ctx, id) }),
		Amenities:  NewAmenityService(st, cache, o.CacheTTL),
		Drafts:     NewDraftService(st, props),
		Admin:      NewAdminService(st, st, st, func(ctx context.Context, id int64) { props.Invalidate(ctx, id) }),
		Analytics:  NewAnalyticsService(st),
		Media:      NewMediaService(media),
	}
}
