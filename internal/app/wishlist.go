package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"estate_api/internal/domain"
)

type WishlistService struct {
	repo   domain.WishlistRepository
	props  domain.PropertyRepository
	events domain.AnalyticsRepository
}

func NewWishlistService(r domain.WishlistRepository, p domain.PropertyRepository, ev domain.AnalyticsRepository) *WishlistService {
	return &WishlistService{repo: r, props: p, events: ev}
}

func (s *WishlistService) List(ctx context.Context, who domain.Principal) ([]domain.WishlistItem, error) {
	return s.repo.ListWishlist(ctx, who.UserID)
}

func (s *WishlistService) Add(ctx context.Context, who domain.Principal, propertyID int64) (domain.WishlistItem, error) {
	if propertyID <= 0 {
		return domain.WishlistItem{}, domain.Invalid("property_id is required")
	}
	if _, err := visibleProperty(ctx, s.props, &who, propertyID); err != nil {
		return domain.WishlistItem{}, err
	}
	w, err := s.repo.AddWishlist(ctx, who.UserID, propertyID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.WishlistItem{}, fmt.Errorf("%w: property already in wishlist", domain.ErrConflict)
		}
		return domain.WishlistItem{}, err
	}
	if s.events != nil {
		if err := s.events.RecordEvent(ctx, domain.Event{EventType: domain.EventWishlistAdd, PropertyID: &propertyID, UserID: &who.UserID}); err != nil {
			log.Warn().Err(err).Msg("record wishlist event failed")
		}
	}
	return w, nil
}

func (s *WishlistService) Remove(ctx context.Context, who domain.Principal, propertyID int64) error {
	return s.repo.RemoveWishlist(ctx, who.UserID, propertyID)
}

func (s *WishlistService) Saved(ctx context.Context, who domain.Principal, propertyID int64) (bool, error) {
	return s.repo.InWishlist(ctx, who.UserID, propertyID)
}
