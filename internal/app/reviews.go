package app

import (
	"context"
	"errors"
	"fmt"

	"estate_api/internal/domain"
)

type ReviewInput struct {
	PropertyID int64  `json:"property_id" validate:"required,gt=0"`
	Rating     int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string `json:"comment" validate:"required,max=2000"`
}

type ReviewPatch struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,min=1,max=2000"`
}

type ReviewService struct {
	reviews domain.ReviewRepository
	props   domain.PropertyRepository
	// onChange drops cached rating summaries.
	onChange func(ctx context.Context, propertyID int64)
}

func NewReviewService(r domain.ReviewRepository, p domain.PropertyRepository, onChange func(context.Context, int64)) *ReviewService {
	if onChange == nil {
		onChange = func(context.Context, int64) {}
	}
	return &ReviewService{reviews: r, props: p, onChange: onChange}
}

func (s *ReviewService) List(ctx context.Context, propertyID int64, who *domain.Principal) (domain.ReviewsPage, error) {
	if _, err := visibleProperty(ctx, s.props, who, propertyID); err != nil {
		return domain.ReviewsPage{}, err
	}
	return s.reviews.ListReviews(ctx, propertyID)
}

func (s *ReviewService) Create(ctx context.Context, who domain.Principal, in ReviewInput) (domain.Review, error) {
	sanitize(&in.Comment)
	if err := Validate(in); err != nil {
		return domain.Review{}, err
	}
	p, err := visibleProperty(ctx, s.props, &who, in.PropertyID)
	if err != nil {
		return domain.Review{}, err
	}
	if p.OwnerID == who.UserID {
		return domain.Review{}, fmt.Errorf("%w: cannot review your own listing", domain.ErrForbidden)
	}
	rv, err := s.reviews.CreateReview(ctx, domain.Review{PropertyID: p.ID, UserID: who.UserID, Rating: in.Rating, Comment: in.Comment})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Review{}, fmt.Errorf("%w: you already reviewed this property", domain.ErrConflict)
		}
		return domain.Review{}, err
	}
	s.onChange(ctx, p.ID)
	return rv, nil
}

func (s *ReviewService) Update(ctx context.Context, who domain.Principal, id int64, in ReviewPatch) (domain.Review, error) {
	in.Comment = sanitized(in.Comment)
	if err := Validate(in); err != nil {
		return domain.Review{}, err
	}
	rv, err := s.reviews.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if rv.UserID != who.UserID {
		return domain.Review{}, fmt.Errorf("%w: not the author of review %d", domain.ErrForbidden, id)
	}
	if in.Rating != nil {
		rv.Rating = *in.Rating
	}
	if in.Comment != nil {
		rv.Comment = *in.Comment
	}
	out, err := s.reviews.UpdateReview(ctx, rv)
	if err != nil {
		return domain.Review{}, err
	}
	s.onChange(ctx, rv.PropertyID)
	return out, nil
}

func (s *ReviewService) Delete(ctx context.Context, who domain.Principal, id int64) error {
	rv, err := s.reviews.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if rv.UserID != who.UserID && !who.IsAdmin() {
		return fmt.Errorf("%w: not the author of review %d", domain.ErrForbidden, id)
	}
	if err := s.reviews.DeleteReview(ctx, id); err != nil {
		return err
	}
	s.onChange(ctx, rv.PropertyID)
	return nil
}
