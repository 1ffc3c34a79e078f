package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate_api/internal/domain"
)

type AmenityInput struct {
	Name     string  `json:"name" validate:"required,min=2,max=120"`
	Icon     *string `json:"icon" validate:"omitempty,max=64"`
	Category *string `json:"category" validate:"omitempty,max=64"`
}

func (in *AmenityInput) clean() {
	sanitize(&in.Name)
	in.Icon, in.Category = sanitized(in.Icon), sanitized(in.Category)
}

type AmenityService struct {
	repo     domain.AmenityRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewAmenityService(r domain.AmenityRepository, c domain.Cache, ttl time.Duration) *AmenityService {
	return &AmenityService{repo: r, cache: c, cacheTTL: ttl}
}

const amenitiesKey = "amenities:all"

func (s *AmenityService) List(ctx context.Context) ([]domain.Amenity, error) {
	var out []domain.Amenity
	if ok, _ := s.cache.Get(ctx, amenitiesKey, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListAmenities(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, amenitiesKey, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func (s *AmenityService) Create(ctx context.Context, in AmenityInput) (domain.Amenity, error) {
	in.clean()
	if err := Validate(in); err != nil {
		return domain.Amenity{}, err
	}
	a, err := s.repo.CreateAmenity(ctx, domain.Amenity{Name: in.Name, Icon: cleanPtr(in.Icon), Category: cleanPtr(in.Category)})
	if err != nil {
		return domain.Amenity{}, dupName(err, in.Name)
	}
	_ = s.cache.Del(ctx, amenitiesKey)
	return a, nil
}

func (s *AmenityService) Update(ctx context.Context, id int64, in AmenityInput) (domain.Amenity, error) {
	in.clean()
	if err := Validate(in); err != nil {
		return domain.Amenity{}, err
	}
	a, err := s.repo.UpdateAmenity(ctx, domain.Amenity{ID: id, Name: in.Name, Icon: cleanPtr(in.Icon), Category: cleanPtr(in.Category)})
	if err != nil {
		return domain.Amenity{}, dupName(err, in.Name)
	}
	_ = s.cache.Del(ctx, amenitiesKey)
	return a, nil
}

func (s *AmenityService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteAmenity(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Del(ctx, amenitiesKey)
	return nil
}

// Seed inserts the default catalogue, skipping names that already exist.
func (s *AmenityService) Seed(ctx context.Context) (int, error) {
	n := 0
	for _, d := range domain.DefaultAmenities {
		icon, cat := d.Icon, d.Category
		_, err := s.repo.CreateAmenity(ctx, domain.Amenity{Name: d.Name, Icon: &icon, Category: &cat})
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	_ = s.cache.Del(ctx, amenitiesKey)
	return n, nil
}

func dupName(err error, name string) error {
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: amenity %q already exists", domain.ErrConflict, name)
	}
	return err
}
