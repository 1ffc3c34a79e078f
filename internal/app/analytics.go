package app

import (
	"context"
	"encoding/json"

	"estate_api/internal/domain"
)

type TrackInput struct {
	EventType  string          `json:"event_type" validate:"required"`
	PropertyID *int64          `json:"property_id" validate:"omitempty,gt=0"`
	Metadata   json.RawMessage `json:"metadata"`
}

const maxEventMetadata = 4 << 10

type AnalyticsService struct {
	events domain.AnalyticsRepository
}

func NewAnalyticsService(ev domain.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{events: ev}
}

func (s *AnalyticsService) Track(ctx context.Context, who *domain.Principal, in TrackInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if !domain.ValidEventType(in.EventType) {
		return domain.Invalid("event_type must match [a-z_]{2,50}")
	}
	e := domain.Event{EventType: in.EventType, PropertyID: in.PropertyID}
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		if len(in.Metadata) > maxEventMetadata {
			return domain.Invalid("metadata too large")
		}
		var obj map[string]any
		if err := json.Unmarshal(in.Metadata, &obj); err != nil {
			return domain.Invalid("metadata must be a JSON object")
		}
		e.Metadata = in.Metadata
	}
	if who != nil {
		e.UserID = &who.UserID
	}
	return s.events.RecordEvent(ctx, e)
}
