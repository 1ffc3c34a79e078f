package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"estate_api/internal/domain"
)

// DraftInput fields left out of an update keep their stored values.
type DraftInput struct {
	Title      *string         `json:"title" validate:"omitempty,max=200"`
	PropertyID *int64          `json:"property_id" validate:"omitempty,gt=0"`
	Payload    json.RawMessage `json:"payload"`
}

const maxDraftPayload = 256 << 10

type DraftService struct {
	drafts domain.DraftRepository
	props  *PropertyService
}

func NewDraftService(d domain.DraftRepository, p *PropertyService) *DraftService {
	return &DraftService{drafts: d, props: p}
}

func (in *DraftInput) check() error {
	in.Title = sanitized(in.Title)
	if err := Validate(in); err != nil {
		return err
	}
	if len(in.Payload) > maxDraftPayload {
		return domain.Invalid("payload too large")
	}
	if len(in.Payload) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(in.Payload, &obj); err != nil {
			return domain.Invalid("payload must be a JSON object")
		}
	}
	return nil
}

func (s *DraftService) List(ctx context.Context, who domain.Principal) ([]domain.Draft, error) {
	return s.drafts.ListDrafts(ctx, who.UserID)
}

func (s *DraftService) Get(ctx context.Context, who domain.Principal, id int64) (domain.Draft, error) {
	d, err := s.drafts.GetDraft(ctx, id)
	if err != nil {
		return domain.Draft{}, err
	}
	if d.UserID != who.UserID {
		return domain.Draft{}, fmt.Errorf("draft %d: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func (s *DraftService) Create(ctx context.Context, who domain.Principal, in DraftInput) (domain.Draft, error) {
	if err := in.check(); err != nil {
		return domain.Draft{}, err
	}
	if in.PropertyID != nil {
		if _, err := s.props.load(ctx, who, *in.PropertyID); err != nil {
			return domain.Draft{}, err
		}
	}
	d := domain.Draft{UserID: who.UserID, PropertyID: in.PropertyID, Payload: in.Payload}
	if in.Title != nil {
		d.Title = *in.Title
	}
	return s.drafts.CreateDraft(ctx, d)
}

func (s *DraftService) Update(ctx context.Context, who domain.Principal, id int64, in DraftInput) (domain.Draft, error) {
	if err := in.check(); err != nil {
		return domain.Draft{}, err
	}
	d, err := s.Get(ctx, who, id)
	if err != nil {
		return domain.Draft{}, err
	}
	if in.PropertyID != nil {
		if _, err := s.props.load(ctx, who, *in.PropertyID); err != nil {
			return domain.Draft{}, err
		}
		d.PropertyID = in.PropertyID
	}
	if in.Title != nil {
		d.Title = *in.Title
	}
	if len(in.Payload) > 0 {
		d.Payload = in.Payload
	}
	return s.drafts.UpdateDraft(ctx, d)
}

func (s *DraftService) Delete(ctx context.Context, who domain.Principal, id int64) error {
	if _, err := s.Get(ctx, who, id); err != nil {
		return err
	}
	return s.drafts.DeleteDraft(ctx, id)
}

// Publish validates the draft as a full listing and saves it. A draft tied
// to an existing listing updates that listing in place.
func (s *DraftService) Publish(ctx context.Context, who domain.Principal, id int64) (domain.Property, error) {
	d, err := s.Get(ctx, who, id)
	if err != nil {
		return domain.Property{}, err
	}
	var in PropertyInput
	if len(d.Payload) > 0 {
		if err := json.Unmarshal(d.Payload, &in); err != nil {
			return domain.Property{}, domain.Invalid("draft payload: " + err.Error())
		}
	}
	if in.Title == "" {
		in.Title = d.Title
	}
	p, err := s.props.build(who, in)
	if err != nil {
		return domain.Property{}, err
	}
	p.OwnerID = who.UserID
	if d.PropertyID != nil {
		cur, err := s.props.load(ctx, who, *d.PropertyID)
		if err != nil {
			return domain.Property{}, err
		}
		p.ID, p.OwnerID, p.CreatedAt = cur.ID, cur.OwnerID, cur.CreatedAt
		if in.Featured == nil || !who.IsAdmin() {
			p.Featured = cur.Featured
		}
	}
	out, err := s.drafts.PublishDraft(ctx, d.ID, p)
	if err != nil {
		return domain.Property{}, err
	}
	s.props.invalidate(ctx, out.ID)
	log.Info().Int64("draft_id", d.ID).Int64("property_id", out.ID).Msg("draft published")
	return out, nil
}
