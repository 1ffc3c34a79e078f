package app

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"estate_api/internal/domain"
)

type AdminService struct {
	admin  domain.AdminRepository
	users  domain.UserRepository
	events domain.AnalyticsRepository
	// onChange evicts cached listings affected by a user deletion.
	onChange func(ctx context.Context, propertyID int64)
	now      func() time.Time
}

func NewAdminService(a domain.AdminRepository, u domain.UserRepository, ev domain.AnalyticsRepository, onChange func(context.Context, int64)) *AdminService {
	return &AdminService{admin: a, users: u, events: ev, onChange: onChange, now: func() time.Time { return time.Now().UTC() }}
}

// Stats runs the dashboard count queries concurrently.
func (s *AdminService) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.UsersByRole, err = s.admin.CountUsersByRole(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.PropertiesByStatus, err = s.admin.CountPropertiesByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.LeadsByStatus, err = s.admin.CountLeadsByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.Reviews, err = s.admin.CountReviews(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.WishlistSaves, err = s.admin.CountWishlist(ctx)
		return err
	})
	g.Go(func() (err error) {
		st.ViewsLast30Days, err = s.admin.CountViewsSince(ctx, s.now().AddDate(0, 0, -30))
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("admin stats: %w", err)
	}
	for _, n := range st.UsersByRole {
		st.Users += n
	}
	return st, nil
}

func (s *AdminService) Users(ctx context.Context, q domain.UsersQuery) (domain.UsersPage, error) {
	if q.Role != "" && !q.Role.Valid() {
		return domain.UsersPage{}, domain.Invalid("invalid role " + string(q.Role))
	}
	return s.users.ListUsers(ctx, q)
}

func (s *AdminService) SetRole(ctx context.Context, who domain.Principal, id int64, r domain.Role) (domain.User, error) {
	if !r.Valid() {
		return domain.User{}, domain.Invalid("invalid role " + string(r))
	}
	if id == who.UserID && r != domain.RoleAdmin {
		return domain.User{}, domain.Invalid("cannot demote yourself")
	}
	if err := s.users.SetUserRole(ctx, id, r); err != nil {
		return domain.User{}, err
	}
	log.Info().Int64("user_id", id).Str("role", string(r)).Int64("by", who.UserID).Msg("user role changed")
	return s.users.GetUser(ctx, id)
}

func (s *AdminService) DeleteUser(ctx context.Context, who domain.Principal, id int64) error {
	if id == who.UserID {
		return domain.Invalid("cannot delete yourself")
	}
	var touched []int64
	if s.onChange != nil {
		ids, err := s.admin.PropertyIDsByUser(ctx, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		touched = ids
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	for _, pid := range touched {
		s.onChange(ctx, pid)
	}
	log.Info().Int64("user_id", id).Int64("by", who.UserID).Int("listings_evicted", len(touched)).Msg("user deleted")
	return nil
}

func (s *AdminService) Analytics(ctx context.Context, days int) (domain.AnalyticsReport, error) {
	if days == 0 {
		days = 30
	}
	if days < 1 || days > 365 {
		return domain.AnalyticsReport{}, domain.Invalid("days must be between 1 and 365")
	}
	rep, err := s.events.Report(ctx, s.now().AddDate(0, 0, -days), 10)
	if err != nil {
		return domain.AnalyticsReport{}, err
	}
	rep.Days = days
	return rep, nil
}

var settingKeyRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,100}$`)

func (s *AdminService) Settings(ctx context.Context) (map[string]string, error) {
	return s.admin.GetSettings(ctx)
}

func (s *AdminService) PutSettings(ctx context.Context, kv map[string]string) (map[string]string, error) {
	if len(kv) == 0 {
		return nil, domain.Invalid("no settings given")
	}
	ve := &ValidationError{}
	for k, v := range kv {
		if !settingKeyRe.MatchString(k) {
			ve.add(k, "invalid setting key")
		} else if len(v) > 10000 {
			ve.add(k, "must be at most 10000 characters")
		}
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	if err := s.admin.PutSettings(ctx, kv); err != nil {
		return nil, err
	}
	return s.admin.GetSettings(ctx)
}
