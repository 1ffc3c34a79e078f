package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"estate_api/internal/adapters/observability"
	"estate_api/internal/domain"
)

type RegisterInput struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email,max=320"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=40"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=1024"`
}

type PasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type AuthService struct {
	users  domain.UserRepository
	tokens domain.TokenIssuer
	cost   int
	// dummy is compared against when the email is unknown so both paths cost the same.
	dummy []byte
}

func NewAuthService(users domain.UserRepository, tokens domain.TokenIssuer, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return &AuthService{users: users, tokens: tokens, cost: bcryptCost, dummy: dummy}
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

func (s *AuthService) hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = normEmail(in.Email)
	sanitize(&in.Name)
	in.Phone = sanitized(in.Phone)
	if err := Validate(in); err != nil {
		return AuthResult{}, err
	}
	h, err := s.hash(in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	u, err := s.users.CreateUser(ctx, domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: h,
		Role:         domain.RoleUser,
		Phone:        cleanPtr(in.Phone),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AuthResult{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return AuthResult{}, err
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	log.Info().Int64("user_id", u.ID).Msg("user registered")
	return AuthResult{Token: tok, User: u}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Email = normEmail(in.Email)
	if err := Validate(in); err != nil {
		return AuthResult{}, err
	}
	u, err := s.users.GetUserByEmail(ctx, normEmail(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(in.Password))
			observability.ObserveAuthFailure("unknown_email")
			return AuthResult{}, errBadCredentials
		}
		return AuthResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		observability.ObserveAuthFailure("bad_password")
		return AuthResult{}, errBadCredentials
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok, User: u}, nil
}

// Verify parses a bearer token and reloads its user, so role changes and
// deleted accounts take effect before the token expires.
func (s *AuthService) Verify(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Principal{}, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func (s *AuthService) Me(ctx context.Context, id int64) (domain.User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *AuthService) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (domain.User, error) {
	in.Name, in.Phone = sanitized(in.Name), sanitized(in.Phone)
	if err := Validate(in); err != nil {
		return domain.User{}, err
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Phone != nil {
		u.Phone = cleanPtr(in.Phone)
	}
	if in.AvatarURL != nil {
		u.AvatarURL = in.AvatarURL
	}
	return s.users.UpdateUser(ctx, u)
}

func (s *AuthService) ChangePassword(ctx context.Context, id int64, in PasswordInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		observability.ObserveAuthFailure("bad_password")
		return fmt.Errorf("%w: current password is incorrect", domain.ErrUnauthorized)
	}
	h, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, h)
}

// EnsureAdmin creates an admin account, or promotes and resets the password
// of an existing one. Reports whether a new account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (domain.User, bool, error) {
	in := RegisterInput{Name: name, Email: email, Password: password}
	if err := Validate(in); err != nil {
		return domain.User{}, false, err
	}
	h, err := s.hash(password)
	if err != nil {
		return domain.User{}, false, err
	}
	u, err := s.users.GetUserByEmail(ctx, normEmail(email))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.users.CreateUser(ctx, domain.User{Name: cleanText(name), Email: normEmail(email), PasswordHash: h, Role: domain.RoleAdmin})
		return u, err == nil, err
	case err != nil:
		return domain.User{}, false, err
	}
	if err := s.users.SetUserRole(ctx, u.ID, domain.RoleAdmin); err != nil {
		return domain.User{}, false, err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, h); err != nil {
		return domain.User{}, false, err
	}
	u.Role = domain.RoleAdmin
	return u, false, nil
}
