package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
	Carts *CartService
	Log   zerolog.Logger
}

func NewAuthService(users *repos.UserRepo, carts *CartService, log zerolog.Logger) *AuthService {
	return &AuthService{Users: users, Carts: carts, Log: log}
}

// Login binds sid to the user and folds the anonymous session cart into the user's cart.
// A failed merge is logged; the login still succeeds.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	if s.Carts != nil {
		if err := s.Carts.Merge(ctx, domain.SessionIdentity(sid), u.Identity()); err != nil {
			s.Log.Error().Err(err).Str("user_id", u.ID).Msg("cart merge on login failed")
		}
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

// CurrentUser returns domain.ErrNotFound for anonymous sessions.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

// IdentityFor resolves the cart owner for a session.
func (s *AuthService) IdentityFor(ctx context.Context, sid string) (domain.Identity, *domain.User, error) {
	u, err := s.CurrentUser(ctx, sid)
	switch {
	case err == nil:
		return u.Identity(), u, nil
	case errors.Is(err, domain.ErrNotFound):
		return domain.SessionIdentity(sid), nil, nil
	default:
		return domain.Identity{}, nil, err
	}
}
