// Package identity maps authenticated sessions to actors and implements the
// password sign-in flow.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/ratelimit"
	"github.com/sgisi-platform/go-core/internal/store"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Session is the result of a successful sign-in
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// Service implements sign-up, password sign-in and sign-out
type Service struct {
	users    UserStore
	profiles store.Profiles
	tokens   *Tokens
	limiter  ratelimit.Limiter
	ttl      time.Duration
	logger   *zap.Logger
}

// NewService creates the auth service. The limiter may be nil, disabling
// attempt throttling (tests only).
func NewService(users UserStore, profiles store.Profiles, tokens *Tokens, limiter ratelimit.Limiter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		limiter:  limiter,
		ttl:      tokens.config.TTL,
		logger:   logger,
	}
}

// SignUp registers an account and bootstraps its profile row. New profiles
// always start at the lowest-privilege role; promotion is an explicit act of
// the security chief.
func (s *Service) SignUp(ctx context.Context, email, password, nombre string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", store.ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	if nombre == "" {
		nombre = strings.SplitN(email, "@", 2)[0]
	}
	profile := &types.Profile{ID: u.ID, Nombre: nombre, Role: types.RoleNormalUser}
	if err := s.profiles.Create(ctx, bootstrapActor(u.ID), profile); err != nil {
		s.logger.Error("profile bootstrap failed at sign-up",
			zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// SignInWithPassword verifies credentials and issues a session
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email)
		if err != nil {
			return nil, err
		}
		if !allowed {
			s.logger.Warn("sign-in throttled", zap.String("email", email))
			return nil, ErrTooManyAttempts
		}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("sign-in failed", zap.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	if s.limiter != nil {
		// a successful sign-in clears the attempt budget
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("limiter reset failed", zap.Error(err))
		}
	}

	s.logger.Info("user signed in", zap.String("user_id", u.ID))
	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
		UserID:      u.ID,
		Email:       u.Email,
	}, nil
}

// SignOut revokes the session token
func (s *Service) SignOut(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Validate(ctx, rawToken)
	if err != nil {
		return ErrUnauthenticated
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info("user signed out", zap.String("user_id", claims.Subject))
	return nil
}

// GetUser returns the account behind a session token
func (s *Service) GetUser(ctx context.Context, rawToken string) (*User, error) {
	claims, err := s.tokens.Validate(ctx, rawToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return s.users.GetByID(ctx, claims.Subject)
}
