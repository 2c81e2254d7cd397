package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/store"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Resolver maps a session token to the actor performing the request. The
// resulting Actor is carried explicitly through every layer; nothing about
// the caller's identity is cached between requests.
type Resolver struct {
	tokens   *Tokens
	profiles store.Profiles
	logger   *zap.Logger
}

// NewResolver creates an identity resolver
func NewResolver(tokens *Tokens, profiles store.Profiles, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tokens: tokens, profiles: profiles, logger: logger}
}

// bootstrapActor is the provisional identity used before the profile row
// exists: the subject itself at the lowest privilege, enough to read or
// bootstrap its own row and nothing else.
func bootstrapActor(userID string) types.Actor {
	return types.Actor{ID: userID, Role: types.RoleNormalUser}
}

// Resolve validates the session token and loads the caller's profile into an
// Actor. A subject without a profile row gets one bootstrapped at the lowest
// privilege; it never defaults to anything higher.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (types.Actor, error) {
	claims, err := r.tokens.Validate(ctx, rawToken)
	if err != nil {
		return types.Actor{}, ErrUnauthenticated
	}
	return r.resolveSubject(ctx, claims.Subject, claims.Email)
}

func (r *Resolver) resolveSubject(ctx context.Context, userID, email string) (types.Actor, error) {
	self := bootstrapActor(userID)

	profile, err := r.profiles.Get(ctx, self, userID)
	if errors.Is(err, store.ErrNotFound) {
		profile = &types.Profile{
			ID:     userID,
			Nombre: strings.SplitN(email, "@", 2)[0],
			Role:   types.RoleNormalUser,
		}
		if createErr := r.profiles.Create(ctx, self, profile); createErr != nil {
			if errors.Is(createErr, store.ErrConflict) {
				// lost a race against a concurrent bootstrap; re-read
				profile, err = r.profiles.Get(ctx, self, userID)
				if err != nil {
					return types.Actor{}, err
				}
				return profile.Actor(), nil
			}
			return types.Actor{}, createErr
		}
		r.logger.Info("profile bootstrapped",
			zap.String("user_id", userID),
			zap.String("role", string(types.RoleNormalUser)),
		)
		return profile.Actor(), nil
	}
	if err != nil {
		return types.Actor{}, err
	}
	return profile.Actor(), nil
}
