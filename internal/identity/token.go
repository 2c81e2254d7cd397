package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Claims is the session token payload
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenConfig configures session token issuance and validation
type TokenConfig struct {
	// Secret is the HS256 signing secret
	Secret []byte
	// Issuer is the iss claim
	Issuer string
	// TTL is the session lifetime
	TTL time.Duration
}

// DefaultTokenConfig returns token defaults (issuer must still be set)
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Issuer: "sgisi-core",
		TTL:    1 * time.Hour,
	}
}

// Tokens issues and validates HS256 session tokens. Revocation state lives
// in Redis: signing out stores the token's JTI until its natural expiry, so
// revocation survives server restarts and is shared across instances.
type Tokens struct {
	config TokenConfig
	redis  redis.UniversalClient
}

// NewTokens creates a token manager
func NewTokens(cfg TokenConfig, client redis.UniversalClient) (*Tokens, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenConfig().TTL
	}
	return &Tokens{config: cfg, redis: client}, nil
}

func revocationKey(jti string) string {
	return "session:revoked:" + jti
}

// Issue signs a session token for the user
func (t *Tokens) Issue(u *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   u.ID,
			Issuer:    t.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.config.TTL)),
		},
		Email: u.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token, checks the signature, issuer, expiry and the
// revocation list, and returns the claims
func (t *Tokens) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return t.config.Secret, nil
		},
		jwt.WithIssuer(t.config.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if t.redis != nil {
		revoked, err := t.redis.Exists(ctx, revocationKey(claims.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked > 0 {
			return nil, ErrUnauthenticated
		}
	}
	return claims, nil
}

// Revoke invalidates the token until its natural expiry
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if t.redis == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return t.redis.Set(ctx, revocationKey(claims.ID), "1", ttl).Err()
}
