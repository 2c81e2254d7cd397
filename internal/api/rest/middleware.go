package rest

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/identity"
	"github.com/sgisi-platform/go-core/pkg/types"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ActorFrom returns the authenticated actor stored in the request context
func ActorFrom(ctx context.Context) (types.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(types.Actor)
	return actor, ok
}

// withActor stores the actor in the request context
func withActor(ctx context.Context, actor types.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// authMiddleware resolves the bearer token into an actor and rejects
// requests without a valid session
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		actor, err := s.resolver.Resolve(r.Context(), token)
		if err != nil {
			if err != identity.ErrUnauthenticated {
				s.logger.Warn("Actor resolution failed", zap.Error(err))
			}
			WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// mustActor pulls the actor from context; the auth middleware guarantees it
// is present on protected routes
func (s *Server) mustActor(w http.ResponseWriter, r *http.Request) (types.Actor, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return types.Actor{}, false
	}
	return actor, true
}
