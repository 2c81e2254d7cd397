// Package store provides the governed entity stores. Every operation takes
// the calling actor and is checked against the policy engine before anything
// is materialized: operation-level denials come back as ErrPermissionDenied,
// row-level denials as empty result sets or ErrNotFound.
package store

import (
	"context"
	"errors"

	"github.com/sgisi-platform/go-core/pkg/types"
)

var (
	// ErrPermissionDenied is an operation-level authorization denial. The
	// message is deliberately generic; internals are never leaked to callers.
	ErrPermissionDenied = errors.New("insufficient permissions")

	// ErrNotFound is returned when a row does not exist or is outside the
	// caller's visible set. The two cases are indistinguishable on purpose.
	ErrNotFound = errors.New("row not found")

	// ErrInvalidInput is returned when validation rejects a row before
	// persistence
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when an insert collides with an existing row
	ErrConflict = errors.New("row already exists")
)

// Profiles is the profile entity store
type Profiles interface {
	// Get returns a profile within the actor's visible set
	Get(ctx context.Context, actor types.Actor, id string) (*types.Profile, error)

	// List returns the profiles visible to the actor (all rows for the
	// chief, the actor's own row otherwise)
	List(ctx context.Context, actor types.Actor) ([]types.Profile, error)

	// Create inserts a profile row. Non-chief actors may only bootstrap
	// their own lowest-privilege row.
	Create(ctx context.Context, actor types.Actor, p *types.Profile) error

	// Update applies a patch to a profile. Chief-only.
	Update(ctx context.Context, actor types.Actor, id string, patch *types.ProfilePatch) (*types.Profile, error)
}

// Teams is the team entity store. Every write is chief-only; non-chief reads
// return empty sets rather than errors.
type Teams interface {
	Create(ctx context.Context, actor types.Actor, t *types.Team) (*types.Team, error)
	Get(ctx context.Context, actor types.Actor, id string) (*types.Team, error)
	List(ctx context.Context, actor types.Actor) ([]types.Team, error)
	Update(ctx context.Context, actor types.Actor, id string, nombre string) (*types.Team, error)
	Delete(ctx context.Context, actor types.Actor, id string) error
}

// Incidents is the incident entity store
type Incidents interface {
	// Create inserts an incident. Normal users report incidents they own;
	// the chief may insert with any dueño; analysts are refused outright.
	Create(ctx context.Context, actor types.Actor, inc *types.Incident) (*types.Incident, error)

	// Get returns an incident within the actor's visible set
	Get(ctx context.Context, actor types.Actor, id string) (*types.Incident, error)

	// List returns the incidents visible to the actor
	List(ctx context.Context, actor types.Actor) ([]types.Incident, error)

	// Update applies a patch to a visible incident. A patch that rewrites a
	// reserved field (dueño for everyone, responsable/team for non-chiefs)
	// fails with ErrPermissionDenied; a target outside the visible set fails
	// with ErrNotFound.
	Update(ctx context.Context, actor types.Actor, id string, patch *types.IncidentPatch) (*types.Incident, error)

	// Delete removes an incident. Chief-only; observed only in cleanup flows.
	Delete(ctx context.Context, actor types.Actor, id string) error
}
