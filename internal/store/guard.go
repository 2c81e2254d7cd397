package store

import (
	"context"
	"fmt"

	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Guard translates policy decisions into store errors. Both backends run the
// same operation-level checks through it; row-level scoping stays in each
// backend's query layer.
type Guard struct {
	engine *policy.Engine
}

// NewGuard creates a guard over the given engine
func NewGuard(engine *policy.Engine) *Guard {
	return &Guard{engine: engine}
}

// Engine exposes the underlying decision engine
func (g *Guard) Engine() *policy.Engine {
	return g.engine
}

func (g *Guard) check(ctx context.Context, req *policy.Request) error {
	if d := g.engine.Authorize(ctx, req); !d.Allowed() {
		return ErrPermissionDenied
	}
	return nil
}

// IncidentCreate validates and authorizes an incident insert. An empty dueño
// is filled in with the reporting actor before the check.
func (g *Guard) IncidentCreate(ctx context.Context, actor types.Actor, inc *types.Incident) error {
	if inc.Dueno == "" {
		inc.Dueno = actor.ID
	}
	if err := inc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return g.check(ctx, &policy.Request{
		Actor:    actor,
		Op:       types.OpCreate,
		Kind:     types.KindIncident,
		Incident: inc,
	})
}

// IncidentUpdate authorizes a patch against the current row state. The caller
// must have already established that current is inside the actor's scope.
func (g *Guard) IncidentUpdate(ctx context.Context, actor types.Actor, current *types.Incident, patch *types.IncidentPatch) error {
	if patch != nil && patch.Estado != nil && !patch.Estado.Valid() {
		return fmt.Errorf("%w: unknown estado %q", ErrInvalidInput, *patch.Estado)
	}
	return g.check(ctx, &policy.Request{
		Actor:         actor,
		Op:            types.OpUpdate,
		Kind:          types.KindIncident,
		Incident:      current,
		IncidentPatch: patch,
	})
}

// IncidentDelete authorizes an incident delete (chief-only)
func (g *Guard) IncidentDelete(ctx context.Context, actor types.Actor, current *types.Incident) error {
	return g.check(ctx, &policy.Request{
		Actor:    actor,
		Op:       types.OpDelete,
		Kind:     types.KindIncident,
		Incident: current,
	})
}

// TeamWrite authorizes a team mutation
func (g *Guard) TeamWrite(ctx context.Context, actor types.Actor, op types.Operation) error {
	return g.check(ctx, &policy.Request{
		Actor: actor,
		Op:    op,
		Kind:  types.KindTeam,
	})
}

// ProfileCreate authorizes a profile insert
func (g *Guard) ProfileCreate(ctx context.Context, actor types.Actor, p *types.Profile) error {
	if !p.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, p.Role)
	}
	return g.check(ctx, &policy.Request{
		Actor:   actor,
		Op:      types.OpCreate,
		Kind:    types.KindProfile,
		Profile: p,
	})
}

// ProfileUpdate authorizes a profile patch (chief-only)
func (g *Guard) ProfileUpdate(ctx context.Context, actor types.Actor, current *types.Profile, patch *types.ProfilePatch) error {
	if patch != nil && patch.Role != nil && !patch.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *patch.Role)
	}
	return g.check(ctx, &policy.Request{
		Actor:        actor,
		Op:           types.OpUpdate,
		Kind:         types.KindProfile,
		Profile:      current,
		ProfilePatch: patch,
	})
}
