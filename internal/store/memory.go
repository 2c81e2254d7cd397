package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Memory is an in-memory implementation of the three entity stores. It backs
// the test suites and local development; semantics mirror the Postgres
// backend exactly, including the empty-set shape of row-level denials.
type Memory struct {
	guard *Guard

	mu        sync.RWMutex
	profiles  map[string]types.Profile
	teams     map[string]types.Team
	incidents map[string]types.Incident
}

// NewMemory creates an empty in-memory store set
func NewMemory(engine *policy.Engine) *Memory {
	return &Memory{
		guard:     NewGuard(engine),
		profiles:  make(map[string]types.Profile),
		teams:     make(map[string]types.Team),
		incidents: make(map[string]types.Incident),
	}
}

// Profiles

// Get returns a profile within the actor's visible set
func (m *Memory) Get(ctx context.Context, actor types.Actor, id string) (*types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok || !policy.ProfileScopeFor(actor).Matches(&p) {
		return nil, ErrNotFound
	}
	out := p
	return &out, nil
}

// List returns the profiles visible to the actor
func (m *Memory) List(ctx context.Context, actor types.Actor) ([]types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scope := policy.ProfileScopeFor(actor)
	out := make([]types.Profile, 0)
	for _, p := range m.profiles {
		if scope.Matches(&p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create inserts a profile row
func (m *Memory) Create(ctx context.Context, actor types.Actor, p *types.Profile) error {
	if err := m.guard.ProfileCreate(ctx, actor, p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; exists {
		return ErrConflict
	}
	m.profiles[p.ID] = *p
	return nil
}

// Update applies a patch to a profile (chief-only)
func (m *Memory) Update(ctx context.Context, actor types.Actor, id string, patch *types.ProfilePatch) (*types.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.profiles[id]
	target := &current
	if !ok {
		target = nil
	}
	if err := m.guard.ProfileUpdate(ctx, actor, target, patch); err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	patch.Apply(&current)
	m.profiles[id] = current
	out := current
	return &out, nil
}

// Teams

// CreateTeam inserts a team row (chief-only)
func (m *Memory) CreateTeam(ctx context.Context, actor types.Actor, t *types.Team) (*types.Team, error) {
	if err := m.guard.TeamWrite(ctx, actor, types.OpCreate); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.teams[t.ID]; exists {
		return nil, ErrConflict
	}
	m.teams[t.ID] = *t
	out := *t
	return &out, nil
}

// GetTeam returns a team within the actor's visible set
func (m *Memory) GetTeam(ctx context.Context, actor types.Actor, id string) (*types.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teams[id]
	if !ok || !policy.TeamScopeFor(actor).Matches(&t) {
		return nil, ErrNotFound
	}
	out := t
	return &out, nil
}

// ListTeams returns the teams visible to the actor. Non-chiefs get an empty
// list, not an error.
func (m *Memory) ListTeams(ctx context.Context, actor types.Actor) ([]types.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scope := policy.TeamScopeFor(actor)
	out := make([]types.Team, 0)
	for _, t := range m.teams {
		if scope.Matches(&t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateTeam renames a team (chief-only)
func (m *Memory) UpdateTeam(ctx context.Context, actor types.Actor, id string, nombre string) (*types.Team, error) {
	if err := m.guard.TeamWrite(ctx, actor, types.OpUpdate); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Nombre = nombre
	m.teams[id] = t
	out := t
	return &out, nil
}

// DeleteTeam removes a team (chief-only)
func (m *Memory) DeleteTeam(ctx context.Context, actor types.Actor, id string) error {
	if err := m.guard.TeamWrite(ctx, actor, types.OpDelete); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return ErrNotFound
	}
	delete(m.teams, id)
	return nil
}

// Incidents

// CreateIncident inserts an incident
func (m *Memory) CreateIncident(ctx context.Context, actor types.Actor, inc *types.Incident) (*types.Incident, error) {
	if err := m.guard.IncidentCreate(ctx, actor, inc); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if inc.ID == "" {
		inc.ID = uuid.New().String()
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.incidents[inc.ID]; exists {
		return nil, ErrConflict
	}
	m.incidents[inc.ID] = *inc
	out := *inc
	return &out, nil
}

// GetIncident returns an incident within the actor's visible set
func (m *Memory) GetIncident(ctx context.Context, actor types.Actor, id string) (*types.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inc, ok := m.incidents[id]
	if !ok || !policy.IncidentScopeFor(actor).Matches(&inc) {
		return nil, ErrNotFound
	}
	out := inc
	return &out, nil
}

// ListIncidents returns the incidents visible to the actor
func (m *Memory) ListIncidents(ctx context.Context, actor types.Actor) ([]types.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scope := policy.IncidentScopeFor(actor)
	out := make([]types.Incident, 0)
	for _, inc := range m.incidents {
		if scope.Matches(&inc) {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateIncident applies a patch to a visible incident. Targets outside the
// actor's scope report ErrNotFound, exactly like a missing row.
func (m *Memory) UpdateIncident(ctx context.Context, actor types.Actor, id string, patch *types.IncidentPatch) (*types.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inc, ok := m.incidents[id]
	if !ok || !policy.IncidentScopeFor(actor).Matches(&inc) {
		return nil, ErrNotFound
	}
	if err := m.guard.IncidentUpdate(ctx, actor, &inc, patch); err != nil {
		return nil, err
	}

	patch.Apply(&inc)
	m.incidents[id] = inc
	out := inc
	return &out, nil
}

// DeleteIncident removes an incident (chief-only)
func (m *Memory) DeleteIncident(ctx context.Context, actor types.Actor, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inc, ok := m.incidents[id]
	var target *types.Incident
	if ok {
		target = &inc
	}
	if err := m.guard.IncidentDelete(ctx, actor, target); err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	delete(m.incidents, id)
	return nil
}

// Adapters pinning the Memory store to the entity interfaces

// MemoryProfiles adapts Memory to the Profiles interface
type MemoryProfiles struct{ *Memory }

// MemoryTeams adapts Memory to the Teams interface
type MemoryTeams struct{ *Memory }

// Create inserts a team row (chief-only)
func (s MemoryTeams) Create(ctx context.Context, actor types.Actor, t *types.Team) (*types.Team, error) {
	return s.CreateTeam(ctx, actor, t)
}

// Get returns a team within the actor's visible set
func (s MemoryTeams) Get(ctx context.Context, actor types.Actor, id string) (*types.Team, error) {
	return s.GetTeam(ctx, actor, id)
}

// List returns the teams visible to the actor
func (s MemoryTeams) List(ctx context.Context, actor types.Actor) ([]types.Team, error) {
	return s.ListTeams(ctx, actor)
}

// Update renames a team (chief-only)
func (s MemoryTeams) Update(ctx context.Context, actor types.Actor, id string, nombre string) (*types.Team, error) {
	return s.UpdateTeam(ctx, actor, id, nombre)
}

// Delete removes a team (chief-only)
func (s MemoryTeams) Delete(ctx context.Context, actor types.Actor, id string) error {
	return s.DeleteTeam(ctx, actor, id)
}

// MemoryIncidents adapts Memory to the Incidents interface
type MemoryIncidents struct{ *Memory }

// Create inserts an incident
func (s MemoryIncidents) Create(ctx context.Context, actor types.Actor, inc *types.Incident) (*types.Incident, error) {
	return s.CreateIncident(ctx, actor, inc)
}

// Get returns an incident within the actor's visible set
func (s MemoryIncidents) Get(ctx context.Context, actor types.Actor, id string) (*types.Incident, error) {
	return s.GetIncident(ctx, actor, id)
}

// List returns the incidents visible to the actor
func (s MemoryIncidents) List(ctx context.Context, actor types.Actor) ([]types.Incident, error) {
	return s.ListIncidents(ctx, actor)
}

// Update applies a patch to a visible incident
func (s MemoryIncidents) Update(ctx context.Context, actor types.Actor, id string, patch *types.IncidentPatch) (*types.Incident, error) {
	return s.UpdateIncident(ctx, actor, id, patch)
}

// Delete removes an incident (chief-only)
func (s MemoryIncidents) Delete(ctx context.Context, actor types.Actor, id string) error {
	return s.DeleteIncident(ctx, actor, id)
}
