package policy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgisi-platform/go-core/pkg/types"
)

var (
	chief   = types.Actor{ID: "chief-1", Role: types.RoleSecurityChief}
	analyst = types.Actor{ID: "analyst-1", Role: types.RoleAnalyst, Team: "team-a"}
	normal  = types.Actor{ID: "user-1", Role: types.RoleNormalUser}
)

func strptr(s string) *string { return &s }

func TestEngine_IncidentMatrix(t *testing.T) {
	owned := &types.Incident{ID: "inc-1", Titulo: "phishing", Dueno: "user-1", Estado: types.StateNew}
	foreign := &types.Incident{ID: "inc-2", Titulo: "malware", Dueno: "user-2", Estado: types.StateNew}
	assigned := &types.Incident{ID: "inc-3", Titulo: "ddos", Dueno: "user-2", Responsable: "analyst-1", Estado: types.StateNew}
	teamOnly := &types.Incident{ID: "inc-4", Titulo: "leak", Dueno: "user-2", Responsable: "analyst-2", Team: "team-a", Estado: types.StateNew}
	unrelated := &types.Incident{ID: "inc-5", Titulo: "scan", Dueno: "user-2", Responsable: "analyst-2", Team: "team-b", Estado: types.StateNew}

	tests := []struct {
		name    string
		actor   types.Actor
		op      types.Operation
		inc     *types.Incident
		patch   *types.IncidentPatch
		allowed bool
		rule    string
	}{
		{"chief reads any row", chief, types.OpRead, unrelated, nil, true, RuleChiefUnconditional},
		{"chief updates any row", chief, types.OpUpdate, unrelated, &types.IncidentPatch{Responsable: strptr("analyst-1")}, true, RuleChiefUnconditional},
		{"chief deletes any row", chief, types.OpDelete, unrelated, nil, true, RuleChiefUnconditional},
		{"chief inserts with foreign owner", chief, types.OpCreate, foreign, nil, true, RuleChiefUnconditional},

		{"reporter inserts own incident", normal, types.OpCreate, owned, nil, true, RuleIncidentReporter},
		{"reporter cannot insert for others", normal, types.OpCreate, foreign, nil, false, RuleDefaultDeny},
		{"reporter reads own incident", normal, types.OpRead, owned, nil, true, RuleIncidentOwner},
		{"reporter cannot read foreign incident", normal, types.OpRead, foreign, nil, false, RuleDefaultDeny},
		{"reporter updates own incident", normal, types.OpUpdate, owned, &types.IncidentPatch{Descripcion: strptr("updated")}, true, RuleIncidentOwner},
		{"reporter cannot update foreign incident", normal, types.OpUpdate, foreign, &types.IncidentPatch{Descripcion: strptr("x")}, false, RuleDefaultDeny},
		{"reporter cannot delete", normal, types.OpDelete, owned, nil, false, RuleDefaultDeny},
		{"reporter cannot reassign owner", normal, types.OpUpdate, owned, &types.IncidentPatch{Dueno: strptr("user-2")}, false, RuleOwnerImmutable},
		{"reporter cannot self-assign responsable", normal, types.OpUpdate, owned, &types.IncidentPatch{Responsable: strptr("user-1")}, false, RuleAssignmentReserved},
		{"reporter cannot set team", normal, types.OpUpdate, owned, &types.IncidentPatch{Team: strptr("team-a")}, false, RuleAssignmentReserved},
		{"no-op owner patch passes", normal, types.OpUpdate, owned, &types.IncidentPatch{Dueno: strptr("user-1")}, true, RuleIncidentOwner},

		{"analyst cannot insert", analyst, types.OpCreate, assigned, nil, false, RuleDefaultDeny},
		{"analyst reads assigned incident", analyst, types.OpRead, assigned, nil, true, RuleIncidentAssignee},
		{"analyst reads team incident", analyst, types.OpRead, teamOnly, nil, true, RuleIncidentAssignee},
		{"analyst cannot read unrelated incident", analyst, types.OpRead, unrelated, nil, false, RuleDefaultDeny},
		{"analyst updates assigned incident", analyst, types.OpUpdate, assigned, &types.IncidentPatch{Estado: stateptr(types.StateInvestigating)}, true, RuleIncidentAssignee},
		{"analyst cannot update team-only incident", analyst, types.OpUpdate, teamOnly, &types.IncidentPatch{Estado: stateptr(types.StateContained)}, false, RuleDefaultDeny},
		{"analyst cannot reassign responsable", analyst, types.OpUpdate, assigned, &types.IncidentPatch{Responsable: strptr("analyst-2")}, false, RuleAssignmentReserved},
		{"analyst cannot move incident between teams", analyst, types.OpUpdate, assigned, &types.IncidentPatch{Team: strptr("team-b")}, false, RuleAssignmentReserved},
		{"analyst cannot rewrite owner", analyst, types.OpUpdate, assigned, &types.IncidentPatch{Dueno: strptr("analyst-1")}, false, RuleOwnerImmutable},
		{"analyst cannot delete", analyst, types.OpDelete, assigned, nil, false, RuleDefaultDeny},
	}

	eng := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := eng.Authorize(context.Background(), &Request{
				Actor:         tt.actor,
				Op:            tt.op,
				Kind:          types.KindIncident,
				Incident:      tt.inc,
				IncidentPatch: tt.patch,
			})

			assert.Equal(t, tt.allowed, d.Allowed())
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func stateptr(s types.IncidentState) *types.IncidentState { return &s }

func TestEngine_ProfileMatrix(t *testing.T) {
	own := &types.Profile{ID: "user-1", Nombre: "Ana", Role: types.RoleNormalUser}
	other := &types.Profile{ID: "user-2", Nombre: "Luis", Role: types.RoleNormalUser}
	bootstrap := &types.Profile{ID: "user-1", Nombre: "Ana", Role: types.RoleNormalUser}
	escalated := &types.Profile{ID: "user-1", Nombre: "Ana", Role: types.RoleSecurityChief}

	tests := []struct {
		name    string
		actor   types.Actor
		op      types.Operation
		profile *types.Profile
		allowed bool
	}{
		{"chief reads any profile", chief, types.OpRead, other, true},
		{"chief updates any profile", chief, types.OpUpdate, other, true},
		{"user reads own profile", normal, types.OpRead, own, true},
		{"user cannot read other profile", normal, types.OpRead, other, false},
		{"user cannot update own profile", normal, types.OpUpdate, own, false},
		{"analyst cannot read other profile", analyst, types.OpRead, other, false},
		{"bootstrap insert allowed", normal, types.OpCreate, bootstrap, true},
		{"bootstrap cannot claim elevated role", normal, types.OpCreate, escalated, false},
		{"bootstrap cannot target another id", normal, types.OpCreate, other, false},
	}

	eng := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := eng.Authorize(context.Background(), &Request{
				Actor:   tt.actor,
				Op:      tt.op,
				Kind:    types.KindProfile,
				Profile: tt.profile,
			})
			assert.Equal(t, tt.allowed, d.Allowed())
		})
	}
}

func TestEngine_TeamMatrix(t *testing.T) {
	eng := New(nil)

	for _, op := range []types.Operation{types.OpCreate, types.OpRead, types.OpUpdate, types.OpDelete} {
		d := eng.Authorize(context.Background(), &Request{Actor: chief, Op: op, Kind: types.KindTeam})
		assert.True(t, d.Allowed(), "chief %s on team", op)

		d = eng.Authorize(context.Background(), &Request{Actor: analyst, Op: op, Kind: types.KindTeam})
		assert.False(t, d.Allowed(), "analyst %s on team", op)

		d = eng.Authorize(context.Background(), &Request{Actor: normal, Op: op, Kind: types.KindTeam})
		assert.False(t, d.Allowed(), "normal user %s on team", op)
	}
}

func TestEngine_InvalidActor(t *testing.T) {
	eng := New(nil)

	tests := []struct {
		name  string
		actor types.Actor
	}{
		{"empty actor", types.Actor{}},
		{"missing id", types.Actor{Role: types.RoleSecurityChief}},
		{"unknown role", types.Actor{ID: "user-1", Role: "Administrador"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := eng.Authorize(context.Background(), &Request{
				Actor:    tt.actor,
				Op:       types.OpRead,
				Kind:     types.KindIncident,
				Incident: &types.Incident{Dueno: "user-1"},
			})
			assert.False(t, d.Allowed())
			assert.Equal(t, RuleDefaultDeny, d.Rule)
		})
	}
}

func TestEngine_Idempotent(t *testing.T) {
	eng := New(nil)
	req := &Request{
		Actor:    analyst,
		Op:       types.OpRead,
		Kind:     types.KindIncident,
		Incident: &types.Incident{ID: "inc-1", Dueno: "user-2", Responsable: "analyst-1"},
	}

	first := eng.Authorize(context.Background(), req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, eng.Authorize(context.Background(), req))
	}
}

type captureRecorder struct {
	mu        sync.Mutex
	decisions []types.Decision
}

func (c *captureRecorder) RecordDecision(_ context.Context, _ *Request, d types.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions = append(c.decisions, d)
}

func TestEngine_NotifiesRecorders(t *testing.T) {
	first := &captureRecorder{}
	second := &captureRecorder{}
	eng := New(nil, WithRecorder(first), WithRecorder(second))

	eng.Authorize(context.Background(), &Request{
		Actor:    normal,
		Op:       types.OpRead,
		Kind:     types.KindIncident,
		Incident: &types.Incident{Dueno: "user-1"},
	})
	eng.Authorize(context.Background(), &Request{
		Actor: normal,
		Op:    types.OpRead,
		Kind:  types.KindTeam,
	})

	require.Len(t, first.decisions, 2)
	require.Len(t, second.decisions, 2)
	assert.True(t, first.decisions[0].Allowed())
	assert.False(t, first.decisions[1].Allowed())
}
