package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgisi-platform/go-core/pkg/types"
)

func TestIncidentScopeFor(t *testing.T) {
	owned := &types.Incident{ID: "inc-1", Dueno: "user-1"}
	assigned := &types.Incident{ID: "inc-2", Dueno: "user-2", Responsable: "analyst-1"}
	teamRow := &types.Incident{ID: "inc-3", Dueno: "user-2", Responsable: "analyst-2", Team: "team-a"}
	unrelated := &types.Incident{ID: "inc-4", Dueno: "user-2", Team: "team-b"}

	t.Run("chief sees everything", func(t *testing.T) {
		scope := IncidentScopeFor(chief)
		assert.True(t, scope.All)
		for _, inc := range []*types.Incident{owned, assigned, teamRow, unrelated} {
			assert.True(t, scope.Matches(inc))
		}
	})

	t.Run("normal user sees owned rows only", func(t *testing.T) {
		scope := IncidentScopeFor(normal)
		assert.True(t, scope.Matches(owned))
		assert.False(t, scope.Matches(assigned))
		assert.False(t, scope.Matches(teamRow))
	})

	t.Run("analyst visibility is assignment or team union", func(t *testing.T) {
		scope := IncidentScopeFor(analyst)
		assert.True(t, scope.Matches(assigned))
		assert.True(t, scope.Matches(teamRow))
		assert.False(t, scope.Matches(owned))
		assert.False(t, scope.Matches(unrelated))
	})

	t.Run("teamless analyst falls back to assignment only", func(t *testing.T) {
		solo := types.Actor{ID: "analyst-9", Role: types.RoleAnalyst}
		scope := IncidentScopeFor(solo)
		assert.False(t, scope.Matches(teamRow))
		assert.False(t, scope.Matches(&types.Incident{Dueno: "x", Team: ""}))
	})

	t.Run("invalid role yields empty scope", func(t *testing.T) {
		scope := IncidentScopeFor(types.Actor{ID: "ghost", Role: "Invitado"})
		assert.True(t, scope.Empty())
		assert.False(t, scope.Matches(owned))
	})
}

func TestProfileScopeFor(t *testing.T) {
	own := &types.Profile{ID: "user-1"}
	other := &types.Profile{ID: "user-2"}

	assert.True(t, ProfileScopeFor(chief).Matches(other))
	assert.True(t, ProfileScopeFor(normal).Matches(own))
	assert.False(t, ProfileScopeFor(normal).Matches(other))
	assert.False(t, ProfileScopeFor(analyst).Matches(other))
}

func TestTeamScopeFor(t *testing.T) {
	row := &types.Team{ID: "team-a"}

	assert.True(t, TeamScopeFor(chief).Matches(row))
	assert.False(t, TeamScopeFor(analyst).Matches(row))
	assert.False(t, TeamScopeFor(normal).Matches(row))
}
