package policy

import (
	"github.com/sgisi-platform/go-core/pkg/types"
)

// IncidentScope is the set of incident rows visible to an actor. Stores turn
// it into a WHERE clause so that row-level denials surface as empty result
// sets or zero affected rows, never as errors.
type IncidentScope struct {
	// All grants unrestricted visibility (security chief)
	All bool
	// Dueno, when set, grants rows owned by that user
	Dueno string
	// Responsable, when set, grants rows assigned to that analyst
	Responsable string
	// Team, when set, grants rows belonging to that team. The team grant and
	// the assignment grant form a union: either one is sufficient.
	Team string
}

// IncidentScopeFor resolves the visible incident set for an actor
func IncidentScopeFor(actor types.Actor) IncidentScope {
	switch actor.Role {
	case types.RoleSecurityChief:
		return IncidentScope{All: true}
	case types.RoleAnalyst:
		return IncidentScope{Responsable: actor.ID, Team: actor.Team}
	case types.RoleNormalUser:
		return IncidentScope{Dueno: actor.ID}
	}
	return IncidentScope{}
}

// Empty reports whether the scope matches no rows at all
func (s IncidentScope) Empty() bool {
	return !s.All && s.Dueno == "" && s.Responsable == "" && s.Team == ""
}

// Matches reports whether the incident falls inside the scope
func (s IncidentScope) Matches(inc *types.Incident) bool {
	if s.All {
		return true
	}
	if s.Dueno != "" && inc.Dueno == s.Dueno {
		return true
	}
	if s.Responsable != "" && inc.Responsable == s.Responsable {
		return true
	}
	if s.Team != "" && inc.Team == s.Team {
		return true
	}
	return false
}

// ProfileScope is the set of profile rows visible to an actor: the chief
// sees everything, everyone else sees only their own row.
type ProfileScope struct {
	All  bool
	Self string
}

// ProfileScopeFor resolves the visible profile set for an actor
func ProfileScopeFor(actor types.Actor) ProfileScope {
	if actor.IsChief() {
		return ProfileScope{All: true}
	}
	return ProfileScope{Self: actor.ID}
}

// Matches reports whether the profile falls inside the scope
func (s ProfileScope) Matches(p *types.Profile) bool {
	return s.All || (s.Self != "" && p.ID == s.Self)
}

// TeamScope is the set of team rows visible to an actor. Listing teams as a
// non-chief yields zero rows, not an error.
type TeamScope struct {
	All bool
}

// TeamScopeFor resolves the visible team set for an actor
func TeamScopeFor(actor types.Actor) TeamScope {
	return TeamScope{All: actor.IsChief()}
}

// Matches reports whether any team row falls inside the scope
func (s TeamScope) Matches(*types.Team) bool {
	return s.All
}
