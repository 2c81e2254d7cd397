// Package types provides shared types for the SGISI access-control core
package types

import (
	"fmt"
	"strings"
)

// Effect represents the authorization decision
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Operation represents a CRUD operation against an entity
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// EntityKind identifies one of the governed collections
type EntityKind string

const (
	KindProfile  EntityKind = "profile"
	KindTeam     EntityKind = "team"
	KindIncident EntityKind = "incidente"
)

// Role is the enumerated access-control role. The literals are exact and
// case-sensitive; they match the values stored in the profiles table.
type Role string

const (
	RoleNormalUser    Role = "Usuario_normal"
	RoleAnalyst       Role = "Analista"
	RoleSecurityChief Role = "Jefe de seguridad"
)

// legacyNormalUser is the space-separated spelling that older data carries.
// It is accepted on input and rewritten to the canonical underscore form.
const legacyNormalUser = "Usuario normal"

// NormalizeRole maps a raw role string to its canonical Role value.
// Unknown literals are rejected rather than passed through.
func NormalizeRole(raw string) (Role, error) {
	switch strings.TrimSpace(raw) {
	case string(RoleNormalUser), legacyNormalUser:
		return RoleNormalUser, nil
	case string(RoleAnalyst):
		return RoleAnalyst, nil
	case string(RoleSecurityChief):
		return RoleSecurityChief, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether the role is one of the three canonical literals
func (r Role) Valid() bool {
	switch r {
	case RoleNormalUser, RoleAnalyst, RoleSecurityChief:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation. It is built
// once per request by the identity resolver and passed explicitly into every
// policy decision; there is no ambient session state.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	// Team is the actor's team reference, empty when unassigned
	Team string `json:"team,omitempty"`
}

// IsChief reports whether the actor holds the unconditional-access role
func (a *Actor) IsChief() bool {
	return a.Role == RoleSecurityChief
}

// Decision is the outcome of a policy evaluation
type Decision struct {
	Effect Effect `json:"effect"`
	// Rule names the matrix rule that produced the decision, for audit
	Rule string `json:"rule,omitempty"`
}

// Allowed returns true if the effect is allow
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// Allow builds an allow decision attributed to the named rule
func Allow(rule string) Decision {
	return Decision{Effect: EffectAllow, Rule: rule}
}

// Deny builds a deny decision attributed to the named rule
func Deny(rule string) Decision {
	return Decision{Effect: EffectDeny, Rule: rule}
}
