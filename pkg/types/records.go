package types

import (
	"fmt"
	"time"
)

// IncidentState is the incident lifecycle state. The workflow is an
// unconstrained enumeration: any actor with update rights may set any value,
// there is no enforced transition order.
type IncidentState string

const (
	StateNew           IncidentState = "Nuevo"
	StateInvestigating IncidentState = "En investigacion"
	StateContained     IncidentState = "Contenido"
	StateEradicated    IncidentState = "Erradicado"
	StateClosed        IncidentState = "Cerrado"
)

// Valid reports whether the state is one of the enumerated literals
func (s IncidentState) Valid() bool {
	switch s {
	case StateNew, StateInvestigating, StateContained, StateEradicated, StateClosed:
		return true
	}
	return false
}

// Profile is a user's access-control record. The row id equals the
// authentication subject identifier and is immutable.
type Profile struct {
	ID     string `json:"id" db:"id"`
	Nombre string `json:"nombre" db:"nombre"`
	Role   Role   `json:"role" db:"role"`
	// Team is the profile's team reference, empty when unassigned
	Team string `json:"team,omitempty" db:"team"`
}

// Actor converts the profile row into the per-request actor identity
func (p *Profile) Actor() Actor {
	return Actor{ID: p.ID, Role: p.Role, Team: p.Team}
}

// Team is a security team. Only the security chief may see or manage teams.
type Team struct {
	ID        string    `json:"id" db:"id"`
	Nombre    string    `json:"nombre" db:"nombre"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Incident is a reported security incident.
//
// Dueno is the reporting user and is immutable after creation. Responsable
// references an analyst profile and Team a team row; both are assigned
// exclusively by the security chief during triage.
type Incident struct {
	ID             string        `json:"id" db:"id"`
	Titulo         string        `json:"titulo" db:"titulo"`
	Descripcion    string        `json:"descripcion" db:"descripcion"`
	Tipo           string        `json:"tipo" db:"tipo"`
	Nivel          string        `json:"nivel" db:"nivel"`
	ActivoAfectado string        `json:"activo_afectado" db:"activo_afectado"`
	Evidencia      string        `json:"evidencia" db:"evidencia"`
	Estado         IncidentState `json:"estado" db:"estado"`
	Dueno          string        `json:"dueño" db:"dueño"`
	Responsable    string        `json:"responsable,omitempty" db:"responsable"`
	Team           string        `json:"team,omitempty" db:"team"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Validate checks the fields required before an incident is persisted
func (i *Incident) Validate() error {
	if i.Titulo == "" {
		return fmt.Errorf("titulo is required")
	}
	if i.Dueno == "" {
		return fmt.Errorf("dueño is required")
	}
	if i.Estado == "" {
		return fmt.Errorf("estado is required")
	}
	if !i.Estado.Valid() {
		return fmt.Errorf("unknown estado %q", i.Estado)
	}
	return nil
}

// IncidentPatch is a partial incident update. Nil fields are left untouched.
// Which fields a caller may set is decided by the policy engine, not here.
type IncidentPatch struct {
	Titulo         *string        `json:"titulo,omitempty"`
	Descripcion    *string        `json:"descripcion,omitempty"`
	Tipo           *string        `json:"tipo,omitempty"`
	Nivel          *string        `json:"nivel,omitempty"`
	ActivoAfectado *string        `json:"activo_afectado,omitempty"`
	Evidencia      *string        `json:"evidencia,omitempty"`
	Estado         *IncidentState `json:"estado,omitempty"`
	Dueno          *string        `json:"dueño,omitempty"`
	Responsable    *string        `json:"responsable,omitempty"`
	Team           *string        `json:"team,omitempty"`
}

// TouchesAssignment reports whether the patch reassigns responsable or team
func (p *IncidentPatch) TouchesAssignment() bool {
	return p.Responsable != nil || p.Team != nil
}

// TouchesOwner reports whether the patch rewrites the reporting user
func (p *IncidentPatch) TouchesOwner() bool {
	return p.Dueno != nil
}

// Apply copies the set fields of the patch onto the incident
func (p *IncidentPatch) Apply(inc *Incident) {
	if p.Titulo != nil {
		inc.Titulo = *p.Titulo
	}
	if p.Descripcion != nil {
		inc.Descripcion = *p.Descripcion
	}
	if p.Tipo != nil {
		inc.Tipo = *p.Tipo
	}
	if p.Nivel != nil {
		inc.Nivel = *p.Nivel
	}
	if p.ActivoAfectado != nil {
		inc.ActivoAfectado = *p.ActivoAfectado
	}
	if p.Evidencia != nil {
		inc.Evidencia = *p.Evidencia
	}
	if p.Estado != nil {
		inc.Estado = *p.Estado
	}
	if p.Dueno != nil {
		inc.Dueno = *p.Dueno
	}
	if p.Responsable != nil {
		inc.Responsable = *p.Responsable
	}
	if p.Team != nil {
		inc.Team = *p.Team
	}
}

// ProfilePatch is a partial profile update (chief-only fields included)
type ProfilePatch struct {
	Nombre *string `json:"nombre,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Team   *string `json:"team,omitempty"`
}

// Apply copies the set fields of the patch onto the profile
func (p *ProfilePatch) Apply(prof *Profile) {
	if p.Nombre != nil {
		prof.Nombre = *p.Nombre
	}
	if p.Role != nil {
		prof.Role = *p.Role
	}
	if p.Team != nil {
		prof.Team = *p.Team
	}
}
