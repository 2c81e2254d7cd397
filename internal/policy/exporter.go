package policy

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sgisi-platform/go-core/pkg/types"
)

// ExportFormat represents the export format type
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// MatrixEntry describes one cell of the decision table in exported form
type MatrixEntry struct {
	Entity    types.EntityKind `json:"entity" yaml:"entity"`
	Operation types.Operation  `json:"operation" yaml:"operation"`
	Role      types.Role       `json:"role" yaml:"role"`
	Effect    types.Effect     `json:"effect" yaml:"effect"`
	// Condition is a human-readable row condition, empty when unconditional
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// ExportMetadata contains metadata about the export
type ExportMetadata struct {
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Version    string    `json:"version" yaml:"version"`
	EntryCount int       `json:"entryCount" yaml:"entryCount"`
}

// ExportResult represents the rendered decision table
type ExportResult struct {
	Matrix   []MatrixEntry   `json:"matrix" yaml:"matrix"`
	Metadata *ExportMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Exporter renders the compiled decision table for operators. The table is
// not loaded from anywhere: it is the engine's behavior written out, kept in
// sync by the engine test suite.
type Exporter struct {
	version string
}

// NewExporter creates a matrix exporter
func NewExporter(version string) *Exporter {
	return &Exporter{version: version}
}

const (
	condOwnRowOnly   = "row.id == actor.id"
	condOwnerOnly    = "row.dueño == actor.id"
	condOwnerInsert  = "row.dueño == actor.id"
	condOwnerEdit    = "row.dueño == actor.id && dueño immutable"
	condAssignedRead = "row.responsable == actor.id || row.team == actor.team"
	condAssignedEdit = "row.responsable == actor.id && responsable/team immutable"
)

// matrix returns one entry per decision-table cell
func (e *Exporter) matrix() []MatrixEntry {
	allRoles := []types.Role{types.RoleNormalUser, types.RoleAnalyst, types.RoleSecurityChief}

	var entries []MatrixEntry
	add := func(kind types.EntityKind, op types.Operation, role types.Role, effect types.Effect, cond string) {
		entries = append(entries, MatrixEntry{
			Entity: kind, Operation: op, Role: role, Effect: effect, Condition: cond,
		})
	}

	// Profiles: own row readable, chief manages everything
	for _, role := range []types.Role{types.RoleNormalUser, types.RoleAnalyst} {
		add(types.KindProfile, types.OpRead, role, types.EffectAllow, condOwnRowOnly)
		add(types.KindProfile, types.OpUpdate, role, types.EffectDeny, "")
	}
	add(types.KindProfile, types.OpRead, types.RoleSecurityChief, types.EffectAllow, "")
	add(types.KindProfile, types.OpUpdate, types.RoleSecurityChief, types.EffectAllow, "")

	// Teams: chief-only across every operation
	for _, op := range []types.Operation{types.OpCreate, types.OpRead, types.OpUpdate, types.OpDelete} {
		for _, role := range allRoles {
			effect := types.EffectDeny
			if role == types.RoleSecurityChief {
				effect = types.EffectAllow
			}
			add(types.KindTeam, op, role, effect, "")
		}
	}

	// Incidents
	add(types.KindIncident, types.OpCreate, types.RoleNormalUser, types.EffectAllow, condOwnerInsert)
	add(types.KindIncident, types.OpCreate, types.RoleAnalyst, types.EffectDeny, "")
	add(types.KindIncident, types.OpCreate, types.RoleSecurityChief, types.EffectAllow, "")

	add(types.KindIncident, types.OpRead, types.RoleNormalUser, types.EffectAllow, condOwnerOnly)
	add(types.KindIncident, types.OpRead, types.RoleAnalyst, types.EffectAllow, condAssignedRead)
	add(types.KindIncident, types.OpRead, types.RoleSecurityChief, types.EffectAllow, "")

	add(types.KindIncident, types.OpUpdate, types.RoleNormalUser, types.EffectAllow, condOwnerEdit)
	add(types.KindIncident, types.OpUpdate, types.RoleAnalyst, types.EffectAllow, condAssignedEdit)
	add(types.KindIncident, types.OpUpdate, types.RoleSecurityChief, types.EffectAllow, "")

	add(types.KindIncident, types.OpDelete, types.RoleNormalUser, types.EffectDeny, "")
	add(types.KindIncident, types.OpDelete, types.RoleAnalyst, types.EffectDeny, "")
	add(types.KindIncident, types.OpDelete, types.RoleSecurityChief, types.EffectAllow, "")

	return entries
}

// Export renders the decision table
func (e *Exporter) Export() *ExportResult {
	matrix := e.matrix()
	return &ExportResult{
		Matrix: matrix,
		Metadata: &ExportMetadata{
			Timestamp:  time.Now().UTC(),
			Version:    e.version,
			EntryCount: len(matrix),
		},
	}
}

// ExportTo writes the rendered table to w in the requested format
func (e *Exporter) ExportTo(w io.Writer, format ExportFormat) error {
	result := e.Export()

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(result)
	}
	return fmt.Errorf("unsupported export format %q", format)
}
