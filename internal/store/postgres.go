package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sgisi-platform/go-core/internal/db"
	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/pkg/types"
)

// Postgres implements the entity stores over PostgreSQL using lib/pq. Row
// scoping is compiled into the WHERE clause so that out-of-scope targets
// behave exactly like missing rows.
type Postgres struct {
	db    *sql.DB
	guard *Guard
}

// NewPostgres creates a Postgres-backed store set
func NewPostgres(database *sql.DB, engine *policy.Engine) *Postgres {
	return &Postgres{db: database, guard: NewGuard(engine)}
}

// incidentScopeSQL renders the scope as a WHERE fragment with placeholder
// numbering starting at argOffset+1
func incidentScopeSQL(scope policy.IncidentScope, argOffset int) (string, []interface{}) {
	if scope.All {
		return "TRUE", nil
	}
	var clauses []string
	var args []interface{}
	add := func(col, val string) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, argOffset+len(args)))
	}
	if scope.Dueno != "" {
		add(db.ColDueno, scope.Dueno)
	}
	if scope.Responsable != "" {
		add(db.ColResponsable, scope.Responsable)
	}
	if scope.Team != "" {
		add(db.ColTeam, scope.Team)
	}
	if len(clauses) == 0 {
		return "FALSE", nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

const incidentColumns = `id, titulo, descripcion, tipo, nivel, activo_afectado, evidencia, estado, "dueño", responsable, team, created_at`

func scanIncident(row interface{ Scan(...interface{}) error }) (*types.Incident, error) {
	var inc types.Incident
	var responsable, team sql.NullString
	err := row.Scan(
		&inc.ID, &inc.Titulo, &inc.Descripcion, &inc.Tipo, &inc.Nivel,
		&inc.ActivoAfectado, &inc.Evidencia, &inc.Estado,
		&inc.Dueno, &responsable, &team, &inc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inc.Responsable = responsable.String
	inc.Team = team.String
	return &inc, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Profiles

// Get returns a profile within the actor's visible set
func (s *Postgres) Get(ctx context.Context, actor types.Actor, id string) (*types.Profile, error) {
	scope := policy.ProfileScopeFor(actor)

	query := `SELECT id, nombre, role, team FROM profiles WHERE id = $1`
	args := []interface{}{id}
	if !scope.All {
		query += ` AND id = $2`
		args = append(args, scope.Self)
	}

	var p types.Profile
	var team sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Nombre, &p.Role, &team)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.Team = team.String
	return &p, nil
}

// List returns the profiles visible to the actor
func (s *Postgres) List(ctx context.Context, actor types.Actor) ([]types.Profile, error) {
	scope := policy.ProfileScopeFor(actor)

	query := `SELECT id, nombre, role, team FROM profiles`
	var args []interface{}
	if !scope.All {
		query += ` WHERE id = $1`
		args = append(args, scope.Self)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	out := make([]types.Profile, 0)
	for rows.Next() {
		var p types.Profile
		var team sql.NullString
		if err := rows.Scan(&p.ID, &p.Nombre, &p.Role, &team); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Team = team.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a profile row
func (s *Postgres) Create(ctx context.Context, actor types.Actor, p *types.Profile) error {
	if err := s.guard.ProfileCreate(ctx, actor, p); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, nombre, role, team) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Nombre, p.Role, nullable(p.Team),
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Update applies a patch to a profile (chief-only)
func (s *Postgres) Update(ctx context.Context, actor types.Actor, id string, patch *types.ProfilePatch) (*types.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var current types.Profile
	var team sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT id, nombre, role, team FROM profiles WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current.ID, &current.Nombre, &current.Role, &team)
	found := err != sql.ErrNoRows
	if err != nil && found {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	current.Team = team.String

	var target *types.Profile
	if found {
		target = &current
	}
	if err := s.guard.ProfileUpdate(ctx, actor, target, patch); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	patch.Apply(&current)
	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET nombre = $1, role = $2, team = $3 WHERE id = $4`,
		current.Nombre, current.Role, nullable(current.Team), current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &current, nil
}

// Teams

// CreateTeam inserts a team row (chief-only)
func (s *Postgres) CreateTeam(ctx context.Context, actor types.Actor, t *types.Team) (*types.Team, error) {
	if err := s.guard.TeamWrite(ctx, actor, types.OpCreate); err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team (id, nombre, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.Nombre, t.CreatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	out := *t
	return &out, nil
}

// GetTeam returns a team within the actor's visible set
func (s *Postgres) GetTeam(ctx context.Context, actor types.Actor, id string) (*types.Team, error) {
	if !policy.TeamScopeFor(actor).All {
		return nil, ErrNotFound
	}

	var t types.Team
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nombre, created_at FROM team WHERE id = $1`, id,
	).Scan(&t.ID, &t.Nombre, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query team: %w", err)
	}
	return &t, nil
}

// ListTeams returns the teams visible to the actor (empty for non-chiefs)
func (s *Postgres) ListTeams(ctx context.Context, actor types.Actor) ([]types.Team, error) {
	if !policy.TeamScopeFor(actor).All {
		return []types.Team{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nombre, created_at FROM team ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	out := make([]types.Team, 0)
	for rows.Next() {
		var t types.Team
		if err := rows.Scan(&t.ID, &t.Nombre, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTeam renames a team (chief-only)
func (s *Postgres) UpdateTeam(ctx context.Context, actor types.Actor, id string, nombre string) (*types.Team, error) {
	if err := s.guard.TeamWrite(ctx, actor, types.OpUpdate); err != nil {
		return nil, err
	}

	var t types.Team
	err := s.db.QueryRowContext(ctx,
		`UPDATE team SET nombre = $1 WHERE id = $2 RETURNING id, nombre, created_at`,
		nombre, id,
	).Scan(&t.ID, &t.Nombre, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	return &t, nil
}

// DeleteTeam removes a team (chief-only)
func (s *Postgres) DeleteTeam(ctx context.Context, actor types.Actor, id string) error {
	if err := s.guard.TeamWrite(ctx, actor, types.OpDelete); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM team WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Incidents

// CreateIncident inserts an incident
func (s *Postgres) CreateIncident(ctx context.Context, actor types.Actor, inc *types.Incident) (*types.Incident, error) {
	if err := s.guard.IncidentCreate(ctx, actor, inc); err != nil {
		return nil, err
	}
	if inc.ID == "" {
		inc.ID = uuid.New().String()
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidentes (`+incidentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inc.ID, inc.Titulo, inc.Descripcion, inc.Tipo, inc.Nivel,
		inc.ActivoAfectado, inc.Evidencia, inc.Estado,
		inc.Dueno, nullable(inc.Responsable), nullable(inc.Team), inc.CreatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert incident: %w", err)
	}
	out := *inc
	return &out, nil
}

// GetIncident returns an incident within the actor's visible set
func (s *Postgres) GetIncident(ctx context.Context, actor types.Actor, id string) (*types.Incident, error) {
	scopeSQL, scopeArgs := incidentScopeSQL(policy.IncidentScopeFor(actor), 1)
	args := append([]interface{}{id}, scopeArgs...)

	inc, err := scanIncident(s.db.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidentes WHERE id = $1 AND `+scopeSQL, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query incident: %w", err)
	}
	return inc, nil
}

// ListIncidents returns the incidents visible to the actor
func (s *Postgres) ListIncidents(ctx context.Context, actor types.Actor) ([]types.Incident, error) {
	scopeSQL, scopeArgs := incidentScopeSQL(policy.IncidentScopeFor(actor), 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+incidentColumns+` FROM incidentes WHERE `+scopeSQL+` ORDER BY created_at`,
		scopeArgs...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	out := make([]types.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

// UpdateIncident applies a patch to a visible incident. The scope predicate
// rides in the row lookup, so an out-of-scope target reads as a missing row.
func (s *Postgres) UpdateIncident(ctx context.Context, actor types.Actor, id string, patch *types.IncidentPatch) (*types.Incident, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	scopeSQL, scopeArgs := incidentScopeSQL(policy.IncidentScopeFor(actor), 1)
	args := append([]interface{}{id}, scopeArgs...)

	current, err := scanIncident(tx.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidentes WHERE id = $1 AND `+scopeSQL+` FOR UPDATE`,
		args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query incident: %w", err)
	}

	if err := s.guard.IncidentUpdate(ctx, actor, current, patch); err != nil {
		return nil, err
	}

	patch.Apply(current)
	_, err = tx.ExecContext(ctx,
		`UPDATE incidentes SET titulo = $1, descripcion = $2, tipo = $3, nivel = $4,
		 activo_afectado = $5, evidencia = $6, estado = $7, "dueño" = $8,
		 responsable = $9, team = $10 WHERE id = $11`,
		current.Titulo, current.Descripcion, current.Tipo, current.Nivel,
		current.ActivoAfectado, current.Evidencia, current.Estado, current.Dueno,
		nullable(current.Responsable), nullable(current.Team), current.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return current, nil
}

// DeleteIncident removes an incident (chief-only)
func (s *Postgres) DeleteIncident(ctx context.Context, actor types.Actor, id string) error {
	if err := s.guard.IncidentDelete(ctx, actor, &types.Incident{ID: id}); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM incidentes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Interface adapters

// PostgresProfiles adapts Postgres to the Profiles interface
type PostgresProfiles struct{ *Postgres }

// PostgresTeams adapts Postgres to the Teams interface
type PostgresTeams struct{ *Postgres }

// Create inserts a team row (chief-only)
func (s PostgresTeams) Create(ctx context.Context, actor types.Actor, t *types.Team) (*types.Team, error) {
	return s.CreateTeam(ctx, actor, t)
}

// Get returns a team within the actor's visible set
func (s PostgresTeams) Get(ctx context.Context, actor types.Actor, id string) (*types.Team, error) {
	return s.GetTeam(ctx, actor, id)
}

// List returns the teams visible to the actor
func (s PostgresTeams) List(ctx context.Context, actor types.Actor) ([]types.Team, error) {
	return s.ListTeams(ctx, actor)
}

// Update renames a team (chief-only)
func (s PostgresTeams) Update(ctx context.Context, actor types.Actor, id string, nombre string) (*types.Team, error) {
	return s.UpdateTeam(ctx, actor, id, nombre)
}

// Delete removes a team (chief-only)
func (s PostgresTeams) Delete(ctx context.Context, actor types.Actor, id string) error {
	return s.DeleteTeam(ctx, actor, id)
}

// PostgresIncidents adapts Postgres to the Incidents interface
type PostgresIncidents struct{ *Postgres }

// Create inserts an incident
func (s PostgresIncidents) Create(ctx context.Context, actor types.Actor, inc *types.Incident) (*types.Incident, error) {
	return s.CreateIncident(ctx, actor, inc)
}

// Get returns an incident within the actor's visible set
func (s PostgresIncidents) Get(ctx context.Context, actor types.Actor, id string) (*types.Incident, error) {
	return s.GetIncident(ctx, actor, id)
}

// List returns the incidents visible to the actor
func (s PostgresIncidents) List(ctx context.Context, actor types.Actor) ([]types.Incident, error) {
	return s.ListIncidents(ctx, actor)
}

// Update applies a patch to a visible incident
func (s PostgresIncidents) Update(ctx context.Context, actor types.Actor, id string, patch *types.IncidentPatch) (*types.Incident, error) {
	return s.UpdateIncident(ctx, actor, id, patch)
}

// Delete removes an incident (chief-only)
func (s PostgresIncidents) Delete(ctx context.Context, actor types.Actor, id string) error {
	return s.DeleteIncident(ctx, actor, id)
}
