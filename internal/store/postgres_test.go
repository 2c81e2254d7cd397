package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/pkg/types"
)

func newTestPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewPostgres(database, policy.New(nil)), mock
}

func incidentRows(incs ...types.Incident) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "titulo", "descripcion", "tipo", "nivel", "activo_afectado",
		"evidencia", "estado", "dueño", "responsable", "team", "created_at",
	})
	for _, inc := range incs {
		rows.AddRow(inc.ID, inc.Titulo, inc.Descripcion, inc.Tipo, inc.Nivel,
			inc.ActivoAfectado, inc.Evidencia, inc.Estado, inc.Dueno,
			nullable(inc.Responsable), nullable(inc.Team), inc.CreatedAt)
	}
	return rows
}

func TestPostgres_GetIncident_OwnerScope(t *testing.T) {
	s, mock := newTestPostgres(t)

	inc := types.Incident{ID: "inc-1", Titulo: "phishing", Dueno: "user-1", Estado: types.StateNew, CreatedAt: time.Now()}
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND ("dueño" = $2)`)).
		WithArgs("inc-1", "user-1").
		WillReturnRows(incidentRows(inc))

	got, err := s.GetIncident(context.Background(), userA, "inc-1")
	require.NoError(t, err)
	assert.Equal(t, "phishing", got.Titulo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetIncident_OutOfScopeReadsAsMissing(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND ("dueño" = $2)`)).
		WithArgs("inc-1", "user-2").
		WillReturnRows(incidentRows())

	_, err := s.GetIncident(context.Background(), userB, "inc-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetIncident_ChiefUnscoped(t *testing.T) {
	s, mock := newTestPostgres(t)

	inc := types.Incident{ID: "inc-1", Titulo: "x", Dueno: "user-9", Estado: types.StateNew, CreatedAt: time.Now()}
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND TRUE`)).
		WithArgs("inc-1").
		WillReturnRows(incidentRows(inc))

	_, err := s.GetIncident(context.Background(), chief, "inc-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListIncidents_AnalystUnion(t *testing.T) {
	s, mock := newTestPostgres(t)

	assigned := types.Incident{ID: "inc-1", Titulo: "a", Dueno: "user-2", Responsable: "analyst-1", Estado: types.StateNew, CreatedAt: time.Now()}
	teamRow := types.Incident{ID: "inc-2", Titulo: "b", Dueno: "user-2", Team: "team-a", Estado: types.StateNew, CreatedAt: time.Now()}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (responsable = $1 OR team = $2) ORDER BY created_at`)).
		WithArgs("analyst-1", "team-a").
		WillReturnRows(incidentRows(assigned, teamRow))

	list, err := s.ListIncidents(context.Background(), analystA)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateIncident_AnalystDeniedBeforeSQL(t *testing.T) {
	s, mock := newTestPostgres(t)

	// No SQL expectations: the guard refuses before the insert runs
	_, err := s.CreateIncident(context.Background(), analystA, &types.Incident{
		Titulo: "x", Dueno: "analyst-1", Estado: types.StateNew,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateIncident_Reporter(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO incidentes`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := s.CreateIncident(context.Background(), userA, &types.Incident{
		Titulo: "phishing",
		Estado: types.StateNew,
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", created.Dueno)
	assert.NotEmpty(t, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateIncident_AssignedAnalyst(t *testing.T) {
	s, mock := newTestPostgres(t)

	current := types.Incident{ID: "inc-1", Titulo: "a", Dueno: "user-2", Responsable: "analyst-1", Estado: types.StateNew, CreatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND (responsable = $2 OR team = $3) FOR UPDATE`)).
		WithArgs("inc-1", "analyst-1", "team-a").
		WillReturnRows(incidentRows(current))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE incidentes SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := s.UpdateIncident(context.Background(), analystA, "inc-1", &types.IncidentPatch{
		Estado: stateptr(types.StateInvestigating),
	})
	require.NoError(t, err)
	assert.Equal(t, types.StateInvestigating, updated.Estado)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateIncident_ReassignmentDenied(t *testing.T) {
	s, mock := newTestPostgres(t)

	current := types.Incident{ID: "inc-1", Titulo: "a", Dueno: "user-2", Responsable: "analyst-1", Estado: types.StateNew, CreatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("inc-1", "analyst-1", "team-a").
		WillReturnRows(incidentRows(current))
	mock.ExpectRollback()

	_, err := s.UpdateIncident(context.Background(), analystA, "inc-1", &types.IncidentPatch{
		Responsable: strptr("analyst-2"),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateIncident_OutOfScope(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("inc-1", "user-1").
		WillReturnRows(incidentRows())
	mock.ExpectRollback()

	_, err := s.UpdateIncident(context.Background(), userA, "inc-1", &types.IncidentPatch{
		Descripcion: strptr("x"),
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteIncident(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM incidentes WHERE id = $1`)).
		WithArgs("inc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteIncident(context.Background(), chief, "inc-1"), ErrNotFound)
	assert.ErrorIs(t, s.DeleteIncident(context.Background(), analystA, "inc-1"), ErrPermissionDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ProfileGet_SelfScope(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND id = $2`)).
		WithArgs("user-2", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "role", "team"}))

	_, err := s.Get(context.Background(), userA, "user-2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ProfileList_Chief(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM profiles ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "role", "team"}).
			AddRow("user-1", "Ana", "Usuario_normal", nil).
			AddRow("analyst-1", "Luis", "Analista", "team-a"))

	list, err := s.List(context.Background(), chief)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, types.RoleAnalyst, list[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_TeamsNonChief(t *testing.T) {
	s, mock := newTestPostgres(t)

	// Listing teams as a non-chief never reaches the database
	list, err := s.ListTeams(context.Background(), analystA)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.GetTeam(context.Background(), userA, "team-a")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ProfileUpdate_ChiefPromotes(t *testing.T) {
	s, mock := newTestPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM profiles WHERE id = $1 FOR UPDATE`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "role", "team"}).
			AddRow("user-1", "Ana", "Usuario_normal", nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE profiles SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	role := types.RoleAnalyst
	team := "team-a"
	updated, err := s.Update(context.Background(), chief, "user-1", &types.ProfilePatch{Role: &role, Team: &team})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAnalyst, updated.Role)
	assert.Equal(t, "team-a", updated.Team)
	assert.NoError(t, mock.ExpectationsWereMet())
}
