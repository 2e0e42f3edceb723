package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

func newVisitMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func visitRows() *sqlmock.Rows {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "tenant_id", "schedule_id", "route_id", "route_customer_id", "agent_id", "visit_date", "outcome", "notes", "created_by", "created_at", "updated_at"}).
		AddRow("visit-1", "t-1", "sched-1", "route-1", "rc-1", "agent-7", day, "PENDING", nil, "user-1", time.Now(), time.Now())
}

func TestVisitRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pending := models.VisitOutcomePending

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, tenant_id, schedule_id, route_id, route_customer_id, agent_id, visit_date, outcome, notes, created_by, created_at, updated_at FROM visits WHERE tenant_id = $1 AND agent_id = $2 AND outcome = $3 AND visit_date >= $4 ORDER BY visit_date ASC LIMIT 50 OFFSET 0`)).
		WithArgs("t-1", "agent-7", pending, from).
		WillReturnRows(visitRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visits WHERE tenant_id = $1 AND agent_id = $2 AND outcome = $3 AND visit_date >= $4`)).
		WithArgs("t-1", "agent-7", pending, from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	visits, total, err := repo.List(context.Background(), models.VisitFilter{
		TenantID: "t-1",
		AgentID:  "agent-7",
		Outcome:  &pending,
		DateFrom: &from,
		SortBy:   "not_a_column",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, visits, 1)
	assert.Equal(t, "visit-1", visits[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectQuery("SELECT .* FROM visits WHERE tenant_id = .* AND schedule_id = .* ORDER BY visit_date ASC").
		WithArgs("t-1", "sched-1").
		WillReturnRows(visitRows())

	visits, err := repo.ListBySchedule(context.Background(), "t-1", "sched-1")
	require.NoError(t, err)
	assert.Len(t, visits, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectQuery("SELECT .* FROM visits WHERE tenant_id").
		WithArgs("t-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "t-1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectExec("INSERT INTO visits").
		WithArgs(sqlmock.AnyArg(), "t-1", nil, "route-1", "rc-1", nil, sqlmock.AnyArg(), models.VisitOutcomePending, nil, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	visit := &models.Visit{
		TenantID:        "t-1",
		RouteID:         "route-1",
		RouteCustomerID: "rc-1",
		VisitDate:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Outcome:         models.VisitOutcomePending,
		CreatedBy:       "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), visit))
	assert.NotEmpty(t, visit.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	mock.ExpectExec("INSERT INTO visits").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "visits_schedule_id_visit_date_key"})

	err := repo.Create(context.Background(), &models.Visit{
		TenantID:        "t-1",
		RouteID:         "route-1",
		RouteCustomerID: "rc-1",
		VisitDate:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Outcome:         models.VisitOutcomePending,
		CreatedBy:       "user-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateVisit.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryUpdateOutcome(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	notes := "left package with neighbour"
	mock.ExpectExec("UPDATE visits SET outcome").
		WithArgs("t-1", "visit-1", models.VisitOutcomeSuccessful, &notes).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateOutcome(context.Background(), "t-1", "visit-1", models.VisitOutcomeSuccessful, &notes))

	mock.ExpectExec("UPDATE visits SET outcome").
		WithArgs("t-1", "missing", models.VisitOutcomeCancelled, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateOutcome(context.Background(), "t-1", "missing", models.VisitOutcomeCancelled, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryCountByOutcome(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	rows := sqlmock.NewRows([]string{"outcome", "total"}).
		AddRow("PENDING", 5).
		AddRow("SUCCESSFUL", 12)
	mock.ExpectQuery("SELECT outcome, COUNT").
		WithArgs("t-1").
		WillReturnRows(rows)

	counts, err := repo.CountByOutcome(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 5, counts[models.VisitOutcomePending])
	assert.Equal(t, 12, counts[models.VisitOutcomeSuccessful])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepositoryCountUnassigned(t *testing.T) {
	db, mock, cleanup := newVisitMock(t)
	defer cleanup()
	repo := NewVisitRepository(db)

	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visits WHERE tenant_id = $1 AND agent_id IS NULL AND visit_date BETWEEN $2 AND $3`)).
		WithArgs("t-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnassigned(context.Background(), "t-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
