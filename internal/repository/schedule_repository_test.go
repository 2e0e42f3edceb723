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
)

func newScheduleMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scheduleRows() *sqlmock.Rows {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "tenant_id", "route_id", "route_customer_id", "frequency", "interval_count", "weekdays", "day_of_month", "start_date", "end_date", "exclude_dates", "created_at", "updated_at"}).
		AddRow("sched-1", "t-1", "route-1", "rc-1", "WEEKLY", 2, "{1,4}", nil, start, nil, []byte(`["2024-03-08"]`), time.Now(), time.Now())
}

func TestScheduleRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, tenant_id, route_id, route_customer_id, frequency, interval_count, weekdays, day_of_month, start_date, end_date, exclude_dates, created_at, updated_at FROM visit_schedules WHERE tenant_id = $1 AND route_id = $2 AND frequency = $3 ORDER BY created_at DESC LIMIT 20 OFFSET 0`)).
		WithArgs("t-1", "route-1", models.ScheduleFrequencyWeekly).
		WillReturnRows(scheduleRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visit_schedules WHERE tenant_id = $1 AND route_id = $2 AND frequency = $3`)).
		WithArgs("t-1", "route-1", models.ScheduleFrequencyWeekly).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	weekly := models.ScheduleFrequencyWeekly
	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{TenantID: "t-1", RouteID: "route-1", Frequency: &weekly})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, schedules, 1)
	assert.Equal(t, pq.Int64Array{1, 4}, schedules[0].Weekdays)
	require.Len(t, schedules[0].ExcludeDates, 1)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), schedules[0].ExcludeDates[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("SELECT .* FROM visit_schedules WHERE tenant_id").
		WithArgs("t-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "t-1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO visit_schedules").
		WithArgs(sqlmock.AnyArg(), "t-1", "route-1", "rc-1", models.ScheduleFrequencyWeekly, 2, "{1,4}", nil, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	schedule := &models.VisitSchedule{
		TenantID:        "t-1",
		RouteID:         "route-1",
		RouteCustomerID: "rc-1",
		Frequency:       models.ScheduleFrequencyWeekly,
		IntervalCount:   2,
		Weekdays:        pq.Int64Array{1, 4},
		StartDate:       &start,
	}
	require.NoError(t, repo.Create(context.Background(), schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.False(t, schedule.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("UPDATE visit_schedules SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Replace(context.Background(), &models.VisitSchedule{ID: "missing", TenantID: "t-1", Frequency: models.ScheduleFrequencyDaily, IntervalCount: 1})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteDetachesVisits(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE visits SET schedule_id = NULL").
		WithArgs("t-1", "sched-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM visit_schedules").
		WithArgs("t-1", "sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "t-1", "sched-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE visits SET schedule_id = NULL").
		WithArgs("t-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM visit_schedules").
		WithArgs("t-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "t-1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCount(t *testing.T) {
	db, mock, cleanup := newScheduleMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visit_schedules WHERE tenant_id = $1`)).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
