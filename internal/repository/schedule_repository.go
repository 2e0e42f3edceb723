package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldops-io/fieldops-api/internal/models"
)

// ScheduleRepository persists visit schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, tenant_id, route_id, route_customer_id, frequency, interval_count, weekdays, day_of_month, start_date, end_date, exclude_dates, created_at, updated_at`

// List returns schedules for a tenant with total count.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.VisitSchedule, int, error) {
	baseQuery := `FROM visit_schedules WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}

	if filter.RouteID != "" {
		baseQuery += fmt.Sprintf(" AND route_id = $%d", len(args)+1)
		args = append(args, filter.RouteID)
	}
	if filter.Frequency != nil {
		baseQuery += fmt.Sprintf(" AND frequency = $%d", len(args)+1)
		args = append(args, *filter.Frequency)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", scheduleColumns, baseQuery, pageSize, offset)

	var schedules []models.VisitSchedule
	if err := r.db.SelectContext(ctx, &schedules, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID returns a schedule scoped to the tenant.
func (r *ScheduleRepository) FindByID(ctx context.Context, tenantID, id string) (*models.VisitSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM visit_schedules WHERE tenant_id = $1 AND id = $2 LIMIT 1`, scheduleColumns)
	var schedule models.VisitSchedule
	if err := r.db.GetContext(ctx, &schedule, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return &schedule, nil
}

// FindByRouteCustomer returns the schedule attached to a stop, if any.
func (r *ScheduleRepository) FindByRouteCustomer(ctx context.Context, tenantID, routeCustomerID string) (*models.VisitSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM visit_schedules WHERE tenant_id = $1 AND route_customer_id = $2 LIMIT 1`, scheduleColumns)
	var schedule models.VisitSchedule
	if err := r.db.GetContext(ctx, &schedule, query, tenantID, routeCustomerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule by stop: %w", err)
	}
	return &schedule, nil
}

// Create inserts a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.VisitSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt, schedule.UpdatedAt = now, now
	const query = `INSERT INTO visit_schedules (id, tenant_id, route_id, route_customer_id, frequency, interval_count, weekdays, day_of_month, start_date, end_date, exclude_dates, created_at, updated_at)
		VALUES (:id, :tenant_id, :route_id, :route_customer_id, :frequency, :interval_count, :weekdays, :day_of_month, :start_date, :end_date, :exclude_dates, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Replace rewrites every recurrence field of a schedule at once. Partial
// field edits are not exposed so a half-updated rule can never be observed.
func (r *ScheduleRepository) Replace(ctx context.Context, schedule *models.VisitSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE visit_schedules SET frequency = :frequency, interval_count = :interval_count, weekdays = :weekdays,
		day_of_month = :day_of_month, start_date = :start_date, end_date = :end_date, exclude_dates = :exclude_dates, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		return fmt.Errorf("replace schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check replaced schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the schedule and detaches its generated visits in one
// transaction, so the visits survive as standalone, non-regenerable records.
func (r *ScheduleRepository) Delete(ctx context.Context, tenantID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE visits SET schedule_id = NULL, updated_at = NOW() WHERE tenant_id = $1 AND schedule_id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("detach schedule visits: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM visit_schedules WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule delete: %w", err)
	}
	return nil
}

// Count returns the schedule total for the tenant dashboard.
func (r *ScheduleRepository) Count(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM visit_schedules WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, fmt.Errorf("count schedules: %w", err)
	}
	return count, nil
}
