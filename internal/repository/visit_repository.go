package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

// uniqueViolation is the Postgres error code raised by duplicate keys.
const uniqueViolation = "23505"

// VisitRepository persists visit records.
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository constructs the repository.
func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

const visitColumns = `id, tenant_id, schedule_id, route_id, route_customer_id, agent_id, visit_date, outcome, notes, created_by, created_at, updated_at`

// List returns visits matching the filter with total count.
func (r *VisitRepository) List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, int, error) {
	baseQuery := `FROM visits WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}

	if filter.RouteID != "" {
		baseQuery += fmt.Sprintf(" AND route_id = $%d", len(args)+1)
		args = append(args, filter.RouteID)
	}
	if filter.ScheduleID != "" {
		baseQuery += fmt.Sprintf(" AND schedule_id = $%d", len(args)+1)
		args = append(args, filter.ScheduleID)
	}
	if filter.AgentID != "" {
		baseQuery += fmt.Sprintf(" AND agent_id = $%d", len(args)+1)
		args = append(args, filter.AgentID)
	}
	if filter.Outcome != nil {
		baseQuery += fmt.Sprintf(" AND outcome = $%d", len(args)+1)
		args = append(args, *filter.Outcome)
	}
	if filter.DateFrom != nil {
		baseQuery += fmt.Sprintf(" AND visit_date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		baseQuery += fmt.Sprintf(" AND visit_date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"visit_date": true, "created_at": true, "outcome": true}
	if !allowedSorts[sortBy] {
		sortBy = "visit_date"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", visitColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var visits []models.Visit
	if err := r.db.SelectContext(ctx, &visits, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}
	return visits, total, nil
}

// ListBySchedule returns every visit still linked to a schedule.
func (r *VisitRepository) ListBySchedule(ctx context.Context, tenantID, scheduleID string) ([]models.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE tenant_id = $1 AND schedule_id = $2 ORDER BY visit_date ASC`, visitColumns)
	var visits []models.Visit
	if err := r.db.SelectContext(ctx, &visits, query, tenantID, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule visits: %w", err)
	}
	return visits, nil
}

// FindByID returns a single visit scoped to the tenant.
func (r *VisitRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE tenant_id = $1 AND id = $2 LIMIT 1`, visitColumns)
	var visit models.Visit
	if err := r.db.GetContext(ctx, &visit, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find visit: %w", err)
	}
	return &visit, nil
}

// Create inserts a visit. A unique constraint on (schedule_id, visit_date)
// maps to ErrDuplicateVisit so callers can treat concurrent generation of the
// same occurrence as benign.
func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	visit.CreatedAt, visit.UpdatedAt = now, now
	const query = `INSERT INTO visits (id, tenant_id, schedule_id, route_id, route_customer_id, agent_id, visit_date, outcome, notes, created_by, created_at, updated_at)
		VALUES (:id, :tenant_id, :schedule_id, :route_id, :route_customer_id, :agent_id, :visit_date, :outcome, :notes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, visit); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return appErrors.Wrap(err, appErrors.ErrDuplicateVisit.Code, appErrors.ErrDuplicateVisit.Status, appErrors.ErrDuplicateVisit.Message)
		}
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

// UpdateOutcome sets the outcome and notes of a visit.
func (r *VisitRepository) UpdateOutcome(ctx context.Context, tenantID, id string, outcome models.VisitOutcome, notes *string) error {
	const query = `UPDATE visits SET outcome = $3, notes = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, outcome, notes)
	if err != nil {
		return fmt.Errorf("update visit outcome: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated visit rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByOutcome aggregates visit totals per outcome for the dashboard.
func (r *VisitRepository) CountByOutcome(ctx context.Context, tenantID string) (map[models.VisitOutcome]int, error) {
	const query = `SELECT outcome, COUNT(*) AS total FROM visits WHERE tenant_id = $1 GROUP BY outcome`
	rows := []struct {
		Outcome models.VisitOutcome `db:"outcome"`
		Total   int                 `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, fmt.Errorf("count visits by outcome: %w", err)
	}
	counts := make(map[models.VisitOutcome]int, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Total
	}
	return counts, nil
}

// CountUnassigned counts visits inside the window with no responsible agent.
func (r *VisitRepository) CountUnassigned(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM visits WHERE tenant_id = $1 AND agent_id IS NULL AND visit_date BETWEEN $2 AND $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, from, to); err != nil {
		return 0, fmt.Errorf("count unassigned visits: %w", err)
	}
	return count, nil
}
