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

// AssignmentRepository persists route-agent assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, tenant_id, route_id, agent_id, start_date, end_date, is_recurring, weekdays, created_at, updated_at`

// ListByRoute returns every assignment of a route, newest span first.
func (r *AssignmentRepository) ListByRoute(ctx context.Context, tenantID, routeID string) ([]models.RouteAgentAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM route_agent_assignments WHERE tenant_id = $1 AND route_id = $2 ORDER BY start_date DESC, agent_id ASC`, assignmentColumns)
	var assignments []models.RouteAgentAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, tenantID, routeID); err != nil {
		return nil, fmt.Errorf("list route assignments: %w", err)
	}
	return assignments, nil
}

// ListDetailsByRoute joins agent and route names for listing screens.
func (r *AssignmentRepository) ListDetailsByRoute(ctx context.Context, tenantID, routeID string) ([]models.AssignmentDetail, error) {
	const query = `
SELECT a.id, a.tenant_id, a.route_id, a.agent_id, a.start_date, a.end_date, a.is_recurring, a.weekdays, a.created_at, a.updated_at,
       u.full_name AS agent_name, rt.name AS route_name
FROM route_agent_assignments a
JOIN users u ON u.id = a.agent_id
JOIN routes rt ON rt.id = a.route_id
WHERE a.tenant_id = $1 AND a.route_id = $2
ORDER BY a.start_date DESC, u.full_name ASC`
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, tenantID, routeID); err != nil {
		return nil, fmt.Errorf("list assignment details: %w", err)
	}
	return details, nil
}

// FindByID returns a single assignment scoped to the tenant.
func (r *AssignmentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.RouteAgentAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM route_agent_assignments WHERE tenant_id = $1 AND id = $2 LIMIT 1`, assignmentColumns)
	var assignment models.RouteAgentAssignment
	if err := r.db.GetContext(ctx, &assignment, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.RouteAgentAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt, assignment.UpdatedAt = now, now
	const query = `INSERT INTO route_agent_assignments (id, tenant_id, route_id, agent_id, start_date, end_date, is_recurring, weekdays, created_at, updated_at)
		VALUES (:id, :tenant_id, :route_id, :agent_id, :start_date, :end_date, :is_recurring, :weekdays, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites an assignment's span and weekday coverage.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.RouteAgentAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE route_agent_assignments SET agent_id = :agent_id, start_date = :start_date, end_date = :end_date,
		is_recurring = :is_recurring, weekdays = :weekdays, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assignment scoped to the tenant.
func (r *AssignmentRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM route_agent_assignments WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
