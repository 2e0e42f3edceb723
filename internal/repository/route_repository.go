package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldops-io/fieldops-api/internal/models"
)

// RouteRepository persists routes and their customer stops.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository constructs the repository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

const routeColumns = `id, tenant_id, name, description, warehouse_id, active, created_at, updated_at`

// List returns routes for a tenant with total count.
func (r *RouteRepository) List(ctx context.Context, filter models.RouteFilter) ([]models.Route, int, error) {
	baseQuery := `FROM routes WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}

	if filter.Active != nil {
		baseQuery += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "created_at": true, "updated_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
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
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", routeColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list routes: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count routes: %w", err)
	}
	return routes, total, nil
}

// FindByID returns a single route scoped to the tenant.
func (r *RouteRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes WHERE tenant_id = $1 AND id = $2 LIMIT 1`, routeColumns)
	var route models.Route
	if err := r.db.GetContext(ctx, &route, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find route: %w", err)
	}
	return &route, nil
}

// Create inserts a new route.
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	if route.ID == "" {
		route.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	route.CreatedAt, route.UpdatedAt = now, now
	const query = `INSERT INTO routes (id, tenant_id, name, description, warehouse_id, active, created_at, updated_at)
		VALUES (:id, :tenant_id, :name, :description, :warehouse_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, route); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	return nil
}

// Update persists route field changes.
func (r *RouteRepository) Update(ctx context.Context, route *models.Route) error {
	route.UpdatedAt = time.Now().UTC()
	const query = `UPDATE routes SET name = :name, description = :description, warehouse_id = :warehouse_id, active = :active, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, route)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated route rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a route scoped to the tenant.
func (r *RouteRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM routes WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted route rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListCustomers returns the stops of a route ordered by sequence number.
func (r *RouteRepository) ListCustomers(ctx context.Context, tenantID, routeID string) ([]models.RouteCustomer, error) {
	const query = `SELECT id, tenant_id, route_id, customer_id, customer_name, sequence_number, created_at, updated_at
		FROM route_customers WHERE tenant_id = $1 AND route_id = $2 ORDER BY sequence_number ASC, customer_name ASC`
	var customers []models.RouteCustomer
	if err := r.db.SelectContext(ctx, &customers, query, tenantID, routeID); err != nil {
		return nil, fmt.Errorf("list route customers: %w", err)
	}
	return customers, nil
}

// FindCustomer returns a single stop scoped to the tenant.
func (r *RouteRepository) FindCustomer(ctx context.Context, tenantID, id string) (*models.RouteCustomer, error) {
	const query = `SELECT id, tenant_id, route_id, customer_id, customer_name, sequence_number, created_at, updated_at
		FROM route_customers WHERE tenant_id = $1 AND id = $2 LIMIT 1`
	var customer models.RouteCustomer
	if err := r.db.GetContext(ctx, &customer, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find route customer: %w", err)
	}
	return &customer, nil
}

// AddCustomer places a customer on a route.
func (r *RouteRepository) AddCustomer(ctx context.Context, customer *models.RouteCustomer) error {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	customer.CreatedAt, customer.UpdatedAt = now, now
	const query = `INSERT INTO route_customers (id, tenant_id, route_id, customer_id, customer_name, sequence_number, created_at, updated_at)
		VALUES (:id, :tenant_id, :route_id, :customer_id, :customer_name, :sequence_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, customer); err != nil {
		return fmt.Errorf("add route customer: %w", err)
	}
	return nil
}

// UpdateCustomer rewrites a stop's name and sequence number.
func (r *RouteRepository) UpdateCustomer(ctx context.Context, customer *models.RouteCustomer) error {
	customer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE route_customers SET customer_name = :customer_name, sequence_number = :sequence_number, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, customer)
	if err != nil {
		return fmt.Errorf("update route customer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated customer rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RemoveCustomer takes a customer off a route.
func (r *RouteRepository) RemoveCustomer(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM route_customers WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("remove route customer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check removed customer rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Counts returns route and stop totals for the tenant dashboard.
func (r *RouteRepository) Counts(ctx context.Context, tenantID string) (routes int, customers int, err error) {
	if err = r.db.GetContext(ctx, &routes, `SELECT COUNT(*) FROM routes WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, 0, fmt.Errorf("count routes: %w", err)
	}
	if err = r.db.GetContext(ctx, &customers, `SELECT COUNT(*) FROM route_customers WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, 0, fmt.Errorf("count route customers: %w", err)
	}
	return routes, customers, nil
}
