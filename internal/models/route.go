package models

import "time"

// Route represents a sales or delivery route owned by a tenant.
type Route struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	WarehouseID *string   `db:"warehouse_id" json:"warehouse_id,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RouteCustomer places a customer on a route. SequenceNumber is externally
// supplied ordering metadata; it is stored and echoed back, never computed.
type RouteCustomer struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	RouteID        string    `db:"route_id" json:"route_id"`
	CustomerID     string    `db:"customer_id" json:"customer_id"`
	CustomerName   string    `db:"customer_name" json:"customer_name"`
	SequenceNumber int       `db:"sequence_number" json:"sequence_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RouteFilter captures filtering criteria for listing routes.
type RouteFilter struct {
	TenantID  string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
