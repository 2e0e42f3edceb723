package models

import (
	"time"

	"github.com/lib/pq"
)

// RouteAgentAssignment binds a field agent to a route for a date span.
// Overlapping spans and weekday sets between assignments of one route are
// expected; resolution order lives in the assignment package.
type RouteAgentAssignment struct {
	ID          string        `db:"id" json:"id"`
	TenantID    string        `db:"tenant_id" json:"tenant_id"`
	RouteID     string        `db:"route_id" json:"route_id"`
	AgentID     string        `db:"agent_id" json:"agent_id"`
	StartDate   time.Time     `db:"start_date" json:"start_date"`
	EndDate     *time.Time    `db:"end_date" json:"end_date,omitempty"`
	IsRecurring bool          `db:"is_recurring" json:"is_recurring"`
	Weekdays    pq.Int64Array `db:"weekdays" json:"weekdays"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail enriches an assignment with the agent's name for listings.
type AssignmentDetail struct {
	RouteAgentAssignment
	AgentName string `db:"agent_name" json:"agent_name"`
	RouteName string `db:"route_name" json:"route_name"`
}
