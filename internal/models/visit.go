package models

import "time"

// VisitOutcome captures the state of a visit. A reconciled visit is born
// PENDING; every other outcome is set by a human and may be re-edited.
type VisitOutcome string

const (
	VisitOutcomePending      VisitOutcome = "PENDING"
	VisitOutcomeSuccessful   VisitOutcome = "SUCCESSFUL"
	VisitOutcomeUnsuccessful VisitOutcome = "UNSUCCESSFUL"
	VisitOutcomeRescheduled  VisitOutcome = "RESCHEDULED"
	VisitOutcomeCancelled    VisitOutcome = "CANCELLED"
)

// ValidVisitOutcome reports whether the value is a known outcome.
func ValidVisitOutcome(v VisitOutcome) bool {
	switch v {
	case VisitOutcomePending, VisitOutcomeSuccessful, VisitOutcomeUnsuccessful,
		VisitOutcomeRescheduled, VisitOutcomeCancelled:
		return true
	}
	return false
}

// Visit is a concrete stop on a calendar date. ScheduleID is a back-reference
// only: deleting the schedule detaches the visit rather than cascading.
type Visit struct {
	ID              string       `db:"id" json:"id"`
	TenantID        string       `db:"tenant_id" json:"tenant_id"`
	ScheduleID      *string      `db:"schedule_id" json:"schedule_id,omitempty"`
	RouteID         string       `db:"route_id" json:"route_id"`
	RouteCustomerID string       `db:"route_customer_id" json:"route_customer_id"`
	AgentID         *string      `db:"agent_id" json:"agent_id,omitempty"`
	VisitDate       time.Time    `db:"visit_date" json:"visit_date"`
	Outcome         VisitOutcome `db:"outcome" json:"outcome"`
	Notes           *string      `db:"notes" json:"notes,omitempty"`
	CreatedBy       string       `db:"created_by" json:"created_by"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// VisitFilter captures filtering criteria for listing visits.
type VisitFilter struct {
	TenantID   string
	RouteID    string
	ScheduleID string
	AgentID    string
	Outcome    *VisitOutcome
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
