package models

import "time"

// DashboardSummary aggregates per-tenant operational counts.
type DashboardSummary struct {
	Routes          int                  `json:"routes"`
	RouteCustomers  int                  `json:"route_customers"`
	Schedules       int                  `json:"schedules"`
	VisitsByOutcome map[VisitOutcome]int `json:"visits_by_outcome"`
	UnassignedStops int                  `json:"unassigned_stops"`
	WindowFrom      time.Time            `json:"window_from"`
	WindowTo        time.Time            `json:"window_to"`
	GeneratedAt     time.Time            `json:"generated_at"`
}
