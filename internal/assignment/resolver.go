// Package assignment resolves which single field agent covers a route on a
// calendar date, given assignment records whose date ranges and weekday sets
// may overlap freely.
package assignment

import (
	"time"

	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/internal/recurrence"
)

// Registry is an in-memory view of the assignment rows loaded for one or
// more routes. It is immutable after construction and safe for concurrent
// readers.
type Registry struct {
	byRoute map[string][]models.RouteAgentAssignment
}

// NewRegistry indexes the given assignments by route.
func NewRegistry(assignments []models.RouteAgentAssignment) *Registry {
	byRoute := make(map[string][]models.RouteAgentAssignment)
	for _, a := range assignments {
		byRoute[a.RouteID] = append(byRoute[a.RouteID], a)
	}
	return &Registry{byRoute: byRoute}
}

// ForRoute returns the assignments registered for a route.
func (r *Registry) ForRoute(routeID string) []models.RouteAgentAssignment {
	return r.byRoute[routeID]
}

// Resolve returns the agent responsible for routeID on date, or the empty
// string when no assignment covers it. With multiple covering assignments the
// precedence is: a non-recurring one-off beats any recurring standing
// assignment; then the latest start date wins; then the smallest agent ID,
// which makes the result a total order and therefore deterministic.
func (r *Registry) Resolve(routeID string, date time.Time) string {
	date = recurrence.DateOnly(date)
	var winner *models.RouteAgentAssignment
	for i := range r.byRoute[routeID] {
		a := &r.byRoute[routeID][i]
		if !covers(a, date) {
			continue
		}
		if winner == nil || precedes(a, winner) {
			winner = a
		}
	}
	if winner == nil {
		return ""
	}
	return winner.AgentID
}

func covers(a *models.RouteAgentAssignment, date time.Time) bool {
	if date.Before(recurrence.DateOnly(a.StartDate)) {
		return false
	}
	if a.EndDate != nil && date.After(recurrence.DateOnly(*a.EndDate)) {
		return false
	}
	if !a.IsRecurring {
		return true
	}
	weekday := int64(recurrence.ISOWeekday(date))
	for _, d := range a.Weekdays {
		if d == weekday {
			return true
		}
	}
	return false
}

// precedes reports whether a outranks b under the resolution policy.
func precedes(a, b *models.RouteAgentAssignment) bool {
	if a.IsRecurring != b.IsRecurring {
		return !a.IsRecurring
	}
	aStart, bStart := recurrence.DateOnly(a.StartDate), recurrence.DateOnly(b.StartDate)
	if !aStart.Equal(bStart) {
		return aStart.After(bStart)
	}
	return a.AgentID < b.AgentID
}
