package dto

import "time"

// ScheduleRuleRequest carries the full recurrence definition. A replace
// request sends the whole rule again; there is no field-level patching.
type ScheduleRuleRequest struct {
	RouteCustomerID string   `json:"routeCustomerId" validate:"required"`
	Frequency       string   `json:"frequency" validate:"required,oneof=DAILY WEEKLY MONTHLY CUSTOM"`
	IntervalCount   int      `json:"intervalCount" validate:"omitempty,min=1"`
	Weekdays        []int    `json:"weekdays" validate:"omitempty,dive,min=1,max=7"`
	DayOfMonth      *int     `json:"dayOfMonth" validate:"omitempty,min=1,max=31"`
	StartDate       *string  `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate         *string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	ExcludeDates    []string `json:"excludeDates" validate:"omitempty,dive,datetime=2006-01-02"`
}

// SyncScheduleRequest bounds the reconciliation window. Empty bounds fall
// back to [today, today+defaultWindowDays].
type SyncScheduleRequest struct {
	From string `json:"from" form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// OrphanedVisitReport describes a persisted visit the current rule no longer
// produces. Orphans are surfaced for review, never deleted by sync.
type OrphanedVisitReport struct {
	VisitID   string    `json:"visitId"`
	VisitDate time.Time `json:"visitDate"`
	Outcome   string    `json:"outcome"`
}

// SyncReport summarises one reconciliation run.
type SyncReport struct {
	ScheduleID     string                `json:"scheduleId"`
	WindowFrom     time.Time             `json:"windowFrom"`
	WindowTo       time.Time             `json:"windowTo"`
	Created        []time.Time           `json:"created"`
	AlreadyPresent []time.Time           `json:"alreadyPresent"`
	Orphaned       []OrphanedVisitReport `json:"orphaned"`
	Unassigned     []time.Time           `json:"unassigned"`
}

// SchedulePreviewRequest asks for occurrence dates without persisting
// anything.
type SchedulePreviewRequest struct {
	From string `json:"from" form:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" form:"to" validate:"required,datetime=2006-01-02"`
}

// SchedulePreviewResponse lists the dates the rule produces in the window.
type SchedulePreviewResponse struct {
	ScheduleID  string      `json:"scheduleId"`
	Occurrences []time.Time `json:"occurrences"`
}
