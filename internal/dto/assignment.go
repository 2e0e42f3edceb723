package dto

import "time"

// AssignmentRequest creates or replaces a route-agent assignment. Recurring
// assignments restrict coverage to the listed ISO weekdays.
type AssignmentRequest struct {
	AgentID     string  `json:"agentId" validate:"required"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	IsRecurring bool    `json:"isRecurring"`
	Weekdays    []int   `json:"weekdays" validate:"omitempty,dive,min=1,max=7"`
}

// ResolutionQuery asks which agent covers a route on one date.
type ResolutionQuery struct {
	Date string `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

// ResolutionResponse reports the winning agent, or none when the route is
// uncovered on that date.
type ResolutionResponse struct {
	RouteID   string    `json:"routeId"`
	Date      time.Time `json:"date"`
	AgentID   *string   `json:"agentId"`
	AgentName *string   `json:"agentName,omitempty"`
	Assigned  bool      `json:"assigned"`
}
