package dto

// VisitRequest creates an ad-hoc visit outside any schedule.
type VisitRequest struct {
	RouteID         string  `json:"routeId" validate:"required"`
	RouteCustomerID string  `json:"routeCustomerId" validate:"required"`
	VisitDate       string  `json:"visitDate" validate:"required,datetime=2006-01-02"`
	AgentID         *string `json:"agentId"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

// VisitOutcomeRequest records or re-edits the outcome of a visit.
type VisitOutcomeRequest struct {
	Outcome string  `json:"outcome" validate:"required,oneof=PENDING SUCCESSFUL UNSUCCESSFUL RESCHEDULED CANCELLED"`
	Notes   *string `json:"notes" validate:"omitempty,max=1000"`
}
