package dto

import "github.com/fieldops-io/fieldops-api/internal/models"

// ReportRequest captures POST /reports/generate payload.
type ReportRequest struct {
	Type    models.ReportType   `json:"type" validate:"required,oneof=visit_activity route_coverage"`
	RouteID string              `json:"routeId"`
	From    string              `json:"from" validate:"required,datetime=2006-01-02"`
	To      string              `json:"to" validate:"required,datetime=2006-01-02"`
	Format  models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job lifecycle metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
