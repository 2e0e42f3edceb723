package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, tenantID string) (*models.DashboardSummary, error)
}

// DashboardHandler exposes the tenant operations summary.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Tenant dashboard summary
// @Description Route, schedule and visit counts plus upcoming unassigned stops. Cached per tenant.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	summary, err := h.service.Summary(c.Request.Context(), claims.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
