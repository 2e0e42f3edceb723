package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
	"github.com/fieldops-io/fieldops-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.VisitSchedule, *models.Pagination, error)
	Get(ctx context.Context, tenantID, id string) (*models.VisitSchedule, error)
	Create(ctx context.Context, tenantID, actorID string, req dto.ScheduleRuleRequest) (*models.VisitSchedule, error)
	Replace(ctx context.Context, tenantID, actorID, scheduleID string, req dto.ScheduleRuleRequest) (*models.VisitSchedule, error)
	Delete(ctx context.Context, tenantID, actorID, scheduleID string) error
	Preview(ctx context.Context, tenantID, scheduleID string, req dto.SchedulePreviewRequest) (*dto.SchedulePreviewResponse, error)
	Sync(ctx context.Context, tenantID, actorID, scheduleID string, req dto.SyncScheduleRequest) (*dto.SyncReport, error)
}

// ScheduleHandler exposes visit schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler builds a new handler.
func NewScheduleHandler(service scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// List godoc
// @Summary List visit schedules
// @Tags Schedules
// @Produce json
// @Param routeId query string false "Route ID filter"
// @Param frequency query string false "Frequency filter"
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.ScheduleFilter{
		TenantID: claims.TenantID,
		RouteID:  c.Query("routeId"),
	}
	if raw := c.Query("frequency"); raw != "" {
		freq := models.ScheduleFrequency(raw)
		filter.Frequency = &freq
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get visit schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	schedule, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create visit schedule
// @Description One active schedule per route customer; replace it to change the rule.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRuleRequest true "Schedule rule"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.ScheduleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), claims.TenantID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Replace godoc
// @Summary Replace visit schedule rule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ScheduleRuleRequest true "Schedule rule"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.ScheduleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	schedule, err := h.service.Replace(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete visit schedule
// @Description Detaches generated visits; they keep their schedule back-reference history.
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Preview schedule occurrences
// @Description Lists the dates the rule produces in a window without writing visits.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/preview [get]
func (h *ScheduleHandler) Preview(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.SchedulePreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview window"))
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), claims.TenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Sync godoc
// @Summary Reconcile schedule into visits
// @Description Creates missing PENDING visits in the window and reports duplicates, orphans and uncovered dates.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.SyncScheduleRequest false "Window bounds"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/{id}/sync [post]
func (h *ScheduleHandler) Sync(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.SyncScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sync payload"))
			return
		}
	}
	report, err := h.service.Sync(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
