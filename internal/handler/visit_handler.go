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

type visitService interface {
	List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, *models.Pagination, error)
	Get(ctx context.Context, tenantID, id string) (*models.Visit, error)
	Create(ctx context.Context, tenantID, actorID string, req dto.VisitRequest) (*models.Visit, error)
	SetOutcome(ctx context.Context, tenantID, actorID, id string, req dto.VisitOutcomeRequest) (*models.Visit, error)
}

// VisitHandler exposes visit endpoints.
type VisitHandler struct {
	service visitService
}

// NewVisitHandler builds a new handler.
func NewVisitHandler(service visitService) *VisitHandler {
	return &VisitHandler{service: service}
}

// List godoc
// @Summary List visits
// @Description Agents only see visits assigned to them.
// @Tags Visits
// @Produce json
// @Param routeId query string false "Route ID filter"
// @Param scheduleId query string false "Schedule ID filter"
// @Param agentId query string false "Agent ID filter"
// @Param outcome query string false "Outcome filter"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /visits [get]
func (h *VisitHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.VisitFilter{
		TenantID:   claims.TenantID,
		RouteID:    c.Query("routeId"),
		ScheduleID: c.Query("scheduleId"),
		AgentID:    c.Query("agentId"),
	}
	// agents are pinned to their own visits regardless of the query
	if claims.Role == models.RoleAgent {
		filter.AgentID = claims.UserID
	}
	if raw := c.Query("outcome"); raw != "" {
		outcome := models.VisitOutcome(raw)
		if !models.ValidVisitOutcome(outcome) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown visit outcome"))
			return
		}
		filter.Outcome = &outcome
	}
	if raw := c.Query("from"); raw != "" {
		from, err := dto.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := dto.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	visits, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visits, pagination)
}

// Get godoc
// @Summary Get visit
// @Tags Visits
// @Produce json
// @Param id path string true "Visit ID"
// @Success 200 {object} response.Envelope
// @Router /visits/{id} [get]
func (h *VisitHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	visit, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.Role == models.RoleAgent && (visit.AgentID == nil || *visit.AgentID != claims.UserID) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// Create godoc
// @Summary Create ad-hoc visit
// @Description Records a visit outside any schedule.
// @Tags Visits
// @Accept json
// @Produce json
// @Param payload body dto.VisitRequest true "Visit payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /visits [post]
func (h *VisitHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid visit payload"))
		return
	}
	visit, err := h.service.Create(c.Request.Context(), claims.TenantID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visit)
}

// SetOutcome godoc
// @Summary Record visit outcome
// @Description Outcomes may be re-edited; the audit trail keeps history.
// @Tags Visits
// @Accept json
// @Produce json
// @Param id path string true "Visit ID"
// @Param payload body dto.VisitOutcomeRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Router /visits/{id}/outcome [put]
func (h *VisitHandler) SetOutcome(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.VisitOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid outcome payload"))
		return
	}
	if claims.Role == models.RoleAgent {
		visit, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		if visit.AgentID == nil || *visit.AgentID != claims.UserID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}
	visit, err := h.service.SetOutcome(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}
