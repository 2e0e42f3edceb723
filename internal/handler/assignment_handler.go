package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
	"github.com/fieldops-io/fieldops-api/pkg/response"
)

type assignmentService interface {
	ListByRoute(ctx context.Context, tenantID, routeID string) ([]models.AssignmentDetail, error)
	Create(ctx context.Context, tenantID, actorID, routeID string, req dto.AssignmentRequest) (*models.RouteAgentAssignment, error)
	Update(ctx context.Context, tenantID, actorID, id string, req dto.AssignmentRequest) (*models.RouteAgentAssignment, error)
	Delete(ctx context.Context, tenantID, actorID, id string) error
	Resolve(ctx context.Context, tenantID, routeID string, query dto.ResolutionQuery) (*dto.ResolutionResponse, error)
}

// AssignmentHandler exposes route-agent assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// ListByRoute godoc
// @Summary List assignments of a route
// @Tags Assignments
// @Produce json
// @Param id path string true "Route ID"
// @Success 200 {object} response.Envelope
// @Router /routes/{id}/assignments [get]
func (h *AssignmentHandler) ListByRoute(c *gin.Context) {
	claims := claimsFromContext(c)
	items, err := h.service.ListByRoute(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Assign an agent to a route
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Route ID"
// @Param payload body dto.AssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /routes/{id}/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	record, err := h.service.Create(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Replace an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	record, err := h.service.Update(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Remove an assignment
// @Description Visits already stamped with the agent keep their stamp.
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.TenantID, claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resolve godoc
// @Summary Resolve the covering agent for a date
// @Description Deterministic: one-off beats recurring, then latest start, then smallest agent ID.
// @Tags Assignments
// @Produce json
// @Param id path string true "Route ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /routes/{id}/assignments/resolution [get]
func (h *AssignmentHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	var query dto.ResolutionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	resolution, err := h.service.Resolve(c.Request.Context(), claims.TenantID, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolution, nil)
}
