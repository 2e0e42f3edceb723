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

type routeService interface {
	List(ctx context.Context, filter models.RouteFilter) ([]models.Route, *models.Pagination, error)
	Get(ctx context.Context, tenantID, id string) (*models.Route, error)
	Create(ctx context.Context, tenantID string, req dto.RouteRequest) (*models.Route, error)
	Update(ctx context.Context, tenantID, id string, req dto.RouteRequest) (*models.Route, error)
	Delete(ctx context.Context, tenantID, id string) error
	ListCustomers(ctx context.Context, tenantID, routeID string) ([]models.RouteCustomer, error)
	AddCustomer(ctx context.Context, tenantID, routeID string, req dto.RouteCustomerRequest) (*models.RouteCustomer, error)
	UpdateCustomer(ctx context.Context, tenantID, id string, req dto.RouteCustomerUpdateRequest) (*models.RouteCustomer, error)
	RemoveCustomer(ctx context.Context, tenantID, id string) error
}

// RouteHandler exposes route and route-customer management endpoints.
type RouteHandler struct {
	service routeService
}

// NewRouteHandler builds a new handler.
func NewRouteHandler(service routeService) *RouteHandler {
	return &RouteHandler{service: service}
}

// List godoc
// @Summary List routes
// @Tags Routes
// @Produce json
// @Param search query string false "Name search"
// @Param active query boolean false "Active filter"
// @Param page query integer false "Page number"
// @Param limit query integer false "Page size"
// @Success 200 {object} response.Envelope
// @Router /routes [get]
func (h *RouteHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.RouteFilter{
		TenantID: claims.TenantID,
		Search:   c.Query("search"),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	routes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routes, pagination)
}

// Get godoc
// @Summary Get route
// @Tags Routes
// @Produce json
// @Param id path string true "Route ID"
// @Success 200 {object} response.Envelope
// @Router /routes/{id} [get]
func (h *RouteHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	route, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, route, nil)
}

// Create godoc
// @Summary Create route
// @Tags Routes
// @Accept json
// @Produce json
// @Param payload body dto.RouteRequest true "Route payload"
// @Success 201 {object} response.Envelope
// @Router /routes [post]
func (h *RouteHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid route payload"))
		return
	}
	route, err := h.service.Create(c.Request.Context(), claims.TenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, route)
}

// Update godoc
// @Summary Update route
// @Tags Routes
// @Accept json
// @Produce json
// @Param id path string true "Route ID"
// @Param payload body dto.RouteRequest true "Route payload"
// @Success 200 {object} response.Envelope
// @Router /routes/{id} [put]
func (h *RouteHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid route payload"))
		return
	}
	route, err := h.service.Update(c.Request.Context(), claims.TenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, route, nil)
}

// Delete godoc
// @Summary Delete route
// @Tags Routes
// @Param id path string true "Route ID"
// @Success 204 {object} response.Envelope
// @Router /routes/{id} [delete]
func (h *RouteHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), claims.TenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCustomers godoc
// @Summary List customers on a route
// @Tags Routes
// @Produce json
// @Param id path string true "Route ID"
// @Success 200 {object} response.Envelope
// @Router /routes/{id}/customers [get]
func (h *RouteHandler) ListCustomers(c *gin.Context) {
	claims := claimsFromContext(c)
	customers, err := h.service.ListCustomers(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customers, nil)
}

// AddCustomer godoc
// @Summary Place a customer on a route
// @Tags Routes
// @Accept json
// @Produce json
// @Param id path string true "Route ID"
// @Param payload body dto.RouteCustomerRequest true "Route customer payload"
// @Success 201 {object} response.Envelope
// @Router /routes/{id}/customers [post]
func (h *RouteHandler) AddCustomer(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.RouteCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid route customer payload"))
		return
	}
	customer, err := h.service.AddCustomer(c.Request.Context(), claims.TenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, customer)
}

// UpdateCustomer godoc
// @Summary Edit a route customer
// @Tags Routes
// @Accept json
// @Produce json
// @Param id path string true "Route customer ID"
// @Param payload body dto.RouteCustomerUpdateRequest true "Route customer payload"
// @Success 200 {object} response.Envelope
// @Router /route-customers/{id} [put]
func (h *RouteHandler) UpdateCustomer(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.RouteCustomerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid route customer payload"))
		return
	}
	customer, err := h.service.UpdateCustomer(c.Request.Context(), claims.TenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customer, nil)
}

// RemoveCustomer godoc
// @Summary Remove a customer from its route
// @Tags Routes
// @Param id path string true "Route customer ID"
// @Success 204 {object} response.Envelope
// @Router /route-customers/{id} [delete]
func (h *RouteHandler) RemoveCustomer(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.RemoveCustomer(c.Request.Context(), claims.TenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
