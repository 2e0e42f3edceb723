package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

type routeRepository interface {
	List(ctx context.Context, filter models.RouteFilter) ([]models.Route, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Route, error)
	Create(ctx context.Context, route *models.Route) error
	Update(ctx context.Context, route *models.Route) error
	Delete(ctx context.Context, tenantID, id string) error
	ListCustomers(ctx context.Context, tenantID, routeID string) ([]models.RouteCustomer, error)
	FindCustomer(ctx context.Context, tenantID, id string) (*models.RouteCustomer, error)
	AddCustomer(ctx context.Context, customer *models.RouteCustomer) error
	UpdateCustomer(ctx context.Context, customer *models.RouteCustomer) error
	RemoveCustomer(ctx context.Context, tenantID, id string) error
}

// RouteService manages routes and their customer stops.
type RouteService struct {
	routes    routeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRouteService wires route dependencies.
func NewRouteService(routes routeRepository, validate *validator.Validate, logger *zap.Logger) *RouteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{routes: routes, validator: validate, logger: logger}
}

// List returns routes for the tenant with pagination metadata.
func (s *RouteService) List(ctx context.Context, filter models.RouteFilter) ([]models.Route, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.routes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routes")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return items, pagination, nil
}

// Get loads one route.
func (s *RouteService) Get(ctx context.Context, tenantID, id string) (*models.Route, error) {
	route, err := s.routes.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route")
	}
	return route, nil
}

// Create persists a new route.
func (s *RouteService) Create(ctx context.Context, tenantID string, req dto.RouteRequest) (*models.Route, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid route payload")
	}
	route := &models.Route{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		WarehouseID: req.WarehouseID,
		Active:      true,
	}
	if req.Active != nil {
		route.Active = *req.Active
	}
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create route")
	}
	return route, nil
}

// Update edits an existing route.
func (s *RouteService) Update(ctx context.Context, tenantID, id string, req dto.RouteRequest) (*models.Route, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid route payload")
	}
	route, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	route.Name = req.Name
	route.Description = req.Description
	route.WarehouseID = req.WarehouseID
	if req.Active != nil {
		route.Active = *req.Active
	}
	if err := s.routes.Update(ctx, route); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update route")
	}
	return route, nil
}

// Delete removes a route and everything hanging off it.
func (s *RouteService) Delete(ctx context.Context, tenantID, id string) error {
	if err := s.routes.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete route")
	}
	return nil
}

// ListCustomers returns the route's stops ordered by their stored sequence
// number.
func (s *RouteService) ListCustomers(ctx context.Context, tenantID, routeID string) ([]models.RouteCustomer, error) {
	if _, err := s.Get(ctx, tenantID, routeID); err != nil {
		return nil, err
	}
	customers, err := s.routes.ListCustomers(ctx, tenantID, routeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list route customers")
	}
	return customers, nil
}

// AddCustomer places a customer on the route.
func (s *RouteService) AddCustomer(ctx context.Context, tenantID, routeID string, req dto.RouteCustomerRequest) (*models.RouteCustomer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid route customer payload")
	}
	if _, err := s.Get(ctx, tenantID, routeID); err != nil {
		return nil, err
	}
	customer := &models.RouteCustomer{
		TenantID:       tenantID,
		RouteID:        routeID,
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		SequenceNumber: req.SequenceNumber,
	}
	if err := s.routes.AddCustomer(ctx, customer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add route customer")
	}
	return customer, nil
}

// UpdateCustomer edits the stored name or ordering of a stop.
func (s *RouteService) UpdateCustomer(ctx context.Context, tenantID, id string, req dto.RouteCustomerUpdateRequest) (*models.RouteCustomer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid route customer payload")
	}
	customer, err := s.routes.FindCustomer(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route customer")
	}
	if req.CustomerName != nil {
		customer.CustomerName = *req.CustomerName
	}
	if req.SequenceNumber != nil {
		customer.SequenceNumber = *req.SequenceNumber
	}
	if err := s.routes.UpdateCustomer(ctx, customer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update route customer")
	}
	return customer, nil
}

// RemoveCustomer takes a stop off the route.
func (s *RouteService) RemoveCustomer(ctx context.Context, tenantID, id string) error {
	if err := s.routes.RemoveCustomer(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "route customer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove route customer")
	}
	return nil
}
