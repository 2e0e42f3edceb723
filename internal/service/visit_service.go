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

type visitRepository interface {
	List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Visit, error)
	Create(ctx context.Context, visit *models.Visit) error
	UpdateOutcome(ctx context.Context, tenantID, id string, outcome models.VisitOutcome, notes *string) error
}

type visitCustomerReader interface {
	FindCustomer(ctx context.Context, tenantID, id string) (*models.RouteCustomer, error)
}

// VisitService manages concrete visits and their outcomes.
type VisitService struct {
	visits    visitRepository
	customers visitCustomerReader
	cache     dashboardCacheInvalidator
	auditor   auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVisitService wires visit dependencies.
func NewVisitService(
	visits visitRepository,
	customers visitCustomerReader,
	cache dashboardCacheInvalidator,
	auditor auditRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *VisitService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitService{
		visits:    visits,
		customers: customers,
		cache:     cache,
		auditor:   auditor,
		validator: validate,
		logger:    logger,
	}
}

// List returns visits matching the filter with pagination metadata. Agents
// see only their own visits; the handler narrows the filter before calling.
func (s *VisitService) List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, nil, appErrors.Clone(appErrors.ErrInvertedRange, "dateFrom is after dateTo")
	}
	items, total, err := s.visits.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list visits")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return items, pagination, nil
}

// Get loads one visit.
func (s *VisitService) Get(ctx context.Context, tenantID, id string) (*models.Visit, error) {
	visit, err := s.visits.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "visit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visit")
	}
	return visit, nil
}

// Create records an ad-hoc visit with no schedule back-reference.
func (s *VisitService) Create(ctx context.Context, tenantID, actorID string, req dto.VisitRequest) (*models.Visit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visit payload")
	}
	customer, err := s.customers.FindCustomer(ctx, tenantID, req.RouteCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route customer")
	}
	if customer.RouteID != req.RouteID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "route customer does not belong to the given route")
	}
	date, _ := dto.ParseDate(req.VisitDate)

	visit := &models.Visit{
		TenantID:        tenantID,
		RouteID:         req.RouteID,
		RouteCustomerID: req.RouteCustomerID,
		AgentID:         req.AgentID,
		VisitDate:       date,
		Outcome:         models.VisitOutcomePending,
		Notes:           req.Notes,
		CreatedBy:       actorID,
	}
	if err := s.visits.Create(ctx, visit); err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrDuplicateVisit.Code {
			return nil, appErrors.Clone(appErrors.ErrDuplicateVisit, "a visit already exists for this customer and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create visit")
	}
	s.invalidateDashboard(ctx, tenantID)
	return visit, nil
}

// SetOutcome records or re-edits a visit outcome. Any transition between
// known outcomes is allowed; history lives in the audit trail.
func (s *VisitService) SetOutcome(ctx context.Context, tenantID, actorID, id string, req dto.VisitOutcomeRequest) (*models.Visit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
	}
	outcome := models.VisitOutcome(req.Outcome)
	if !models.ValidVisitOutcome(outcome) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown visit outcome")
	}
	visit, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.visits.UpdateOutcome(ctx, tenantID, id, outcome, req.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "visit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update visit outcome")
	}
	visit.Outcome = outcome
	if req.Notes != nil {
		visit.Notes = req.Notes
	}
	s.invalidateDashboard(ctx, tenantID)
	if s.auditor != nil {
		s.auditor.Record(ctx, models.AuditLog{
			TenantID:   tenantID,
			UserID:     &actorID,
			Action:     models.AuditActionVisitOutcome,
			Resource:   "visit",
			ResourceID: &id,
		})
	}
	return visit, nil
}

func (s *VisitService) invalidateDashboard(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboard(ctx, tenantID); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
