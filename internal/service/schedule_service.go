package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fieldops-io/fieldops-api/internal/assignment"
	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/internal/recurrence"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.VisitSchedule, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.VisitSchedule, error)
	FindByRouteCustomer(ctx context.Context, tenantID, routeCustomerID string) (*models.VisitSchedule, error)
	Create(ctx context.Context, schedule *models.VisitSchedule) error
	Replace(ctx context.Context, schedule *models.VisitSchedule) error
	Delete(ctx context.Context, tenantID, id string) error
}

type scheduleVisitRepository interface {
	ListBySchedule(ctx context.Context, tenantID, scheduleID string) ([]models.Visit, error)
	Create(ctx context.Context, visit *models.Visit) error
}

type scheduleAssignmentReader interface {
	ListByRoute(ctx context.Context, tenantID, routeID string) ([]models.RouteAgentAssignment, error)
}

type scheduleCustomerReader interface {
	FindCustomer(ctx context.Context, tenantID, id string) (*models.RouteCustomer, error)
}

// ScheduleService owns recurrence definitions and the visit reconciliation
// pipeline.
type ScheduleService struct {
	schedules   scheduleRepository
	visits      scheduleVisitRepository
	assignments scheduleAssignmentReader
	customers   scheduleCustomerReader
	cache       dashboardCacheInvalidator
	auditor     auditRecorder
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ScheduleSyncConfig
}

// ScheduleSyncConfig bounds reconciliation windows.
type ScheduleSyncConfig struct {
	DefaultWindowDays int
	MaxWindowDays     int
}

// NewScheduleService wires schedule dependencies.
func NewScheduleService(
	schedules scheduleRepository,
	visits scheduleVisitRepository,
	assignments scheduleAssignmentReader,
	customers scheduleCustomerReader,
	cache dashboardCacheInvalidator,
	auditor auditRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleSyncConfig,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 30
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = 366
	}
	return &ScheduleService{
		schedules:   schedules,
		visits:      visits,
		assignments: assignments,
		customers:   customers,
		cache:       cache,
		auditor:     auditor,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// List returns schedules for the tenant with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.VisitSchedule, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return items, pagination, nil
}

// Get loads one schedule.
func (s *ScheduleService) Get(ctx context.Context, tenantID, id string) (*models.VisitSchedule, error) {
	schedule, err := s.schedules.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create validates and persists a new recurrence definition. The rule is
// materialised through the engine before touching storage so inconsistent
// definitions never land in the database.
func (s *ScheduleService) Create(ctx context.Context, tenantID, actorID string, req dto.ScheduleRuleRequest) (*models.VisitSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	customer, err := s.customers.FindCustomer(ctx, tenantID, req.RouteCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route customer")
	}
	if existing, err := s.schedules.FindByRouteCustomer(ctx, tenantID, req.RouteCustomerID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "route customer already has a schedule")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing schedule")
	}

	schedule, err := s.buildSchedule(tenantID, customer, req)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.audit(ctx, tenantID, actorID, models.AuditActionScheduleCreate, "visit_schedule", schedule.ID)
	return schedule, nil
}

// Replace rewrites the whole rule of an existing schedule. Partial edits are
// not supported; the request carries every field again.
func (s *ScheduleService) Replace(ctx context.Context, tenantID, actorID, scheduleID string, req dto.ScheduleRuleRequest) (*models.VisitSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	current, err := s.Get(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	if current.RouteCustomerID != req.RouteCustomerID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a schedule cannot be moved to another route customer")
	}
	customer, err := s.customers.FindCustomer(ctx, tenantID, req.RouteCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "route customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route customer")
	}

	schedule, err := s.buildSchedule(tenantID, customer, req)
	if err != nil {
		return nil, err
	}
	schedule.ID = current.ID
	schedule.CreatedAt = current.CreatedAt
	if err := s.schedules.Replace(ctx, schedule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace schedule")
	}
	s.audit(ctx, tenantID, actorID, models.AuditActionScheduleUpdate, "visit_schedule", schedule.ID)
	return schedule, nil
}

// Delete removes a schedule. Visits created from it survive with a detached
// back-reference.
func (s *ScheduleService) Delete(ctx context.Context, tenantID, actorID, scheduleID string) error {
	if err := s.schedules.Delete(ctx, tenantID, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.audit(ctx, tenantID, actorID, models.AuditActionScheduleDelete, "visit_schedule", scheduleID)
	return nil
}

// Preview materialises occurrence dates for a window without writing
// anything.
func (s *ScheduleService) Preview(ctx context.Context, tenantID, scheduleID string, req dto.SchedulePreviewRequest) (*dto.SchedulePreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview window")
	}
	schedule, err := s.Get(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	from, _ := dto.ParseDate(req.From)
	to, _ := dto.ParseDate(req.To)
	if err := s.checkWindow(from, to); err != nil {
		return nil, err
	}
	occurrences, err := s.generate(schedule, from, to)
	if err != nil {
		return nil, err
	}
	return &dto.SchedulePreviewResponse{ScheduleID: scheduleID, Occurrences: occurrences}, nil
}

// Sync reconciles the schedule's rule against persisted visits inside a
// bounded window. New occurrence dates become PENDING visits stamped with the
// agent resolved for that route and date; dates the rule no longer produces
// are reported as orphans and left untouched. Running Sync twice over the
// same window creates nothing the second time.
func (s *ScheduleService) Sync(ctx context.Context, tenantID, actorID, scheduleID string, req dto.SyncScheduleRequest) (*dto.SyncReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sync window")
	}
	schedule, err := s.Get(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	from, to, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}

	occurrences, err := s.generate(schedule, from, to)
	if err != nil {
		return nil, err
	}

	existing, err := s.visits.ListBySchedule(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visits")
	}
	// Rows outside the window must not be classified as orphans; the rule was
	// never evaluated there.
	inWindow := make([]models.Visit, 0, len(existing))
	for _, v := range existing {
		d := recurrence.DateOnly(v.VisitDate)
		if !d.Before(from) && !d.After(to) {
			inWindow = append(inWindow, v)
		}
	}
	rec := reconcileVisits(occurrences, inWindow)

	rows, err := s.assignments.ListByRoute(ctx, tenantID, schedule.RouteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route assignments")
	}
	registry := assignment.NewRegistry(rows)

	report := &dto.SyncReport{
		ScheduleID:     scheduleID,
		WindowFrom:     from,
		WindowTo:       to,
		AlreadyPresent: rec.alreadyPresent,
	}
	for _, v := range rec.orphaned {
		report.Orphaned = append(report.Orphaned, dto.OrphanedVisitReport{
			VisitID:   v.ID,
			VisitDate: recurrence.DateOnly(v.VisitDate),
			Outcome:   string(v.Outcome),
		})
	}

	for _, date := range rec.toCreate {
		visit := &models.Visit{
			TenantID:        tenantID,
			ScheduleID:      &schedule.ID,
			RouteID:         schedule.RouteID,
			RouteCustomerID: schedule.RouteCustomerID,
			VisitDate:       date,
			Outcome:         models.VisitOutcomePending,
			CreatedBy:       actorID,
		}
		if agentID := registry.Resolve(schedule.RouteID, date); agentID != "" {
			visit.AgentID = &agentID
		} else {
			report.Unassigned = append(report.Unassigned, date)
		}
		if err := s.visits.Create(ctx, visit); err != nil {
			// A concurrent sync may have written the same date; the unique
			// constraint makes that an already-present, not a failure.
			if appErrors.FromError(err).Code == appErrors.ErrDuplicateVisit.Code {
				report.AlreadyPresent = append(report.AlreadyPresent, date)
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create visit")
		}
		report.Created = append(report.Created, date)
	}

	s.invalidateDashboard(ctx, tenantID)
	s.metrics.ObserveSyncRun(len(report.Created), time.Since(started))
	s.audit(ctx, tenantID, actorID, models.AuditActionScheduleSync, "visit_schedule", scheduleID)
	s.logger.Info("schedule sync completed",
		zap.String("scheduleId", scheduleID),
		zap.Int("created", len(report.Created)),
		zap.Int("alreadyPresent", len(report.AlreadyPresent)),
		zap.Int("orphaned", len(report.Orphaned)),
		zap.Int("unassigned", len(report.Unassigned)),
	)
	return report, nil
}

func (s *ScheduleService) buildSchedule(tenantID string, customer *models.RouteCustomer, req dto.ScheduleRuleRequest) (*models.VisitSchedule, error) {
	start, err := dto.ParseDatePtr(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	end, err := dto.ParseDatePtr(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
	}
	excluded := make(models.DateList, 0, len(req.ExcludeDates))
	for _, raw := range req.ExcludeDates {
		d, err := dto.ParseDate(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("excludeDates entry %q must be YYYY-MM-DD", raw))
		}
		excluded = append(excluded, d)
	}

	interval := req.IntervalCount
	if interval == 0 {
		interval = 1
	}
	weekdays := make(pq.Int64Array, len(req.Weekdays))
	for i, d := range req.Weekdays {
		weekdays[i] = int64(d)
	}

	schedule := &models.VisitSchedule{
		TenantID:        tenantID,
		RouteID:         customer.RouteID,
		RouteCustomerID: customer.ID,
		Frequency:       models.ScheduleFrequency(req.Frequency),
		IntervalCount:   interval,
		Weekdays:        weekdays,
		DayOfMonth:      req.DayOfMonth,
		StartDate:       start,
		EndDate:         end,
		ExcludeDates:    excluded,
	}
	if _, err := schedule.Rule(); err != nil {
		if errors.Is(err, recurrence.ErrInvertedRange) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvertedRange.Code, appErrors.ErrInvertedRange.Status, "startDate is after endDate")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRule.Code, appErrors.ErrInvalidRule.Status, err.Error())
	}
	return schedule, nil
}

func (s *ScheduleService) generate(schedule *models.VisitSchedule, from, to time.Time) ([]time.Time, error) {
	rule, err := schedule.Rule()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRule.Code, appErrors.ErrInvalidRule.Status, "stored schedule rule is invalid")
	}
	occurrences, err := recurrence.Generate(rule, from, to)
	if err != nil {
		if errors.Is(err, recurrence.ErrInvertedRange) {
			return nil, appErrors.Clone(appErrors.ErrInvertedRange, "window start is after window end")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate occurrences")
	}
	return occurrences, nil
}

func (s *ScheduleService) resolveWindow(req dto.SyncScheduleRequest) (time.Time, time.Time, error) {
	from := recurrence.DateOnly(time.Now().UTC())
	to := from.AddDate(0, 0, s.cfg.DefaultWindowDays)
	if req.From != "" {
		from, _ = dto.ParseDate(req.From)
	}
	if req.To != "" {
		to, _ = dto.ParseDate(req.To)
	} else if req.From != "" {
		to = from.AddDate(0, 0, s.cfg.DefaultWindowDays)
	}
	if err := s.checkWindow(from, to); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (s *ScheduleService) checkWindow(from, to time.Time) error {
	if to.Before(from) {
		return appErrors.Clone(appErrors.ErrInvertedRange, "window start is after window end")
	}
	if days := recurrence.DaysBetween(from, to); days > s.cfg.MaxWindowDays {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window exceeds %d days", s.cfg.MaxWindowDays))
	}
	return nil
}

func (s *ScheduleService) invalidateDashboard(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboard(ctx, tenantID); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *ScheduleService) audit(ctx context.Context, tenantID, actorID, action, resource, resourceID string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, models.AuditLog{
		TenantID:   tenantID,
		UserID:     &actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
	})
}
