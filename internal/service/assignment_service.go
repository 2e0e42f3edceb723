package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fieldops-io/fieldops-api/internal/assignment"
	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/internal/recurrence"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

type assignmentRepository interface {
	ListByRoute(ctx context.Context, tenantID, routeID string) ([]models.RouteAgentAssignment, error)
	ListDetailsByRoute(ctx context.Context, tenantID, routeID string) ([]models.AssignmentDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.RouteAgentAssignment, error)
	Create(ctx context.Context, assignment *models.RouteAgentAssignment) error
	Update(ctx context.Context, assignment *models.RouteAgentAssignment) error
	Delete(ctx context.Context, tenantID, id string) error
}

type assignmentRouteReader interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Route, error)
}

type assignmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AssignmentService manages route-agent bindings and answers the which-agent
// question for a route and date.
type AssignmentService struct {
	assignments assignmentRepository
	routes      assignmentRouteReader
	users       assignmentUserReader
	auditor     auditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService wires assignment dependencies.
func NewAssignmentService(
	assignments assignmentRepository,
	routes assignmentRouteReader,
	users assignmentUserReader,
	auditor auditRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		routes:      routes,
		users:       users,
		auditor:     auditor,
		validator:   validate,
		logger:      logger,
	}
}

// ListByRoute returns all assignments of a route with agent names attached.
func (s *AssignmentService) ListByRoute(ctx context.Context, tenantID, routeID string) ([]models.AssignmentDetail, error) {
	if err := s.ensureRoute(ctx, tenantID, routeID); err != nil {
		return nil, err
	}
	items, err := s.assignments.ListDetailsByRoute(ctx, tenantID, routeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return items, nil
}

// Create binds an agent to a route. Overlaps with existing assignments are
// allowed; resolution picks a deterministic winner at read time.
func (s *AssignmentService) Create(ctx context.Context, tenantID, actorID, routeID string, req dto.AssignmentRequest) (*models.RouteAgentAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.ensureRoute(ctx, tenantID, routeID); err != nil {
		return nil, err
	}
	record, err := s.buildAssignment(ctx, tenantID, routeID, req)
	if err != nil {
		return nil, err
	}
	if err := s.assignments.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.audit(ctx, tenantID, actorID, record.ID)
	return record, nil
}

// Update replaces an assignment's span, agent and weekday restriction.
func (s *AssignmentService) Update(ctx context.Context, tenantID, actorID, id string, req dto.AssignmentRequest) (*models.RouteAgentAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	current, err := s.assignments.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	record, err := s.buildAssignment(ctx, tenantID, current.RouteID, req)
	if err != nil {
		return nil, err
	}
	record.ID = current.ID
	record.CreatedAt = current.CreatedAt
	if err := s.assignments.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	s.audit(ctx, tenantID, actorID, record.ID)
	return record, nil
}

// Delete removes an assignment. Visits already stamped with the agent keep
// their stamp.
func (s *AssignmentService) Delete(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.assignments.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	s.audit(ctx, tenantID, actorID, id)
	return nil
}

// Resolve reports which agent covers the route on the given date.
func (s *AssignmentService) Resolve(ctx context.Context, tenantID, routeID string, query dto.ResolutionQuery) (*dto.ResolutionResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	if err := s.ensureRoute(ctx, tenantID, routeID); err != nil {
		return nil, err
	}
	date, _ := dto.ParseDate(query.Date)

	rows, err := s.assignments.ListByRoute(ctx, tenantID, routeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	resp := &dto.ResolutionResponse{RouteID: routeID, Date: recurrence.DateOnly(date)}
	agentID := assignment.NewRegistry(rows).Resolve(routeID, date)
	if agentID == "" {
		return resp, nil
	}
	resp.AgentID = &agentID
	resp.Assigned = true
	if agent, err := s.users.FindByID(ctx, agentID); err == nil {
		resp.AgentName = &agent.FullName
	}
	return resp, nil
}

func (s *AssignmentService) buildAssignment(ctx context.Context, tenantID, routeID string, req dto.AssignmentRequest) (*models.RouteAgentAssignment, error) {
	agent, err := s.users.FindByID(ctx, req.AgentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "agent not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agent")
	}
	if agent.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "agent not found")
	}
	if agent.Role != models.RoleAgent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignments may only target AGENT users")
	}

	start, _ := dto.ParseDate(req.StartDate)
	end, err := dto.ParseDatePtr(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
	}
	if end != nil && end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrInvertedRange, "startDate is after endDate")
	}
	if req.IsRecurring && len(req.Weekdays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurring assignments require at least one weekday")
	}
	if !req.IsRecurring && len(req.Weekdays) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "weekdays are only valid on recurring assignments")
	}

	weekdays := make(pq.Int64Array, len(req.Weekdays))
	for i, d := range req.Weekdays {
		weekdays[i] = int64(d)
	}
	return &models.RouteAgentAssignment{
		TenantID:    tenantID,
		RouteID:     routeID,
		AgentID:     req.AgentID,
		StartDate:   start,
		EndDate:     end,
		IsRecurring: req.IsRecurring,
		Weekdays:    weekdays,
	}, nil
}

func (s *AssignmentService) ensureRoute(ctx context.Context, tenantID, routeID string) error {
	if _, err := s.routes.FindByID(ctx, tenantID, routeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "route not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route")
	}
	return nil
}

func (s *AssignmentService) audit(ctx context.Context, tenantID, actorID, assignmentID string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, models.AuditLog{
		TenantID:   tenantID,
		UserID:     &actorID,
		Action:     models.AuditActionAssignmentEdit,
		Resource:   "route_agent_assignment",
		ResourceID: &assignmentID,
	})
}
