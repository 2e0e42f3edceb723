package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

type assignmentRepoStub struct {
	rows    []models.RouteAgentAssignment
	created []*models.RouteAgentAssignment
	updated []*models.RouteAgentAssignment
	deleted []string
}

func (s *assignmentRepoStub) ListByRoute(ctx context.Context, tenantID, routeID string) ([]models.RouteAgentAssignment, error) {
	out := make([]models.RouteAgentAssignment, 0)
	for _, a := range s.rows {
		if a.TenantID == tenantID && a.RouteID == routeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *assignmentRepoStub) ListDetailsByRoute(ctx context.Context, tenantID, routeID string) ([]models.AssignmentDetail, error) {
	rows, _ := s.ListByRoute(ctx, tenantID, routeID)
	out := make([]models.AssignmentDetail, 0, len(rows))
	for _, a := range rows {
		out = append(out, models.AssignmentDetail{RouteAgentAssignment: a})
	}
	return out, nil
}

func (s *assignmentRepoStub) FindByID(ctx context.Context, tenantID, id string) (*models.RouteAgentAssignment, error) {
	for _, a := range s.rows {
		if a.TenantID == tenantID && a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentRepoStub) Create(ctx context.Context, assignment *models.RouteAgentAssignment) error {
	assignment.ID = "asg-new"
	s.rows = append(s.rows, *assignment)
	s.created = append(s.created, assignment)
	return nil
}

func (s *assignmentRepoStub) Update(ctx context.Context, assignment *models.RouteAgentAssignment) error {
	for i, a := range s.rows {
		if a.ID == assignment.ID {
			s.rows[i] = *assignment
			s.updated = append(s.updated, assignment)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *assignmentRepoStub) Delete(ctx context.Context, tenantID, id string) error {
	for i, a := range s.rows {
		if a.TenantID == tenantID && a.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

type routeReaderStub struct {
	routes map[string]models.Route
}

func (s *routeReaderStub) FindByID(ctx context.Context, tenantID, id string) (*models.Route, error) {
	item, ok := s.routes[id]
	if !ok || item.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

type userReaderStub struct {
	users map[string]models.User
}

func (s *userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	item, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func newTestAssignmentService(assignments *assignmentRepoStub) (*AssignmentService, *auditRecorderStub) {
	auditor := &auditRecorderStub{}
	routes := &routeReaderStub{routes: map[string]models.Route{
		"route-1": {ID: "route-1", TenantID: "t-1", Name: "North Loop"},
	}}
	users := &userReaderStub{users: map[string]models.User{
		"agent-7":  {ID: "agent-7", TenantID: "t-1", FullName: "Dana Ortiz", Role: models.RoleAgent},
		"admin-1":  {ID: "admin-1", TenantID: "t-1", FullName: "Site Admin", Role: models.RoleAdmin},
		"agent-x":  {ID: "agent-x", TenantID: "t-2", FullName: "Wrong Tenant", Role: models.RoleAgent},
		"agent-22": {ID: "agent-22", TenantID: "t-1", FullName: "Lee Chen", Role: models.RoleAgent},
	}}
	return NewAssignmentService(assignments, routes, users, auditor, nil, nil), auditor
}

func TestAssignmentServiceCreate(t *testing.T) {
	repo := &assignmentRepoStub{}
	svc, auditor := newTestAssignmentService(repo)

	record, err := svc.Create(context.Background(), "t-1", "admin-1", "route-1", dto.AssignmentRequest{
		AgentID:     "agent-7",
		StartDate:   "2024-03-01",
		IsRecurring: true,
		Weekdays:    []int{1, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "asg-new", record.ID)
	assert.Equal(t, date(2024, time.March, 1), record.StartDate)
	assert.Nil(t, record.EndDate)
	assert.Equal(t, []int64{1, 4}, []int64(record.Weekdays))
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.AuditActionAssignmentEdit, auditor.entries[0].Action)
}

func TestAssignmentServiceCreateRejections(t *testing.T) {
	cases := []struct {
		name     string
		req      dto.AssignmentRequest
		wantCode string
	}{
		{"unknown agent", dto.AssignmentRequest{AgentID: "nobody", StartDate: "2024-03-01"}, appErrors.ErrNotFound.Code},
		{"agent from another tenant", dto.AssignmentRequest{AgentID: "agent-x", StartDate: "2024-03-01"}, appErrors.ErrNotFound.Code},
		{"non-agent role", dto.AssignmentRequest{AgentID: "admin-1", StartDate: "2024-03-01"}, appErrors.ErrValidation.Code},
		{"inverted span", dto.AssignmentRequest{AgentID: "agent-7", StartDate: "2024-06-01", EndDate: strPtr("2024-01-01")}, appErrors.ErrInvertedRange.Code},
		{"recurring without weekdays", dto.AssignmentRequest{AgentID: "agent-7", StartDate: "2024-03-01", IsRecurring: true}, appErrors.ErrValidation.Code},
		{"weekdays on one-off", dto.AssignmentRequest{AgentID: "agent-7", StartDate: "2024-03-01", Weekdays: []int{1}}, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestAssignmentService(&assignmentRepoStub{})
			_, err := svc.Create(context.Background(), "t-1", "admin-1", "route-1", tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
		})
	}
}

func TestAssignmentServiceCreateUnknownRoute(t *testing.T) {
	svc, _ := newTestAssignmentService(&assignmentRepoStub{})
	_, err := svc.Create(context.Background(), "t-1", "admin-1", "route-missing", dto.AssignmentRequest{
		AgentID:   "agent-7",
		StartDate: "2024-03-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceUpdateKeepsIdentity(t *testing.T) {
	created := time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC)
	repo := &assignmentRepoStub{rows: []models.RouteAgentAssignment{
		{ID: "asg-1", TenantID: "t-1", RouteID: "route-1", AgentID: "agent-7",
			StartDate: date(2024, time.January, 1), CreatedAt: created},
	}}
	svc, _ := newTestAssignmentService(repo)

	record, err := svc.Update(context.Background(), "t-1", "admin-1", "asg-1", dto.AssignmentRequest{
		AgentID:   "agent-22",
		StartDate: "2024-04-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "asg-1", record.ID)
	assert.Equal(t, created, record.CreatedAt)
	assert.Equal(t, "agent-22", record.AgentID)
	require.Len(t, repo.updated, 1)
}

func TestAssignmentServiceDelete(t *testing.T) {
	repo := &assignmentRepoStub{rows: []models.RouteAgentAssignment{
		{ID: "asg-1", TenantID: "t-1", RouteID: "route-1", AgentID: "agent-7", StartDate: date(2024, time.January, 1)},
	}}
	svc, auditor := newTestAssignmentService(repo)

	require.NoError(t, svc.Delete(context.Background(), "t-1", "admin-1", "asg-1"))
	assert.Equal(t, []string{"asg-1"}, repo.deleted)
	require.Len(t, auditor.entries, 1)

	err := svc.Delete(context.Background(), "t-1", "admin-1", "asg-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceResolveAssigned(t *testing.T) {
	repo := &assignmentRepoStub{rows: []models.RouteAgentAssignment{
		{ID: "asg-1", TenantID: "t-1", RouteID: "route-1", AgentID: "agent-7", StartDate: date(2024, time.January, 1)},
	}}
	svc, _ := newTestAssignmentService(repo)

	resp, err := svc.Resolve(context.Background(), "t-1", "route-1", dto.ResolutionQuery{Date: "2024-03-04"})
	require.NoError(t, err)
	assert.True(t, resp.Assigned)
	require.NotNil(t, resp.AgentID)
	assert.Equal(t, "agent-7", *resp.AgentID)
	require.NotNil(t, resp.AgentName)
	assert.Equal(t, "Dana Ortiz", *resp.AgentName)
	assert.Equal(t, date(2024, time.March, 4), resp.Date)
}

func TestAssignmentServiceResolveUncovered(t *testing.T) {
	svc, _ := newTestAssignmentService(&assignmentRepoStub{})
	resp, err := svc.Resolve(context.Background(), "t-1", "route-1", dto.ResolutionQuery{Date: "2024-03-04"})
	require.NoError(t, err)
	assert.False(t, resp.Assigned)
	assert.Nil(t, resp.AgentID)
	assert.Nil(t, resp.AgentName)
}

func TestAssignmentServiceResolveRejectsBadDate(t *testing.T) {
	svc, _ := newTestAssignmentService(&assignmentRepoStub{})
	_, err := svc.Resolve(context.Background(), "t-1", "route-1", dto.ResolutionQuery{Date: "04/03/2024"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func strPtr(s string) *string { return &s }
