package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/middleware"
	"github.com/fieldops-io/fieldops-api/internal/models"
)

type visitServiceMock struct {
	listResp         []models.Visit
	listErr          error
	getResp          *models.Visit
	getErr           error
	outcomeResp      *models.Visit
	outcomeErr       error
	lastFilter       models.VisitFilter
	setOutcomeCalled bool
}

func (m *visitServiceMock) List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *visitServiceMock) Get(ctx context.Context, tenantID, id string) (*models.Visit, error) {
	return m.getResp, m.getErr
}

func (m *visitServiceMock) Create(ctx context.Context, tenantID, actorID string, req dto.VisitRequest) (*models.Visit, error) {
	return m.getResp, m.getErr
}

func (m *visitServiceMock) SetOutcome(ctx context.Context, tenantID, actorID, id string, req dto.VisitOutcomeRequest) (*models.Visit, error) {
	m.setOutcomeCalled = true
	return m.outcomeResp, m.outcomeErr
}

func agentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "agent-7", TenantID: "t-1", Role: models.RoleAgent}
}

func TestVisitHandlerListPinsAgentFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &visitServiceMock{}
	handler := NewVisitHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/visits?agentId=someone-else", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, agentClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "agent-7", mockSvc.lastFilter.AgentID)
}

func TestVisitHandlerListRejectsUnknownOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVisitHandler(&visitServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/visits?outcome=DONE", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, supervisorClaims())

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisitHandlerGetForbiddenForOtherAgent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	other := "agent-22"
	mockSvc := &visitServiceMock{
		getResp: &models.Visit{ID: "visit-1", TenantID: "t-1", AgentID: &other},
	}
	handler := NewVisitHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/visits/visit-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "visit-1"}}
	c.Set(middleware.ContextUserKey, agentClaims())

	handler.Get(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestVisitHandlerSetOutcomeOwnVisit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	self := "agent-7"
	mockSvc := &visitServiceMock{
		getResp:     &models.Visit{ID: "visit-1", TenantID: "t-1", AgentID: &self},
		outcomeResp: &models.Visit{ID: "visit-1", TenantID: "t-1", AgentID: &self, Outcome: models.VisitOutcomeSuccessful, VisitDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	handler := NewVisitHandler(mockSvc)

	payload, _ := json.Marshal(dto.VisitOutcomeRequest{Outcome: "SUCCESSFUL"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/visits/visit-1/outcome", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "visit-1"}}
	c.Set(middleware.ContextUserKey, agentClaims())

	handler.SetOutcome(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.setOutcomeCalled)
}

func TestVisitHandlerSetOutcomeForbiddenForOtherAgent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	other := "agent-22"
	mockSvc := &visitServiceMock{
		getResp: &models.Visit{ID: "visit-1", TenantID: "t-1", AgentID: &other},
	}
	handler := NewVisitHandler(mockSvc)

	payload, _ := json.Marshal(dto.VisitOutcomeRequest{Outcome: "SUCCESSFUL"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/visits/visit-1/outcome", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "visit-1"}}
	c.Set(middleware.ContextUserKey, agentClaims())

	handler.SetOutcome(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mockSvc.setOutcomeCalled)
}
