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

type visitStoreStub struct {
	visits   []models.Visit
	created  []*models.Visit
	outcomes map[string]models.VisitOutcome
}

func (s *visitStoreStub) List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, int, error) {
	out := make([]models.Visit, 0)
	for _, v := range s.visits {
		if v.TenantID == filter.TenantID {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

func (s *visitStoreStub) FindByID(ctx context.Context, tenantID, id string) (*models.Visit, error) {
	for _, v := range s.visits {
		if v.TenantID == tenantID && v.ID == id {
			found := v
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *visitStoreStub) Create(ctx context.Context, visit *models.Visit) error {
	for _, v := range s.visits {
		if v.RouteCustomerID == visit.RouteCustomerID && v.VisitDate.Equal(visit.VisitDate) {
			return appErrors.Clone(appErrors.ErrDuplicateVisit, "visit already exists for this date")
		}
	}
	visit.ID = "visit-adhoc"
	s.visits = append(s.visits, *visit)
	s.created = append(s.created, visit)
	return nil
}

func (s *visitStoreStub) UpdateOutcome(ctx context.Context, tenantID, id string, outcome models.VisitOutcome, notes *string) error {
	for i, v := range s.visits {
		if v.TenantID == tenantID && v.ID == id {
			s.visits[i].Outcome = outcome
			if notes != nil {
				s.visits[i].Notes = notes
			}
			if s.outcomes == nil {
				s.outcomes = make(map[string]models.VisitOutcome)
			}
			s.outcomes[id] = outcome
			return nil
		}
	}
	return sql.ErrNoRows
}

func newTestVisitService(store *visitStoreStub) (*VisitService, *auditRecorderStub, *cacheInvalidatorStub) {
	auditor := &auditRecorderStub{}
	cache := &cacheInvalidatorStub{}
	customers := &customerReaderStub{customers: map[string]models.RouteCustomer{
		"rc-1": {ID: "rc-1", TenantID: "t-1", RouteID: "route-1", CustomerID: "cust-1", CustomerName: "Acme"},
	}}
	return NewVisitService(store, customers, cache, auditor, nil, nil), auditor, cache
}

func TestVisitServiceCreateAdHoc(t *testing.T) {
	store := &visitStoreStub{}
	svc, _, cache := newTestVisitService(store)

	visit, err := svc.Create(context.Background(), "t-1", "sup-1", dto.VisitRequest{
		RouteID:         "route-1",
		RouteCustomerID: "rc-1",
		VisitDate:       "2024-03-04",
	})
	require.NoError(t, err)
	assert.Nil(t, visit.ScheduleID)
	assert.Equal(t, models.VisitOutcomePending, visit.Outcome)
	assert.Equal(t, date(2024, time.March, 4), visit.VisitDate)
	assert.Equal(t, "sup-1", visit.CreatedBy)
	assert.Equal(t, []string{"t-1"}, cache.invalidated)
}

func TestVisitServiceCreateRejectsCustomerOffRoute(t *testing.T) {
	svc, _, _ := newTestVisitService(&visitStoreStub{})
	_, err := svc.Create(context.Background(), "t-1", "sup-1", dto.VisitRequest{
		RouteID:         "route-other",
		RouteCustomerID: "rc-1",
		VisitDate:       "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestVisitServiceCreateDuplicate(t *testing.T) {
	store := &visitStoreStub{visits: []models.Visit{
		{ID: "v-1", TenantID: "t-1", RouteID: "route-1", RouteCustomerID: "rc-1",
			VisitDate: date(2024, time.March, 4), Outcome: models.VisitOutcomePending},
	}}
	svc, _, _ := newTestVisitService(store)

	_, err := svc.Create(context.Background(), "t-1", "sup-1", dto.VisitRequest{
		RouteID:         "route-1",
		RouteCustomerID: "rc-1",
		VisitDate:       "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateVisit.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestVisitServiceCreateUnknownCustomer(t *testing.T) {
	svc, _, _ := newTestVisitService(&visitStoreStub{})
	_, err := svc.Create(context.Background(), "t-1", "sup-1", dto.VisitRequest{
		RouteID:         "route-1",
		RouteCustomerID: "rc-missing",
		VisitDate:       "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestVisitServiceSetOutcome(t *testing.T) {
	store := &visitStoreStub{visits: []models.Visit{
		{ID: "v-1", TenantID: "t-1", RouteID: "route-1", RouteCustomerID: "rc-1",
			VisitDate: date(2024, time.March, 4), Outcome: models.VisitOutcomePending},
	}}
	svc, auditor, cache := newTestVisitService(store)

	notes := "delivered"
	visit, err := svc.SetOutcome(context.Background(), "t-1", "agent-7", "v-1", dto.VisitOutcomeRequest{
		Outcome: "SUCCESSFUL",
		Notes:   &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisitOutcomeSuccessful, visit.Outcome)
	require.NotNil(t, visit.Notes)
	assert.Equal(t, "delivered", *visit.Notes)
	assert.Equal(t, models.VisitOutcomeSuccessful, store.outcomes["v-1"])
	assert.Equal(t, []string{"t-1"}, cache.invalidated)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.AuditActionVisitOutcome, auditor.entries[0].Action)
}

func TestVisitServiceOutcomeIsReEditable(t *testing.T) {
	store := &visitStoreStub{visits: []models.Visit{
		{ID: "v-1", TenantID: "t-1", RouteID: "route-1", RouteCustomerID: "rc-1",
			VisitDate: date(2024, time.March, 4), Outcome: models.VisitOutcomeSuccessful},
	}}
	svc, _, _ := newTestVisitService(store)

	visit, err := svc.SetOutcome(context.Background(), "t-1", "sup-1", "v-1", dto.VisitOutcomeRequest{
		Outcome: "RESCHEDULED",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisitOutcomeRescheduled, visit.Outcome)
}

func TestVisitServiceSetOutcomeRejectsUnknownValue(t *testing.T) {
	svc, _, _ := newTestVisitService(&visitStoreStub{})
	_, err := svc.SetOutcome(context.Background(), "t-1", "sup-1", "v-1", dto.VisitOutcomeRequest{
		Outcome: "DONE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestVisitServiceSetOutcomeUnknownVisit(t *testing.T) {
	svc, _, _ := newTestVisitService(&visitStoreStub{})
	_, err := svc.SetOutcome(context.Background(), "t-1", "sup-1", "missing", dto.VisitOutcomeRequest{
		Outcome: "CANCELLED",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestVisitServiceListRejectsInvertedDateFilter(t *testing.T) {
	svc, _, _ := newTestVisitService(&visitStoreStub{})
	from := date(2024, time.June, 1)
	to := date(2024, time.January, 1)
	_, _, err := svc.List(context.Background(), models.VisitFilter{
		TenantID: "t-1",
		DateFrom: &from,
		DateTo:   &to,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvertedRange.Code, appErrors.FromError(err).Code)
}

func TestVisitServiceListPaginationDefaults(t *testing.T) {
	store := &visitStoreStub{visits: []models.Visit{
		{ID: "v-1", TenantID: "t-1", RouteID: "route-1", RouteCustomerID: "rc-1",
			VisitDate: date(2024, time.March, 4), Outcome: models.VisitOutcomePending},
	}}
	svc, _, _ := newTestVisitService(store)

	items, pagination, err := svc.List(context.Background(), models.VisitFilter{TenantID: "t-1", Page: -2, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
