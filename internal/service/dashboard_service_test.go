package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

type dashboardCacheStub struct {
	store    map[string]models.DashboardSummary
	sets     int
	patterns []string
}

func (s *dashboardCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.DashboardSummary) = cached
	return nil
}

func (s *dashboardCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.store == nil {
		s.store = make(map[string]models.DashboardSummary)
	}
	s.store[key] = *value.(*models.DashboardSummary)
	s.sets++
	return nil
}

func (s *dashboardCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.store = nil
	return nil
}

type routeCounterStub struct {
	routes, customers int
	calls             int
}

func (s *routeCounterStub) Counts(ctx context.Context, tenantID string) (int, int, error) {
	s.calls++
	return s.routes, s.customers, nil
}

type scheduleCounterStub struct{ count int }

func (s *scheduleCounterStub) Count(ctx context.Context, tenantID string) (int, error) {
	return s.count, nil
}

type visitCounterStub struct {
	byOutcome  map[models.VisitOutcome]int
	unassigned int
	windowFrom time.Time
	windowTo   time.Time
}

func (s *visitCounterStub) CountByOutcome(ctx context.Context, tenantID string) (map[models.VisitOutcome]int, error) {
	return s.byOutcome, nil
}

func (s *visitCounterStub) CountUnassigned(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	s.windowFrom, s.windowTo = from, to
	return s.unassigned, nil
}

func newTestDashboardService(cache *dashboardCacheStub) (*DashboardService, *routeCounterStub, *visitCounterStub) {
	routes := &routeCounterStub{routes: 3, customers: 42}
	visits := &visitCounterStub{
		byOutcome:  map[models.VisitOutcome]int{models.VisitOutcomePending: 5, models.VisitOutcomeSuccessful: 9},
		unassigned: 2,
	}
	svc := NewDashboardService(routes, &scheduleCounterStub{count: 7}, visits, cache, nil, nil, DashboardServiceConfig{})
	svc.now = func() time.Time { return date(2024, time.March, 4) }
	return svc, routes, visits
}

func TestDashboardServiceSummaryBuildsCounts(t *testing.T) {
	cache := &dashboardCacheStub{}
	svc, _, visits := newTestDashboardService(cache)

	summary, err := svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Routes)
	assert.Equal(t, 42, summary.RouteCustomers)
	assert.Equal(t, 7, summary.Schedules)
	assert.Equal(t, 5, summary.VisitsByOutcome[models.VisitOutcomePending])
	assert.Equal(t, 2, summary.UnassignedStops)
	// default horizon of 14 days from "today"
	assert.Equal(t, date(2024, time.March, 4), visits.windowFrom)
	assert.Equal(t, date(2024, time.March, 18), visits.windowTo)
	assert.Equal(t, 1, cache.sets)
}

func TestDashboardServiceSummaryServesFromCache(t *testing.T) {
	cache := &dashboardCacheStub{}
	svc, routes, _ := newTestDashboardService(cache)

	_, err := svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)

	// second call is a cache hit, count queries run once
	assert.Equal(t, 1, routes.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestDashboardServiceInvalidateDropsCache(t *testing.T) {
	cache := &dashboardCacheStub{}
	svc, routes, _ := newTestDashboardService(cache)

	_, err := svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)
	require.NoError(t, svc.InvalidateDashboard(context.Background(), "t-1"))
	assert.Equal(t, []string{"dashboard:t-1:*"}, cache.patterns)

	_, err = svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 2, routes.calls)
}

func TestDashboardServiceWorksWithoutCache(t *testing.T) {
	routes := &routeCounterStub{routes: 1, customers: 2}
	visits := &visitCounterStub{byOutcome: map[models.VisitOutcome]int{}}
	svc := NewDashboardService(routes, &scheduleCounterStub{}, visits, nil, nil, nil, DashboardServiceConfig{})
	svc.now = func() time.Time { return date(2024, time.March, 4) }

	summary, err := svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Routes)
	require.NoError(t, svc.InvalidateDashboard(context.Background(), "t-1"))
}

func TestDashboardServiceHorizonOverride(t *testing.T) {
	routes := &routeCounterStub{}
	visits := &visitCounterStub{byOutcome: map[models.VisitOutcome]int{}}
	svc := NewDashboardService(routes, &scheduleCounterStub{}, visits, nil, nil, nil, DashboardServiceConfig{UnassignedHorizon: 30})
	svc.now = func() time.Time { return date(2024, time.March, 1) }

	_, err := svc.Summary(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 31), visits.windowTo)
}
