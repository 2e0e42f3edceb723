package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/internal/recurrence"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
)

type dashboardCacheInvalidator interface {
	InvalidateDashboard(ctx context.Context, tenantID string) error
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type dashboardRouteCounter interface {
	Counts(ctx context.Context, tenantID string) (routes int, customers int, err error)
}

type dashboardScheduleCounter interface {
	Count(ctx context.Context, tenantID string) (int, error)
}

type dashboardVisitCounter interface {
	CountByOutcome(ctx context.Context, tenantID string) (map[models.VisitOutcome]int, error)
	CountUnassigned(ctx context.Context, tenantID string, from, to time.Time) (int, error)
}

// DashboardServiceConfig tunes summary behaviour.
type DashboardServiceConfig struct {
	CacheTTL          time.Duration
	UnassignedHorizon int
}

// DashboardService composes per-tenant operational summaries with a Redis
// read-through cache in front of the count queries.
type DashboardService struct {
	routes    dashboardRouteCounter
	schedules dashboardScheduleCounter
	visits    dashboardVisitCounter
	cache     dashboardCache
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(
	routes dashboardRouteCounter,
	schedules dashboardScheduleCounter,
	visits dashboardVisitCounter,
	cache dashboardCache,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg DashboardServiceConfig,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.UnassignedHorizon <= 0 {
		cfg.UnassignedHorizon = 14
	}
	return &DashboardService{
		routes:    routes,
		schedules: schedules,
		visits:    visits,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		cfg:       cfg,
	}
}

func dashboardCacheKey(tenantID string) string {
	return fmt.Sprintf("dashboard:%s:summary", tenantID)
}

// Summary returns the tenant's operational counts, serving from cache when a
// fresh copy exists.
func (s *DashboardService) Summary(ctx context.Context, tenantID string) (*models.DashboardSummary, error) {
	key := dashboardCacheKey(tenantID)
	if s.cache != nil {
		var cached models.DashboardSummary
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	summary, err := s.build(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// InvalidateDashboard drops cached summaries after a write that changes the
// counts.
func (s *DashboardService) InvalidateDashboard(ctx context.Context, tenantID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, fmt.Sprintf("dashboard:%s:*", tenantID))
}

func (s *DashboardService) build(ctx context.Context, tenantID string) (*models.DashboardSummary, error) {
	routes, customers, err := s.routes.Counts(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count routes")
	}
	schedules, err := s.schedules.Count(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count schedules")
	}
	byOutcome, err := s.visits.CountByOutcome(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count visits")
	}

	from := recurrence.DateOnly(s.now())
	to := from.AddDate(0, 0, s.cfg.UnassignedHorizon)
	unassigned, err := s.visits.CountUnassigned(ctx, tenantID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unassigned visits")
	}

	return &models.DashboardSummary{
		Routes:          routes,
		RouteCustomers:  customers,
		Schedules:       schedules,
		VisitsByOutcome: byOutcome,
		UnassignedStops: unassigned,
		WindowFrom:      from,
		WindowTo:        to,
		GeneratedAt:     s.now(),
	}, nil
}
