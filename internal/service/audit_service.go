package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/pkg/jobs"
)

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService persists audit trail entries off the request path through a
// worker queue, so a slow or failing audit write never delays an API call.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService wires the audit queue around the repository writer.
func NewAuditService(writer auditWriter, logger *zap.Logger, cfg jobs.QueueConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &AuditService{logger: logger}
	s.queue = jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(models.AuditLog)
		if !ok {
			s.logger.Warn("audit job carried unexpected payload", zap.String("jobId", job.ID))
			return nil
		}
		return writer.CreateAuditLog(ctx, &entry)
	}, cfg)
	return s
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the audit workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

/// Record enqueues an audit entry. Best-effort: a full queue is logged and
// dropped rather than propagated to the caller.
func (s *AuditService) Record(_ context.Context, entry models.AuditLog) {
	job := jobs.Job{ID: uuid.NewString(), Type: entry.Action, Payload: entry}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}
