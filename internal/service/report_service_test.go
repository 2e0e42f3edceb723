package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	appErrors "github.com/fieldops-io/fieldops-api/pkg/errors"
	"github.com/fieldops-io/fieldops-api/pkg/jobs"
)

type statusUpdate struct {
	id           string
	status       models.ReportStatus
	resultURL    *string
	errorMessage *string
}

type reportStoreStub struct {
	jobs    map[string]*models.ReportJob
	created []*models.ReportJob
	updates []statusUpdate
	findErr error
}

func (s *reportStoreStub) Create(ctx context.Context, job *models.ReportJob) error {
	job.ID = "job-1"
	job.CreatedAt = time.Now().UTC()
	if s.jobs == nil {
		s.jobs = make(map[string]*models.ReportJob)
	}
	s.jobs[job.ID] = job
	s.created = append(s.created, job)
	return nil
}

func (s *reportStoreStub) FindByID(ctx context.Context, tenantID, id string) (*models.ReportJob, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	job, ok := s.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	found := *job
	return &found, nil
}

func (s *reportStoreStub) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.ReportJob, error) {
	out := make([]models.ReportJob, 0)
	for _, job := range s.jobs {
		if job.TenantID == tenantID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *reportStoreStub) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, resultURL, errorMessage *string, finishedAt *time.Time) error {
	s.updates = append(s.updates, statusUpdate{id: id, status: status, resultURL: resultURL, errorMessage: errorMessage})
	if job, ok := s.jobs[id]; ok {
		job.Status = status
		job.ResultURL = resultURL
		job.ErrorMessage = errorMessage
		job.FinishedAt = finishedAt
	}
	return nil
}

type dispatcherStub struct {
	enqueued   []jobs.Job
	enqueueErr error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.enqueueErr != nil {
		return d.enqueueErr
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

type generatorStub struct {
	result      *ExportResult
	err         error
	generated   []string
	lastRequest *models.ReportJob
}

func (g *generatorStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	g.generated = append(g.generated, job.ID)
	g.lastRequest = job
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func validReportRequest() dto.ReportRequest {
	return dto.ReportRequest{
		Type:    models.ReportTypeVisitActivity,
		RouteID: "route-1",
		From:    "2024-03-01",
		To:      "2024-03-31",
		Format:  models.ReportFormatCSV,
	}
}

func TestReportServiceCreateJobEnqueues(t *testing.T) {
	store := &reportStoreStub{}
	queue := &dispatcherStub{}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), "t-1", "sup-1", validReportRequest())
	require.NoError(t, err)
	assert.Equal(t, "job-1", resp.ID)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)

	require.Len(t, store.created, 1)
	job := store.created[0]
	assert.Equal(t, "t-1", job.TenantID)
	assert.Equal(t, "sup-1", job.CreatedBy)
	assert.Equal(t, models.ReportTypeVisitActivity, job.Type)
	assert.Equal(t, "route-1", job.Params.RouteID)
	assert.Equal(t, models.ReportFormatCSV, job.Params.Format)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job-1", queue.enqueued[0].ID)
	payload, ok := queue.enqueued[0].Payload.(reportJobPayload)
	require.True(t, ok)
	assert.Equal(t, "t-1", payload.TenantID)
}

func TestReportServiceCreateJobRejections(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*dto.ReportRequest)
		wantCode string
	}{
		{"bad from", func(r *dto.ReportRequest) { r.From = "03/01/2024" }, appErrors.ErrValidation.Code},
		{"bad to", func(r *dto.ReportRequest) { r.To = "not-a-date" }, appErrors.ErrValidation.Code},
		{"inverted range", func(r *dto.ReportRequest) { r.From = "2024-04-01" }, appErrors.ErrInvertedRange.Code},
		{"unknown type", func(r *dto.ReportRequest) { r.Type = "agent_payroll" }, appErrors.ErrValidation.Code},
		{"unknown format", func(r *dto.ReportRequest) { r.Format = "xlsx" }, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &reportStoreStub{}
			queue := &dispatcherStub{}
			svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

			req := validReportRequest()
			tc.mutate(&req)
			_, err := svc.CreateJob(context.Background(), "t-1", "sup-1", req)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
			assert.Empty(t, store.created)
			assert.Empty(t, queue.enqueued)
		})
	}
}

func TestReportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := &reportStoreStub{}
	queue := &dispatcherStub{enqueueErr: errors.New("queue stopped")}
	svc := NewReportService(store, queue, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), "t-1", "sup-1", validReportRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	require.Len(t, store.updates, 1)
	assert.Equal(t, "job-1", store.updates[0].id)
	assert.Equal(t, models.ReportStatusFailed, store.updates[0].status)
	require.NotNil(t, store.updates[0].errorMessage)
}

func TestReportServiceGetStatusNotFound(t *testing.T) {
	svc := NewReportService(&reportStoreStub{}, &dispatcherStub{}, nil, nil, ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "t-1", "missing", "sup-1", models.RoleSupervisor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceGetStatusAgentOwnership(t *testing.T) {
	resultURL := "/api/v1/export/tok-123"
	store := &reportStoreStub{jobs: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", TenantID: "t-1", Status: models.ReportStatusFinished,
			CreatedBy: "agent-7", ResultURL: &resultURL},
	}}
	svc := NewReportService(store, &dispatcherStub{}, nil, nil, ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "t-1", "job-1", "agent-other", models.RoleAgent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	resp, err := svc.GetStatus(context.Background(), "t-1", "job-1", "agent-7", models.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, resp.Status)
	require.NotNil(t, resp.ResultURL)
	assert.Equal(t, resultURL, *resp.ResultURL)

	resp, err = svc.GetStatus(context.Background(), "t-1", "job-1", "sup-1", models.RoleSupervisor)
	require.NoError(t, err)
	assert.Equal(t, "job-1", resp.ID)
}

func TestReportWorkerHandleFinishes(t *testing.T) {
	store := &reportStoreStub{jobs: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", TenantID: "t-1", Type: models.ReportTypeVisitActivity,
			Status: models.ReportStatusQueued},
	}}
	gen := &generatorStub{result: &ExportResult{URL: "/api/v1/export/tok-123", Format: models.ReportFormatCSV}}
	worker := NewReportWorker(store, gen, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: reportJobPayload{TenantID: "t-1"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"job-1"}, gen.generated)
	require.Len(t, store.updates, 2)
	assert.Equal(t, models.ReportStatusProcessing, store.updates[0].status)
	assert.Equal(t, models.ReportStatusFinished, store.updates[1].status)
	require.NotNil(t, store.updates[1].resultURL)
	assert.Equal(t, "/api/v1/export/tok-123", *store.updates[1].resultURL)
}

func TestReportWorkerHandleGenerateFailure(t *testing.T) {
	store := &reportStoreStub{jobs: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", TenantID: "t-1", Status: models.ReportStatusQueued},
	}}
	gen := &generatorStub{err: errors.New("no rows in window")}
	worker := NewReportWorker(store, gen, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: reportJobPayload{TenantID: "t-1"}})
	require.Error(t, err)

	require.Len(t, store.updates, 2)
	assert.Equal(t, models.ReportStatusProcessing, store.updates[0].status)
	assert.Equal(t, models.ReportStatusFailed, store.updates[1].status)
	require.NotNil(t, store.updates[1].errorMessage)
	assert.Equal(t, "no rows in window", *store.updates[1].errorMessage)
}

func TestReportWorkerHandleIgnoresForeignPayload(t *testing.T) {
	store := &reportStoreStub{}
	worker := NewReportWorker(store, &generatorStub{}, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: "raw-string"})
	require.NoError(t, err)
	assert.Empty(t, store.updates)
}
