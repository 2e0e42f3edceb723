package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops-io/fieldops-api/internal/dto"
	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/pkg/export"
	"github.com/fieldops-io/fieldops-api/pkg/storage"
)

type exportVisitReader interface {
	List(ctx context.Context, filter models.VisitFilter) ([]models.Visit, int, error)
}

type exportRouteReader interface {
	List(ctx context.Context, filter models.RouteFilter) ([]models.Route, int, error)
	ListCustomers(ctx context.Context, tenantID, routeID string) ([]models.RouteCustomer, error)
}

type exportAssignmentReader interface {
	ListDetailsByRoute(ctx context.Context, tenantID, routeID string) ([]models.AssignmentDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	PageSize  int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	visits      exportVisitReader
	routes      exportRouteReader
	assignments exportAssignmentReader
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	visits exportVisitReader,
	routes exportRouteReader,
	assignments exportAssignmentReader,
	store fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportConfig,
	logger *zap.Logger,
	csv csvRenderer,
	pdf pdfRenderer,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		visits:      visits,
		routes:      routes,
		assignments: assignments,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	routePart := sanitizeFilename(job.Params.RouteID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), routePart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeVisitActivity:
		return s.buildVisitActivityDataset(ctx, job.TenantID, job.Params)
	case models.ReportTypeRouteCoverage:
		return s.buildRouteCoverageDataset(ctx, job.TenantID, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildVisitActivityDataset(ctx context.Context, tenantID string, params models.ReportJobParams) (export.Dataset, string, error) {
	from, err := dto.ParseDate(params.From)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("parse report window from: %w", err)
	}
	to, err := dto.ParseDate(params.To)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("parse report window to: %w", err)
	}

	dataRows := make([]map[string]string, 0)
	page := 1
	for {
		visits, total, err := s.visits.List(ctx, models.VisitFilter{
			TenantID: tenantID,
			RouteID:  params.RouteID,
			DateFrom: &from,
			DateTo:   &to,
			Page:     page,
			PageSize: s.cfg.PageSize,
			SortBy:   "visit_date",
		})
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, v := range visits {
			dataRows = append(dataRows, map[string]string{
				"Visit ID":   v.ID,
				"Route ID":   v.RouteID,
				"Customer":   v.RouteCustomerID,
				"Agent ID":   derefOr(v.AgentID, "unassigned"),
				"Visit Date": v.VisitDate.UTC().Format(time.DateOnly),
				"Outcome":    string(v.Outcome),
				"Notes":      derefOr(v.Notes, ""),
			})
		}
		if page*s.cfg.PageSize >= total || len(visits) == 0 {
			break
		}
		page++
	}

	dataset := export.Dataset{
		Headers: []string{"Visit ID", "Route ID", "Customer", "Agent ID", "Visit Date", "Outcome", "Notes"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Visit Activity %s to %s", params.From, params.To)
	return dataset, title, nil
}

func (s *ExportService) buildRouteCoverageDataset(ctx context.Context, tenantID string, params models.ReportJobParams) (export.Dataset, string, error) {
	from, err := dto.ParseDate(params.From)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("parse report window from: %w", err)
	}
	to, err := dto.ParseDate(params.To)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("parse report window to: %w", err)
	}

	routes, _, err := s.routes.List(ctx, models.RouteFilter{TenantID: tenantID, Page: 1, PageSize: s.cfg.PageSize})
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(routes))
	for _, route := range routes {
		if params.RouteID != "" && route.ID != params.RouteID {
			continue
		}
		customers, err := s.routes.ListCustomers(ctx, tenantID, route.ID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		assignments, err := s.assignments.ListDetailsByRoute(ctx, tenantID, route.ID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		_, visitTotal, err := s.visits.List(ctx, models.VisitFilter{
			TenantID: tenantID,
			RouteID:  route.ID,
			DateFrom: &from,
			DateTo:   &to,
			Page:     1,
			PageSize: 1,
		})
		if err != nil {
			return export.Dataset{}, "", err
		}
		agents := make([]string, 0, len(assignments))
		for _, a := range assignments {
			agents = append(agents, a.AgentName)
		}
		dataRows = append(dataRows, map[string]string{
			"Route ID":    route.ID,
			"Route Name":  route.Name,
			"Customers":   fmt.Sprintf("%d", len(customers)),
			"Assignments": fmt.Sprintf("%d", len(assignments)),
			"Agents":      strings.Join(agents, "; "),
			"Visits":      fmt.Sprintf("%d", visitTotal),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Route ID", "Route Name", "Customers", "Assignments", "Agents", "Visits"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Route Coverage %s to %s", params.From, params.To)
	return dataset, title, nil
}

func derefOr(ptr *string, fallback string) string {
	if ptr == nil || *ptr == "" {
		return fallback
	}
	return *ptr
}
