package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/batch"
	"github.com/sc2sm/sc2sm/internal/coderabbit"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/generator"
	"github.com/sc2sm/sc2sm/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
	queueFullMessage = "report queue is full"
)

// Store is the persistence the report pipeline needs
type Store interface {
	CreateReport(ctx context.Context, report *models.Report) error
	CompleteReport(ctx context.Context, id int64, summary models.ReportSummary) error
	FailReport(ctx context.Context, id int64, message string) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, int64, error)
	BottomReports(ctx context.Context, n int) ([]*models.Report, error)
	SaveReportMetrics(ctx context.Context, reportID int64, metrics []models.ReportMetric) error
	GetReportMetrics(ctx context.Context, reportID int64) ([]models.ReportMetric, error)
	CreatePost(ctx context.Context, post *models.Post) error
}

// ReportClient requests reports from the review service
type ReportClient interface {
	GenerateReport(ctx context.Context, from, to string, opts models.ReportOptions) coderabbit.Result
}

// Submitter queues background work
type Submitter interface {
	Submit(task batch.Task) error
}

// TweetWriter turns report text into a post
type TweetWriter interface {
	GenerateTweetFromReport(ctx context.Context, reportText string) string
}

// ListResult is a page of reports
type ListResult struct {
	Reports    []*models.Report `json:"reports"`
	TotalCount int64            `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
	HasMore    bool             `json:"has_more"`
}

// MetricValue is one entry of a metrics listing
type MetricValue struct {
	Value    string          `json:"value"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// MetricsResult holds the metrics of one report keyed by name
type MetricsResult struct {
	ReportID int64                  `json:"report_id"`
	Metrics  map[string]MetricValue `json:"metrics"`
}

// Service runs the report lifecycle: pending, then completed or failed
type Service struct {
	store  Store
	client ReportClient
	pool   Submitter
	writer TweetWriter
	logger *logrus.Logger
}

func NewService(store Store, client ReportClient, pool Submitter, writer TweetWriter, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		pool:   pool,
		writer: writer,
		logger: logger,
	}
}

// Submit stores a pending report and queues its generation. The returned
// report is still pending.
func (s *Service) Submit(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, error) {
	report, err := s.createPending(ctx, params)
	if err != nil {
		return nil, err
	}

	reportID := report.ID
	err = s.pool.Submit(batch.Task{
		Name: fmt.Sprintf("report-%d", reportID),
		Run: func(taskCtx context.Context) error {
			result := s.process(taskCtx, reportID, params)
			return result.Err()
		},
	})
	if err != nil {
		message := queueFullMessage
		if !errors.Is(err, batch.ErrQueueFull) {
			message = err.Error()
		}
		if failErr := s.store.FailReport(ctx, reportID, message); failErr != nil {
			s.logger.WithError(failErr).WithField("report_id", reportID).Error("Failed to mark report failed")
		}
		return nil, apperrors.NewUnavailableError(message, err)
	}

	s.logger.WithField("report_id", reportID).Info("Report queued")
	return report, nil
}

// Generate stores a report and generates it before returning. The result
// describes the CodeRabbit outcome; err is set only when storage fails.
func (s *Service) Generate(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, coderabbit.Result, error) {
	report, err := s.createPending(ctx, params)
	if err != nil {
		return nil, coderabbit.Result{}, err
	}

	result := s.process(ctx, report.ID, params)
	if result.OK() {
		report.Status = models.ReportStatusCompleted
	} else {
		report.Status = models.ReportStatusFailed
		report.ErrorMessage = result.Error
	}
	return report, result, nil
}

func (s *Service) createPending(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, error) {
	report := &models.Report{
		Organization: params.Organization,
		FromDate:     params.FromDate,
		ToDate:       params.ToDate,
		Options:      params.Options,
		Status:       models.ReportStatusPending,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// process calls CodeRabbit and moves the report to its final state. A panic
// while processing fails the report.
func (s *Service) process(ctx context.Context, reportID int64, params *coderabbit.ReportParams) (result coderabbit.Result) {
	logger := s.logger.WithField("report_id", reportID)

	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("Unexpected error: %v", r)
			logger.WithField("panic", r).Error("Report generation panicked")
			result = coderabbit.Result{Status: coderabbit.StatusError, Error: message, Kind: apperrors.ErrInternal}
			s.fail(ctx, reportID, message)
		}
	}()

	result = s.client.GenerateReport(ctx, params.FromDate, params.ToDate, params.Options)
	if !result.OK() {
		logger.WithField("error", result.Error).Warn("Report generation failed")
		s.fail(ctx, reportID, result.Error)
		return result
	}

	summary := coderabbit.Summarize(result.Data)
	if err := s.store.CompleteReport(ctx, reportID, summary); err != nil {
		logger.WithError(err).Error("Failed to store completed report")
		message := fmt.Sprintf("Unexpected error: %v", err)
		s.fail(ctx, reportID, message)
		return coderabbit.Result{Status: coderabbit.StatusError, Error: message, Kind: apperrors.ErrInternal}
	}

	if metrics := coderabbit.ExtractMetrics(result.Data); len(metrics) > 0 {
		if err := s.store.SaveReportMetrics(ctx, reportID, metrics); err != nil {
			logger.WithError(err).Error("Failed to store report metrics")
		}
	}

	logger.Info("Report completed")
	return result
}

func (s *Service) fail(ctx context.Context, reportID int64, message string) {
	// the task context may already be done
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.store.FailReport(storeCtx, reportID, message); err != nil {
		s.logger.WithError(err).WithField("report_id", reportID).Error("Failed to mark report failed")
	}
}

// Get returns a report with its metrics
func (s *Service) Get(ctx context.Context, id int64) (*models.Report, error) {
	return s.store.GetReport(ctx, id)
}

// List returns a page of reports. The limit defaults to 50 and is capped at 100.
func (s *Service) List(ctx context.Context, filter models.ReportFilter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	reports, total, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []*models.Report{}
	}

	return &ListResult{
		Reports:    reports,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
		HasMore:    int64(filter.Offset+filter.Limit) < total,
	}, nil
}

// Metrics returns the metrics of a report keyed by metric name
func (s *Service) Metrics(ctx context.Context, id int64) (*MetricsResult, error) {
	if _, err := s.store.GetReport(ctx, id); err != nil {
		return nil, err
	}

	metrics, err := s.store.GetReportMetrics(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &MetricsResult{ReportID: id, Metrics: make(map[string]MetricValue, len(metrics))}
	for _, m := range metrics {
		result.Metrics[m.MetricName] = MetricValue{Value: m.MetricValue, Metadata: m.Metadata}
	}
	return result, nil
}

// Bottom returns the n lowest scoring completed reports
func (s *Service) Bottom(ctx context.Context, n int) ([]*models.Report, error) {
	reports, err := s.store.BottomReports(ctx, n)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	return reports, nil
}

// DraftPost writes a draft post about a completed report for the user
func (s *Service) DraftPost(ctx context.Context, id, userID int64) (*models.Post, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusCompleted {
		return nil, apperrors.NewValidationError("Report is not completed", nil)
	}

	content := s.writer.GenerateTweetFromReport(ctx, coderabbit.ReportText(report))
	post := &models.Post{
		Content:  content,
		UserID:   userID,
		Status:   models.PostStatusDraft,
		Platform: models.PlatformTwitter,
		Hashtags: generator.ExtractHashtags(content),
		Mentions: generator.ExtractMentions(content),
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"report_id": id, "post_id": post.ID}).Info("Drafted post from report")
	return post, nil
}
