package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

const reportColumns = `id, organization, to_char(from_date, 'YYYY-MM-DD'), to_char(to_date, 'YYYY-MM-DD'),
	schedule_range, prompt, prompt_template, parameters, group_by, subgroup_by, org_id,
	status, summary, commits_analyzed, files_changed, issues_found, score,
	report_data, error_message, request_id, created_at, completed_at`

func scanReport(row scanner) (*models.Report, error) {
	var r models.Report
	var organization, scheduleRange, prompt, promptTemplate, groupBy, subgroupBy, orgID sql.NullString
	var summary, errorMessage, requestID sql.NullString
	var parameters, reportData []byte
	var commitsAnalyzed, filesChanged, issuesFound sql.NullInt64
	var score sql.NullFloat64
	var completedAt sql.NullTime
	var status string

	if err := row.Scan(
		&r.ID, &organization, &r.FromDate, &r.ToDate,
		&scheduleRange, &prompt, &promptTemplate, &parameters, &groupBy, &subgroupBy, &orgID,
		&status, &summary, &commitsAnalyzed, &filesChanged, &issuesFound, &score,
		&reportData, &errorMessage, &requestID, &r.CreatedAt, &completedAt,
	); err != nil {
		return nil, err
	}

	r.Organization = organization.String
	r.Options = models.ReportOptions{
		ScheduleRange:  scheduleRange.String,
		Prompt:         prompt.String,
		PromptTemplate: promptTemplate.String,
		Parameters:     json.RawMessage(parameters),
		GroupBy:        groupBy.String,
		SubgroupBy:     subgroupBy.String,
		OrgID:          orgID.String,
	}
	r.Status = models.ReportStatus(status)
	r.Summary = summary.String
	r.CommitsAnalyzed = nullIntPtr(commitsAnalyzed)
	r.FilesChanged = nullIntPtr(filesChanged)
	r.IssuesFound = nullIntPtr(issuesFound)
	if score.Valid {
		r.Score = &score.Float64
	}
	if len(reportData) > 0 {
		r.ReportData = json.RawMessage(reportData)
	}
	r.ErrorMessage = errorMessage.String
	r.RequestID = requestID.String
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return &r, nil
}

// CreateReport inserts a report row, normally in the pending state.
func (s *PostgresStore) CreateReport(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reports (
			organization, from_date, to_date, schedule_range, prompt, prompt_template,
			parameters, group_by, subgroup_by, org_id, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		nullString(report.Organization), report.FromDate, report.ToDate,
		nullString(report.Options.ScheduleRange), nullString(report.Options.Prompt),
		nullString(report.Options.PromptTemplate), nullJSON(report.Options.Parameters),
		nullString(report.Options.GroupBy), nullString(report.Options.SubgroupBy),
		nullString(report.Options.OrgID), string(report.Status),
	).Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteReport(ctx context.Context, id int64, summary models.ReportSummary) error {
	var score sql.NullFloat64
	if summary.Score != nil {
		score = sql.NullFloat64{Float64: *summary.Score, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE reports SET
			status = 'completed',
			summary = $2,
			commits_analyzed = $3,
			files_changed = $4,
			issues_found = $5,
			score = $6,
			report_data = $7,
			request_id = $8,
			error_message = NULL,
			completed_at = NOW()
		WHERE id = $1`,
		id, nullString(summary.Summary), intPtrNull(summary.CommitsAnalyzed), intPtrNull(summary.FilesChanged),
		intPtrNull(summary.IssuesFound), score, nullJSON(summary.ReportData), nullString(summary.RequestID))
	if err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}
	return expectOneRow(result, "report", id)
}

func (s *PostgresStore) FailReport(ctx context.Context, id int64, message string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reports SET
			status = 'failed',
			error_message = $2,
			completed_at = NOW()
		WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark report failed: %w", err)
	}
	return expectOneRow(result, "report", id)
}

// GetReport returns a report together with its metrics.
func (s *PostgresStore) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewResourceNotFoundError("report", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	metrics, err := s.GetReportMetrics(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Metrics = metrics
	return r, nil
}

// ListReports returns a filtered page of reports, newest first, and the total count
func (s *PostgresStore) ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, int64, error) {
	baseQuery := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filter.Organization != "" {
		argCount++
		baseQuery += fmt.Sprintf(" AND organization = $%d", argCount)
		args = append(args, filter.Organization)
	}

	if filter.Status != "" {
		argCount++
		baseQuery += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, string(filter.Status))
	}

	if filter.FromDate != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.FromDate)
	}

	if filter.ToDate != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.ToDate)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) as count_query", baseQuery)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	argCount++
	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query reports: %w", err)
	}
	reports, err := scanReports(rows)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// BottomReports returns the n completed reports with the lowest score.
// Unscored reports sort last; ties go to the newest report.
func (s *PostgresStore) BottomReports(ctx context.Context, n int) ([]*models.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE status = 'completed'
		ORDER BY score ASC NULLS LAST, created_at DESC
		LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query bottom reports: %w", err)
	}
	return scanReports(rows)
}

func scanReports(rows *sql.Rows) ([]*models.Report, error) {
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

// SaveReportMetrics writes the metric fan-out of a completed report.
func (s *PostgresStore) SaveReportMetrics(ctx context.Context, reportID int64, metrics []models.ReportMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_metrics (report_id, metric_name, metric_value, metadata)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if _, err := stmt.ExecContext(ctx, reportID, m.MetricName, m.MetricValue, nullJSON(m.Metadata)); err != nil {
			return fmt.Errorf("failed to insert metric %s: %w", m.MetricName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReportMetrics(ctx context.Context, reportID int64) ([]models.ReportMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, metric_name, metric_value, metadata
		FROM report_metrics
		WHERE report_id = $1
		ORDER BY metric_name`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query report metrics: %w", err)
	}
	defer rows.Close()

	metrics := []models.ReportMetric{}
	for rows.Next() {
		var m models.ReportMetric
		var value sql.NullString
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.ReportID, &m.MetricName, &value, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan report metric: %w", err)
		}
		m.MetricValue = value.String
		if len(metadata) > 0 {
			m.Metadata = json.RawMessage(metadata)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report metrics: %w", err)
	}
	return metrics, nil
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func intPtrNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
