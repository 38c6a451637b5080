package coderabbit

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sc2sm/sc2sm/internal/models"
)

var metricNames = []string{
	"total_reviews",
	"total_comments",
	"review_coverage",
	"avg_review_time",
	"total_files_reviewed",
	"total_pull_requests",
}

// ExtractMetrics fans the well-known top-level fields of a report out into
// metric rows. Nested metadata is kept as a single JSON metric.
func ExtractMetrics(reportData json.RawMessage) []models.ReportMetric {
	fields, ok := decodeObject(reportData)
	if !ok {
		return nil
	}

	var metrics []models.ReportMetric
	for _, name := range metricNames {
		value, ok := fields[name]
		if !ok {
			continue
		}
		metrics = append(metrics, models.ReportMetric{
			MetricName:  name,
			MetricValue: metricValue(value),
		})
	}

	if meta, ok := fields["metadata"]; ok {
		raw, err := json.Marshal(meta)
		if err == nil {
			metrics = append(metrics, models.ReportMetric{
				MetricName:  "metadata",
				MetricValue: "json",
				Metadata:    raw,
			})
		}
	}

	return metrics
}

// Summarize derives the report summary columns from the raw report.
func Summarize(reportData json.RawMessage) models.ReportSummary {
	summary := models.ReportSummary{ReportData: reportData}

	if fields, ok := decodeObject(reportData); ok {
		summary.Summary = stringValue(fields["summary"])
		if summary.Summary == "" {
			summary.Summary = stringValue(fields["report"])
		}
		summary.CommitsAnalyzed = intField(fields, "commits_analyzed")
		summary.FilesChanged = intField(fields, "files_changed")
		summary.IssuesFound = intField(fields, "issues_found")
		summary.Score = floatField(fields, "score")
		summary.RequestID = stringValue(fields["requestId"])
		if summary.RequestID == "" {
			summary.RequestID = stringValue(fields["request_id"])
		}
		if summary.Summary == "" {
			if groups, ok := fields["results"].([]interface{}); ok {
				summary.Summary = joinReports(groups)
			}
		}
		return summary
	}

	var groups []interface{}
	if err := decode(reportData, &groups); err == nil {
		summary.Summary = joinReports(groups)
	}
	return summary
}

// ReportText returns the text a post about the report is written from.
func ReportText(report *models.Report) string {
	if report.Summary != "" {
		return report.Summary
	}
	if s := Summarize(report.ReportData).Summary; s != "" {
		return s
	}
	return strings.TrimSpace(string(report.ReportData))
}

func joinReports(groups []interface{}) string {
	var parts []string
	for _, g := range groups {
		group, ok := g.(map[string]interface{})
		if !ok {
			continue
		}
		if text := strings.TrimSpace(stringValue(group["report"])); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func decodeObject(data json.RawMessage) (map[string]interface{}, bool) {
	var fields map[string]interface{}
	if err := decode(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func decode(data json.RawMessage, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func metricValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func intField(fields map[string]interface{}, key string) *int {
	n, ok := fields[key].(json.Number)
	if !ok {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		v := int(i)
		return &v
	}
	if f, err := n.Float64(); err == nil {
		v := int(f)
		return &v
	}
	return nil
}

func floatField(fields map[string]interface{}, key string) *float64 {
	n, ok := fields[key].(json.Number)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}
