package coderabbit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc2sm/sc2sm/internal/config"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return logger
}

func testClient(baseURL, promptPath string) *Client {
	return NewClient(&config.CodeRabbitConfig{
		APIKey:     "cr-key",
		APIBaseURL: baseURL,
		PromptPath: promptPath,
		Timeout:    time.Second,
	}, testLogger())
}

func TestGenerateReportSuccess(t *testing.T) {
	promptPath := filepath.Join(t.TempDir(), "crprompt.md")
	require.NoError(t, os.WriteFile(promptPath, []byte("default prompt"), 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/report.generate", r.URL.Path)
		assert.Equal(t, "cr-key", r.Header.Get("x-coderabbitai-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("accept"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-05-01", body["from"])
		assert.Equal(t, "2024-05-15", body["to"])
		assert.Equal(t, "default prompt", body["prompt"])
		assert.Equal(t, "repository", body["groupBy"])
		assert.NotContains(t, body, "orgId")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_reviews": 4}`))
	}))
	defer server.Close()

	client := testClient(server.URL+"/api/v1", promptPath)
	result := client.GenerateReport(context.Background(), "2024-05-01", "2024-05-15", models.ReportOptions{GroupBy: "repository"})

	require.True(t, result.OK())
	assert.JSONEq(t, `{"total_reviews": 4}`, string(result.Data))
	assert.NoError(t, result.Err())
}

func TestGenerateReportCustomPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "custom", body["prompt"])
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	result := testClient(server.URL, "does-not-exist.md").GenerateReport(context.Background(), "2024-05-01", "2024-05-02", models.ReportOptions{Prompt: "custom"})
	assert.True(t, result.OK())
}

func TestGenerateReportErrors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		client := NewClient(&config.CodeRabbitConfig{APIBaseURL: "http://unused"}, testLogger())
		result := client.GenerateReport(context.Background(), "2024-05-01", "2024-05-02", models.ReportOptions{})
		assert.Equal(t, StatusError, result.Status)
		assert.Equal(t, "CODERABBIT_API_KEY not configured", result.Error)
		assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(result.Err()))
	})

	t.Run("upstream error with details", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"bad range"}`))
		}))
		defer server.Close()

		result := testClient(server.URL, "").GenerateReport(context.Background(), "2024-05-01", "2024-05-02", models.ReportOptions{})
		assert.Equal(t, "CodeRabbit API error: 422", result.Error)
		assert.Equal(t, map[string]interface{}{"message": "bad range"}, result.Details)
		assert.Equal(t, http.StatusUnprocessableEntity, apperrors.HTTPStatus(result.Err()))
	})

	t.Run("plain text error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}))
		defer server.Close()

		result := testClient(server.URL, "").GenerateReport(context.Background(), "2024-05-01", "2024-05-02", models.ReportOptions{})
		assert.Equal(t, map[string]string{"message": "upstream down"}, result.Details)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := testClient(server.URL, "")
		client.httpClient.Timeout = 20 * time.Millisecond
		result := client.GenerateReport(context.Background(), "2024-05-01", "2024-05-02", models.ReportOptions{})
		assert.Equal(t, "Request to CodeRabbit timed out", result.Error)
		assert.Equal(t, http.StatusGatewayTimeout, apperrors.HTTPStatus(result.Err()))
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		result := testClient(url, "").GenerateReport(context.Background(), "2024-05-01", "2024-05-02", models.ReportOptions{})
		assert.Equal(t, "Failed to connect to CodeRabbit", result.Error)
		assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(result.Err()))
	})
}

func TestValidateReportParameters(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]interface{}
		wantOK  bool
		wantMsg string
	}{
		{name: "missing both", data: map[string]interface{}{}, wantMsg: "from/from_date and to/to_date are required"},
		{name: "missing to", data: map[string]interface{}{"from": "2024-05-01"}, wantMsg: "from/from_date and to/to_date are required"},
		{name: "bad format", data: map[string]interface{}{"from": "05/01/2024", "to": "2024-05-02"}, wantMsg: "Invalid date format. Use YYYY-MM-DD"},
		{name: "equal dates", data: map[string]interface{}{"from": "2024-05-01", "to": "2024-05-01"}, wantMsg: "from_date must be before to_date"},
		{name: "reversed dates", data: map[string]interface{}{"from_date": "2024-05-10", "to_date": "2024-05-01"}, wantMsg: "from_date must be before to_date"},
		{name: "valid aliases", data: map[string]interface{}{"from_date": "2024-05-01", "to_date": "2024-05-15"}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg, params := ValidateReportParameters(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMsg, msg)
			if tt.wantOK {
				require.NotNil(t, params)
				assert.Equal(t, "default", params.Organization)
			} else {
				assert.Nil(t, params)
			}
		})
	}

	ok, _, params := ValidateReportParameters(map[string]interface{}{
		"from":         "2024-05-01",
		"to":           "2024-05-15",
		"organization": "acme",
		"groupBy":      "repository",
		"orgId":        "org_1",
		"parameters":   []interface{}{map[string]interface{}{"name": "repo", "value": "hello"}},
	})
	require.True(t, ok)
	assert.Equal(t, "acme", params.Organization)
	assert.Equal(t, "repository", params.Options.GroupBy)
	assert.Equal(t, "org_1", params.Options.OrgID)
	assert.JSONEq(t, `[{"name":"repo","value":"hello"}]`, string(params.Options.Parameters))
}

func TestExtractMetrics(t *testing.T) {
	data := json.RawMessage(`{
		"total_reviews": 12,
		"review_coverage": 0.85,
		"avg_review_time": "3h",
		"unrelated": 1,
		"metadata": {"source": "coderabbit", "groups": 2}
	}`)

	metrics := ExtractMetrics(data)
	require.Len(t, metrics, 4)
	assert.Equal(t, models.ReportMetric{MetricName: "total_reviews", MetricValue: "12"}, metrics[0])
	assert.Equal(t, "0.85", metrics[1].MetricValue)
	assert.Equal(t, "3h", metrics[2].MetricValue)
	assert.Equal(t, "metadata", metrics[3].MetricName)
	assert.Equal(t, "json", metrics[3].MetricValue)
	assert.JSONEq(t, `{"source":"coderabbit","groups":2}`, string(metrics[3].Metadata))

	assert.Nil(t, ExtractMetrics(json.RawMessage(`[{"report":"x"}]`)))
}

func TestSummarize(t *testing.T) {
	summary := Summarize(json.RawMessage(`{"summary":"Busy week","commits_analyzed":40,"issues_found":3,"score":87.5,"requestId":"req_1"}`))
	assert.Equal(t, "Busy week", summary.Summary)
	require.NotNil(t, summary.CommitsAnalyzed)
	assert.Equal(t, 40, *summary.CommitsAnalyzed)
	assert.Nil(t, summary.FilesChanged)
	assert.Equal(t, 3, *summary.IssuesFound)
	assert.Equal(t, 87.5, *summary.Score)
	assert.Equal(t, "req_1", summary.RequestID)

	grouped := Summarize(json.RawMessage(`[{"group":"a","report":"First"},{"group":"b","report":"Second"}]`))
	assert.Equal(t, "First\n\nSecond", grouped.Summary)

	assert.Equal(t, "First\n\nSecond", ReportText(&models.Report{ReportData: json.RawMessage(`[{"report":"First"},{"report":"Second"}]`)}))
	assert.Equal(t, "", ReportText(&models.Report{}))
}
