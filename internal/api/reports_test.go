package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sc2sm/sc2sm/internal/coderabbit"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
	"github.com/sc2sm/sc2sm/internal/reports"
)

func TestGenerateReportValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "invalid JSON", body: `{`, message: "Invalid JSON payload"},
		{name: "missing dates", body: `{"organization":"acme"}`, message: "from/from_date and to/to_date are required"},
		{name: "bad from", body: `{"from":"05/01/2024","to":"2024-05-31"}`, message: "Invalid date format. Use YYYY-MM-DD"},
		{name: "bad to", body: `{"from_date":"2024-05-01","to_date":"2024-13-40"}`, message: "Invalid date format. Use YYYY-MM-DD"},
		{name: "reversed range", body: `{"from":"2024-06-01","to":"2024-05-01"}`, message: "from_date must be before to_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, deps := setupTestHandler()
			router := setupTestRouter(handler)

			req, _ := http.NewRequest("POST", "/reports/generate", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := doRequest(router, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w))
			deps.reports.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerateReportAsync(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)

	deps.reports.On("Submit", mock.Anything, mock.MatchedBy(func(p *coderabbit.ReportParams) bool {
		return p.FromDate == "2024-05-01" && p.ToDate == "2024-05-31"
	})).Return(&models.Report{ID: 42, Status: models.ReportStatusPending}, nil).Once()
	deps.reports.On("Submit", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewUnavailableError("report queue is full", nil)).Once()

	body := `{"from":"2024-05-01","to":"2024-05-31"}`
	req, _ := http.NewRequest("POST", "/reports/generate", bytes.NewBufferString(body))
	w := doRequest(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var queued ReportQueuedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queued))
	assert.Equal(t, int64(42), queued.ReportID)
	assert.Equal(t, "pending", queued.Status)

	req, _ = http.NewRequest("POST", "/reports/generate", bytes.NewBufferString(body))
	w = doRequest(router, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "report queue is full", decodeError(t, w))

	deps.reports.AssertExpectations(t)
}

func TestGenerateReportSync(t *testing.T) {
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	report := &models.Report{ID: 7, Organization: "acme", FromDate: "2024-05-01", ToDate: "2024-05-31", CreatedAt: created}

	t.Run("completed", func(t *testing.T) {
		handler, deps := setupTestHandler()
		router := setupTestRouter(handler)
		deps.reports.On("Generate", mock.Anything, mock.Anything).
			Return(report, coderabbit.Result{Status: coderabbit.StatusSuccess}, nil)

		req, _ := http.NewRequest("POST", "/reports/generate?sync=true", bytes.NewBufferString(`{"from":"2024-05-01","to":"2024-05-31","organization":"acme"}`))
		w := doRequest(router, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response ReportCreatedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(7), response.ReportID)
		assert.Equal(t, "completed", response.Status)
		assert.Equal(t, "acme", response.Organization)
		assert.Equal(t, "2024-05-01", response.From)
		assert.Equal(t, "2024-05-31", response.To)
		assert.True(t, created.Equal(response.CreatedAt))
	})

	t.Run("failed", func(t *testing.T) {
		handler, deps := setupTestHandler()
		router := setupTestRouter(handler)
		deps.reports.On("Generate", mock.Anything, mock.Anything).
			Return(report, coderabbit.Result{Status: coderabbit.StatusError, Error: "CodeRabbit API error: 401", Details: "invalid key"}, nil)

		req, _ := http.NewRequest("POST", "/reports/generate?sync=true", bytes.NewBufferString(`{"from":"2024-05-01","to":"2024-05-31"}`))
		w := doRequest(router, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var response ReportFailedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "failed", response.Status)
		assert.Equal(t, "CodeRabbit API error: 401", response.Error)
		assert.Equal(t, "invalid key", response.Details)
	})
}

func TestListReports(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)

	deps.reports.On("List", mock.Anything, mock.MatchedBy(func(f models.ReportFilter) bool {
		return f.Organization == "acme" &&
			f.Status == models.ReportStatusCompleted &&
			f.Limit == 10 &&
			f.FromDate != nil && f.FromDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) &&
			f.ToDate != nil && f.ToDate.After(time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC))
	})).Return(&reports.ListResult{Reports: []*models.Report{}, TotalCount: 0, Limit: 10}, nil)

	req, _ := http.NewRequest("GET", "/reports?organization=acme&status=completed&from_date=2024-05-01&to_date=2024-05-31&limit=10", nil)
	w := doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	for _, key := range []string{"reports", "total_count", "limit", "offset", "has_more"} {
		assert.Contains(t, response, key)
	}

	req, _ = http.NewRequest("GET", "/reports?from_date=yesterday", nil)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	deps.reports.AssertExpectations(t)
}

func TestReportReads(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)

	score := 41.5
	deps.reports.On("Bottom", mock.Anything, 5).Return([]*models.Report{{ID: 3, Score: &score}}, nil)
	deps.reports.On("Get", mock.Anything, int64(3)).Return(&models.Report{ID: 3, Status: models.ReportStatusCompleted}, nil)
	deps.reports.On("Get", mock.Anything, int64(4)).Return(nil, apperrors.NewResourceNotFoundError("Report", 4))
	deps.reports.On("Metrics", mock.Anything, int64(3)).Return(&reports.MetricsResult{
		ReportID: 3,
		Metrics:  map[string]reports.MetricValue{"score": {Value: "41.5"}},
	}, nil)

	req, _ := http.NewRequest("GET", "/reports/bottom5", nil)
	w := doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	req, _ = http.NewRequest("GET", "/reports/3", nil)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/reports/4", nil)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Report not found", decodeError(t, w))

	req, _ = http.NewRequest("GET", "/reports/3/metrics", nil)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"report_id":3,"metrics":{"score":{"value":"41.5"}}}`, w.Body.String())

	deps.reports.AssertExpectations(t)
}

func TestDraftReportPost(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)

	deps.reports.On("DraftPost", mock.Anything, int64(3), testUserID).
		Return(&models.Post{BaseModel: models.BaseModel{ID: 12}, Status: models.PostStatusDraft}, nil)

	req, _ := http.NewRequest("POST", "/reports/3/post", nil)
	w := doRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ = http.NewRequest("POST", "/reports/3/post", nil)
	signIn(handler, deps, req)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	deps.reports.AssertExpectations(t)
}
