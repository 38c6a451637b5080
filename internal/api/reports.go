package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sc2sm/sc2sm/internal/coderabbit"
	"github.com/sc2sm/sc2sm/internal/models"
)

const dateLayout = "2006-01-02"

// GenerateReport validates the request and queues a CodeRabbit report.
// With ?sync=true the report is generated before answering.
func (h *Handler) GenerateReport(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		respondWithError(c, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	valid, message, params := coderabbit.ValidateReportParameters(raw)
	if !valid {
		respondWithError(c, http.StatusBadRequest, message)
		return
	}

	if sync, _ := strconv.ParseBool(c.Query("sync")); sync {
		h.generateReportSync(c, params)
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), params)
	if err != nil {
		h.respondWithAppError(c, err, "queue report")
		return
	}
	respondWithJSON(c, http.StatusOK, ReportQueuedResponse{
		ReportID: report.ID,
		Status:   string(report.Status),
		Message:  "Report generation started",
	})
}

func (h *Handler) generateReportSync(c *gin.Context, params *coderabbit.ReportParams) {
	report, result, err := h.reports.Generate(c.Request.Context(), params)
	if err != nil {
		h.respondWithAppError(c, err, "generate report")
		return
	}

	if !result.OK() {
		respondWithJSON(c, http.StatusInternalServerError, ReportFailedResponse{
			ReportID: report.ID,
			Status:   string(models.ReportStatusFailed),
			Error:    result.Error,
			Details:  result.Details,
		})
		return
	}

	respondWithJSON(c, http.StatusCreated, ReportCreatedResponse{
		ReportID:       report.ID,
		Status:         string(models.ReportStatusCompleted),
		Message:        "Report generated successfully",
		Organization:   report.Organization,
		From:           report.FromDate,
		To:             report.ToDate,
		ParametersUsed: report.Options,
		CreatedAt:      report.CreatedAt,
	})
}

func (h *Handler) ListReports(c *gin.Context) {
	limit, offset, ok := pageParams(c, 50)
	if !ok {
		return
	}

	filter := models.ReportFilter{
		Organization: c.Query("organization"),
		Status:       models.ReportStatus(c.Query("status")),
		Limit:        limit,
		Offset:       offset,
	}
	for param, target := range map[string]**time.Time{"from_date": &filter.FromDate, "to_date": &filter.ToDate} {
		value := c.Query(param)
		if value == "" {
			continue
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		*target = &t
	}
	if filter.ToDate != nil {
		// to_date includes the whole day
		end := filter.ToDate.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &end
	}

	result, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		h.respondWithAppError(c, err, "list reports")
		return
	}
	respondWithJSON(c, http.StatusOK, result)
}

func (h *Handler) BottomReports(c *gin.Context) {
	reports, err := h.reports.Bottom(c.Request.Context(), 5)
	if err != nil {
		h.respondWithAppError(c, err, "list bottom reports")
		return
	}
	respondWithJSON(c, http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (h *Handler) GetReport(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		h.respondWithAppError(c, err, "get report")
		return
	}
	respondWithJSON(c, http.StatusOK, report)
}

func (h *Handler) GetReportMetrics(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	metrics, err := h.reports.Metrics(c.Request.Context(), id)
	if err != nil {
		h.respondWithAppError(c, err, "get report metrics")
		return
	}
	respondWithJSON(c, http.StatusOK, metrics)
}

// DraftReportPost turns a completed report into a draft post for the caller
func (h *Handler) DraftReportPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	post, err := h.reports.DraftPost(c.Request.Context(), id, mustUser(c).ID)
	if err != nil {
		h.respondWithAppError(c, err, "draft report post")
		return
	}
	respondWithJSON(c, http.StatusCreated, post)
}
