package coderabbit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sc2sm/sc2sm/internal/models"
)

const (
	dateLayout          = "2006-01-02"
	defaultOrganization = "default"
)

// ReportParams are validated report request parameters
type ReportParams struct {
	FromDate     string               `json:"from"`
	ToDate       string               `json:"to"`
	Organization string               `json:"organization"`
	Options      models.ReportOptions `json:"parameters_used"`
}

// ValidateReportParameters checks a raw request body. It accepts from or
// from_date and to or to_date, requires YYYY-MM-DD dates with from before to,
// and passes the optional CodeRabbit parameters through.
func ValidateReportParameters(data map[string]interface{}) (bool, string, *ReportParams) {
	from := firstString(data, "from", "from_date")
	to := firstString(data, "to", "to_date")
	if from == "" || to == "" {
		return false, "from/from_date and to/to_date are required", nil
	}

	fromDate, err := time.Parse(dateLayout, from)
	if err != nil {
		return false, "Invalid date format. Use YYYY-MM-DD", nil
	}
	toDate, err := time.Parse(dateLayout, to)
	if err != nil {
		return false, "Invalid date format. Use YYYY-MM-DD", nil
	}
	if !fromDate.Before(toDate) {
		return false, "from_date must be before to_date", nil
	}

	organization := stringValue(data["organization"])
	if organization == "" {
		organization = defaultOrganization
	}

	opts := models.ReportOptions{
		ScheduleRange:  stringValue(data["scheduleRange"]),
		Prompt:         stringValue(data["prompt"]),
		PromptTemplate: stringValue(data["promptTemplate"]),
		GroupBy:        stringValue(data["groupBy"]),
		SubgroupBy:     stringValue(data["subgroupBy"]),
		OrgID:          stringValue(data["orgId"]),
	}
	if params, ok := data["parameters"]; ok && params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return false, "parameters must be valid JSON", nil
		}
		opts.Parameters = raw
	}

	return true, "", &ReportParams{
		FromDate:     from,
		ToDate:       to,
		Organization: organization,
		Options:      opts,
	}
}

func firstString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v := stringValue(data[key]); v != "" {
			return v
		}
	}
	return ""
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
