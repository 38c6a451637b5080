package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
)

// MaxPostLength is the X character limit
const MaxPostLength = 280

// Publisher posts text to X and returns the new post id
type Publisher interface {
	Name() string
	Post(ctx context.Context, content string) (string, error)
}

// Truncate limits content to MaxPostLength runes, marking cut text with "...".
func Truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxPostLength {
		return content
	}
	return string(runes[:MaxPostLength-3]) + "..."
}

// v2Publisher posts through POST /2/tweets
type v2Publisher struct {
	client  *http.Client
	baseURL string
}

func (p *v2Publisher) Name() string { return "x_api_v2" }

func (p *v2Publisher) Post(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := doJSON(p.client, req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("X API returned no tweet id")
	}
	return resp.Data.ID, nil
}

// v1Publisher posts through the legacy POST /1.1/statuses/update.json
type v1Publisher struct {
	client  *http.Client
	baseURL string
}

func (p *v1Publisher) Name() string { return "x_api_v1_1" }

func (p *v1Publisher) Post(ctx context.Context, content string) (string, error) {
	form := url.Values{"status": {content}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/1.1/statuses/update.json", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		IDStr string `json:"id_str"`
	}
	if err := doJSON(p.client, req, &resp); err != nil {
		return "", err
	}
	if resp.IDStr == "" {
		return "", fmt.Errorf("X API returned no status id")
	}
	return resp.IDStr, nil
}

// doJSON executes req and decodes a 2xx JSON body into out. Other statuses
// become UpstreamErrors carrying the response body.
func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call X API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewUpstreamError("X", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse X response: %w", err)
	}
	return nil
}
