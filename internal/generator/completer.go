package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	maxCompletionTokens = 200
	openAIBaseURL       = "https://api.openai.com/v1"
	systemPrompt        = "You are a social media content creator who converts technical commit messages into engaging posts."
)

// Completer turns a prompt into a text completion
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnthropicCompleter calls the Anthropic Messages API through the official SDK
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a completer for the given model. Extra
// request options are appended after the API key.
func NewAnthropicCompleter(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *AnthropicCompleter {
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if timeout > 0 {
		options = append(options, option.WithRequestTimeout(timeout))
	}
	options = append(options, opts...)

	client := anthropic.NewClient(options...)
	return &AnthropicCompleter{
		client: &client,
		model:  model,
	}
}

func (c *AnthropicCompleter) Name() string { return "anthropic" }

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxCompletionTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("Anthropic returned empty response")
}

// OpenAICompleter calls the OpenAI chat completions endpoint
type OpenAICompleter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAICompleter creates a completer for the given model. An empty
// baseURL selects the public API.
func NewOpenAICompleter(apiKey, model, baseURL string, timeout time.Duration) *OpenAICompleter {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAICompleter{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAICompleter) Name() string { return "openai" }

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxCompletionTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI response: %w", err)
	}
	if chat.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s - %s", chat.Error.Type, chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned empty response")
	}

	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}
