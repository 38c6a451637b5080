package generator

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/config"
)

const (
	reportActivityFallback   = "Another productive stretch of code reviews wrapped up 🚀 Shipping, learning, iterating. #buildinpublic"
	reportNoActivityFallback = "Quiet week in the repos, recharging for the next sprint 💤 #buildinpublic"
)

// CommitData is the commit information a post is written from
type CommitData struct {
	SHA        string
	Author     string
	Message    string
	Timestamp  time.Time
	Added      []string
	Modified   []string
	Removed    []string
	Repository string
}

// Generator writes social media posts through the configured completers
type Generator struct {
	completers   []Completer
	instructions *template.Template
	logger       *logrus.Logger
}

// NewGenerator builds the completer chain from cfg: Anthropic first, then OpenAI.
func NewGenerator(cfg *config.LLMConfig, logger *logrus.Logger) *Generator {
	var completers []Completer
	if cfg.AnthropicAPIKey != "" {
		completers = append(completers, NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.Timeout))
	}
	if cfg.OpenAIAPIKey != "" {
		completers = append(completers, NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel, "", cfg.Timeout))
	}
	if len(completers) == 0 {
		logger.Warn("No LLM API key configured, posts will use the fallback template")
	}

	return New(completers, cfg.PromptPath, logger)
}

// New creates a generator over explicit completers
func New(completers []Completer, promptPath string, logger *logrus.Logger) *Generator {
	instructions, err := loadInstructions(promptPath)
	if err != nil {
		logger.WithError(err).WithField("path", promptPath).Warn("Using built-in post instructions")
	}

	return &Generator{
		completers:   completers,
		instructions: instructions,
		logger:       logger,
	}
}

// GeneratePost writes a post about a single commit. It never fails: when no
// completer produces text the deterministic fallback post is returned.
func (g *Generator) GeneratePost(ctx context.Context, commit CommitData, tone string) string {
	prompt := buildCommitPrompt(g.instructions, commit, tone)

	if text, ok := g.complete(ctx, prompt, logrus.Fields{"sha": commit.SHA, "repository": commit.Repository}); ok {
		return text
	}
	return FallbackPost(commit)
}

// GenerateTweetFromReport writes a post summarizing a review report.
func (g *Generator) GenerateTweetFromReport(ctx context.Context, reportText string) string {
	prompt := buildReportPrompt(reportText)

	if text, ok := g.complete(ctx, prompt, logrus.Fields{"kind": "report"}); ok {
		return text
	}
	if hasActivity(reportText) {
		return reportActivityFallback
	}
	return reportNoActivityFallback
}

func (g *Generator) complete(ctx context.Context, prompt string, fields logrus.Fields) (string, bool) {
	for _, completer := range g.completers {
		text, err := completer.Complete(ctx, prompt)
		entry := g.logger.WithFields(fields).WithField("provider", completer.Name())
		if err != nil {
			entry.WithError(err).Warn("Completion failed, trying next provider")
			continue
		}
		if strings.TrimSpace(text) == "" {
			entry.Warn("Completion was empty, trying next provider")
			continue
		}
		return text, true
	}

	g.logger.WithFields(fields).Info("Falling back to template post")
	return "", false
}

// FallbackPost is the post used when no completion is available.
func FallbackPost(commit CommitData) string {
	summary := FilesSummary(len(commit.Added), len(commit.Modified), len(commit.Removed))
	return fmt.Sprintf("Just shipped: %s 🚀\n\nWorking on %s - %s\n\nWhat's everyone else building today?",
		strings.TrimSpace(commit.Message), commit.Repository, summary)
}
