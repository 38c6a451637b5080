package generator

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/sc2sm/sc2sm/internal/models"
)

const maxExampleFiles = 3

const defaultInstructions = `Write a single {{.ToneDescription}} social media post for X (max 280 characters) about the commit above.

Requirements:
1. Make it engaging and shareable
2. Include relevant hashtags
3. Keep the {{.Tone}} tone
4. Stay within the 280 character limit
5. Include a call-to-action if appropriate

Generate only the post content, no additional text.`

const reportInstructions = `Write a single tweet (max 280 characters) summarizing this code review activity for a developer audience. Keep it upbeat, mention one concrete highlight and end with #buildinpublic.

Generate only the tweet, no additional text.`

const noActivityPlaceholder = "No code review activity was recorded in this period."

var toneDescriptions = map[string]string{
	models.ToneProfessional: "professional and business-like",
	models.ToneCasual:       "casual and friendly",
	models.ToneTechnical:    "technical and detailed",
}

// ToneDescription returns the prose description of a tone, defaulting to professional.
func ToneDescription(tone string) string {
	if desc, ok := toneDescriptions[tone]; ok {
		return desc
	}
	return toneDescriptions[models.ToneProfessional]
}

type instructionData struct {
	Tone            string
	ToneDescription string
}

// loadInstructions parses the instruction template at path. A missing or
// unparsable file yields the built-in template.
func loadInstructions(path string) (*template.Template, error) {
	fallback := template.Must(template.New("instructions").Parse(defaultInstructions))
	if path == "" {
		return fallback, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fallback, err
	}
	tmpl, err := template.New("instructions").Parse(string(raw))
	if err != nil {
		return fallback, fmt.Errorf("failed to parse prompt template %s: %w", path, err)
	}
	return tmpl, nil
}

// buildCommitPrompt renders the commit details followed by the instructions.
func buildCommitPrompt(instructions *template.Template, commit CommitData, tone string) string {
	var b strings.Builder

	b.WriteString("Commit Details:\n")
	fmt.Fprintf(&b, "- Repository: %s\n", commit.Repository)
	fmt.Fprintf(&b, "- Author: %s\n", commit.Author)
	fmt.Fprintf(&b, "- Message: %s\n", strings.TrimSpace(commit.Message))
	if !commit.Timestamp.IsZero() {
		fmt.Fprintf(&b, "- Timestamp: %s\n", commit.Timestamp.UTC().Format(time.RFC3339))
	}
	writeFiles(&b, "Added", commit.Added)
	writeFiles(&b, "Modified", commit.Modified)
	writeFiles(&b, "Removed", commit.Removed)

	var rendered bytes.Buffer
	data := instructionData{Tone: tone, ToneDescription: ToneDescription(tone)}
	if err := instructions.Execute(&rendered, data); err != nil {
		rendered.Reset()
		template.Must(template.New("instructions").Parse(defaultInstructions)).Execute(&rendered, data)
	}

	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(rendered.String()))
	return b.String()
}

func writeFiles(b *strings.Builder, label string, files []string) {
	if len(files) == 0 {
		return
	}
	shown := files
	if len(shown) > maxExampleFiles {
		shown = shown[:maxExampleFiles]
	}
	fmt.Fprintf(b, "- %s files (%d): %s", label, len(files), strings.Join(shown, ", "))
	if len(files) > len(shown) {
		fmt.Fprintf(b, " and %d more", len(files)-len(shown))
	}
	b.WriteString("\n")
}

func buildReportPrompt(reportText string) string {
	text := strings.TrimSpace(reportText)
	if !hasActivity(text) {
		text = noActivityPlaceholder
	}
	return "Code review report:\n" + text + "\n\n" + reportInstructions
}

func hasActivity(reportText string) bool {
	switch strings.TrimSpace(reportText) {
	case "", "null", "{}", "[]":
		return false
	default:
		return true
	}
}
