package generator

import (
	"fmt"
	"regexp"
	"strings"
)

var conventionalPrefixes = []string{
	"feat:", "fix:", "docs:", "style:", "refactor:", "test:", "chore:",
	"feature:", "bugfix:", "hotfix:", "merge:", "revert:",
}

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// CleanCommitMessage strips a conventional-commit prefix and collapses whitespace.
func CleanCommitMessage(message string) string {
	cleaned := strings.TrimSpace(message)
	lower := strings.ToLower(cleaned)
	for _, prefix := range conventionalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			cleaned = cleaned[len(prefix):]
			break
		}
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// ExtractHashtags returns the distinct hashtags in content, in order of appearance.
func ExtractHashtags(content string) []string {
	return distinct(hashtagPattern.FindAllString(content, -1))
}

// ExtractMentions returns the distinct @mentions in content, in order of appearance.
func ExtractMentions(content string) []string {
	return distinct(mentionPattern.FindAllString(content, -1))
}

func distinct(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// FilesSummary describes the changed files, e.g. "2 files added, 1 modified".
func FilesSummary(added, modified, removed int) string {
	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d %s added", added, plural(added, "file", "files")))
	}
	if modified > 0 {
		if len(parts) == 0 {
			parts = append(parts, fmt.Sprintf("%d %s modified", modified, plural(modified, "file", "files")))
		} else {
			parts = append(parts, fmt.Sprintf("%d modified", modified))
		}
	}
	if removed > 0 {
		if len(parts) == 0 {
			parts = append(parts, fmt.Sprintf("%d %s removed", removed, plural(removed, "file", "files")))
		} else {
			parts = append(parts, fmt.Sprintf("%d removed", removed))
		}
	}
	if len(parts) == 0 {
		return "code updates"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
