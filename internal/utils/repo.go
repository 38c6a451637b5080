package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepoURL splits a repository reference into owner and name. It accepts
// "owner/name", https URLs and git@github.com:owner/name.git SSH remotes.
func ParseRepoURL(repo string) (owner, name string, err error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return "", "", fmt.Errorf("repository is required")
	}

	path := repo
	switch {
	case strings.HasPrefix(repo, "git@"):
		_, after, ok := strings.Cut(repo, ":")
		if !ok {
			return "", "", fmt.Errorf("invalid SSH repository URL: %s", repo)
		}
		path = after
	case strings.Contains(repo, "://"):
		u, err := url.Parse(repo)
		if err != nil {
			return "", "", err
		}
		if !strings.HasSuffix(u.Host, "github.com") {
			return "", "", fmt.Errorf("only GitHub repositories are supported")
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(strings.TrimSuffix(path, ".git"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository: %s", repo)
	}

	return parts[0], parts[1], nil
}

// FullName returns the canonical owner/name form of a repository reference.
func FullName(repo string) (string, error) {
	owner, name, err := ParseRepoURL(repo)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}
