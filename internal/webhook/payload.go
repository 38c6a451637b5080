package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
)

// PushPayload is the subset of a GitHub push event the processor reads
type PushPayload struct {
	Ref        string         `json:"ref"`
	Before     string         `json:"before"`
	After      string         `json:"after"`
	Repository PushRepository `json:"repository"`
	Pusher     PushUser       `json:"pusher"`
	Commits    []PushCommit   `json:"commits"`
}

type PushRepository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Language    string    `json:"language"`
	Private     bool      `json:"private"`
	Owner       PushOwner `json:"owner"`
}

// PushOwner carries both the login and name forms GitHub sends for owners
type PushOwner struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// OwnerLogin returns the repository owner login, falling back to the
// full name prefix.
func (r PushRepository) OwnerLogin() string {
	if r.Owner.Login != "" {
		return r.Owner.Login
	}
	if r.Owner.Name != "" {
		return r.Owner.Name
	}
	owner, _, _ := strings.Cut(r.FullName, "/")
	return owner
}

type PushUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type PushCommit struct {
	ID        string      `json:"id"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	URL       string      `json:"url"`
	Author    PushUser    `json:"author"`
	Committer PushUser    `json:"committer"`
	Added     []string    `json:"added"`
	Modified  []string    `json:"modified"`
	Removed   []string    `json:"removed"`
	Parents   []ParentRef `json:"parents"`
}

// IsMerge reports whether the commit has more than one parent
func (c PushCommit) IsMerge() bool {
	return len(c.Parents) > 1
}

// ParentRef is a parent sha. It decodes from either a bare sha string or
// an object with a sha field.
type ParentRef string

func (p *ParentRef) UnmarshalJSON(data []byte) error {
	var sha string
	if err := json.Unmarshal(data, &sha); err == nil {
		*p = ParentRef(sha)
		return nil
	}

	var obj struct {
		SHA string `json:"sha"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parent must be a sha or an object with a sha: %w", err)
	}
	*p = ParentRef(obj.SHA)
	return nil
}

// ParsePushPayload decodes and validates a push event body.
func ParsePushPayload(body []byte) (*PushPayload, error) {
	var payload PushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewValidationError("Invalid JSON payload", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Validate checks the fields processing depends on.
func (p *PushPayload) Validate() error {
	if strings.TrimSpace(p.Repository.FullName) == "" {
		return apperrors.NewValidationError("repository.full_name is required", nil)
	}
	for i, c := range p.Commits {
		if c.ID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("commits[%d].id is required", i), nil)
		}
		if strings.TrimSpace(c.Message) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("commits[%d].message is required", i), nil)
		}
	}
	return nil
}
