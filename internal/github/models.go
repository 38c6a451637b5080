package github

import "time"

// Repository is the subset of GitHub repository metadata that gets tracked
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Language    string `json:"language"`
	Private     bool   `json:"private"`
	Owner       string `json:"owner"`
}

type Commit struct {
	SHA            string    `json:"sha"`
	Message        string    `json:"message"`
	AuthorName     string    `json:"author_name"`
	AuthorEmail    string    `json:"author_email"`
	CommitterName  string    `json:"committer_name"`
	CommitterEmail string    `json:"committer_email"`
	AuthorDate     time.Time `json:"author_date"`
	HTMLURL        string    `json:"html_url"`
	Parents        []string  `json:"parents"`
	Added          []string  `json:"added,omitempty"`
	Modified       []string  `json:"modified,omitempty"`
	Removed        []string  `json:"removed,omitempty"`
	Additions      int       `json:"additions"`
	Deletions      int       `json:"deletions"`
	ChangedFiles   int       `json:"changed_files"`
}

// User is the authenticated GitHub account
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}
