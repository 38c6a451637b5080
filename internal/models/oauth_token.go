package models

import "time"

type OAuthToken struct {
	BaseModel
	Platform     string     `json:"platform"`
	UserID       int64      `json:"user_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenType    string     `json:"token_type"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scope        string     `json:"scope,omitempty"`
}

// Expired reports whether the token has a known expiry in the past.
func (t *OAuthToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
