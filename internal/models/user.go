package models

// Post tones understood by the content generator
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneTechnical    = "technical"
)

const defaultMaxPostsPerDay = 5

type User struct {
	BaseModel
	GitHubID        int64  `json:"github_id"`
	Username        string `json:"username"`
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	AccessToken     string `json:"-"`
	PostTone        string `json:"post_tone"`
	IncludeHashtags bool   `json:"include_hashtags"`
	MaxPostsPerDay  int    `json:"max_posts_per_day"`
}

// UserPreferences are the user-editable posting preferences
type UserPreferences struct {
	PostTone        string `json:"post_tone" binding:"omitempty,oneof=professional casual technical"`
	IncludeHashtags *bool  `json:"include_hashtags"`
	MaxPostsPerDay  *int   `json:"max_posts_per_day" binding:"omitempty,min=1,max=100"`
}

// Tone returns the configured tone, defaulting to professional.
func (u *User) Tone() string {
	switch u.PostTone {
	case ToneCasual, ToneTechnical:
		return u.PostTone
	default:
		return ToneProfessional
	}
}

// DailyLimit returns the maximum number of posts published per day.
func (u *User) DailyLimit() int {
	if u.MaxPostsPerDay <= 0 {
		return defaultMaxPostsPerDay
	}
	return u.MaxPostsPerDay
}
