package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sc2sm/sc2sm/internal/models"
)

const (
	SessionCookie = "sc2sm_session"
	FlashCookie   = "sc2sm_flash"
	StateCookie   = "sc2sm_oauth_state"

	sessionTTL = 7 * 24 * time.Hour
	stateTTL   = 10 * time.Minute
	userKey    = "user"
)

// Sessions signs the session cookie with HMAC-SHA256. The cookie value is
// "<user id>.<expiry unix>.<hex mac>".
type Sessions struct {
	key    []byte
	secure bool
	now    func() time.Time
}

func NewSessions(secretKey string, secure bool) *Sessions {
	return &Sessions{key: []byte(secretKey), secure: secure, now: time.Now}
}

func (s *Sessions) sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encode returns a signed cookie value for the user
func (s *Sessions) Encode(userID int64) string {
	payload := fmt.Sprintf("%d.%d", userID, s.now().Add(sessionTTL).Unix())
	return payload + "." + s.sign(payload)
}

// Decode verifies a cookie value and returns the user id it carries
func (s *Sessions) Decode(value string) (int64, bool) {
	idx := strings.LastIndex(value, ".")
	if idx <= 0 {
		return 0, false
	}
	payload, sig := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return 0, false
	}

	parts := strings.SplitN(payload, ".", 2)
	if len(parts) != 2 {
		return 0, false
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || s.now().Unix() >= expiry {
		return 0, false
	}
	return userID, true
}

func (s *Sessions) Login(c *gin.Context, userID int64) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, s.Encode(userID), int(sessionTTL.Seconds()), "/", "", s.secure, true)
}

func (s *Sessions) Logout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", s.secure, true)
}

// UserID returns the signed-in user id, if any
func (s *Sessions) UserID(c *gin.Context) (int64, bool) {
	value, err := c.Cookie(SessionCookie)
	if err != nil || value == "" {
		return 0, false
	}
	return s.Decode(value)
}

// BindState ties an OAuth state to this browser. The cookie carries the
// signed SHA-256 of the state, never the state itself.
func (s *Sessions) BindState(c *gin.Context, state string) {
	digest := stateDigest(state)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookie, digest+"."+s.sign("state:"+digest), int(stateTTL.Seconds()), "/", "", s.secure, true)
}

// StateMatches reports whether state is the one bound to this browser by
// BindState. The binding is cleared either way.
func (s *Sessions) StateMatches(c *gin.Context, state string) bool {
	value, err := c.Cookie(StateCookie)
	c.SetCookie(StateCookie, "", -1, "/", "", s.secure, true)
	if err != nil || value == "" || state == "" {
		return false
	}

	idx := strings.LastIndex(value, ".")
	if idx <= 0 {
		return false
	}
	digest, sig := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign("state:"+digest))) {
		return false
	}
	return hmac.Equal([]byte(digest), []byte(stateDigest(state)))
}

func stateDigest(state string) string {
	sum := sha256.Sum256([]byte(state))
	return hex.EncodeToString(sum[:])
}

// SetFlash stores a message shown once on the next page view
func (s *Sessions) SetFlash(c *gin.Context, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, base64.RawURLEncoding.EncodeToString([]byte(message)), 300, "/", "", s.secure, true)
}

// PopFlash returns and clears the pending flash message
func (s *Sessions) PopFlash(c *gin.Context) string {
	value, err := c.Cookie(FlashCookie)
	if err != nil || value == "" {
		return ""
	}
	c.SetCookie(FlashCookie, "", -1, "/", "", s.secure, true)
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// currentUser loads the signed-in user, or returns nil
func (h *Handler) currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		return v.(*models.User)
	}
	userID, ok := h.sessions.UserID(c)
	if !ok {
		return nil
	}
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Session refers to an unknown user")
		return nil
	}
	c.Set(userKey, user)
	return user
}

// RequireUser rejects API calls without a valid session
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.currentUser(c) == nil {
			respondWithError(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireLogin redirects page requests without a valid session to the welcome page
func (h *Handler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.currentUser(c) == nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

func mustUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}
