package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/coderabbit"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/github"
	"github.com/sc2sm/sc2sm/internal/models"
	"github.com/sc2sm/sc2sm/internal/oauth"
	"github.com/sc2sm/sc2sm/internal/posts"
	"github.com/sc2sm/sc2sm/internal/reports"
	"github.com/sc2sm/sc2sm/internal/webhook"
)

const serviceName = "sc2sm"

// PostService defines the interface for post operations
type PostService interface {
	Create(ctx context.Context, userID int64, content string) (*models.Post, error)
	Get(ctx context.Context, userID, id int64) (*models.Post, error)
	List(ctx context.Context, filter models.PostFilter) (*posts.ListResult, error)
	Edit(ctx context.Context, userID, id int64, content string) (*models.Post, error)
	Publish(ctx context.Context, userID, id int64) (*models.Post, error)
	Schedule(ctx context.Context, userID, id int64, at time.Time) (*models.Post, error)
	Delete(ctx context.Context, userID, id int64) error
}

// RepositoryService defines the interface for tracked repository operations
type RepositoryService interface {
	Track(ctx context.Context, user *models.User, ref string) (*models.Repository, error)
	List(ctx context.Context, userID int64) ([]*models.Repository, error)
	Untrack(ctx context.Context, userID, id int64) error
	UpdateSettings(ctx context.Context, userID, id int64, settings models.RepositorySettings) (*models.Repository, error)
	Commits(ctx context.Context, userID, id int64, limit, offset int) (*github.CommitPage, error)
	Sync(ctx context.Context, user *models.User, id int64) (*github.SyncResult, error)
}

// ReportService defines the interface for CodeRabbit report operations
type ReportService interface {
	Submit(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, error)
	Generate(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, coderabbit.Result, error)
	Get(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) (*reports.ListResult, error)
	Metrics(ctx context.Context, id int64) (*reports.MetricsResult, error)
	Bottom(ctx context.Context, n int) ([]*models.Report, error)
	DraftPost(ctx context.Context, id, userID int64) (*models.Post, error)
}

// PushHandler processes verified push deliveries
type PushHandler interface {
	HandlePush(ctx context.Context, payload *webhook.PushPayload) (int, error)
}

// SignatureVerifier checks X-Hub-Signature-256 headers
type SignatureVerifier interface {
	Verify(body []byte, signature string) bool
}

// GitHubAuth runs the GitHub authorization code flow
type GitHubAuth interface {
	AuthURL(state string) (string, error)
	Login(ctx context.Context, code string) (*models.User, error)
}

// XAuth connects X accounts
type XAuth interface {
	AuthURL(state, verifier string) (string, error)
	Connect(ctx context.Context, userID int64, code, verifier string) (*oauth.XAccount, error)
	Disconnect(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*oauth.XStatus, error)
}

// DeviceAuth runs the GitHub device flow
type DeviceAuth interface {
	Start(ctx context.Context) (*oauth.DeviceStart, error)
	Poll(code string) oauth.PollResult
	Status(code string) (*oauth.DeviceInfo, error)
	Count() int
}

// StateIssuer hands out one-shot OAuth state values
type StateIssuer interface {
	Issue() string
	IssueWithVerifier(verifier string) string
	Consume(state string) bool
	ConsumeVerifier(state string) (string, bool)
}

// UserStore loads and updates users
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUserPreferences(ctx context.Context, id int64, prefs models.UserPreferences) (*models.User, error)
}

// Deps holds everything the HTTP surface calls into
type Deps struct {
	Posts        PostService
	Repositories RepositoryService
	Reports      ReportService
	Webhooks     PushHandler
	Verifier     SignatureVerifier
	GitHub       GitHubAuth
	X            XAuth
	Device       DeviceAuth
	States       StateIssuer
	Users        UserStore
	Sessions     *Sessions
}

type Handler struct {
	posts        PostService
	repositories RepositoryService
	reports      ReportService
	webhooks     PushHandler
	verifier     SignatureVerifier
	github       GitHubAuth
	x            XAuth
	device       DeviceAuth
	states       StateIssuer
	users        UserStore
	sessions     *Sessions
	logger       *logrus.Logger
}

func NewHandler(deps Deps, logger *logrus.Logger) *Handler {
	return &Handler{
		posts:        deps.Posts,
		repositories: deps.Repositories,
		reports:      deps.Reports,
		webhooks:     deps.Webhooks,
		verifier:     deps.Verifier,
		github:       deps.GitHub,
		x:            deps.X,
		device:       deps.Device,
		states:       deps.States,
		users:        deps.Users,
		sessions:     deps.Sessions,
		logger:       logger,
	}
}

func respondWithJSON(c *gin.Context, code int, payload interface{}) {
	c.JSON(code, payload)
}

func respondWithError(c *gin.Context, code int, message string) {
	respondWithJSON(c, code, ErrorResponse{Error: message})
}

// respondWithAppError maps err through the error taxonomy. Unknown errors
// answer 500 with the error string.
func (h *Handler) respondWithAppError(c *gin.Context, err error, action string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Errorf("Failed to %s", action)
	}
	respondWithError(c, status, apperrors.Message(err))
}

func getIntQueryParam(c *gin.Context, param string, defaultValue int) (int, error) {
	value := c.Query(param)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

// pageParams reads limit and offset, answering 400 when either is not an integer
func pageParams(c *gin.Context, defaultLimit int) (int, int, bool) {
	limit, err := getIntQueryParam(c, "limit", defaultLimit)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid limit parameter")
		return 0, 0, false
	}
	offset, err := getIntQueryParam(c, "offset", 0)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid offset parameter")
		return 0, 0, false
	}
	return limit, offset, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
