package api

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sc2sm/sc2sm/internal/coderabbit"
	"github.com/sc2sm/sc2sm/internal/github"
	"github.com/sc2sm/sc2sm/internal/models"
	"github.com/sc2sm/sc2sm/internal/oauth"
	"github.com/sc2sm/sc2sm/internal/posts"
	"github.com/sc2sm/sc2sm/internal/reports"
	"github.com/sc2sm/sc2sm/internal/webhook"
)

// MockPostService is a mock implementation of PostService
type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) Create(ctx context.Context, userID int64, content string) (*models.Post, error) {
	args := m.Called(ctx, userID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) Get(ctx context.Context, userID, id int64) (*models.Post, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) List(ctx context.Context, filter models.PostFilter) (*posts.ListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posts.ListResult), args.Error(1)
}

func (m *MockPostService) Edit(ctx context.Context, userID, id int64, content string) (*models.Post, error) {
	args := m.Called(ctx, userID, id, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) Publish(ctx context.Context, userID, id int64) (*models.Post, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) Schedule(ctx context.Context, userID, id int64, at time.Time) (*models.Post, error) {
	args := m.Called(ctx, userID, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockRepositoryService is a mock implementation of RepositoryService
type MockRepositoryService struct {
	mock.Mock
}

func (m *MockRepositoryService) Track(ctx context.Context, user *models.User, ref string) (*models.Repository, error) {
	args := m.Called(ctx, user, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Repository), args.Error(1)
}

func (m *MockRepositoryService) List(ctx context.Context, userID int64) ([]*models.Repository, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Repository), args.Error(1)
}

func (m *MockRepositoryService) Untrack(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockRepositoryService) UpdateSettings(ctx context.Context, userID, id int64, settings models.RepositorySettings) (*models.Repository, error) {
	args := m.Called(ctx, userID, id, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Repository), args.Error(1)
}

func (m *MockRepositoryService) Commits(ctx context.Context, userID, id int64, limit, offset int) (*github.CommitPage, error) {
	args := m.Called(ctx, userID, id, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.CommitPage), args.Error(1)
}

func (m *MockRepositoryService) Sync(ctx context.Context, user *models.User, id int64) (*github.SyncResult, error) {
	args := m.Called(ctx, user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.SyncResult), args.Error(1)
}

// MockReportService is a mock implementation of ReportService
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Submit(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) Generate(ctx context.Context, params *coderabbit.ReportParams) (*models.Report, coderabbit.Result, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(coderabbit.Result), args.Error(2)
	}
	return args.Get(0).(*models.Report), args.Get(1).(coderabbit.Result), args.Error(2)
}

func (m *MockReportService) Get(ctx context.Context, id int64) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportService) List(ctx context.Context, filter models.ReportFilter) (*reports.ListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reports.ListResult), args.Error(1)
}

func (m *MockReportService) Metrics(ctx context.Context, id int64) (*reports.MetricsResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reports.MetricsResult), args.Error(1)
}

func (m *MockReportService) Bottom(ctx context.Context, n int) ([]*models.Report, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Report), args.Error(1)
}

func (m *MockReportService) DraftPost(ctx context.Context, id, userID int64) (*models.Post, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

// MockPushHandler is a mock implementation of PushHandler
type MockPushHandler struct {
	mock.Mock
}

func (m *MockPushHandler) HandlePush(ctx context.Context, payload *webhook.PushPayload) (int, error) {
	args := m.Called(ctx, payload)
	return args.Int(0), args.Error(1)
}

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) UpdateUserPreferences(ctx context.Context, id int64, prefs models.UserPreferences) (*models.User, error) {
	args := m.Called(ctx, id, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockXAuth is a mock implementation of XAuth
type MockXAuth struct {
	mock.Mock
}

func (m *MockXAuth) AuthURL(state, verifier string) (string, error) {
	args := m.Called(state, verifier)
	return args.String(0), args.Error(1)
}

func (m *MockXAuth) Connect(ctx context.Context, userID int64, code, verifier string) (*oauth.XAccount, error) {
	args := m.Called(ctx, userID, code, verifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.XAccount), args.Error(1)
}

func (m *MockXAuth) Disconnect(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockXAuth) Status(ctx context.Context, userID int64) (*oauth.XStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.XStatus), args.Error(1)
}

// MockDeviceAuth is a mock implementation of DeviceAuth
type MockDeviceAuth struct {
	mock.Mock
}

func (m *MockDeviceAuth) Start(ctx context.Context) (*oauth.DeviceStart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.DeviceStart), args.Error(1)
}

func (m *MockDeviceAuth) Poll(code string) oauth.PollResult {
	args := m.Called(code)
	return args.Get(0).(oauth.PollResult)
}

func (m *MockDeviceAuth) Status(code string) (*oauth.DeviceInfo, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.DeviceInfo), args.Error(1)
}

func (m *MockDeviceAuth) Count() int {
	args := m.Called()
	return args.Int(0)
}

// MockGitHubAuth is a mock implementation of GitHubAuth
type MockGitHubAuth struct {
	mock.Mock
}

func (m *MockGitHubAuth) AuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockGitHubAuth) Login(ctx context.Context, code string) (*models.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
