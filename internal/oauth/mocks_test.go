package oauth

import (
	"bytes"
	"context"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/sc2sm/sc2sm/internal/models"
)

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) UpsertUserByGitHubID(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	user.ID = 3
	return args.Error(0)
}

func (m *MockTokenStore) UpsertOAuthToken(ctx context.Context, token *models.OAuthToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockTokenStore) GetOAuthToken(ctx context.Context, platform string, userID int64) (*models.OAuthToken, error) {
	args := m.Called(ctx, platform, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthToken), args.Error(1)
}

func (m *MockTokenStore) DeleteOAuthToken(ctx context.Context, platform string, userID int64) error {
	return m.Called(ctx, platform, userID).Error(0)
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return logger
}
