package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sc2sm/sc2sm/internal/config"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/github"
	"github.com/sc2sm/sc2sm/internal/models"
	"github.com/sc2sm/sc2sm/internal/oauth"
)

type tokenStoreStub struct {
	users  int32
	tokens int32
}

func (s *tokenStoreStub) UpsertUserByGitHubID(_ context.Context, user *models.User) error {
	atomic.AddInt32(&s.users, 1)
	user.ID = testUserID
	return nil
}

func (s *tokenStoreStub) UpsertOAuthToken(_ context.Context, _ *models.OAuthToken) error {
	atomic.AddInt32(&s.tokens, 1)
	return nil
}

func (s *tokenStoreStub) GetOAuthToken(_ context.Context, _ string, _ int64) (*models.OAuthToken, error) {
	return nil, apperrors.NewNotFoundError("token not found", nil)
}

func (s *tokenStoreStub) DeleteOAuthToken(_ context.Context, _ string, _ int64) error {
	return nil
}

func stateFromLocation(t *testing.T, location string) string {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

// startLogin follows a login redirect and returns the issued state with the
// cookie binding it to the requesting browser
func startLogin(t *testing.T, router http.Handler, path string, cookies ...*http.Cookie) (string, *http.Cookie) {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := doRequest(router, req)
	require.Equal(t, http.StatusFound, w.Code)

	binding := findCookie(w, StateCookie)
	require.NotNil(t, binding)
	return stateFromLocation(t, w.Header().Get("Location")), binding
}

func TestGitHubCallbackStateMismatchNeverExchanges(t *testing.T) {
	var exchanges int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login/oauth/access_token" {
			atomic.AddInt32(&exchanges, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer","scope":"repo,user:email"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer tokenServer.Close()

	handler, deps := setupTestHandler()
	store := &tokenStoreStub{}
	manager := oauth.NewGitHubManager(&config.GitHubConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		OAuthBaseURL: tokenServer.URL,
	}, store, silentLogger()).WithIdentity(func(_ context.Context, accessToken string) (*github.User, error) {
		return &github.User{ID: 99, Login: "octocat"}, nil
	})
	handler.github = manager
	router := setupTestRouter(handler)

	state, binding := startLogin(t, router, "/auth/login")

	t.Run("mismatched state", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state=forged", nil)
		req.AddCookie(binding)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid OAuth state", decodeError(t, w))
		assert.Equal(t, int32(0), atomic.LoadInt32(&exchanges))
	})

	t.Run("missing state", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/auth/callback?code=abc", nil)
		req.AddCookie(binding)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, int32(0), atomic.LoadInt32(&exchanges))
	})

	t.Run("state issued to another browser", func(t *testing.T) {
		otherState, _ := startLogin(t, router, "/auth/login")

		req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state="+url.QueryEscape(otherState), nil)
		w := doRequest(router, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, findCookie(w, SessionCookie))

		req, _ = http.NewRequest("GET", "/auth/callback?code=abc&state="+url.QueryEscape(otherState), nil)
		req.AddCookie(binding)
		w = doRequest(router, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Nil(t, findCookie(w, SessionCookie))

		assert.Equal(t, int32(0), atomic.LoadInt32(&exchanges))
	})

	t.Run("issued state signs in", func(t *testing.T) {
		deps.users.On("GetUser", mock.Anything, testUserID).Return(testUser(), nil).Maybe()

		req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state="+url.QueryEscape(state), nil)
		req.AddCookie(binding)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
		assert.Equal(t, int32(1), atomic.LoadInt32(&store.users))
		assert.Equal(t, int32(1), atomic.LoadInt32(&store.tokens))

		session := findCookie(w, SessionCookie)
		require.NotNil(t, session)
		userID, ok := handler.sessions.Decode(session.Value)
		assert.True(t, ok)
		assert.Equal(t, testUserID, userID)
	})

	t.Run("state is one-shot", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state="+url.QueryEscape(state), nil)
		req.AddCookie(binding)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
	})
}

func TestGitHubLoginWithoutClientID(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)
	deps.github.On("AuthURL", mock.AnythingOfType("string")).Return("", apperrors.NewConfigError("GITHUB_CLIENT_ID not configured"))

	req, _ := http.NewRequest("GET", "/auth/login", nil)
	w := doRequest(router, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "GITHUB_CLIENT_ID not configured", decodeError(t, w))
}

func TestLogoutClearsSession(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupTestRouter(handler)

	req, _ := http.NewRequest("GET", "/auth/logout", nil)
	w := doRequest(router, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), SessionCookie+"=;")
}

func TestDeviceFlowEndpoints(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)

	deps.device.On("Start", mock.Anything).Return(&oauth.DeviceStart{
		DeviceCode:      "dev-1",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://github.com/login/device",
		ExpiresIn:       900,
		Interval:        5,
	}, nil)
	deps.device.On("Poll", "dev-1").Return(oauth.PollResult{
		Status:     oauth.DevicePending,
		Message:    "User has not yet authorized the device",
		HTTPStatus: http.StatusAccepted,
	}).Once()
	deps.device.On("Poll", "dev-1").Return(oauth.PollResult{
		Status:     oauth.DeviceSuccess,
		Token:      &oauth2.Token{AccessToken: "gho_device", TokenType: "bearer"},
		User:       testUser(),
		HTTPStatus: http.StatusOK,
	}).Once()
	deps.device.On("Poll", "dev-2").Return(oauth.PollResult{
		Status:     oauth.DeviceDenied,
		Message:    "User denied the authorization request",
		HTTPStatus: http.StatusForbidden,
	})
	deps.device.On("Status", "dev-1").Return(&oauth.DeviceInfo{Status: oauth.DevicePending, ExpiresIn: 880, Interval: 5}, nil)
	deps.device.On("Status", "nope").Return(nil, apperrors.NewNotFoundError("Device code not found", nil))

	req, _ := http.NewRequest("POST", "/auth/device", nil)
	w := doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_code":"ABCD-1234"`)

	req, _ = http.NewRequest("GET", "/auth/status/dev-1", nil)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"pending","expires_in":880,"interval":5}`, w.Body.String())

	req, _ = http.NewRequest("GET", "/auth/status/nope", nil)
	w = doRequest(router, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = jsonRequest(t, "POST", "/auth/poll", DevicePollRequest{DeviceCode: "dev-1"})
	w = doRequest(router, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.Nil(t, findCookie(w, SessionCookie))

	req = jsonRequest(t, "POST", "/auth/poll", DevicePollRequest{DeviceCode: "dev-1"})
	w = doRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"gho_device"`)
	assert.NotNil(t, findCookie(w, SessionCookie))

	req = jsonRequest(t, "POST", "/auth/poll", DevicePollRequest{DeviceCode: "dev-2"})
	w = doRequest(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"User denied the authorization request"`)

	req = jsonRequest(t, "POST", "/auth/poll", map[string]string{})
	w = doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "device_code is required", decodeError(t, w))

	deps.device.AssertExpectations(t)
}

func TestXOAuthFlow(t *testing.T) {
	handler, deps := setupTestHandler()
	router := setupTestRouter(handler)

	var issuedVerifier string
	deps.x.On("AuthURL", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { issuedVerifier = args.String(1) }).
		Return("https://x.example/i/oauth2/authorize?state=placeholder", nil)

	req, _ := http.NewRequest("GET", "/oauth/x/authorize", nil)
	signIn(handler, deps, req)
	w := doRequest(router, req)
	require.Equal(t, http.StatusFound, w.Code)
	state := deps.x.Calls[0].Arguments.String(0)
	require.NotEmpty(t, issuedVerifier)
	binding := findCookie(w, StateCookie)
	require.NotNil(t, binding)

	t.Run("state mismatch never connects", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/oauth/x/callback?code=c&state=forged", nil)
		signIn(handler, deps, req)
		req.AddCookie(binding)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		deps.x.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("state without browser binding never connects", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/oauth/x/callback?code=c&state="+url.QueryEscape(state), nil)
		signIn(handler, deps, req)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		deps.x.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("issued state connects with its verifier", func(t *testing.T) {
		deps.x.On("Connect", mock.Anything, testUserID, "c", issuedVerifier).
			Return(&oauth.XAccount{ID: "1", Username: "octo"}, nil)

		req, _ := http.NewRequest("GET", "/oauth/x/callback?code=c&state="+url.QueryEscape(state), nil)
		signIn(handler, deps, req)
		req.AddCookie(binding)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		deps.x.AssertExpectations(t)
	})

	t.Run("status", func(t *testing.T) {
		deps.x.On("Status", mock.Anything, testUserID).Return(&oauth.XStatus{Connected: true, Scope: "tweet.write"}, nil)

		req, _ := http.NewRequest("GET", "/oauth/x/status", nil)
		signIn(handler, deps, req)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"connected":true`)
	})

	t.Run("disconnect", func(t *testing.T) {
		deps.x.On("Disconnect", mock.Anything, testUserID).Return(nil)

		req, _ := http.NewRequest("GET", "/oauth/x/disconnect", nil)
		signIn(handler, deps, req)
		w := doRequest(router, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
	})
}

func TestXCallbackProfileUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"x-access","refresh_token":"x-refresh","token_type":"bearer","expires_in":7200}`))
	})
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Internal Error"}`, http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	handler, deps := setupTestHandler()
	cfg := config.DefaultXConfig()
	cfg.ClientID = "x-client"
	cfg.ClientSecret = "x-secret"
	cfg.APIBaseURL = server.URL
	store := &tokenStoreStub{}
	handler.x = oauth.NewXManager(cfg, store, silentLogger())
	router := setupTestRouter(handler)

	session := &http.Cookie{Name: SessionCookie, Value: handler.sessions.Encode(testUserID)}
	deps.users.On("GetUser", mock.Anything, testUserID).Return(testUser(), nil)
	state, binding := startLogin(t, router, "/oauth/x/authorize", session)

	req, _ := http.NewRequest("GET", "/oauth/x/callback?code=c&state="+url.QueryEscape(state), nil)
	req.AddCookie(session)
	req.AddCookie(binding)
	w := doRequest(router, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.tokens))

	flash := findCookie(w, FlashCookie)
	require.NotNil(t, flash)
	message, err := base64.RawURLEncoding.DecodeString(flash.Value)
	require.NoError(t, err)
	assert.Equal(t, "Connected X account", string(message))
}
