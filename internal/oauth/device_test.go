package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

// deviceServer answers the device code request and replies to token polls
// with the given sequence of error codes before issuing a token. An empty
// final entry means success.
func deviceServer(t *testing.T, replies ...string) *httptest.Server {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "repo", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"device_code": "dev-123", "user_code": "ABCD-1234", "verification_uri": "https://github.com/login/device", "expires_in": 900, "interval": 1}`)
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		i := int(polls.Add(1)) - 1
		reply := ""
		if i < len(replies) {
			reply = replies[i]
		} else if len(replies) > 0 {
			reply = replies[len(replies)-1]
		}
		w.Header().Set("Content-Type", "application/json")
		if reply == "" {
			fmt.Fprint(w, `{"access_token": "gho_device", "token_type": "bearer", "scope": "repo"}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error": %q}`, reply)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func waitForStatus(t *testing.T, flow *DeviceFlow, code string, want DeviceStatus) {
	t.Helper()
	assert.Eventually(t, func() bool {
		info, err := flow.Status(code)
		return err == nil && info.Status == want
	}, 10*time.Second, 50*time.Millisecond)
}

func TestDeviceFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("pending then success", func(t *testing.T) {
		server := deviceServer(t, "authorization_pending", "")
		var loggedIn atomic.Bool
		flow := NewDeviceFlow(testGitHubConfig(server.URL), func(ctx context.Context, tok *oauth2.Token) (*models.User, error) {
			loggedIn.Store(true)
			assert.Equal(t, "gho_device", tok.AccessToken)
			return &models.User{Username: "octo"}, nil
		}, silentLogger())
		defer flow.Close()

		start, err := flow.Start(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dev-123", start.DeviceCode)
		assert.Equal(t, "ABCD-1234", start.UserCode)
		assert.Equal(t, int64(1), start.Interval)
		assert.InDelta(t, 900, start.ExpiresIn, 2)
		assert.Equal(t, 1, flow.Count())

		pending := flow.Poll("dev-123")
		assert.Equal(t, DevicePending, pending.Status)
		assert.Equal(t, http.StatusAccepted, pending.HTTPStatus)

		waitForStatus(t, flow, "dev-123", DeviceSuccess)

		result := flow.Poll("dev-123")
		assert.Equal(t, DeviceSuccess, result.Status)
		assert.Equal(t, http.StatusOK, result.HTTPStatus)
		assert.Equal(t, "gho_device", result.Token.AccessToken)
		assert.Equal(t, "octo", result.User.Username)
		assert.True(t, loggedIn.Load())

		again := flow.Poll("dev-123")
		assert.Equal(t, http.StatusBadRequest, again.HTTPStatus)
	})

	t.Run("caps pending codes", func(t *testing.T) {
		server := deviceServer(t, "authorization_pending")
		cfg := testGitHubConfig(server.URL)
		cfg.MaxPendingDevices = 1
		flow := NewDeviceFlow(cfg, nil, silentLogger())
		defer flow.Close()

		_, err := flow.Start(ctx)
		require.NoError(t, err)

		_, err = flow.Start(ctx)
		require.Error(t, err)
		assert.True(t, apperrors.IsRateLimit(err))
		assert.Equal(t, 1, flow.Count())
	})

	t.Run("denied", func(t *testing.T) {
		server := deviceServer(t, "access_denied")
		flow := NewDeviceFlow(testGitHubConfig(server.URL), nil, silentLogger())
		defer flow.Close()

		_, err := flow.Start(ctx)
		require.NoError(t, err)

		waitForStatus(t, flow, "dev-123", DeviceDenied)
		result := flow.Poll("dev-123")
		assert.Equal(t, http.StatusForbidden, result.HTTPStatus)
		assert.Equal(t, "User denied the authorization request", result.Message)
	})

	t.Run("expired", func(t *testing.T) {
		server := deviceServer(t, "expired_token")
		flow := NewDeviceFlow(testGitHubConfig(server.URL), nil, silentLogger())
		defer flow.Close()

		_, err := flow.Start(ctx)
		require.NoError(t, err)

		waitForStatus(t, flow, "dev-123", DeviceExpired)
		result := flow.Poll("dev-123")
		assert.Equal(t, DeviceExpired, result.Status)
		assert.Equal(t, http.StatusBadRequest, result.HTTPStatus)
	})

	t.Run("unknown code", func(t *testing.T) {
		flow := NewDeviceFlow(testGitHubConfig("https://github.com"), nil, silentLogger())
		defer flow.Close()

		result := flow.Poll("nope")
		assert.Equal(t, http.StatusBadRequest, result.HTTPStatus)
		assert.Equal(t, "Invalid or expired device_code", result.Message)

		_, err := flow.Status("nope")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("requires client id", func(t *testing.T) {
		cfg := testGitHubConfig("https://github.com")
		cfg.ClientID = ""
		flow := NewDeviceFlow(cfg, nil, silentLogger())
		defer flow.Close()

		_, err := flow.Start(ctx)
		assert.Equal(t, apperrors.ErrConfig, apperrors.TypeOf(err))
	})

	t.Run("close stops polling", func(t *testing.T) {
		server := deviceServer(t, "authorization_pending")
		flow := NewDeviceFlow(testGitHubConfig(server.URL), nil, silentLogger())

		_, err := flow.Start(ctx)
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			flow.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Close did not return")
		}
	})
}
