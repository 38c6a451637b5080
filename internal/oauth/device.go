package oauth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/sc2sm/sc2sm/internal/config"
	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

type DeviceStatus string

const (
	DevicePending DeviceStatus = "pending"
	DeviceSuccess DeviceStatus = "success"
	DeviceDenied  DeviceStatus = "denied"
	DeviceExpired DeviceStatus = "expired"
	DeviceFailed  DeviceStatus = "failed"
)

const (
	errAccessDenied = "access_denied"
	errExpiredToken = "expired_token"

	// how long finished codes stay readable after expiry
	deviceRetention = time.Minute
)

type deviceEntry struct {
	auth      *oauth2.DeviceAuthResponse
	status    DeviceStatus
	token     *oauth2.Token
	user      *models.User
	err       string
	createdAt time.Time
}

// DeviceStore tracks issued device codes and their outcome
type DeviceStore struct {
	mu      sync.RWMutex
	entries map[string]*deviceEntry
	now     func() time.Time
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		entries: make(map[string]*deviceEntry),
		now:     time.Now,
	}
}

func (s *DeviceStore) put(auth *oauth2.DeviceAuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for code, e := range s.entries {
		if now.After(e.auth.Expiry.Add(deviceRetention)) {
			delete(s.entries, code)
		}
	}
	s.entries[auth.DeviceCode] = &deviceEntry{auth: auth, status: DevicePending, createdAt: now}
}

func (s *DeviceStore) finish(code string, status DeviceStatus, tok *oauth2.Token, user *models.User, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[code]
	if !ok {
		return
	}
	e.status = status
	e.token = tok
	e.user = user
	e.err = msg
}

func (s *DeviceStore) get(code string) (deviceEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[code]
	if !ok {
		return deviceEntry{}, false
	}
	return *e, true
}

func (s *DeviceStore) remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, code)
}

// Count returns the number of unexpired codes
func (s *DeviceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if now.Before(e.auth.Expiry) {
			n++
		}
	}
	return n
}

// DeviceStart is what the caller shows the user
type DeviceStart struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// PollResult is the outcome of polling a device code
type PollResult struct {
	Status     DeviceStatus  `json:"status"`
	Message    string        `json:"message,omitempty"`
	Token      *oauth2.Token `json:"-"`
	User       *models.User  `json:"-"`
	HTTPStatus int           `json:"-"`
}

// DeviceInfo is the public view of a device code
type DeviceInfo struct {
	Status    DeviceStatus `json:"status"`
	ExpiresIn int64        `json:"expires_in"`
	Interval  int64        `json:"interval"`
}

// LoginFunc records the user behind a device flow token
type LoginFunc func(ctx context.Context, tok *oauth2.Token) (*models.User, error)

// DeviceFlow runs the GitHub device authorization grant. Each started code
// is polled against GitHub in the background; callers read the outcome.
type DeviceFlow struct {
	config     oauth2.Config
	store      *DeviceStore
	maxPending int
	login      LoginFunc
	httpClient *http.Client
	logger     *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDeviceFlow(cfg *config.GitHubConfig, login LoginFunc, logger *logrus.Logger) *DeviceFlow {
	scope := cfg.DeviceScope
	if scope == "" {
		scope = "repo"
	}
	maxPending := cfg.MaxPendingDevices
	if maxPending <= 0 {
		maxPending = config.DefaultGitHubConfig().MaxPendingDevices
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DeviceFlow{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     GitHubEndpoint(cfg.OAuthBaseURL),
			Scopes:       []string{scope},
		},
		store:      NewDeviceStore(),
		maxPending: maxPending,
		login:      login,
		httpClient: &http.Client{Timeout: tokenTimeout},
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start requests a device code and begins polling for it
func (f *DeviceFlow) Start(ctx context.Context) (*DeviceStart, error) {
	if f.config.ClientID == "" {
		return nil, apperrors.NewConfigError("GITHUB_CLIENT_ID not configured")
	}
	if f.store.Count() >= f.maxPending {
		f.logger.WithField("pending", f.maxPending).Warn("Refusing device flow start, too many pending codes")
		return nil, apperrors.NewRateLimitError("Too many pending device codes, try again later")
	}

	auth, err := f.config.DeviceAuth(withHTTPClient(ctx, f.httpClient))
	if err != nil {
		return nil, classify(githubService, err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" || auth.VerificationURI == "" {
		return nil, apperrors.NewUpstreamError(githubService, http.StatusBadGateway, "Invalid response from GitHub")
	}
	if auth.Expiry.IsZero() {
		auth.Expiry = time.Now().Add(15 * time.Minute)
	}
	if auth.Interval == 0 {
		auth.Interval = 5
	}

	f.store.put(auth)

	f.wg.Add(1)
	go f.poll(auth)

	f.logger.WithField("user_code", auth.UserCode).Info("Started GitHub device flow")
	return &DeviceStart{
		DeviceCode:              auth.DeviceCode,
		UserCode:                auth.UserCode,
		VerificationURI:         auth.VerificationURI,
		VerificationURIComplete: auth.VerificationURIComplete,
		ExpiresIn:               int64(time.Until(auth.Expiry).Round(time.Second).Seconds()),
		Interval:                auth.Interval,
	}, nil
}

func (f *DeviceFlow) poll(auth *oauth2.DeviceAuthResponse) {
	defer f.wg.Done()

	logger := f.logger.WithField("user_code", auth.UserCode)
	ctx := withHTTPClient(f.ctx, f.httpClient)

	da := *auth
	tok, err := f.config.DeviceAccessToken(ctx, &da)
	if err != nil {
		status, msg := deviceFailure(err)
		if f.ctx.Err() != nil {
			return
		}
		logger.WithError(err).WithField("status", status).Info("GitHub device flow ended without a token")
		f.store.finish(auth.DeviceCode, status, nil, nil, msg)
		return
	}

	var user *models.User
	if f.login != nil {
		loginCtx, cancel := context.WithTimeout(f.ctx, 30*time.Second)
		user, err = f.login(loginCtx, tok)
		cancel()
		if err != nil {
			logger.WithError(err).Error("Failed to record device flow login")
			f.store.finish(auth.DeviceCode, DeviceFailed, nil, nil, apperrors.Message(err))
			return
		}
	}

	logger.Info("GitHub device flow authorized")
	f.store.finish(auth.DeviceCode, DeviceSuccess, tok, user, "")
}

func deviceFailure(err error) (DeviceStatus, string) {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case errAccessDenied:
			return DeviceDenied, "User denied the authorization request"
		case errExpiredToken:
			return DeviceExpired, "Device code has expired"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return DeviceExpired, "Device code has expired"
	}
	return DeviceFailed, apperrors.Message(classify(githubService, err))
}

// Poll returns the current outcome for code. Finished codes are removed
// once reported.
func (f *DeviceFlow) Poll(code string) PollResult {
	e, ok := f.store.get(code)
	if !ok {
		return PollResult{Status: DeviceFailed, Message: "Invalid or expired device_code", HTTPStatus: http.StatusBadRequest}
	}

	if e.status == DevicePending && time.Now().After(e.auth.Expiry) {
		f.store.remove(code)
		return PollResult{Status: DeviceExpired, Message: "Device code has expired", HTTPStatus: http.StatusBadRequest}
	}

	switch e.status {
	case DevicePending:
		return PollResult{Status: DevicePending, Message: "User has not yet authorized the device", HTTPStatus: http.StatusAccepted}
	case DeviceSuccess:
		f.store.remove(code)
		return PollResult{Status: DeviceSuccess, Token: e.token, User: e.user, HTTPStatus: http.StatusOK}
	case DeviceDenied:
		f.store.remove(code)
		return PollResult{Status: DeviceDenied, Message: e.err, HTTPStatus: http.StatusForbidden}
	case DeviceExpired:
		f.store.remove(code)
		return PollResult{Status: DeviceExpired, Message: e.err, HTTPStatus: http.StatusBadRequest}
	default:
		f.store.remove(code)
		return PollResult{Status: DeviceFailed, Message: e.err, HTTPStatus: http.StatusBadGateway}
	}
}

// Status describes code without consuming it
func (f *DeviceFlow) Status(code string) (*DeviceInfo, error) {
	e, ok := f.store.get(code)
	if !ok {
		return nil, apperrors.NewNotFoundError("Device code not found", nil)
	}

	remaining := time.Until(e.auth.Expiry)
	if remaining <= 0 {
		f.store.remove(code)
		return nil, apperrors.NewValidationError("Device code has expired", nil)
	}

	return &DeviceInfo{
		Status:    e.status,
		ExpiresIn: int64(remaining.Seconds()),
		Interval:  e.auth.Interval,
	}, nil
}

// Count returns the number of active device codes
func (f *DeviceFlow) Count() int {
	return f.store.Count()
}

// Close stops all background polling and waits for it to finish
func (f *DeviceFlow) Close() {
	f.cancel()
	f.wg.Wait()
}
