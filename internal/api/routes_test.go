package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteRegistration(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupTestRouter(handler)

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /health",
		"POST /webhook/github",
		"GET /",
		"GET /dashboard",
		"POST /posts/:id/edit",
		"POST /posts/:id/publish",
		"POST /posts/:id/delete",
		"GET /api/v1/posts",
		"POST /api/v1/posts",
		"GET /api/v1/posts/:id",
		"PUT /api/v1/posts/:id",
		"POST /api/v1/posts/:id/publish",
		"POST /api/v1/posts/:id/schedule",
		"DELETE /api/v1/posts/:id",
		"GET /api/v1/repositories",
		"POST /api/v1/repositories",
		"PUT /api/v1/repositories/:id/settings",
		"DELETE /api/v1/repositories/:id",
		"GET /api/v1/repositories/:id/commits",
		"POST /api/v1/repositories/:id/sync",
		"PUT /api/v1/me/preferences",
		"POST /reports/generate",
		"GET /reports",
		"GET /reports/bottom5",
		"GET /reports/:id",
		"GET /reports/:id/metrics",
		"POST /reports/:id/post",
		"GET /auth/login",
		"GET /auth/callback",
		"GET /auth/logout",
		"POST /auth/device",
		"POST /auth/poll",
		"GET /auth/status/:device_code",
		"GET /oauth/x/authorize",
		"GET /oauth/x/callback",
		"GET /oauth/x/disconnect",
		"GET /oauth/x/status",
		"GET /swagger/*any",
	}

	for _, route := range expected {
		assert.True(t, registered[route], "route %s is not registered", route)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupTestRouter(handler)

	req, _ := http.NewRequest("GET", "/nonexistent", nil)
	w := doRequest(router, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
