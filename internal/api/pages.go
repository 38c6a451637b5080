package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sc2sm/sc2sm/internal/models"
)

const recentPostsOnDashboard = 10

// Index redirects signed-in users to their dashboard
func (h *Handler) Index(c *gin.Context) {
	if h.currentUser(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	respondWithJSON(c, http.StatusOK, WelcomeResponse{
		Service:  serviceName,
		Message:  "Turn your commits into posts. Sign in with GitHub to get started.",
		LoginURL: "/auth/login",
		Flash:    h.sessions.PopFlash(c),
	})
}

// Dashboard summarizes the caller's repositories and posts
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	user := mustUser(c)

	repos, err := h.repositories.List(ctx, user.ID)
	if err != nil {
		h.respondWithAppError(c, err, "load dashboard")
		return
	}

	recent, err := h.posts.List(ctx, models.PostFilter{UserID: user.ID, Limit: recentPostsOnDashboard})
	if err != nil {
		h.respondWithAppError(c, err, "load dashboard")
		return
	}

	published, err := h.posts.List(ctx, models.PostFilter{UserID: user.ID, Status: models.PostStatusPublished, Limit: 1})
	if err != nil {
		h.respondWithAppError(c, err, "load dashboard")
		return
	}

	recentPosts := recent.Posts
	if recentPosts == nil {
		recentPosts = []*models.Post{}
	}

	respondWithJSON(c, http.StatusOK, DashboardResponse{
		Flash:          h.sessions.PopFlash(c),
		User:           user,
		ReposCount:     len(repos),
		PostsCount:     recent.Total,
		PublishedPosts: published.Total,
		RecentPosts:    recentPosts,
	})
}
