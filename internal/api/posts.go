package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sc2sm/sc2sm/internal/errors"
	"github.com/sc2sm/sc2sm/internal/models"
)

// PostContentRequest is the body of create and edit calls
type PostContentRequest struct {
	Content string `json:"content" form:"content" binding:"required"`
}

// ScheduleRequest is the body of a schedule call
type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

func (h *Handler) ListPosts(c *gin.Context) {
	limit, offset, ok := pageParams(c, 20)
	if !ok {
		return
	}

	result, err := h.posts.List(c.Request.Context(), models.PostFilter{
		UserID: mustUser(c).ID,
		Status: models.PostStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondWithAppError(c, err, "list posts")
		return
	}
	respondWithJSON(c, http.StatusOK, result)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req PostContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Content is required")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), mustUser(c).ID, req.Content)
	if err != nil {
		h.respondWithAppError(c, err, "create post")
		return
	}
	respondWithJSON(c, http.StatusCreated, post)
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	post, err := h.posts.Get(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		h.respondWithAppError(c, err, "get post")
		return
	}
	respondWithJSON(c, http.StatusOK, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PostContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Content is required")
		return
	}

	post, err := h.posts.Edit(c.Request.Context(), mustUser(c).ID, id, req.Content)
	if err != nil {
		h.respondWithAppError(c, err, "update post")
		return
	}
	respondWithJSON(c, http.StatusOK, post)
}

func (h *Handler) PublishPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	post, err := h.posts.Publish(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		h.respondWithAppError(c, err, "publish post")
		return
	}
	respondWithJSON(c, http.StatusOK, post)
}

func (h *Handler) SchedulePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "scheduled_at must be an RFC3339 timestamp")
		return
	}

	post, err := h.posts.Schedule(c.Request.Context(), mustUser(c).ID, id, req.ScheduledAt)
	if err != nil {
		h.respondWithAppError(c, err, "schedule post")
		return
	}
	respondWithJSON(c, http.StatusOK, post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), mustUser(c).ID, id); err != nil {
		h.respondWithAppError(c, err, "delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

// Form actions answer with a redirect to the dashboard and a flash message.

func (h *Handler) redirectWithFlash(c *gin.Context, message string) {
	h.sessions.SetFlash(c, message)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *Handler) EditPostForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PostContentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.redirectWithFlash(c, "Post content cannot be empty")
		return
	}

	if _, err := h.posts.Edit(c.Request.Context(), mustUser(c).ID, id, req.Content); err != nil {
		h.redirectWithFlash(c, apperrors.Message(err))
		return
	}
	h.redirectWithFlash(c, "Post updated")
}

func (h *Handler) PublishPostForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.posts.Publish(c.Request.Context(), mustUser(c).ID, id); err != nil {
		h.redirectWithFlash(c, apperrors.Message(err))
		return
	}
	h.redirectWithFlash(c, "Post published")
}

func (h *Handler) DeletePostForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.posts.Delete(c.Request.Context(), mustUser(c).ID, id); err != nil {
		h.redirectWithFlash(c, apperrors.Message(err))
		return
	}
	h.redirectWithFlash(c, "Post deleted")
}
