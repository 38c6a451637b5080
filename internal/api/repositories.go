package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sc2sm/sc2sm/internal/models"
)

// TrackRepositoryRequest names a repository to track
type TrackRepositoryRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

func (h *Handler) ListRepositories(c *gin.Context) {
	repos, err := h.repositories.List(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		h.respondWithAppError(c, err, "list repositories")
		return
	}
	if repos == nil {
		repos = []*models.Repository{}
	}
	respondWithJSON(c, http.StatusOK, repos)
}

func (h *Handler) TrackRepository(c *gin.Context) {
	var req TrackRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "full_name is required")
		return
	}

	repo, err := h.repositories.Track(c.Request.Context(), mustUser(c), req.FullName)
	if err != nil {
		h.respondWithAppError(c, err, "track repository")
		return
	}
	respondWithJSON(c, http.StatusCreated, repo)
}

func (h *Handler) UpdateRepositorySettings(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var settings models.RepositorySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	repo, err := h.repositories.UpdateSettings(c.Request.Context(), mustUser(c).ID, id, settings)
	if err != nil {
		h.respondWithAppError(c, err, "update repository settings")
		return
	}
	respondWithJSON(c, http.StatusOK, repo)
}

func (h *Handler) DeleteRepository(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.repositories.Untrack(c.Request.Context(), mustUser(c).ID, id); err != nil {
		h.respondWithAppError(c, err, "delete repository")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListRepositoryCommits(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit, offset, ok := pageParams(c, 50)
	if !ok {
		return
	}

	page, err := h.repositories.Commits(c.Request.Context(), mustUser(c).ID, id, limit, offset)
	if err != nil {
		h.respondWithAppError(c, err, "list commits")
		return
	}
	respondWithJSON(c, http.StatusOK, page)
}

func (h *Handler) SyncRepository(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.repositories.Sync(c.Request.Context(), mustUser(c), id)
	if err != nil {
		h.respondWithAppError(c, err, "sync repository")
		return
	}
	respondWithJSON(c, http.StatusOK, result)
}

// UpdatePreferences changes the caller's post preferences
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var prefs models.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid preferences: "+err.Error())
		return
	}

	user, err := h.users.UpdateUserPreferences(c.Request.Context(), mustUser(c).ID, prefs)
	if err != nil {
		h.respondWithAppError(c, err, "update preferences")
		return
	}
	respondWithJSON(c, http.StatusOK, user)
}
