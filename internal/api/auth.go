package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/sc2sm/sc2sm/internal/oauth"
)

// DevicePollRequest carries the device code being polled
type DevicePollRequest struct {
	DeviceCode string `json:"device_code" form:"device_code" binding:"required"`
}

// GitHubLogin redirects to the GitHub consent page
func (h *Handler) GitHubLogin(c *gin.Context) {
	state := h.states.Issue()
	url, err := h.github.AuthURL(state)
	if err != nil {
		h.respondWithAppError(c, err, "start GitHub login")
		return
	}
	h.sessions.BindState(c, state)
	c.Redirect(http.StatusFound, url)
}

// GitHubCallback completes the GitHub login. The state must have been
// issued by GitHubLogin to this browser and not used before; otherwise the
// code is never exchanged.
func (h *Handler) GitHubCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		h.logger.WithField("reason", reason).Warn("GitHub authorization was not granted")
		h.sessions.SetFlash(c, "GitHub authorization was cancelled")
		c.Redirect(http.StatusFound, "/")
		return
	}

	state := c.Query("state")
	if !h.sessions.StateMatches(c, state) || !h.states.Consume(state) {
		respondWithError(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	user, err := h.github.Login(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.respondWithAppError(c, err, "complete GitHub login")
		return
	}

	h.sessions.Login(c, user.ID)
	h.sessions.SetFlash(c, "Signed in as "+user.Username)
	h.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User signed in")
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Logout(c)
	c.Redirect(http.StatusFound, "/")
}

// StartDeviceFlow requests a device and user code from GitHub
func (h *Handler) StartDeviceFlow(c *gin.Context) {
	start, err := h.device.Start(c.Request.Context())
	if err != nil {
		h.respondWithAppError(c, err, "start device flow")
		return
	}
	respondWithJSON(c, http.StatusOK, start)
}

// PollDeviceFlow reports the state of a device code. A successful poll
// signs the caller in.
func (h *Handler) PollDeviceFlow(c *gin.Context) {
	var req DevicePollRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "device_code is required")
		return
	}

	result := h.device.Poll(req.DeviceCode)
	if result.Status != oauth.DeviceSuccess {
		respondWithJSON(c, result.HTTPStatus, DevicePollResponse{
			Status:  string(result.Status),
			Message: result.Message,
			Error:   errorText(result),
		})
		return
	}

	resp := DevicePollResponse{Status: string(result.Status), Message: result.Message}
	if result.Token != nil {
		resp.AccessToken = result.Token.AccessToken
		resp.TokenType = result.Token.Type()
		resp.Scope = scopeOf(result.Token)
	}
	if result.User != nil {
		h.sessions.Login(c, result.User.ID)
		resp.User = result.User
	}
	respondWithJSON(c, http.StatusOK, resp)
}

func errorText(result oauth.PollResult) string {
	if result.HTTPStatus >= http.StatusBadRequest {
		return result.Message
	}
	return ""
}

func scopeOf(tok *oauth2.Token) string {
	if scope, ok := tok.Extra("scope").(string); ok {
		return scope
	}
	return ""
}

func (h *Handler) DeviceFlowStatus(c *gin.Context) {
	info, err := h.device.Status(c.Param("device_code"))
	if err != nil {
		h.respondWithAppError(c, err, "get device status")
		return
	}
	respondWithJSON(c, http.StatusOK, info)
}

// XAuthorize starts the X PKCE flow for the signed-in user
func (h *Handler) XAuthorize(c *gin.Context) {
	verifier := oauth2.GenerateVerifier()
	state := h.states.IssueWithVerifier(verifier)
	url, err := h.x.AuthURL(state, verifier)
	if err != nil {
		h.respondWithAppError(c, err, "start X authorization")
		return
	}
	h.sessions.BindState(c, state)
	c.Redirect(http.StatusFound, url)
}

func (h *Handler) XCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		h.logger.WithField("reason", reason).Warn("X authorization was not granted")
		h.redirectWithFlash(c, "X authorization was cancelled")
		return
	}

	state := c.Query("state")
	if !h.sessions.StateMatches(c, state) {
		respondWithError(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	// states issued for the GitHub login carry no verifier
	verifier, ok := h.states.ConsumeVerifier(state)
	if !ok || verifier == "" {
		respondWithError(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	user := mustUser(c)
	account, err := h.x.Connect(c.Request.Context(), user.ID, c.Query("code"), verifier)
	if err != nil {
		h.respondWithAppError(c, err, "connect X account")
		return
	}

	if account == nil || account.Username == "" {
		h.redirectWithFlash(c, "Connected X account")
		return
	}
	h.logger.WithFields(logrus.Fields{"user_id": user.ID, "x_username": account.Username}).Info("Connected X account")
	h.redirectWithFlash(c, "Connected X account @"+account.Username)
}

func (h *Handler) XDisconnect(c *gin.Context) {
	if err := h.x.Disconnect(c.Request.Context(), mustUser(c).ID); err != nil {
		h.redirectWithFlash(c, "Failed to disconnect X account")
		return
	}
	h.redirectWithFlash(c, "Disconnected X account")
}

func (h *Handler) XStatus(c *gin.Context) {
	status, err := h.x.Status(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		h.respondWithAppError(c, err, "get X status")
		return
	}
	respondWithJSON(c, http.StatusOK, status)
}
