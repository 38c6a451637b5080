package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/webhook"
)

const maxWebhookBody = 25 << 20

// Health reports liveness without touching the database
func (h *Handler) Health(c *gin.Context) {
	activeCodes := 0
	if h.device != nil {
		activeCodes = h.device.Count()
	}
	respondWithJSON(c, http.StatusOK, HealthResponse{
		Status:            "healthy",
		Service:           serviceName,
		ActiveDeviceCodes: activeCodes,
	})
}

// GitHubWebhook receives push deliveries and drafts a post per new commit
func (h *Handler) GitHubWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if !h.verifier.Verify(body, c.GetHeader(github.SHA256SignatureHeader)) {
		h.logger.WithField("delivery", github.DeliveryID(c.Request)).Warn("Rejected webhook with invalid signature")
		respondWithError(c, http.StatusUnauthorized, "Invalid signature")
		return
	}

	event := github.WebHookType(c.Request)
	logger := h.logger.WithFields(logrus.Fields{
		"event":    event,
		"delivery": github.DeliveryID(c.Request),
	})

	switch event {
	case "ping":
		respondWithJSON(c, http.StatusOK, MessageResponse{Message: "pong"})
		return
	case "push":
	default:
		logger.Debug("Ignoring webhook event")
		respondWithJSON(c, http.StatusOK, MessageResponse{Message: "Event ignored"})
		return
	}

	payload, err := webhook.ParsePushPayload(body)
	if err != nil {
		h.respondWithAppError(c, err, "parse push payload")
		return
	}

	// Past the gates a delivery is always acknowledged with 200.
	processed, err := h.webhooks.HandlePush(c.Request.Context(), payload)
	if err != nil {
		logger.WithError(err).WithField("processed", processed).Error("Failed to process push event")
	} else {
		logger.WithField("processed", processed).Info("Processed push event")
	}
	respondWithJSON(c, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Processed %d commits", processed)})
}
