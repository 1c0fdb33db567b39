// Messaging relay handler.
//
// This file exposes a thin relay over the messaging gateway:
//   - POST /telegram (send an arbitrary message to a chat)
//
// Used by the front end for ad-hoc notifications outside the trigger flow.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RelayMessageRequest is the JSON payload for the relay endpoint.
type RelayMessageRequest struct {
	// Message is the text to deliver; HTML markup is allowed.
	Message string `json:"message" binding:"required"`
	// ChatID optionally targets a specific chat; the configured default
	// patient is used when empty.
	ChatID string `json:"chatId"`
}

// RelayMessageResponse reports a successful relay.
type RelayMessageResponse struct {
	Status string `json:"status"`
}

// RelayMessage godoc
// @ID          relayMessage
// @Summary     Relay a message through the messaging gateway
// @Description Sends the given text to the target chat, defaulting to the configured patient chat.
// @Tags        Telegram
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RelayMessageRequest  true  "Message payload"
//
// @Success     200  {object}  handlers.RelayMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Messaging gateway failure"
// @Router      /telegram [post]
func (h *Handlers) RelayMessage(c *gin.Context) {
	var req RelayMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	chatID := h.patientID(req.ChatID)
	if chatID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatId required when no default is configured")
		return
	}

	if err := h.deps.Sender.Send(c.Request.Context(), chatID, req.Message); err != nil {
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, "message delivery failed, try again later")
		return
	}
	ok(c, http.StatusOK, RelayMessageResponse{Status: "success"})
}
