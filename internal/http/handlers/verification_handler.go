// Verification HTTP handlers.
//
// This file exposes the guardian verification flow:
//   - POST /verification/start     (issue and send a one-time code)
//   - POST /verification/confirm   (check the code, promote to verified)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/services"
)

// StartVerificationRequest is the JSON payload for issuing a code.
type StartVerificationRequest struct {
	ChatID string `json:"chatId" binding:"required"`
}

// ConfirmVerificationRequest is the JSON payload for confirming a code.
type ConfirmVerificationRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

// ConfirmVerificationResponse reports a successful confirmation.
type ConfirmVerificationResponse struct {
	Verified bool `json:"verified"`
}

// StartVerification godoc
// @ID          startVerification
// @Summary     Issue a verification code
// @Description Generates a one-time six-digit code, persists it with a short TTL, and sends it to the chat being verified. The code survives a failed send so a late-arriving message stays confirmable.
// @Tags        Verification
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.StartVerificationRequest  true  "Chat to verify"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Messaging gateway failure"
// @Router      /verification/start [post]
func (h *Handlers) StartVerification(c *gin.Context) {
	var req StartVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatId required")
		return
	}

	err := h.deps.Verification.Start(c.Request.Context(), req.ChatID)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrMissingChatID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatId required")
	case errors.Is(err, services.ErrSendFailed):
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, "code delivery failed, check the chat id and retry")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ConfirmVerification godoc
// @ID          confirmVerification
// @Summary     Confirm a verification code
// @Description Compares the submitted code with the issued one and, on match, marks the chat identity verified for 30 days.
// @Tags        Verification
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ConfirmVerificationRequest  true  "Chat and code"
//
// @Success     200  {object}  handlers.ConfirmVerificationResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Wrong or expired code"
// @Router      /verification/confirm [post]
func (h *Handlers) ConfirmVerification(c *gin.Context) {
	var req ConfirmVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatId and token required")
		return
	}

	err := h.deps.Verification.Confirm(c.Request.Context(), req.ChatID, req.Token)
	switch {
	case err == nil:
		ok(c, http.StatusOK, ConfirmVerificationResponse{Verified: true})
	case errors.Is(err, services.ErrInvalidCode):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCode, "verification code invalid or expired")
	case errors.Is(err, services.ErrMissingChatID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatId required")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
