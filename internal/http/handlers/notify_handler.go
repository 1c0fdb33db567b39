// Trigger webhook handler.
//
// This file exposes the endpoint the external dispatcher posts to on every
// trigger firing:
//   - POST /webhooks/notify
//
// The body is authenticated against the dispatcher's signature over the raw
// bytes before any JSON decoding. Signature bypass is an explicit
// configuration flag for local development, never the default.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/http/middleware"
	"github.com/pillwise/go-reminder-backend/internal/services"
)

// HeaderSignature carries the dispatcher's signature over the raw body.
const HeaderSignature = "Upstash-Signature"

// Notify godoc
// @ID          notify
// @Summary     Dispatch one trigger firing
// @Description Verifies the dispatcher signature, suppresses duplicate firings for the same day, delivers the patient reminder, and fans out to the guardian when preferences allow.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       Upstash-Signature  header  string  true  "Signature over the raw request body"
// @Param       body               body    domain.NotifyPayload  true  "Trigger payload"
//
// @Success     200  {object}  services.DispatchResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad payload"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid signature"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /webhooks/notify [post]
func (h *Handlers) Notify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	if h.deps.SkipSignature {
		middleware.LoggerFrom(c).Warn().Msg("webhook signature check skipped by configuration")
	} else {
		if err := h.deps.Verifier.Verify(body, c.GetHeader(HeaderSignature)); err != nil {
			fail(c, http.StatusUnauthorized, ErrCodeInvalidSignature, "invalid signature")
			return
		}
	}

	var payload domain.NotifyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.deps.Notify.Dispatch(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, services.ErrMissingPatient) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no patient chat id in payload or configuration")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}
