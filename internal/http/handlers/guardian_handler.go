// Guardian HTTP handlers.
//
// This file exposes REST endpoints for guardian linkage:
//   - POST /guardian   (save link, requires prior verification)
//   - GET  /guardian   (read link)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/services"
)

// SaveGuardianRequest is the JSON payload for linking a guardian.
type SaveGuardianRequest struct {
	// GuardianChatID is the verified messaging identity of the guardian.
	GuardianChatID string `json:"guardianChatId" binding:"required"`
	// Alerts are the subscribed categories; legacy client keys are accepted.
	Alerts []string `json:"alerts"`
	// PatientChatID optionally overrides the configured default patient.
	PatientChatID string `json:"patientChatId"`
}

// GuardianResponse wraps the stored link; Data is null when none exists.
type GuardianResponse struct {
	Data *domain.GuardianLink `json:"data"`
}

// SaveGuardian godoc
// @ID          saveGuardian
// @Summary     Link a guardian to the patient
// @Description Stores the guardian chat identity and alert preferences. The identity must have completed code verification first.
// @Tags        Guardian
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SaveGuardianRequest  true  "Guardian link payload"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Guardian not verified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guardian [post]
func (h *Handlers) SaveGuardian(c *gin.Context) {
	var req SaveGuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guardianChatId required")
		return
	}

	err := h.deps.Guardians.Save(c.Request.Context(), h.patientID(req.PatientChatID), req.GuardianChatID, req.Alerts)
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrNotVerified):
		fail(c, http.StatusForbidden, ErrCodeNotVerified, "guardian not verified")
	case errors.Is(err, services.ErrMissingPatient), errors.Is(err, services.ErrMissingChatID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// GetGuardian godoc
// @ID          getGuardian
// @Summary     Read the patient's guardian link
// @Description Returns the stored guardian link, or null when none is live.
// @Tags        Guardian
// @Produce     json
//
// @Param       patientChatId  query  string  false  "Patient chat id (falls back to the configured default)"
//
// @Success     200  {object}  handlers.GuardianResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing patient"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guardian [get]
func (h *Handlers) GetGuardian(c *gin.Context) {
	link, err := h.deps.Guardians.Get(c.Request.Context(), h.queryPatientID(c))
	if err != nil {
		if errors.Is(err, services.ErrMissingPatient) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientChatId required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, GuardianResponse{Data: link})
}
