// Schedule HTTP handlers.
//
// This file exposes REST endpoints for the patient's recurring trigger set:
//   - GET    /schedules   (list active trigger ids)
//   - DELETE /schedules   (cancel all triggers)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/services"
)

// ScheduleListResponse reports the patient's active trigger ids.
type ScheduleListResponse struct {
	PatientChatID string   `json:"patientChatId"`
	ScheduleIDs   []string `json:"scheduleIds"`
	Count         int      `json:"count"`
}

// CancelSchedulesRequest is the JSON payload for cancelling all triggers.
type CancelSchedulesRequest struct {
	PatientChatID string `json:"patientChatId"`
}

// CancelSchedulesResponse reports how many trigger deletions were requested.
type CancelSchedulesResponse struct {
	Deleted int `json:"deleted"`
}

// ListSchedules godoc
// @ID          listSchedules
// @Summary     List active reminder triggers
// @Description Returns the patient's active trigger ids on the external dispatcher.
// @Tags        Schedules
// @Produce     json
//
// @Param       patientChatId  query  string  false  "Patient chat id (falls back to the configured default)"
//
// @Success     200  {object}  handlers.ScheduleListResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing patient"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /schedules [get]
func (h *Handlers) ListSchedules(c *gin.Context) {
	patientID := h.queryPatientID(c)

	ids, err := h.deps.Schedules.List(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, services.ErrMissingPatient) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientChatId required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ScheduleListResponse{
		PatientChatID: patientID,
		ScheduleIDs:   ids,
		Count:         len(ids),
	})
}

// CancelSchedules godoc
// @ID          cancelSchedules
// @Summary     Cancel all reminder triggers
// @Description Deletes every active trigger of the patient and resets the stored set. Prevents future firings only; an invocation already received is unaffected.
// @Tags        Schedules
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CancelSchedulesRequest  true  "Patient selector"
//
// @Success     200  {object}  handlers.CancelSchedulesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing patient"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /schedules [delete]
func (h *Handlers) CancelSchedules(c *gin.Context) {
	var req CancelSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	n, err := h.deps.Schedules.Cancel(c.Request.Context(), h.patientID(req.PatientChatID))
	if err != nil {
		if errors.Is(err, services.ErrMissingPatient) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientChatId required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CancelSchedulesResponse{Deleted: n})
}
