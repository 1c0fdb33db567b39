// Prescription analysis handler.
//
// This file exposes the entry point of the whole reminder flow:
//   - POST /analyze (multipart: image, optional patientChatId)
//
// The uploaded prescription image is sent to the extraction collaborator,
// the result is enriched from the public drug registry, the patient's
// trigger set is replaced, and a confirmation summary is sent to the patient
// (and the linked guardian). Registration and messaging are best-effort: a
// failure there never blocks returning the extraction result to the caller.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/extraction"
	"github.com/pillwise/go-reminder-backend/internal/http/middleware"
)

// allowedImageMimes are the content types forwarded to the extraction
// collaborator as-is; anything else image/* falls back to image/jpeg.
var allowedImageMimes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// AnalyzeResponse is the envelope returned by the analyze endpoint.
type AnalyzeResponse struct {
	Status           string                     `json:"status"`
	Message          string                     `json:"message,omitempty"`
	Data             *domain.PrescriptionResult `json:"data,omitempty"`
	AlertsRegistered bool                       `json:"alerts_registered"`
}

// Analyze godoc
// @ID          analyze
// @Summary     Analyze a prescription image and register reminders
// @Description Extracts structured medication data from the image, enriches it from the public drug registry, replaces the patient's recurring reminder triggers, and sends a confirmation summary.
// @Tags        Analyze
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       image          formData  file    true   "Prescription image (jpeg/png/webp/gif, max 10MB)"
// @Param       patientChatId  formData  string  false  "Patient chat id (falls back to the configured default)"
//
// @Success     200  {object}  handlers.AnalyzeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad upload or not a prescription"
// @Failure     422  {object}  handlers.ErrorResponse  "Unreadable image"
// @Failure     502  {object}  handlers.ErrorResponse  "Extraction collaborator failure"
// @Router      /analyze [post]
func (h *Handlers) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)

	patientID := h.patientID(c.PostForm("patientChatId"))
	if patientID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientChatId required")
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image file required")
		return
	}
	defer file.Close()

	if h.deps.MaxUploadBytes > 0 && header.Size > h.deps.MaxUploadBytes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image too large")
		return
	}
	mime := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "only image files are accepted")
		return
	}
	if _, okMime := allowedImageMimes[mime]; !okMime {
		mime = "image/jpeg"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return
	}

	result, err := h.deps.Extractor.Analyze(ctx, data, mime)
	switch {
	case err == nil:
	case errors.Is(err, extraction.ErrNotPrescription):
		fail(c, http.StatusBadRequest, ErrCodeNotPrescription, "the image does not look like a prescription")
		return
	case errors.Is(err, extraction.ErrUnreadable):
		fail(c, http.StatusUnprocessableEntity, ErrCodeUnreadableImage, "could not read the prescription, try a sharper photo")
		return
	default:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamUnavailable, "prescription analysis is unavailable, try again later")
		return
	}

	h.enrichFromRegistry(c, result)

	// Replace the trigger set; extraction results are returned either way.
	registered := false
	if reg, err := h.deps.Schedules.Replace(ctx, patientID, result.PatientName, result.Medications); err != nil {
		lg.Warn().Err(err).Str("patient_id", patientID).Msg("trigger registration failed")
	} else {
		registered = reg.Registered
	}

	h.sendConfirmation(c, patientID, result)

	ok(c, http.StatusOK, AnalyzeResponse{
		Status:           "success",
		Message:          "prescription analyzed",
		Data:             result,
		AlertsRegistered: registered,
	})
}

// enrichFromRegistry appends the registry's plain-language efficacy text to
// each medication instruction. Strictly best-effort.
func (h *Handlers) enrichFromRegistry(c *gin.Context, result *domain.PrescriptionResult) {
	if h.deps.DrugInfo == nil {
		return
	}
	lg := middleware.LoggerFrom(c)
	for i := range result.Medications {
		med := &result.Medications[i]
		info, err := h.deps.DrugInfo.Lookup(c.Request.Context(), med.DrugName)
		if err != nil {
			lg.Debug().Err(err).Str("drug", med.DrugName).Msg("registry lookup failed")
			continue
		}
		if info != nil && info.Efficacy != "" {
			med.Instruction = strings.TrimSpace(med.Instruction + " (" + info.Efficacy + ")")
		}
	}
}

// sendConfirmation sends the registration summary to the patient and, when a
// link exists, the guardian. Failures are logged only.
func (h *Handlers) sendConfirmation(c *gin.Context, patientID string, result *domain.PrescriptionResult) {
	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)

	timeSummary := alertTimeSummary(result.Medications)
	if timeSummary == "" {
		timeSummary = "not set"
	}
	count := len(result.Medications)

	patientMsg := fmt.Sprintf(
		"✅ <b>Prescription registered!</b>\n\n%d medication(s) registered.\nReminder times: %s\nYou will get a reminder at each medication time.",
		count, timeSummary,
	)
	if err := h.deps.Sender.Send(ctx, patientID, patientMsg); err != nil {
		lg.Warn().Err(err).Str("patient_id", patientID).Msg("patient confirmation failed")
	}

	link, err := h.deps.Guardians.Get(ctx, patientID)
	if err != nil || link == nil {
		return
	}
	name := result.PatientName
	if name == "" {
		name = "The patient"
	}
	guardianMsg := fmt.Sprintf(
		"👤 <b>Guardian notice</b>\n\n%s registered a new prescription.\n%d medication(s), reminder times: %s",
		name, count, timeSummary,
	)
	if err := h.deps.Sender.Send(ctx, link.GuardianChatID, guardianMsg); err != nil {
		lg.Warn().Err(err).Str("guardian_chat_id", link.GuardianChatID).Msg("guardian confirmation failed")
	}
}

// alertTimeSummary returns the distinct alert times across all medications,
// sorted and comma-joined.
func alertTimeSummary(meds []domain.Medication) string {
	seen := map[string]struct{}{}
	var times []string
	for _, m := range meds {
		for _, at := range m.AlertTimes {
			if _, dup := seen[at]; dup {
				continue
			}
			seen[at] = struct{}{}
			times = append(times, at)
		}
	}
	sort.Strings(times)
	return strings.Join(times, ", ")
}
