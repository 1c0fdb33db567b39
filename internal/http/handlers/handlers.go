// Package handlers provides HTTP handler implementations for the public API
// and the trigger webhook.
//
// This file declares the service contracts consumed by the handlers and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/druginfo"
	"github.com/pillwise/go-reminder-backend/internal/extraction"
	"github.com/pillwise/go-reminder-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ScheduleService defines trigger-registration operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ScheduleService interface {
	// Replace supersedes the patient's trigger set with one per (medication, time) pair.
	Replace(ctx context.Context, patientID, patientName string, meds []domain.Medication) (*domain.RegistrationResult, error)
	// List returns the patient's active trigger ids.
	List(ctx context.Context, patientID string) ([]string, error)
	// Cancel deletes all active triggers and returns how many were requested for deletion.
	Cancel(ctx context.Context, patientID string) (int, error)
}

// GuardianService defines guardian-linkage operations.
type GuardianService interface {
	// Save links a verified guardian identity to the patient.
	Save(ctx context.Context, patientID, guardianChatID string, alerts []string) error
	// Get returns the patient's guardian link, or nil.
	Get(ctx context.Context, patientID string) (*domain.GuardianLink, error)
}

// VerificationService defines the one-time-code verification flow.
type VerificationService interface {
	// Start issues a code and sends it to chatID.
	Start(ctx context.Context, chatID string) error
	// Confirm checks the submitted code and promotes chatID to verified.
	Confirm(ctx context.Context, chatID, code string) error
}

// NotifyService defines trigger dispatch and the delivery audit log.
type NotifyService interface {
	// Dispatch handles one trigger firing.
	Dispatch(ctx context.Context, payload domain.NotifyPayload) (*services.DispatchResult, error)
	// ListDeliveries returns a page of the audit log and the total count.
	ListDeliveries(ctx context.Context, patientID string, page, pageSize int) ([]domain.Delivery, int64, error)
}

// MessageSender is the messaging gateway used for relay and confirmation
// messages sent directly from the HTTP layer.
type MessageSender interface {
	Send(ctx context.Context, chatID, text string) error
}

// SignatureVerifier authenticates webhook bodies signed by the external
// dispatcher.
type SignatureVerifier interface {
	// Verify returns nil when signature is valid for body.
	Verify(body []byte, signature string) error
}

//
// Handler wiring
//

// Deps bundles everything the HTTP layer depends on. All fields are required
// unless noted.
type Deps struct {
	Schedules    ScheduleService
	Guardians    GuardianService
	Verification VerificationService
	Notify       NotifyService

	Extractor extraction.Extractor
	DrugInfo  druginfo.Lookuper // optional; nil disables enrichment
	Sender    MessageSender
	Verifier  SignatureVerifier

	// SkipSignature disables webhook authentication. Local development only.
	SkipSignature bool
	// DefaultPatientChatID is the deployment-level patient identity used when
	// a request carries none.
	DefaultPatientChatID string
	// MaxUploadBytes caps the prescription image size.
	MaxUploadBytes int64
}

// Handlers groups the HTTP endpoints of the reminder backend.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	deps Deps
}

// New constructs a Handlers instance bound to the given dependencies.
func New(d Deps) *Handlers {
	return &Handlers{deps: d}
}

// patientID resolves the patient identity for a request: the explicit value
// wins, then the configured deployment default. Empty means unresolvable.
func (h *Handlers) patientID(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return strings.TrimSpace(h.deps.DefaultPatientChatID)
}

// queryPatientID resolves the patient identity from the patientChatId query
// parameter with the deployment-default fallback.
func (h *Handlers) queryPatientID(c *gin.Context) string {
	return h.patientID(c.Query("patientChatId"))
}
