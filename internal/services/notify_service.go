// Package services – NotifyService
//
// This file implements the trigger dispatcher: the handler-facing component
// invoked on every firing of a recurring trigger. The external dispatcher
// delivers at-least-once; this service turns that into at-most-one
// patient-visible effect per (patient, medication, time, day) by atomically
// claiming a TTL marker before delivering. The claim is written regardless of
// the delivery outcome, so a flaky gateway cannot cause repeated spamming on
// every retry.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pillwise/go-reminder-backend/internal/alerts"
	"github.com/pillwise/go-reminder-backend/internal/domain"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_dispatch_total",
		Help: "Trigger dispatcher invocations by outcome.",
	}, []string{"outcome"})

	deliveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_delivery_total",
		Help: "Notification delivery attempts by recipient and status.",
	}, []string{"recipient", "status"})
)

// DeliveryRepo defines the audit-log repository contract required by the
// NotifyService.
type DeliveryRepo interface {
	// CreateDelivery appends one delivery-attempt row.
	CreateDelivery(ctx context.Context, db *gorm.DB, patientID, recipient, drugName, scheduleTime, date, status string) (*domain.Delivery, error)

	// CountDeliveries returns the total number of rows for pagination.
	CountDeliveries(ctx context.Context, db *gorm.DB, patientID string) (int64, error)

	// ListDeliveriesPage returns a page of rows, newest first.
	ListDeliveriesPage(ctx context.Context, db *gorm.DB, patientID string, offset, limit int) ([]domain.Delivery, error)
}

// Delivery row constants.
const (
	recipientPatient  = "patient"
	recipientGuardian = "guardian"

	statusSent   = "sent"
	statusFailed = "failed"
)

// DispatchResult reports the outcome of one dispatcher invocation.
type DispatchResult struct {
	Skipped      bool   `json:"skipped,omitempty"`
	Reason       string `json:"reason,omitempty"`
	PatientSent  bool   `json:"patient_sent"`
	GuardianSent bool   `json:"guardian_sent"`
}

// NotifyService delivers reminder notifications on trigger firings.
type NotifyService struct {
	// Store holds dispatch markers and guardian links.
	Store *Store
	// Sender is the messaging gateway.
	Sender MessageSender
	// Deliveries is the audit-log repository.
	Deliveries DeliveryRepo

	// DefaultPatientChatID is the deployment-level fallback used when the
	// payload carries no patient identity.
	DefaultPatientChatID string

	// Now is a clock override for tests; nil means time.Now.
	Now func() time.Time
}

// NewNotifyService constructs a NotifyService.
func NewNotifyService(store *Store, sender MessageSender, deliveries DeliveryRepo, defaultPatient string) *NotifyService {
	return &NotifyService{
		Store:                store,
		Sender:               sender,
		Deliveries:           deliveries,
		DefaultPatientChatID: defaultPatient,
	}
}

func (s *NotifyService) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Format("2006-01-02")
}

// Dispatch handles one trigger firing. The flow is: resolve the patient
// channel, claim the per-day dispatch marker, deliver to the patient, then
// fan out to the guardian if the payload carries one and the normalized
// preference set (re-read now, not at registration time) contains the
// payload's alert type.
//
// Delivery failures are logged and recorded but never propagated: retrying
// is the external dispatcher's job, and the claimed marker shields the
// patient from the retries. Only marker-store failures and an unresolvable
// patient channel are errors.
func (s *NotifyService) Dispatch(ctx context.Context, payload domain.NotifyPayload) (*DispatchResult, error) {
	tr := otel.Tracer("services/NotifyService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("drug", payload.DrugName),
			attribute.String("schedule.time", payload.ScheduleTime),
		),
	)
	defer span.End()

	patientID := strings.TrimSpace(payload.PatientChatID)
	if patientID == "" {
		patientID = strings.TrimSpace(s.DefaultPatientChatID)
	}
	if patientID == "" {
		dispatchTotal.WithLabelValues("unresolved").Inc()
		return nil, ErrMissingPatient
	}

	date := s.today()
	claimed, err := s.Store.ClaimDispatch(ctx, patientID, payload.DrugName, payload.ScheduleTime, date)
	if err != nil {
		dispatchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !claimed {
		dispatchTotal.WithLabelValues("duplicate").Inc()
		return &DispatchResult{Skipped: true, Reason: "duplicate"}, nil
	}

	res := &DispatchResult{}

	text := fmt.Sprintf(
		"💊 <b>Time for your medication!</b>\n\nMedication: %s\nDose: %s\nTime: %s\n\nDon't forget to take it.",
		payload.DrugName, payload.Dose, payload.ScheduleTime,
	)
	if err := s.Sender.Send(ctx, patientID, text); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Str("drug", payload.DrugName).Msg("patient delivery failed")
		s.record(ctx, patientID, recipientPatient, payload, date, statusFailed)
	} else {
		res.PatientSent = true
		s.record(ctx, patientID, recipientPatient, payload, date, statusSent)
	}

	if guardianID := strings.TrimSpace(payload.GuardianChatID); guardianID != "" {
		res.GuardianSent = s.fanOut(ctx, patientID, guardianID, payload, date)
	}

	dispatchTotal.WithLabelValues("delivered").Inc()
	return res, nil
}

// fanOut delivers the guardian copy when the patient's current preferences
// allow the payload's alert type. Reported as a best-effort step: failures
// are logged only.
func (s *NotifyService) fanOut(ctx context.Context, patientID, guardianID string, payload domain.NotifyPayload, date string) bool {
	link, err := s.Store.GuardianLink(ctx, patientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("guardian link read failed, skipping fan-out")
		return false
	}

	var raw []string
	if link != nil {
		raw = link.Alerts
	}
	normalized := alerts.Normalize(raw)

	alertType := payload.AlertType
	if alertType == "" {
		alertType = domain.AlertMedication
	}
	if !alerts.Contains(normalized, alertType) {
		log.Debug().
			Strs("normalized", alertTypeStrings(normalized)).
			Str("required", string(alertType)).
			Msg("guardian fan-out filtered by preferences")
		return false
	}

	nameLabel := "The patient's"
	if payload.PatientName != "" {
		nameLabel = payload.PatientName + "'s"
	}
	text := fmt.Sprintf(
		"👤 <b>Guardian notice</b>\n\n%s medication time.\nMedication: %s %s at %s",
		nameLabel, payload.DrugName, payload.Dose, payload.ScheduleTime,
	)
	if err := s.Sender.Send(ctx, guardianID, text); err != nil {
		log.Warn().Err(err).Str("guardian_chat_id", guardianID).Msg("guardian delivery failed")
		s.record(ctx, patientID, recipientGuardian, payload, date, statusFailed)
		return false
	}
	s.record(ctx, patientID, recipientGuardian, payload, date, statusSent)
	return true
}

// record appends one audit row; the log is advisory, so failures only warn.
func (s *NotifyService) record(ctx context.Context, patientID, recipient string, payload domain.NotifyPayload, date, status string) {
	deliveryTotal.WithLabelValues(recipient, status).Inc()
	if s.Deliveries == nil {
		return
	}
	if _, err := s.Deliveries.CreateDelivery(ctx, s.Store.DB, patientID, recipient, payload.DrugName, payload.ScheduleTime, date, status); err != nil {
		log.Warn().Err(err).Str("recipient", recipient).Msg("delivery audit write failed")
	}
}

// ListDeliveries returns a page of the patient's delivery audit log with the
// total row count. Page and size fall back to sane defaults.
func (s *NotifyService) ListDeliveries(ctx context.Context, patientID string, page, pageSize int) ([]domain.Delivery, int64, error) {
	tr := otel.Tracer("services/NotifyService")
	ctx, span := tr.Start(ctx, "ListDeliveries",
		trace.WithAttributes(
			attribute.String("patient.id", patientID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, 0, ErrMissingPatient
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Deliveries.CountDeliveries(ctx, s.Store.DB, patientID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Delivery{}, 0, nil
	}
	items, err := s.Deliveries.ListDeliveriesPage(ctx, s.Store.DB, patientID, offset, pageSize)
	return items, total, err
}

func alertTypeStrings(ts []domain.AlertType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
