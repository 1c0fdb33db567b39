// Package services – ScheduleService
//
// This file implements the schedule registrar: it converts a batch of
// extracted medication/time entries into recurring triggers on the external
// dispatcher and atomically supersedes the patient's previous trigger set.
// The delete-then-create sequence is deliberately non-transactional; leftover
// external triggers are harmless and reclaimed on the next full replace,
// while a lost trigger-id set reads back as "nothing to delete".
package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/scheduler"
)

// TriggerClient defines the external-dispatcher contract required by the
// ScheduleService.
type TriggerClient interface {
	// Create registers a recurring trigger and returns its id.
	Create(ctx context.Context, cronSpec, destination string, payload []byte) (string, error)

	// Delete removes one trigger. Unknown ids are not an error.
	Delete(ctx context.Context, scheduleID string) error
}

// ScheduleService owns the lifecycle of a patient's recurring reminder
// triggers.
type ScheduleService struct {
	// Store persists the active trigger-id set and guardian links.
	Store *Store
	// Triggers is the external dispatcher client.
	Triggers TriggerClient

	// NotifyURL is the absolute webhook URL every trigger posts back to.
	NotifyURL string
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(store *Store, triggers TriggerClient, notifyURL string) *ScheduleService {
	return &ScheduleService{Store: store, Triggers: triggers, NotifyURL: notifyURL}
}

// Replace supersedes the patient's entire trigger set with one trigger per
// (medication, alert time) pair. Existing triggers are deleted first with
// individual-failure tolerance, then new ones are created; a pair whose
// creation fails is logged and skipped, and the ids that were created are
// persisted regardless so the stored set always matches the triggers that
// actually exist. Duplicate (medication, time) pairs are registered as-is,
// not merged.
//
// The guardian chat id is resolved once, here, and baked into each trigger
// payload; alert preferences are re-read at dispatch time instead.
func (s *ScheduleService) Replace(ctx context.Context, patientID, patientName string, meds []domain.Medication) (*domain.RegistrationResult, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Replace",
		trace.WithAttributes(
			attribute.String("patient.id", patientID),
			attribute.Int("medications", len(meds)),
		),
	)
	defer span.End()

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrMissingPatient
	}

	guardianChatID := ""
	if link, err := s.Store.GuardianLink(ctx, patientID); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("guardian link read failed, registering without fan-out target")
	} else if link != nil {
		guardianChatID = link.GuardianChatID
	}

	// Delete the superseded set first so a re-upload never double-fires.
	for _, id := range s.Store.ScheduleIDs(ctx, patientID) {
		if err := s.Triggers.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("schedule_id", id).Msg("trigger delete failed")
		}
	}

	created := make([]string, 0, len(meds))
	failures := 0
	for _, med := range meds {
		for _, at := range med.AlertTimes {
			cronSpec, err := scheduler.CronFromHHMM(at)
			if err != nil {
				log.Warn().Err(err).Str("drug", med.DrugNameSimple).Msg("skipping unparsable alert time")
				failures++
				continue
			}
			payload, err := json.Marshal(domain.NotifyPayload{
				PatientChatID:  patientID,
				PatientName:    patientName,
				GuardianChatID: guardianChatID,
				DrugName:       med.DrugNameSimple,
				Dose:           med.Dosage,
				ScheduleTime:   at,
				AlertType:      domain.AlertMedication,
			})
			if err != nil {
				failures++
				continue
			}
			id, err := s.Triggers.Create(ctx, cronSpec, s.NotifyURL, payload)
			if err != nil {
				log.Warn().Err(err).Str("drug", med.DrugNameSimple).Str("time", at).Msg("trigger create failed")
				failures++
				continue
			}
			created = append(created, id)
		}
	}

	if err := s.Store.SaveScheduleIDs(ctx, patientID, created); err != nil {
		return nil, err
	}
	return &domain.RegistrationResult{
		Registered:  failures == 0,
		Created:     len(created),
		ScheduleIDs: created,
	}, nil
}

// List returns the patient's active trigger ids.
func (s *ScheduleService) List(ctx context.Context, patientID string) ([]string, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("patient.id", patientID)),
	)
	defer span.End()

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrMissingPatient
	}
	return s.Store.ScheduleIDs(ctx, patientID), nil
}

// Cancel deletes every active trigger of the patient and resets the stored
// set to empty. Individual delete failures are tolerated; the count of ids
// requested for deletion is returned.
func (s *ScheduleService) Cancel(ctx context.Context, patientID string) (int, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("patient.id", patientID)),
	)
	defer span.End()

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return 0, ErrMissingPatient
	}

	ids := s.Store.ScheduleIDs(ctx, patientID)
	if len(ids) == 0 {
		return 0, nil
	}
	for _, id := range ids {
		if err := s.Triggers.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("schedule_id", id).Msg("trigger delete failed")
		}
	}
	if err := s.Store.SaveScheduleIDs(ctx, patientID, nil); err != nil {
		return 0, err
	}
	return len(ids), nil
}
