// Package services – GuardianService
//
// This file implements guardian linkage: saving a verified guardian chat
// identity with its chosen alert categories against a patient, and reading
// the link back. Alert categories are stored raw; normalization happens at
// dispatch time so legacy records keep working without migration.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// GuardianService manages the guardian link of a patient.
type GuardianService struct {
	// Store persists guardian links and verified markers.
	Store *Store
}

// NewGuardianService constructs a GuardianService.
func NewGuardianService(store *Store) *GuardianService {
	return &GuardianService{Store: store}
}

// Save links guardianChatID to patientID with the given alert categories.
// The guardian identity must hold a live verified marker, otherwise
// ErrNotVerified is returned and nothing is written. Saving overwrites any
// existing link and refreshes its TTL.
func (s *GuardianService) Save(ctx context.Context, patientID, guardianChatID string, alerts []string) error {
	tr := otel.Tracer("services/GuardianService")
	ctx, span := tr.Start(ctx, "Save",
		trace.WithAttributes(
			attribute.String("patient.id", patientID),
			attribute.String("guardian.chat_id", guardianChatID),
		),
	)
	defer span.End()

	patientID = strings.TrimSpace(patientID)
	guardianChatID = strings.TrimSpace(guardianChatID)
	if patientID == "" {
		return ErrMissingPatient
	}
	if guardianChatID == "" {
		return ErrMissingChatID
	}

	verified, err := s.Store.IsVerified(ctx, guardianChatID)
	if err != nil {
		return err
	}
	if !verified {
		return ErrNotVerified
	}

	if alerts == nil {
		alerts = []string{}
	}
	return s.Store.SaveGuardianLink(ctx, patientID, &domain.GuardianLink{
		GuardianChatID: guardianChatID,
		Alerts:         alerts,
	})
}

// Get returns the patient's guardian link, or nil when none is live.
func (s *GuardianService) Get(ctx context.Context, patientID string) (*domain.GuardianLink, error) {
	tr := otel.Tracer("services/GuardianService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("patient.id", patientID)),
	)
	defer span.End()

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrMissingPatient
	}
	return s.Store.GuardianLink(ctx, patientID)
}
