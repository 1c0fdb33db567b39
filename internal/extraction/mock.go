package extraction

import (
	"context"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// Mock is the Extractor used when no model API key is configured. It returns
// a fixed two-medication prescription so the registration and dispatch flow
// can be exercised end to end without the upstream model.
type Mock struct{}

// Analyze ignores the image and returns the canned result.
func (Mock) Analyze(context.Context, []byte, string) (*domain.PrescriptionResult, error) {
	return &domain.PrescriptionResult{
		PatientName:      "Alex Kim",
		Hospital:         "Riverside Clinic",
		PrescriptionDate: "2026-02-26",
		Medications: []domain.Medication{
			{
				DrugName:       "Janumet 50/1000mg",
				DrugNameSimple: "diabetes control pill",
				PillColor:      "#E8907A",
				PillShape:      "tablet",
				Dosage:         "1 tablet",
				Frequency:      2,
				Timing:         "morning/evening",
				DurationDays:   14,
				SpecialNotes:   "take after meals",
				Instruction:    "Take one tablet after breakfast and dinner. It keeps your blood sugar steady.",
				AlertTimes:     []string{"07:30", "18:30"},
			},
			{
				DrugName:       "Lipinon 10mg",
				DrugNameSimple: "cholesterol pill",
				PillColor:      "#A8C4E0",
				PillShape:      "capsule",
				Dosage:         "1 tablet",
				Frequency:      1,
				Timing:         "evening",
				DurationDays:   14,
				Instruction:    "Take one tablet after dinner. It keeps your blood vessels clear.",
				AlertTimes:     []string{"18:30"},
			},
		},
		GeneralWarnings: []string{
			"Avoid alcohol while on this prescription.",
			"Contact your clinic if you feel unwell after taking the medication.",
			"Do not stop taking the medication on your own.",
		},
		OCRConfidence: "high",
	}, nil
}
