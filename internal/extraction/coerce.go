// Package extraction wraps the image-to-structured-data collaborator. The
// collaborator is a black box that returns a PrescriptionResult; everything
// this package guarantees beyond transport is shape normalization, applied
// once at this boundary so the rest of the system sees canonical arrays and
// unique simple names.
package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// ToStringSlice coerces an untyped upstream value into a string slice.
// The upstream model sometimes returns a comma- or newline-joined string,
// null, or a mixed-type array where a string array is expected.
//
//   - nil → empty slice
//   - []any → string elements kept, everything else stringified
//   - string → split on commas and newlines, trimmed, blanks dropped
//   - anything else → empty slice
func ToStringSlice(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		parts := strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == '\n' })
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{}
	}
}

// rawPrescription mirrors PrescriptionResult with array-like fields untyped,
// so a malformed upstream response still unmarshals.
type rawPrescription struct {
	Error            string          `json:"error"`
	PatientName      string          `json:"patient_name"`
	Hospital         string          `json:"hospital"`
	PrescriptionDate string          `json:"prescription_date"`
	Medications      []rawMedication `json:"medications"`
	GeneralWarnings  any             `json:"general_warnings"`
	OCRConfidence    string          `json:"ocr_confidence"`
}

type rawMedication struct {
	DrugName       string `json:"drug_name"`
	DrugNameSimple string `json:"drug_name_simple"`
	PillColor      string `json:"pill_color"`
	PillShape      string `json:"pill_shape"`
	Dosage         string `json:"dosage"`
	Frequency      int    `json:"frequency"`
	Timing         string `json:"timing"`
	DurationDays   int    `json:"duration_days"`
	SpecialNotes   string `json:"special_notes"`
	Instruction    string `json:"senior_friendly_instruction"`
	AlertTimes     any    `json:"alert_times"`
}

// ParsePrescription decodes the collaborator's JSON output into a normalized
// PrescriptionResult. It tolerates markdown code fences and leading/trailing
// prose around the JSON object, coerces array-like fields, and suffixes
// duplicate simple names so they are unique within the batch.
//
// A response whose "error" field is set yields ErrNotPrescription.
func ParsePrescription(text string) (*domain.PrescriptionResult, error) {
	jsonText := extractJSONObject(text)
	if jsonText == "" {
		return nil, fmt.Errorf("extraction: no JSON object in response: %w", ErrUnreadable)
	}

	var raw rawPrescription
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("extraction: decode response: %w", ErrUnreadable)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("extraction: %s: %w", raw.Error, ErrNotPrescription)
	}

	res := &domain.PrescriptionResult{
		PatientName:      raw.PatientName,
		Hospital:         raw.Hospital,
		PrescriptionDate: raw.PrescriptionDate,
		GeneralWarnings:  ToStringSlice(raw.GeneralWarnings),
		OCRConfidence:    raw.OCRConfidence,
		Medications:      make([]domain.Medication, 0, len(raw.Medications)),
	}
	for _, m := range raw.Medications {
		res.Medications = append(res.Medications, domain.Medication{
			DrugName:       m.DrugName,
			DrugNameSimple: m.DrugNameSimple,
			PillColor:      m.PillColor,
			PillShape:      m.PillShape,
			Dosage:         m.Dosage,
			Frequency:      m.Frequency,
			Timing:         m.Timing,
			DurationDays:   m.DurationDays,
			SpecialNotes:   m.SpecialNotes,
			Instruction:    m.Instruction,
			AlertTimes:     ToStringSlice(m.AlertTimes),
		})
	}
	DedupeSimpleNames(res.Medications)
	return res, nil
}

// DedupeSimpleNames suffixes repeated drug_name_simple values ("X", "X 2",
// "X 3", …) so every simple name is unique within the batch. The extraction
// prompt already asks for unique names; this is the safety net.
func DedupeSimpleNames(meds []domain.Medication) {
	seen := make(map[string]int, len(meds))
	for i := range meds {
		name := meds[i].DrugNameSimple
		count := seen[name]
		if count > 0 {
			meds[i].DrugNameSimple = fmt.Sprintf("%s %d", name, count+1)
		}
		seen[name] = count + 1
	}
}

// extractJSONObject strips markdown code fences and returns the substring
// from the first '{' to the last '}', or "" when no object is present.
func extractJSONObject(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end < start {
		return ""
	}
	return t[start : end+1]
}
