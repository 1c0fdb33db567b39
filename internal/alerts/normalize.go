// Package alerts maps stored guardian alert preferences, in whatever shape a
// past or current client saved them, onto the canonical domain.AlertType set.
package alerts

import "github.com/pillwise/go-reminder-backend/internal/domain"

// legacyKeyMap translates preference keys written by early guardian-settings
// clients to their canonical alert types. The stored legacy value for refill
// alerts is "newPrescription", not "refillNeeded".
var legacyKeyMap = map[string]domain.AlertType{
	"medicationDone":  domain.AlertMedication,
	"missedDose":      domain.AlertMissed,
	"newPrescription": domain.AlertRefill,
}

// Normalize converts a raw preference list to canonical alert types.
//
// A nil or empty list yields [medication]: links created before preferences
// existed carry no list, and "no preference recorded" must not read as
// "guardian wants nothing". Legacy keys are translated, canonical values pass
// through, and unrecognized values are kept verbatim so a newer writer's
// categories are not silently dropped by an older reader.
func Normalize(raw []string) []domain.AlertType {
	if len(raw) == 0 {
		return []domain.AlertType{domain.AlertMedication}
	}
	out := make([]domain.AlertType, 0, len(raw))
	for _, a := range raw {
		if canonical, ok := legacyKeyMap[a]; ok {
			out = append(out, canonical)
			continue
		}
		out = append(out, domain.AlertType(a))
	}
	return out
}

// Contains reports whether the normalized set includes the given alert type.
func Contains(set []domain.AlertType, t domain.AlertType) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}
