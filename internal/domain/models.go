// Package domain defines the core data types of the reminder backend:
// prescription data crossing the extraction boundary, the payload carried by
// recurring triggers, guardian linkage, and the persistence models mapped
// with GORM (TTL key-value entries and the delivery audit log).
package domain

import "time"

// AlertType is a canonical reminder category a guardian can subscribe to.
type AlertType string

const (
	// AlertMedication is the daily "time to take your medication" reminder.
	AlertMedication AlertType = "medication"
	// AlertMissed signals a missed dose.
	AlertMissed AlertType = "missed"
	// AlertRefill signals a new or about-to-expire prescription.
	AlertRefill AlertType = "refill"
)

// Medication is one extracted medication entry. DrugNameSimple must be unique
// within a single registration batch; the extraction boundary disambiguates
// duplicates by suffixing before the batch reaches the registrar.
type Medication struct {
	DrugName       string   `json:"drug_name"`
	DrugNameSimple string   `json:"drug_name_simple"`
	PillColor      string   `json:"pill_color,omitempty"`
	PillShape      string   `json:"pill_shape,omitempty"`
	Dosage         string   `json:"dosage"`
	Frequency      int      `json:"frequency,omitempty"`
	Timing         string   `json:"timing,omitempty"`
	DurationDays   int      `json:"duration_days,omitempty"`
	SpecialNotes   string   `json:"special_notes,omitempty"`
	Instruction    string   `json:"senior_friendly_instruction,omitempty"`
	AlertTimes     []string `json:"alert_times"` // "HH:MM", ordered
}

// PrescriptionResult is the structured output of the extraction collaborator.
type PrescriptionResult struct {
	PatientName      string       `json:"patient_name,omitempty"`
	Hospital         string       `json:"hospital,omitempty"`
	PrescriptionDate string       `json:"prescription_date,omitempty"`
	Medications      []Medication `json:"medications"`
	GeneralWarnings  []string     `json:"general_warnings"`
	OCRConfidence    string       `json:"ocr_confidence,omitempty"`
}

// GuardianLink ties a verified guardian chat identity to a patient, together
// with the raw alert preferences as saved by any historical client version.
// Consumers normalize Alerts through the alerts package at read time.
type GuardianLink struct {
	GuardianChatID string   `json:"guardianChatId"`
	Alerts         []string `json:"alerts"`
}

// NotifyPayload is the body carried by every recurring trigger and posted
// back to the webhook on each firing.
type NotifyPayload struct {
	PatientChatID  string    `json:"patientChatId"`
	PatientName    string    `json:"patientName,omitempty"`
	GuardianChatID string    `json:"guardianChatId,omitempty"`
	DrugName       string    `json:"drugName"`
	Dose           string    `json:"dose"`
	ScheduleTime   string    `json:"scheduleTime"` // "HH:MM"
	AlertType      AlertType `json:"alertType"`
}

// RegistrationResult reports the outcome of a full schedule replacement.
type RegistrationResult struct {
	Registered  bool     `json:"registered"`
	Created     int      `json:"created"`
	ScheduleIDs []string `json:"schedule_ids"`
}

// KVEntry is a persisted key-value pair with per-key expiry. Keys are
// namespaced by entity type ("schedules:", "guardian:", "verify:",
// "verified:", "notify:") so categories cannot collide.
//
// Expired rows are treated as absent by the repo layer and reaped lazily;
// the UNIQUE primary key makes set-if-absent atomic for live entries.
type KVEntry struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (KVEntry) TableName() string { return "kv_entries" }

// Delivery is one row of the dispatch audit log: a single notification
// attempt to either the patient or the guardian. Rows are append-only.
//
// Fields:
//   - ID: UUID primary key.
//   - PatientID: chat identity of the medication-taking person (indexed).
//   - Recipient: "patient" or "guardian".
//   - DrugName / ScheduleTime / Date: the logical firing being delivered.
//   - Status: "sent" or "failed" (transport outcome of the attempt).
type Delivery struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	PatientID    string    `json:"patient_id"    gorm:"type:varchar(64);not null;index:idx_patient_deliveries,priority:1"`
	Recipient    string    `json:"recipient"     gorm:"type:varchar(16);not null;check:recipient IN ('patient','guardian')"`
	DrugName     string    `json:"drug_name"     gorm:"type:varchar(255);not null"`
	ScheduleTime string    `json:"schedule_time" gorm:"type:varchar(5);not null"`
	Date         string    `json:"date"          gorm:"type:varchar(10);not null"` // "YYYY-MM-DD"
	Status       string    `json:"status"        gorm:"type:varchar(16);not null;check:status IN ('sent','failed')"`
	CreatedAt    time.Time `json:"created_at"    gorm:"index:idx_patient_deliveries,priority:2"`
}

// TableName implements the GORM tabler interface.
func (Delivery) TableName() string { return "deliveries" }
