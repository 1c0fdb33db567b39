// Package services – Store
//
// This file implements the Store, the typed facade over the TTL key-value
// repository. Every persisted entity embeds its category as a key namespace
// prefix (schedules:, guardian:, verify:, verified:, notify:) so categories
// cannot collide, and every write carries the TTL configured for its
// category.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pillwise/go-reminder-backend/internal/config"
	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/repo"
)

// KVRepo defines the key-value repository contract required by the Store.
// Implementations are responsible for TTL-scoped persistence of raw entries.
type KVRepo interface {
	// GetKV returns the live value for key, or repo.ErrNotFound.
	GetKV(ctx context.Context, db *gorm.DB, key string, now time.Time) (string, error)

	// SetKV upserts key with a fresh TTL window.
	SetKV(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration) error

	// SetKVNX creates key only if no live entry exists, else repo.ErrDuplicate.
	SetKVNX(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration) error

	// DeleteKV removes key. Deleting an absent key is not an error.
	DeleteKV(ctx context.Context, db *gorm.DB, key string) error
}

// Store provides typed access to the persisted reminder state: active
// trigger-id sets, guardian links, verification tokens and markers, and
// per-day dispatch markers.
type Store struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// KV is the key-value repository used by this store.
	KV KVRepo
	// TTL holds the per-category expiry windows.
	TTL config.TTLConfig

	// Now is a clock override for tests; nil means time.Now.
	Now func() time.Time
}

// NewStore constructs a Store over db and kv with the given TTL windows.
func NewStore(db *gorm.DB, kv KVRepo, ttl config.TTLConfig) *Store {
	return &Store{DB: db, KV: kv, TTL: ttl}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Key namespaces. The prefix is part of the persisted key, so changing one
// orphans existing entries until their TTL runs out.
func scheduleKey(patientID string) string { return "schedules:" + patientID }
func guardianKey(patientID string) string { return "guardian:" + patientID }
func verifyKey(chatID string) string      { return "verify:" + chatID }
func verifiedKey(chatID string) string    { return "verified:" + chatID }

func dispatchKey(patientID, drugName, scheduleTime, date string) string {
	return fmt.Sprintf("notify:%s:%s:%s:%s", patientID, drugName, scheduleTime, date)
}

// ScheduleIDs returns the patient's active trigger ids. A missing or
// unparsable entry reads as an empty set, never an error: the set is
// reconciled by full replacement, so "nothing to delete" is always a safe
// answer.
func (s *Store) ScheduleIDs(ctx context.Context, patientID string) []string {
	raw, err := s.KV.GetKV(ctx, s.DB, scheduleKey(patientID), s.now())
	if err != nil {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return []string{}
	}
	return ids
}

// SaveScheduleIDs replaces the patient's active trigger-id set. A nil slice
// persists as an empty JSON array so the next read sees an explicit empty set.
func (s *Store) SaveScheduleIDs(ctx context.Context, patientID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("store: encode schedule ids: %w", err)
	}
	return s.KV.SetKV(ctx, s.DB, scheduleKey(patientID), string(raw), s.TTL.Schedule)
}

// GuardianLink returns the guardian link for a patient, or nil when no link
// exists or the stored entry cannot be decoded.
func (s *Store) GuardianLink(ctx context.Context, patientID string) (*domain.GuardianLink, error) {
	raw, err := s.KV.GetKV(ctx, s.DB, guardianKey(patientID), s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var link domain.GuardianLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, nil
	}
	return &link, nil
}

// SaveGuardianLink overwrites the patient's guardian link with a fresh TTL.
func (s *Store) SaveGuardianLink(ctx context.Context, patientID string, link *domain.GuardianLink) error {
	raw, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("store: encode guardian link: %w", err)
	}
	return s.KV.SetKV(ctx, s.DB, guardianKey(patientID), string(raw), s.TTL.Guardian)
}

// VerificationCode returns the pending code for a chat identity, or "" when
// no token is live.
func (s *Store) VerificationCode(ctx context.Context, chatID string) (string, error) {
	raw, err := s.KV.GetKV(ctx, s.DB, verifyKey(chatID), s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// A numeric-looking code may round-trip through generic decoders as a
	// number; comparing as trimmed strings keeps leading zeros significant.
	return strings.TrimSpace(raw), nil
}

// SaveVerificationCode persists a freshly issued code, overwriting any
// pending one for the same chat identity.
func (s *Store) SaveVerificationCode(ctx context.Context, chatID, code string) error {
	return s.KV.SetKV(ctx, s.DB, verifyKey(chatID), code, s.TTL.Verify)
}

// DeleteVerificationCode removes a pending code after successful confirmation.
func (s *Store) DeleteVerificationCode(ctx context.Context, chatID string) error {
	return s.KV.DeleteKV(ctx, s.DB, verifyKey(chatID))
}

// MarkVerified promotes a chat identity to verified for the configured window.
func (s *Store) MarkVerified(ctx context.Context, chatID string) error {
	return s.KV.SetKV(ctx, s.DB, verifiedKey(chatID), "true", s.TTL.Verified)
}

// IsVerified reports whether the chat identity holds a live verified marker.
func (s *Store) IsVerified(ctx context.Context, chatID string) (bool, error) {
	_, err := s.KV.GetKV(ctx, s.DB, verifiedKey(chatID), s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClaimDispatch atomically claims the per-day dispatch marker for one
// (patient, medication, time, date) firing. It returns false when the marker
// already exists, which is the normal duplicate-suppression outcome, not an
// error.
func (s *Store) ClaimDispatch(ctx context.Context, patientID, drugName, scheduleTime, date string) (bool, error) {
	err := s.KV.SetKVNX(ctx, s.DB, dispatchKey(patientID, drugName, scheduleTime, date), "1", s.TTL.Idempotency)
	if errors.Is(err, repo.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
