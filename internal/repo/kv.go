// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the TTL key-value store that holds all
// reminder state: schedule sets, guardian links, verification tokens and
// markers, and per-day idempotency markers.
//
// Error semantics:
//   - GetKV returns ErrNotFound for missing or expired keys.
//   - SetKVNX returns ErrDuplicate when a live entry already holds the key.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a live entry already exists for the given key.
var ErrDuplicate = errors.New("duplicate")

// GetKV returns the value stored under key, or ErrNotFound when the key is
// absent or its TTL has elapsed. Expired rows are left for lazy reaping.
func GetKV(ctx context.Context, db *gorm.DB, key string, now time.Time) (string, error) {
	var rec domain.KVEntry
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

// SetKV writes value under key with the given TTL, overwriting any previous
// entry (live or expired) and refreshing its expiry.
func SetKV(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration) error {
	now := time.Now().UTC()
	rec := domain.KVEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Upsert keyed on the primary key.
	return db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{
			"value":      rec.Value,
			"expires_at": rec.ExpiresAt,
			"updated_at": rec.UpdatedAt,
		}).
		FirstOrCreate(&rec).Error
}

// SetKVNX writes value under key only when no live entry holds it, returning
// ErrDuplicate otherwise. An expired row under the same key is replaced.
//
// The insert relies on the primary-key UNIQUE constraint, so two concurrent
// writers cannot both succeed for the same key.
func SetKVNX(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration) error {
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.KVEntry
		err := tx.Where("key = ?", key).First(&existing).Error
		switch {
		case err == nil:
			if existing.ExpiresAt.After(now) {
				return ErrDuplicate
			}
			// Reap the expired row so the insert below can claim the key.
			if err := tx.Delete(&domain.KVEntry{}, "key = ?", key).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fall through to insert
		default:
			return err
		}

		rec := domain.KVEntry{
			Key:       key,
			Value:     value,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&rec).Error; err != nil {
			// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
			low := strings.ToLower(err.Error())
			if errors.Is(err, gorm.ErrDuplicatedKey) ||
				strings.Contains(low, "unique constraint failed") ||
				strings.Contains(low, "constraint failed: unique") {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// DeleteKV removes key regardless of expiry. Missing keys are not an error.
func DeleteKV(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Delete(&domain.KVEntry{}, "key = ?", key).Error
}

// PurgeExpiredKV deletes all entries whose TTL elapsed before now and returns
// the number of rows removed. Intended for a periodic housekeeping ticker.
func PurgeExpiredKV(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Delete(&domain.KVEntry{}, "expires_at <= ?", now)
	return res.RowsAffected, res.Error
}
