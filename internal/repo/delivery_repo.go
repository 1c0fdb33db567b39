// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Delivery
// audit log.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// CreateDelivery appends one delivery attempt to the audit log. The row ID is
// a randomly generated UUID and CreatedAt is set to UTC.
func CreateDelivery(ctx context.Context, db *gorm.DB, patientID, recipient, drugName, scheduleTime, date, status string) (*domain.Delivery, error) {
	d := &domain.Delivery{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		Recipient:    recipient,
		DrugName:     drugName,
		ScheduleTime: scheduleTime,
		Date:         date,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// CountDeliveries returns the total number of logged attempts for a patient.
func CountDeliveries(ctx context.Context, db *gorm.DB, patientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("patient_id = ?", patientID).
		Count(&total).Error
	return total, err
}

// ListDeliveriesPage returns a paginated slice of a patient's delivery log,
// most recent first. Use CountDeliveries for pagination metadata.
//
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListDeliveriesPage(ctx context.Context, db *gorm.DB, patientID string, offset, limit int) ([]domain.Delivery, error) {
	var out []domain.Delivery
	err := db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
