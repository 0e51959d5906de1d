// Package repo – idempotency.
//
// Helpers for the Idempotency model that backs the Idempotency-Key header on
// POST /habits.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/domain"
)

// GetIdempotency returns a non-expired record or ErrNotFound. Pending
// reservations are returned too; callers check Status.
func GetIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("client_id = ? AND scope = ? AND key = ? AND expires_at > ?", clientID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// ReserveIdempotency claims (clientID, scope, key) before the operation runs.
// The record starts pending (empty ResourceID, Status 0); an expired record
// for the same tuple is replaced. A live record yields ErrDuplicate.
func ReserveIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	var rec *domain.Idempotency
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ? AND scope = ? AND key = ? AND expires_at <= ?", clientID, scope, key, now).
			Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		r, err := CreateIdempotency(ctx, tx, clientID, scope, key, "", 0, ttl)
		rec = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteIdempotency attaches the outcome to a pending record. It returns
// ErrNotFound when no pending record exists for the tuple.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key, resourceID string, status int) error {
	res := db.WithContext(ctx).Model(&domain.Idempotency{}).
		Where("client_id = ? AND scope = ? AND key = ? AND status = 0", clientID, scope, key).
		Updates(map[string]any{"resource_id": resourceID, "status": status})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseIdempotency drops a pending record so the key can be retried after
// a failed operation. Completed records are left alone.
func ReleaseIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string) error {
	return db.WithContext(ctx).
		Where("client_id = ? AND scope = ? AND key = ? AND status = 0", clientID, scope, key).
		Delete(&domain.Idempotency{}).Error
}

// PurgeExpiredIdempotency deletes records whose TTL elapsed before now and
// returns how many were removed.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
