package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
)

// Replay is a completed HTTP response to be stored under (Scope, Key).
type Replay struct {
	Scope  string
	Key    string
	Status int
	Body   []byte
}

// FindReplay returns the live replay for (scope, key). Expired rows are
// treated as absent even before the purge job removes them.
func FindReplay(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		Where("expires_at > ?", now).
		Take(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// StoreReplay inserts r with the given ttl. The first writer of a
// (scope, key) wins; later writers get ErrDuplicate.
func StoreReplay(ctx context.Context, db *gorm.DB, r Replay, ttl time.Duration) (*domain.Idempotency, error) {
	if strings.TrimSpace(r.Scope) == "" || strings.TrimSpace(r.Key) == "" {
		return nil, errors.New("replay scope and key are required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("replay ttl must be positive, got %s", ttl)
	}
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		Scope:     r.Scope,
		Key:       r.Key,
		Status:    r.Status,
		Body:      r.Body,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Create(rec).Error
	switch {
	case err == nil:
		return rec, nil
	case IsUniqueViolation(err):
		return nil, ErrDuplicate
	default:
		return nil, err
	}
}

// PurgeExpiredReplays removes rows that expired at or before now.
func PurgeExpiredReplays(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
