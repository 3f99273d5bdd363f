package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/repo"
)

// IdempotencyPurge deletes expired Idempotency-Key records.
type IdempotencyPurge struct {
	DB *gorm.DB
}

// Name implements Job.
func (p *IdempotencyPurge) Name() string { return "idempotency_purge" }

// Run implements Job.
func (p *IdempotencyPurge) Run(ctx context.Context) error {
	n, err := repo.PurgeExpiredReplays(ctx, p.DB, time.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		zerolog.Ctx(ctx).Info().Int64("deleted", n).Msg("expired idempotency keys purged")
	}
	return nil
}
