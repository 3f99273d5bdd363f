package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/repo"
)

// SLAReport flags pending assignments the lawyer has not acted on within
// PendingAfter. It only reports; assignments are never changed.
type SLAReport struct {
	DB           *gorm.DB
	PendingAfter time.Duration
	Now          func() time.Time
}

// Name implements Job.
func (r *SLAReport) Name() string { return "pending_sla_report" }

// Run implements Job.
func (r *SLAReport) Run(ctx context.Context) error {
	_, err := r.Report(ctx)
	return err
}

// Report returns how many pending assignments are over the SLA, logs each
// at warn and exports the count as a gauge.
func (r *SLAReport) Report(ctx context.Context) (int, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	cutoff := now().UTC().Add(-r.PendingAfter)

	stale, err := repo.ListPendingOlderThan(ctx, r.DB, cutoff)
	if err != nil {
		return 0, err
	}
	logger := zerolog.Ctx(ctx)
	for _, a := range stale {
		logger.Warn().
			Str("assignment_id", a.ID).
			Str("case_id", a.CaseID).
			Str("lawyer_id", a.LawyerID).
			Dur("pending_for", now().Sub(a.CreatedAt)).
			Msg("assignment pending past SLA")
	}
	pendingOverSLA.Set(float64(len(stale)))
	return len(stale), nil
}
