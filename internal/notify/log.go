package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier records assignment notifications in the log instead of
// delivering them. It is used when no broker is configured.
type LogNotifier struct{}

// NotifyAssigned logs the event at info level and never fails.
func (LogNotifier) NotifyAssigned(ctx context.Context, lawyerUserID, caseSummary, caseID string) error {
	zerolog.Ctx(ctx).Info().
		Str("event", EventAssigned).
		Str("lawyer_user_id", lawyerUserID).
		Str("case_id", caseID).
		Int("summary_len", len(caseSummary)).
		Msg("notification skipped: no broker configured")
	return nil
}
