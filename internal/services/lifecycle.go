package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxReasonRunes bounds a rejection reason after normalization.
	MaxReasonRunes = 500

	// WithdrawnReason is recorded on assignments closed by Cancel.
	WithdrawnReason = domain.WithdrawnReason
)

// RejectOutcome reports a committed rejection and, when one was found, the
// replacement assignment.
type RejectOutcome struct {
	Rejected   *domain.Assignment `json:"rejected"`
	Reassigned *domain.Assignment `json:"reassigned,omitempty"`
}

// Accept moves the pending assignment of (lawyerID, caseID) to aceptado.
func (s *AssignmentService) Accept(ctx context.Context, lawyerID, caseID string) (*domain.Assignment, error) {
	ctx, span := startLifecycleSpan(ctx, "Accept", lawyerID, caseID)
	defer span.End()

	return s.transition(ctx, caseID, lawyerID, domain.AssignmentAccepted, nil, nil)
}

// Reject moves the pending assignment of (lawyerID, caseID) to rechazado,
// clears the case's lawyer and attempts one reassignment that excludes the
// rejecting lawyer.
//
// Whenever the rejection itself committed, the returned outcome is non-nil,
// even if err is set: ErrNoLawyerAvailable (or a reassignment failure) then
// describes only the replacement step and the case is left unassigned.
func (s *AssignmentService) Reject(ctx context.Context, lawyerID, caseID, reason string) (*RejectOutcome, error) {
	ctx, span := startLifecycleSpan(ctx, "Reject", lawyerID, caseID)
	defer span.End()

	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}

	rejected, err := s.transition(ctx, caseID, lawyerID, domain.AssignmentRejected, &reason,
		func(tx *gorm.DB) error { return s.caseStore().ClearCaseLawyer(ctx, tx, caseID) })
	if err != nil {
		return nil, err
	}
	out := &RejectOutcome{Rejected: rejected}

	next, err := s.assign(ctx, caseID, rejected.Priority, map[string]struct{}{lawyerID: {}})
	switch {
	case err == nil:
		reassignOutcomes.WithLabelValues("reassigned").Inc()
		out.Reassigned = next
		span.SetAttributes(attribute.String("reassigned.lawyer.id", next.LawyerID))
		return out, nil
	case errors.Is(err, ErrNoLawyerAvailable):
		reassignOutcomes.WithLabelValues("no_lawyer").Inc()
		zerolog.Ctx(ctx).Info().Str("case_id", caseID).Str("rejected_by", lawyerID).
			Msg("no replacement lawyer available, case left unassigned")
		return out, err
	default:
		reassignOutcomes.WithLabelValues("error").Inc()
		zerolog.Ctx(ctx).Error().Err(err).Str("case_id", caseID).Msg("reassignment after rejection failed")
		return out, err
	}
}

// Complete moves the aceptado assignment of (lawyerID, caseID) to
// completado and closes the case.
func (s *AssignmentService) Complete(ctx context.Context, lawyerID, caseID string) (*domain.Assignment, error) {
	ctx, span := startLifecycleSpan(ctx, "Complete", lawyerID, caseID)
	defer span.End()

	return s.transition(ctx, caseID, lawyerID, domain.AssignmentCompleted, nil,
		func(tx *gorm.DB) error { return s.caseStore().SetCaseStatus(ctx, tx, caseID, domain.CaseClosed) })
}

// Cancel withdraws a case's pending assignment. The assignment becomes
// rechazado with WithdrawnReason, the case's lawyer is cleared and no
// reassignment happens, now or from the unassigned sweep. Accepted
// assignments cannot be cancelled.
func (s *AssignmentService) Cancel(ctx context.Context, caseID string) (*domain.Assignment, error) {
	ctx, span := startLifecycleSpan(ctx, "Cancel", "", caseID)
	defer span.End()

	reason := WithdrawnReason
	return s.transition(ctx, caseID, "", domain.AssignmentRejected, &reason,
		func(tx *gorm.DB) error { return s.caseStore().ClearCaseLawyer(ctx, tx, caseID) })
}

// transition applies a compare-and-set status change to the case's active
// assignment inside a transaction, then runs after in the same transaction.
// An empty lawyerID matches any holder.
func (s *AssignmentService) transition(ctx context.Context, caseID, lawyerID string, to domain.AssignmentStatus, reason *string, after func(tx *gorm.DB) error) (*domain.Assignment, error) {
	var out *domain.Assignment
	err := s.withRetry(ctx, "transition:"+string(to), func() error {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			a, err := repo.GetActiveAssignment(ctx, tx, caseID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return fmt.Errorf("%w: case %s has no active assignment", ErrStaleTransition, caseID)
				}
				return err
			}
			if lawyerID != "" && a.LawyerID != lawyerID {
				return fmt.Errorf("%w: case %s is held by another lawyer", ErrStaleTransition, caseID)
			}
			if !domain.CanTransition(a.Status, to) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
			}

			upd := repo.TransitionUpdate{At: time.Now().UTC(), Reason: reason}
			if err := repo.TransitionAssignment(ctx, tx, a.ID, a.Status, to, upd); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return fmt.Errorf("%w: assignment %s moved concurrently", ErrStaleTransition, a.ID)
				}
				return err
			}
			if after != nil {
				if err := after(tx); err != nil {
					return err
				}
			}
			out, err = repo.GetAssignment(ctx, tx, a.ID)
			return err
		})
		return classifyWrite(err)
	})
	transitionsTotal.WithLabelValues(string(to), transitionResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("case_id", caseID).
		Str("lawyer_id", out.LawyerID).
		Str("assignment_id", out.ID).
		Str("status", string(out.Status)).
		Msg("assignment transitioned")
	return out, nil
}

// normalizeReason trims and NFC-normalizes a rejection reason.
func normalizeReason(reason string) (string, error) {
	reason = norm.NFC.String(strings.TrimSpace(reason))
	if reason == "" {
		return "", ErrReasonRequired
	}
	if utf8.RuneCountInString(reason) > MaxReasonRunes {
		return "", ErrReasonTooLong
	}
	return reason, nil
}

func startLifecycleSpan(ctx context.Context, name, lawyerID, caseID string) (context.Context, trace.Span) {
	tr := otel.Tracer("services/AssignmentService")
	attrs := []attribute.KeyValue{attribute.String("case.id", caseID)}
	if lawyerID != "" {
		attrs = append(attrs, attribute.String("lawyer.id", lawyerID))
	}
	return tr.Start(ctx, name, trace.WithAttributes(attrs...))
}
