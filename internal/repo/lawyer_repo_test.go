package repo

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
)

func TestListLawyerCandidates_FiltersStatusAndAggregates(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	seedLawyer(t, db, "l1", domain.VerificationVerified, domain.AccountActive, 2, 4, 5)
	seedLawyer(t, db, "l2", domain.VerificationVerified, domain.AccountActive, 1)
	seedLawyer(t, db, "l3", domain.VerificationPending, domain.AccountActive, 3, 5)
	seedLawyer(t, db, "l4", domain.VerificationVerified, domain.AccountBlocked, 3)

	seedCase(t, db, "c1")
	seedCase(t, db, "c2")
	seedCase(t, db, "c3")
	if _, err := CreateAssignment(ctx, db, "c1", "l1", domain.PriorityNormal); err != nil {
		t.Fatal(err)
	}
	// A terminal assignment does not count toward load.
	done, err := CreateAssignment(ctx, db, "c2", "l1", domain.PriorityNormal)
	if err != nil {
		t.Fatal(err)
	}
	if err := TransitionAssignment(ctx, db, done.ID, domain.AssignmentPending, domain.AssignmentRejected, TransitionUpdate{}); err != nil {
		t.Fatal(err)
	}

	got, err := ListLawyerCandidates(ctx, db, domain.PriorityNormal)
	if err != nil {
		t.Fatalf("ListLawyerCandidates: %v", err)
	}
	if len(got) != 2 || got[0].ID != "l1" || got[1].ID != "l2" {
		t.Fatalf("unexpected candidates: %+v", got)
	}

	l1 := got[0]
	if l1.ActiveCases != 1 {
		t.Fatalf("l1 active = %d, want 1", l1.ActiveCases)
	}
	if l1.AvgRating == nil || *l1.AvgRating != 4.5 || l1.ReviewCount != 2 {
		t.Fatalf("l1 rating = %v (%d reviews)", l1.AvgRating, l1.ReviewCount)
	}
	if l1.UserID != "user-l1" || l1.MaxConcurrentCases != 2 {
		t.Fatalf("l1 fields: %+v", l1)
	}

	l2 := got[1]
	if l2.AvgRating != nil || l2.ReviewCount != 0 || l2.ActiveCases != 0 {
		t.Fatalf("l2 should have no reviews and no load: %+v", l2)
	}
}

func TestCountActiveAssignments_AndGetLawyer(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedLawyer(t, db, "l1", domain.VerificationVerified, domain.AccountActive, 3)
	seedCase(t, db, "c1")
	seedCase(t, db, "c2")

	a, _ := CreateAssignment(ctx, db, "c1", "l1", domain.PriorityHigh)
	_, _ = CreateAssignment(ctx, db, "c2", "l1", domain.PriorityNormal)
	if err := TransitionAssignment(ctx, db, a.ID, domain.AssignmentPending, domain.AssignmentAccepted, TransitionUpdate{}); err != nil {
		t.Fatal(err)
	}

	n, err := CountActiveAssignments(ctx, db, "l1")
	if err != nil || n != 2 {
		t.Fatalf("CountActiveAssignments = %d, %v", n, err)
	}

	l, err := GetLawyer(ctx, db, "l1")
	if err != nil || l.ID != "l1" {
		t.Fatalf("GetLawyer: %+v %v", l, err)
	}
	if _, err := GetLawyer(ctx, db, "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLockLawyer_InsideTransaction(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedLawyer(t, db, "l1", domain.VerificationVerified, domain.AccountActive, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		l, err := LockLawyer(ctx, tx, "l1")
		if err != nil {
			return err
		}
		if l.MaxConcurrentCases != 2 {
			t.Fatalf("unexpected lawyer: %+v", l)
		}
		_, err = LockLawyer(ctx, tx, "missing")
		if err != ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
