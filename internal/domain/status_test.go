package domain

import "testing"

func TestCanTransition_Table(t *testing.T) {
	all := []AssignmentStatus{AssignmentPending, AssignmentAccepted, AssignmentRejected, AssignmentCompleted}
	allowed := map[[2]AssignmentStatus]bool{
		{AssignmentPending, AssignmentAccepted}:   true,
		{AssignmentPending, AssignmentRejected}:   true,
		{AssignmentAccepted, AssignmentCompleted}: true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]AssignmentStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestAssignmentStatus_ActiveAndTerminal(t *testing.T) {
	cases := []struct {
		s        AssignmentStatus
		active   bool
		terminal bool
	}{
		{AssignmentPending, true, false},
		{AssignmentAccepted, true, false},
		{AssignmentRejected, false, true},
		{AssignmentCompleted, false, true},
	}
	for _, tc := range cases {
		if tc.s.IsActive() != tc.active {
			t.Errorf("%s.IsActive() = %v", tc.s, tc.s.IsActive())
		}
		if tc.s.IsTerminal() != tc.terminal {
			t.Errorf("%s.IsTerminal() = %v", tc.s, tc.s.IsTerminal())
		}
		if (Assignment{Status: tc.s}).IsActive() != tc.active {
			t.Errorf("Assignment{%s}.IsActive() mismatch", tc.s)
		}
	}
	if len(ActiveAssignmentStatuses) != 2 {
		t.Fatalf("ActiveAssignmentStatuses = %v", ActiveAssignmentStatuses)
	}
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	for _, p := range []Priority{"", "high", "URGENTE"} {
		if p.Valid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}
