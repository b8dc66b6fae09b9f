package model

import "testing"

func TestTransitions(t *testing.T) {
	tests := []struct {
		from    CandidateStatus
		op      Operation
		want    CandidateStatus
		allowed bool
	}{
		{CandidateStatusNotStarted, OpStartTest, CandidateStatusInProgress, true},
		{CandidateStatusNotStarted, OpGetQuestion, "", false},
		{CandidateStatusNotStarted, OpSubmitAnswer, "", false},
		{CandidateStatusNotStarted, OpCompleteTest, "", false},
		{CandidateStatusNotStarted, OpRecordEvent, "", false},
		{CandidateStatusInProgress, OpStartTest, "", false},
		{CandidateStatusInProgress, OpGetQuestion, CandidateStatusInProgress, true},
		{CandidateStatusInProgress, OpSubmitAnswer, CandidateStatusInProgress, true},
		{CandidateStatusInProgress, OpRecordEvent, CandidateStatusInProgress, true},
		{CandidateStatusInProgress, OpCompleteTest, CandidateStatusCompleted, true},
		{CandidateStatusCompleted, OpStartTest, "", false},
		{CandidateStatusCompleted, OpCompleteTest, "", false},
		{CandidateStatusCompleted, OpRequestLogin, "", false},
		{CandidateStatusCompleted, OpGetStatus, CandidateStatusCompleted, true},
		{CandidateStatusCompleted, OpReset, CandidateStatusNotStarted, true},
		{CandidateStatusBlocked, OpStartTest, "", false},
		{CandidateStatusBlocked, OpRequestLogin, "", false},
		{CandidateStatusBlocked, OpReset, "", false},
		{CandidateStatusBlocked, OpGetStatus, CandidateStatusBlocked, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.op), func(t *testing.T) {
			got, ok := tt.from.Next(tt.op)
			if ok != tt.allowed {
				t.Fatalf("allowed = %v, want %v", ok, tt.allowed)
			}
			if ok && got != tt.want {
				t.Fatalf("next = %s, want %s", got, tt.want)
			}
			if tt.from.Allows(tt.op) != tt.allowed {
				t.Fatalf("Allows disagrees with Next")
			}
		})
	}
}

// Forward moves along the lifecycle never decrease rank; only reset goes back.
func TestTransitionsAreMonotonicExceptReset(t *testing.T) {
	for from, ops := range transitions {
		for op, to := range ops {
			if op == OpReset {
				continue
			}
			if to.Rank() < from.Rank() {
				t.Errorf("%s --%s--> %s moves backwards", from, op, to)
			}
		}
	}
}

func TestBlockedIsTerminal(t *testing.T) {
	for op, to := range transitions[CandidateStatusBlocked] {
		if to != CandidateStatusBlocked {
			t.Errorf("blocked --%s--> %s leaves blocked", op, to)
		}
	}
}

func TestCandidateStatusValid(t *testing.T) {
	for _, s := range []CandidateStatus{CandidateStatusNotStarted, CandidateStatusInProgress, CandidateStatusCompleted, CandidateStatusBlocked} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if CandidateStatus("PAUSED").Valid() {
		t.Error("PAUSED should be invalid")
	}
}
