package models

import "testing"

func TestReviewStatePredicates(t *testing.T) {
	cases := []struct {
		state    ReviewState
		terminal bool
		active   bool
	}{
		{StatePendingBDApproval, false, true},
		{StateInMedicalReview, false, true},
		{StateRequiresRevision, false, true},
		{StateApproved, true, false},
		{StateRejected, true, false},
	}

	for _, tc := range cases {
		if got := tc.state.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tc.state, got, tc.terminal)
		}
		if got := tc.state.Active(); got != tc.active {
			t.Errorf("%s.Active() = %v, want %v", tc.state, got, tc.active)
		}
	}

	// Every valid state is exactly one of active or terminal.
	for _, state := range AllReviewStates {
		if state.Active() == state.Terminal() {
			t.Errorf("%s must be either active or terminal, not both or neither", state)
		}
	}

	if ReviewState("bogus").Active() {
		t.Error("an unknown state must not occupy the active slot")
	}
}

func TestValidDecision(t *testing.T) {
	for _, decision := range []FinalDecision{StateApproved, StateRejected, StateRequiresRevision} {
		if !ValidDecision(decision) {
			t.Errorf("ValidDecision(%s) = false, want true", decision)
		}
	}
	for _, decision := range []FinalDecision{StatePendingBDApproval, StateInMedicalReview, "bogus"} {
		if ValidDecision(decision) {
			t.Errorf("ValidDecision(%s) = true, want false", decision)
		}
	}
}
