package models

// ReviewState is the closed set of lifecycle states for a medical review
// submission. States are stored as their string value; anything else in the
// database is a data error, not a new state.
type ReviewState string

const (
	StatePendingBDApproval ReviewState = "pending_bd_approval"
	StateInMedicalReview   ReviewState = "in_medical_review"
	StateApproved          ReviewState = "approved"
	StateRejected          ReviewState = "rejected"
	StateRequiresRevision  ReviewState = "requires_revision"
)

// AllReviewStates lists every state in dashboard display order.
var AllReviewStates = []ReviewState{
	StatePendingBDApproval,
	StateInMedicalReview,
	StateApproved,
	StateRejected,
	StateRequiresRevision,
}

// reviewStateLabels maps each state to its user-facing label. The map is
// exhaustive over AllReviewStates.
var reviewStateLabels = map[ReviewState]string{
	StatePendingBDApproval: "Pending BD Approval",
	StateInMedicalReview:   "In Medical Review",
	StateApproved:          "Approved",
	StateRejected:          "Rejected",
	StateRequiresRevision:  "Requires Revision",
}

// Valid reports whether s is one of the defined review states.
func (s ReviewState) Valid() bool {
	_, ok := reviewStateLabels[s]
	return ok
}

// Label returns the display label for the state.
func (s ReviewState) Label() string {
	if label, ok := reviewStateLabels[s]; ok {
		return label
	}
	return string(s)
}

// Terminal reports whether no further workflow transition is defined from s.
// requires_revision is not terminal: it can be reopened back into review.
func (s ReviewState) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// Active reports whether the submission still occupies the brand's one
// active review slot. Only approved and rejected release the slot.
func (s ReviewState) Active() bool {
	return s.Valid() && !s.Terminal()
}

// FinalDecision is the subset of states a final decision may resolve to.
type FinalDecision = ReviewState

// ValidDecision reports whether s is an acceptable final decision value.
func ValidDecision(s ReviewState) bool {
	switch s {
	case StateApproved, StateRejected, StateRequiresRevision:
		return true
	}
	return false
}
