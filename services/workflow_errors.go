package services

import (
	"errors"
	"fmt"
)

// WorkflowErrorKind identifies the category of a workflow failure.
// Controllers map kinds onto HTTP statuses; callers decide retryability
// from the kind, never from the message text.
type WorkflowErrorKind string

const (
	ErrKindInvalidTransition         WorkflowErrorKind = "invalid_transition"
	ErrKindInvalidScore              WorkflowErrorKind = "invalid_score"
	ErrKindMissingScores             WorkflowErrorKind = "missing_scores"
	ErrKindDuplicateActiveSubmission WorkflowErrorKind = "duplicate_active_submission"
	ErrKindConcurrentModification    WorkflowErrorKind = "concurrent_modification"
	ErrKindNotFound                  WorkflowErrorKind = "not_found"
)

// WorkflowError is a typed error returned by review workflow operations.
// All validation happens before any mutation, so receiving one means the
// submission was left untouched.
type WorkflowError struct {
	Kind    WorkflowErrorKind
	Message string
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Retryable reports whether the caller may safely retry the operation
// with fresh data.
func (e *WorkflowError) Retryable() bool {
	return e.Kind == ErrKindConcurrentModification
}

func newWorkflowError(kind WorkflowErrorKind, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WorkflowErrorHasKind reports whether err is a WorkflowError of the
// given kind.
func WorkflowErrorHasKind(err error, kind WorkflowErrorKind) bool {
	var wfErr *WorkflowError
	return errors.As(err, &wfErr) && wfErr.Kind == kind
}

// AsWorkflowError unwraps err into a WorkflowError, if it is one.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}
