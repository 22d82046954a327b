package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"brand-review-api/models"
)

// ReviewEventType names the workflow events external systems can
// subscribe to.
type ReviewEventType string

const (
	EventSubmissionCreated     ReviewEventType = "SubmissionCreated"
	EventBDApproved            ReviewEventType = "BDApproved"
	EventScoresSubmitted       ReviewEventType = "ScoresSubmitted"
	EventFinalDecisionRecorded ReviewEventType = "FinalDecisionRecorded"
	EventSubmissionReopened    ReviewEventType = "SubmissionReopened"
)

// ReviewEvent describes one committed workflow transition. Events are
// emitted only after the transaction commits; a rolled-back transition
// produces no event.
type ReviewEvent struct {
	EventID      string             `json:"event_id"`
	Type         ReviewEventType    `json:"type"`
	SubmissionID int                `json:"submission_id"`
	BrandID      int                `json:"brand_id"`
	ActorID      int                `json:"actor_id"`
	State        models.ReviewState `json:"state"`
	Grade        *models.Grade      `json:"grade,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// EventSink receives committed workflow events. Implementations must not
// fail the workflow: Publish has no error return on purpose.
type EventSink interface {
	Publish(event ReviewEvent)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Publish(event ReviewEvent) {
	for _, sink := range m {
		sink.Publish(event)
	}
}

// LogSink writes events to the application log.
type LogSink struct{}

func (LogSink) Publish(event ReviewEvent) {
	log.Printf("review event %s: submission=%d brand=%d actor=%d state=%s",
		event.Type, event.SubmissionID, event.BrandID, event.ActorID, event.State)
}

func newReviewEvent(eventType ReviewEventType, submission *models.ReviewSubmission, actorID int) ReviewEvent {
	return ReviewEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		SubmissionID: submission.SubmissionID,
		BrandID:      submission.BrandID,
		ActorID:      actorID,
		State:        submission.State,
		Grade:        submission.OverallGrade,
		OccurredAt:   time.Now(),
	}
}
