package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"brand-review-api/models"
)

// ReviewWorkflowService owns every mutation of a review submission. All
// transitions validate against the current state before touching the row,
// run inside one transaction, and are guarded by the submission's version
// column so concurrent writers surface as conflicts instead of silently
// overwriting each other.
type ReviewWorkflowService struct {
	db   *gorm.DB
	sink EventSink
}

// NewReviewWorkflowService wires the workflow against a database handle
// and an optional event sink (nil means events are dropped).
func NewReviewWorkflowService(db *gorm.DB, sink EventSink) *ReviewWorkflowService {
	return &ReviewWorkflowService{db: db, sink: sink}
}

// CreateSubmissionInput carries the fields for opening a review cycle.
type CreateSubmissionInput struct {
	BrandID         int
	DealID          *int
	RevenueEstimate *float64
}

// ApproveBDInput carries the optional fields of the BD gate.
type ApproveBDInput struct {
	RevenueEstimate *float64
	Notes           *string
	ExpectedVersion *int
}

// SubmitScoresInput carries a complete score record plus the optional
// medical findings. A nil list leaves the stored list untouched; an empty
// non-nil list clears it.
type SubmitScoresInput struct {
	Scores              ScoreRecord
	Notes               *string
	ClinicalClaims      []string
	SafetyConcerns      []string
	RequiredDisclaimers []string
	ExpectedVersion     *int
}

// FinalDecisionInput carries the terminal decision for a submission.
type FinalDecisionInput struct {
	Decision        models.FinalDecision
	Notes           *string
	ExpectedVersion *int
}

// Create opens a new review cycle for a brand. A brand may hold only one
// active (non-terminal) submission at a time; re-review after a terminal
// decision starts a fresh cycle so history stays intact.
func (s *ReviewWorkflowService) Create(ctx context.Context, actorID int, input CreateSubmissionInput) (*models.ReviewSubmission, error) {
	var submission models.ReviewSubmission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var brand models.Brand
		if err := tx.Where("brand_id = ? AND delete_at IS NULL", input.BrandID).First(&brand).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newWorkflowError(ErrKindNotFound, "brand %d not found", input.BrandID)
			}
			return err
		}

		if input.DealID != nil {
			var deal models.Deal
			if err := tx.Where("deal_id = ? AND brand_id = ? AND delete_at IS NULL", *input.DealID, input.BrandID).
				First(&deal).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return newWorkflowError(ErrKindNotFound, "deal %d not found for brand %d", *input.DealID, input.BrandID)
				}
				return err
			}
		}

		activeStates := make([]models.ReviewState, 0, len(models.AllReviewStates))
		for _, state := range models.AllReviewStates {
			if state.Active() {
				activeStates = append(activeStates, state)
			}
		}
		var activeCount int64
		if err := tx.Model(&models.ReviewSubmission{}).
			Where("brand_id = ? AND state IN ? AND delete_at IS NULL", input.BrandID, activeStates).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount > 0 {
			return newWorkflowError(ErrKindDuplicateActiveSubmission,
				"brand %d already has an active review submission", input.BrandID)
		}

		now := time.Now()
		submission = models.ReviewSubmission{
			SubmissionNumber: generateSubmissionNumber(now),
			BrandID:          input.BrandID,
			DealID:           input.DealID,
			State:            models.StatePendingBDApproval,
			Version:          1,
			RevenueEstimate:  input.RevenueEstimate,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		return s.appendHistory(tx, &submission, nil, submission.State, actorID, nil, "created")
	})
	if err != nil {
		return nil, err
	}

	s.publish(newReviewEvent(EventSubmissionCreated, &submission, actorID))
	return &submission, nil
}

// ApproveBD moves a submission through the business-development gate into
// medical review. Revenue estimate and notes are stored only when given;
// an already-set revenue estimate is never cleared here.
func (s *ReviewWorkflowService) ApproveBD(ctx context.Context, submissionID, actorID int, input ApproveBDInput) (*models.ReviewSubmission, error) {
	var updated *models.ReviewSubmission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submission, err := s.loadSubmission(tx, submissionID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if submission.State != models.StatePendingBDApproval {
			return newWorkflowError(ErrKindInvalidTransition,
				"cannot approve BD from state %s", submission.State)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"state":          models.StateInMedicalReview,
			"bd_approved_by": actorID,
			"version":        submission.Version + 1,
			"updated_at":     now,
		}
		if input.RevenueEstimate != nil {
			updates["revenue_estimate"] = *input.RevenueEstimate
		}
		if notes := trimmedOrNil(input.Notes); notes != nil {
			updates["bd_notes"] = *notes
		}

		if err := s.guardedUpdate(tx, submission, updates); err != nil {
			return err
		}
		if err := s.appendHistory(tx, submission, &submission.State, models.StateInMedicalReview, actorID, input.Notes, "bd_approved"); err != nil {
			return err
		}
		if err := s.appendReviewRecord(tx, submission.SubmissionID, actorID, "bd_approved", input.Notes, "role=bd;gate=bd_approval", now); err != nil {
			return err
		}

		updated, err = s.reload(tx, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(newReviewEvent(EventBDApproved, updated, actorID))
	return updated, nil
}

// SubmitScores stores a complete score record and the grade derived from
// it. Repeatable while the submission stays in medical review; calling it
// twice with identical input leaves the submission observably identical
// apart from updated_at.
func (s *ReviewWorkflowService) SubmitScores(ctx context.Context, submissionID, actorID int, input SubmitScoresInput) (*models.ReviewSubmission, error) {
	// Score validation and grading happen before any row is touched.
	grade, err := CalculateGrade(input.Scores)
	if err != nil {
		return nil, err
	}

	var updated *models.ReviewSubmission

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submission, err := s.loadSubmission(tx, submissionID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if submission.State != models.StateInMedicalReview {
			return newWorkflowError(ErrKindInvalidTransition,
				"cannot submit scores from state %s", submission.State)
		}

		updates := map[string]interface{}{
			"clinical_score":     input.Scores.Clinical,
			"safety_score":       input.Scores.Safety,
			"transparency_score": input.Scores.Transparency,
			"overall_grade":      grade,
			"version":            submission.Version + 1,
			"updated_at":         time.Now(),
		}
		if notes := trimmedOrNil(input.Notes); notes != nil {
			updates["medical_notes"] = *notes
		}
		if input.ClinicalClaims != nil {
			updates["clinical_claims"] = datatypes.NewJSONSlice(input.ClinicalClaims)
		}
		if input.SafetyConcerns != nil {
			updates["safety_concerns"] = datatypes.NewJSONSlice(input.SafetyConcerns)
		}
		if input.RequiredDisclaimers != nil {
			updates["required_disclaimers"] = datatypes.NewJSONSlice(input.RequiredDisclaimers)
		}

		if err := s.guardedUpdate(tx, submission, updates); err != nil {
			return err
		}

		updated, err = s.reload(tx, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(newReviewEvent(EventScoresSubmitted, updated, actorID))
	return updated, nil
}

// FinalDecision resolves a submission in medical review to approved,
// rejected, or requires_revision. A score record must already exist.
func (s *ReviewWorkflowService) FinalDecision(ctx context.Context, submissionID, actorID int, input FinalDecisionInput) (*models.ReviewSubmission, error) {
	if !models.ValidDecision(input.Decision) {
		return nil, newWorkflowError(ErrKindInvalidTransition,
			"%q is not a valid final decision", input.Decision)
	}

	var updated *models.ReviewSubmission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submission, err := s.loadSubmission(tx, submissionID, input.ExpectedVersion)
		if err != nil {
			return err
		}
		if submission.State != models.StateInMedicalReview {
			return newWorkflowError(ErrKindInvalidTransition,
				"cannot record a final decision from state %s", submission.State)
		}
		if !submission.HasScores() {
			return newWorkflowError(ErrKindMissingScores,
				"submission %d has no score record", submissionID)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"state":      input.Decision,
			"decided_by": actorID,
			"version":    submission.Version + 1,
			"updated_at": now,
		}
		if notes := trimmedOrNil(input.Notes); notes != nil {
			updates["decision_notes"] = *notes
		}

		if err := s.guardedUpdate(tx, submission, updates); err != nil {
			return err
		}
		if err := s.appendHistory(tx, submission, &submission.State, input.Decision, actorID, input.Notes, "final_decision"); err != nil {
			return err
		}
		internal := fmt.Sprintf("role=medical;decision=%s", input.Decision)
		if err := s.appendReviewRecord(tx, submission.SubmissionID, actorID, string(input.Decision), input.Notes, internal, now); err != nil {
			return err
		}

		updated, err = s.reload(tx, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(newReviewEvent(EventFinalDecisionRecorded, updated, actorID))
	return updated, nil
}

// Reopen sends a requires_revision submission back into medical review
// once the corrective actions are addressed.
func (s *ReviewWorkflowService) Reopen(ctx context.Context, submissionID, actorID int) (*models.ReviewSubmission, error) {
	var updated *models.ReviewSubmission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submission, err := s.loadSubmission(tx, submissionID, nil)
		if err != nil {
			return err
		}
		if submission.State != models.StateRequiresRevision {
			return newWorkflowError(ErrKindInvalidTransition,
				"cannot reopen from state %s", submission.State)
		}

		updates := map[string]interface{}{
			"state":      models.StateInMedicalReview,
			"version":    submission.Version + 1,
			"updated_at": time.Now(),
		}
		if err := s.guardedUpdate(tx, submission, updates); err != nil {
			return err
		}
		if err := s.appendHistory(tx, submission, &submission.State, models.StateInMedicalReview, actorID, nil, "reopened"); err != nil {
			return err
		}

		updated, err = s.reload(tx, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(newReviewEvent(EventSubmissionReopened, updated, actorID))
	return updated, nil
}

// Get fetches one submission with its brand and deal.
func (s *ReviewWorkflowService) Get(ctx context.Context, submissionID int) (*models.ReviewSubmission, error) {
	var submission models.ReviewSubmission
	if err := s.db.WithContext(ctx).Preload("Brand").Preload("Deal").
		Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newWorkflowError(ErrKindNotFound, "submission %d not found", submissionID)
		}
		return nil, err
	}
	return &submission, nil
}

// List returns submissions, optionally filtered by state, newest first.
func (s *ReviewWorkflowService) List(ctx context.Context, state *models.ReviewState) ([]models.ReviewSubmission, error) {
	query := s.db.WithContext(ctx).Preload("Brand").
		Where("delete_at IS NULL")
	if state != nil {
		query = query.Where("state = ?", *state)
	}

	var submissions []models.ReviewSubmission
	if err := query.Order("updated_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// History returns the state-change trail for a submission, oldest first.
func (s *ReviewWorkflowService) History(ctx context.Context, submissionID int) ([]models.ReviewStatusHistory, error) {
	var history []models.ReviewStatusHistory
	if err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC, history_id ASC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// Records returns the gate decision records for a submission.
func (s *ReviewWorkflowService) Records(ctx context.Context, submissionID int) ([]models.ReviewRecord, error) {
	var records []models.ReviewRecord
	if err := s.db.WithContext(ctx).Preload("Reviewer").
		Where("submission_id = ?", submissionID).
		Order("review_round ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *ReviewWorkflowService) loadSubmission(tx *gorm.DB, submissionID int, expectedVersion *int) (*models.ReviewSubmission, error) {
	var submission models.ReviewSubmission
	if err := tx.Where("submission_id = ? AND delete_at IS NULL", submissionID).
		First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newWorkflowError(ErrKindNotFound, "submission %d not found", submissionID)
		}
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != submission.Version {
		return nil, newWorkflowError(ErrKindConcurrentModification,
			"submission %d is at version %d, caller expected %d", submissionID, submission.Version, *expectedVersion)
	}
	return &submission, nil
}

// guardedUpdate applies updates only if the row still carries the version
// the transition was validated against. Zero rows affected means another
// writer got there first.
func (s *ReviewWorkflowService) guardedUpdate(tx *gorm.DB, submission *models.ReviewSubmission, updates map[string]interface{}) error {
	result := tx.Model(&models.ReviewSubmission{}).
		Where("submission_id = ? AND version = ?", submission.SubmissionID, submission.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newWorkflowError(ErrKindConcurrentModification,
			"submission %d was modified concurrently", submission.SubmissionID)
	}
	return nil
}

func (s *ReviewWorkflowService) reload(tx *gorm.DB, submissionID int) (*models.ReviewSubmission, error) {
	var submission models.ReviewSubmission
	if err := tx.First(&submission, submissionID).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *ReviewWorkflowService) appendHistory(tx *gorm.DB, submission *models.ReviewSubmission, oldState *models.ReviewState, newState models.ReviewState, actorID int, reason *string, note string) error {
	history := models.ReviewStatusHistory{
		SubmissionID: submission.SubmissionID,
		NewState:     newState,
		ChangedBy:    actorID,
		CreatedAt:    time.Now(),
	}
	if oldState != nil {
		old := *oldState
		history.OldState = &old
	}
	if reason := trimmedOrNil(reason); reason != nil {
		history.Reason = reason
	}
	if note != "" {
		history.Notes = &note
	}
	return tx.Create(&history).Error
}

func (s *ReviewWorkflowService) appendReviewRecord(tx *gorm.DB, submissionID, reviewerID int, status string, comments *string, internalNotes string, reviewedAt time.Time) error {
	var round int64
	if err := tx.Model(&models.ReviewRecord{}).
		Where("submission_id = ?", submissionID).
		Count(&round).Error; err != nil {
		return err
	}

	record := models.ReviewRecord{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		ReviewRound:  int(round) + 1,
		ReviewStatus: status,
		ReviewedAt:   reviewedAt,
	}
	if comments := trimmedOrNil(comments); comments != nil {
		record.Comments = comments
	}
	if internalNotes != "" {
		record.InternalNotes = &internalNotes
	}
	return tx.Create(&record).Error
}

func (s *ReviewWorkflowService) publish(event ReviewEvent) {
	if s.sink != nil {
		s.sink.Publish(event)
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func generateSubmissionNumber(now time.Time) string {
	return fmt.Sprintf("MR-%d-%s", now.Year(), strings.ToUpper(uuid.NewString()[:8]))
}
