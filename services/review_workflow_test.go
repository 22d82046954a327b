package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"brand-review-api/models"
)

var testDBCounter int64

// newTestDB opens a private in-memory SQLite database and migrates the
// workflow schema into it.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:workflow_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Brand{},
		&models.Deal{},
		&models.ReviewSubmission{},
		&models.ReviewRecord{},
		&models.ReviewStatusHistory{},
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return db
}

// captureSink records published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []ReviewEvent
}

func (s *captureSink) Publish(event ReviewEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) types() []ReviewEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]ReviewEventType, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.Type)
	}
	return types
}

func newTestWorkflow(t *testing.T) (*ReviewWorkflowService, *gorm.DB, *captureSink) {
	t.Helper()
	db := newTestDB(t)
	sink := &captureSink{}
	return NewReviewWorkflowService(db, sink), db, sink
}

func seedBrand(t *testing.T, db *gorm.DB, name string) int {
	t.Helper()
	brand := models.Brand{BrandName: name}
	if err := db.Create(&brand).Error; err != nil {
		t.Fatalf("failed to seed brand: %v", err)
	}
	return brand.BrandID
}

func mustCreate(t *testing.T, service *ReviewWorkflowService, brandID int, revenue *float64) *models.ReviewSubmission {
	t.Helper()
	submission, err := service.Create(context.Background(), 1, CreateSubmissionInput{
		BrandID:         brandID,
		RevenueEstimate: revenue,
	})
	if err != nil {
		t.Fatalf("failed to create submission: %v", err)
	}
	return submission
}

func mustApproveBD(t *testing.T, service *ReviewWorkflowService, submissionID int, input ApproveBDInput) *models.ReviewSubmission {
	t.Helper()
	submission, err := service.ApproveBD(context.Background(), submissionID, 2, input)
	if err != nil {
		t.Fatalf("failed to approve BD: %v", err)
	}
	return submission
}

func mustSubmitScores(t *testing.T, service *ReviewWorkflowService, submissionID int, scores ScoreRecord) *models.ReviewSubmission {
	t.Helper()
	submission, err := service.SubmitScores(context.Background(), submissionID, 3, SubmitScoresInput{Scores: scores})
	if err != nil {
		t.Fatalf("failed to submit scores: %v", err)
	}
	return submission
}

func reloadSubmission(t *testing.T, db *gorm.DB, submissionID int) *models.ReviewSubmission {
	t.Helper()
	var submission models.ReviewSubmission
	if err := db.First(&submission, submissionID).Error; err != nil {
		t.Fatalf("failed to reload submission %d: %v", submissionID, err)
	}
	return &submission
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }
func intPtr(v int) *int { return &v }

func TestCreateSubmission(t *testing.T) {
	service, db, sink := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")

	submission := mustCreate(t, service, brandID, floatPtr(50000))

	if submission.State != models.StatePendingBDApproval {
		t.Fatalf("new submission state = %s, want %s", submission.State, models.StatePendingBDApproval)
	}
	if submission.Version != 1 {
		t.Fatalf("new submission version = %d, want 1", submission.Version)
	}
	if submission.SubmissionNumber == "" {
		t.Fatal("expected a submission number")
	}
	if submission.RevenueEstimate == nil || *submission.RevenueEstimate != 50000 {
		t.Fatalf("revenue estimate = %v, want 50000", submission.RevenueEstimate)
	}

	var history []models.ReviewStatusHistory
	if err := db.Where("submission_id = ?", submission.SubmissionID).Find(&history).Error; err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].NewState != models.StatePendingBDApproval || history[0].OldState != nil {
		t.Fatalf("unexpected history: %+v", history)
	}

	if types := sink.types(); len(types) != 1 || types[0] != EventSubmissionCreated {
		t.Fatalf("unexpected events: %v", types)
	}
}

func TestCreateRejectsUnknownBrand(t *testing.T) {
	service, _, _ := newTestWorkflow(t)

	if _, err := service.Create(context.Background(), 1, CreateSubmissionInput{BrandID: 404}); !WorkflowErrorHasKind(err, ErrKindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestCreateRejectsDuplicateActiveSubmission(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")

	first := mustCreate(t, service, brandID, nil)

	if _, err := service.Create(context.Background(), 1, CreateSubmissionInput{BrandID: brandID}); !WorkflowErrorHasKind(err, ErrKindDuplicateActiveSubmission) {
		t.Fatalf("expected duplicate_active_submission, got %v", err)
	}

	// Resolving the first cycle frees the slot for a re-review.
	mustApproveBD(t, service, first.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, first.SubmissionID, ScoreRecord{4, 4, 4})
	if _, err := service.FinalDecision(context.Background(), first.SubmissionID, 3, FinalDecisionInput{Decision: models.StateRejected}); err != nil {
		t.Fatalf("failed to reject: %v", err)
	}

	if _, err := service.Create(context.Background(), 1, CreateSubmissionInput{BrandID: brandID}); err != nil {
		t.Fatalf("expected re-review to start a new cycle, got %v", err)
	}
}

// requires_revision keeps the active slot occupied even though the
// submission is parked outside the review states.
func TestCreateBlockedWhileRevisionPending(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")

	first := mustCreate(t, service, brandID, nil)
	mustApproveBD(t, service, first.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, first.SubmissionID, ScoreRecord{6, 6, 6})
	if _, err := service.FinalDecision(context.Background(), first.SubmissionID, 3, FinalDecisionInput{Decision: models.StateRequiresRevision}); err != nil {
		t.Fatal(err)
	}

	if _, err := service.Create(context.Background(), 1, CreateSubmissionInput{BrandID: brandID}); !WorkflowErrorHasKind(err, ErrKindDuplicateActiveSubmission) {
		t.Fatalf("expected duplicate_active_submission, got %v", err)
	}
}

func TestApproveBD(t *testing.T) {
	service, db, sink := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)

	submission := mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{
		RevenueEstimate: floatPtr(50000),
		Notes:           strPtr("strong commercial interest"),
	})

	if submission.State != models.StateInMedicalReview {
		t.Fatalf("state = %s, want %s", submission.State, models.StateInMedicalReview)
	}
	if submission.RevenueEstimate == nil || *submission.RevenueEstimate != 50000 {
		t.Fatalf("revenue estimate = %v, want 50000", submission.RevenueEstimate)
	}
	if submission.BDNotes == nil || *submission.BDNotes != "strong commercial interest" {
		t.Fatalf("bd notes = %v", submission.BDNotes)
	}
	if submission.Version != created.Version+1 {
		t.Fatalf("version = %d, want %d", submission.Version, created.Version+1)
	}

	var records []models.ReviewRecord
	if err := db.Where("submission_id = ?", submission.SubmissionID).Find(&records).Error; err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ReviewRound != 1 || records[0].ReviewStatus != "bd_approved" {
		t.Fatalf("unexpected review records: %+v", records)
	}

	if types := sink.types(); len(types) != 2 || types[1] != EventBDApproved {
		t.Fatalf("unexpected events: %v", types)
	}
}

func TestApproveBDKeepsExistingRevenue(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, floatPtr(75000))

	submission := mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})

	if submission.RevenueEstimate == nil || *submission.RevenueEstimate != 75000 {
		t.Fatalf("revenue estimate cleared by BD approval: %v", submission.RevenueEstimate)
	}
}

func TestSubmitScoresStoresRecordAndGrade(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)
	mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})

	submission, err := service.SubmitScores(context.Background(), created.SubmissionID, 3, SubmitScoresInput{
		Scores:              ScoreRecord{9, 9, 8},
		Notes:               strPtr("solid trial data"),
		ClinicalClaims:      []string{"reduces inflammation"},
		SafetyConcerns:      []string{},
		RequiredDisclaimers: []string{"not FDA evaluated"},
	})
	if err != nil {
		t.Fatalf("failed to submit scores: %v", err)
	}

	if !submission.HasScores() {
		t.Fatal("expected a complete score record")
	}
	if submission.OverallGrade == nil || *submission.OverallGrade != models.GradeA {
		t.Fatalf("grade = %v, want A", submission.OverallGrade)
	}
	if submission.State != models.StateInMedicalReview {
		t.Fatalf("scoring changed state to %s", submission.State)
	}
	if len(submission.ClinicalClaims) != 1 || submission.ClinicalClaims[0] != "reduces inflammation" {
		t.Fatalf("clinical claims = %v", submission.ClinicalClaims)
	}
	if len(submission.RequiredDisclaimers) != 1 {
		t.Fatalf("required disclaimers = %v", submission.RequiredDisclaimers)
	}

	// Rescoring overwrites the previous record and its grade.
	rescored := mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{4, 5, 3})
	if rescored.OverallGrade == nil || *rescored.OverallGrade != models.GradeD {
		t.Fatalf("rescored grade = %v, want D", rescored.OverallGrade)
	}
	if *rescored.ClinicalScore != 4 || *rescored.SafetyScore != 5 || *rescored.TransparencyScore != 3 {
		t.Fatalf("rescored sub-scores = %d/%d/%d", *rescored.ClinicalScore, *rescored.SafetyScore, *rescored.TransparencyScore)
	}
	// Lists not supplied on rescore stay as stored.
	if len(rescored.ClinicalClaims) != 1 {
		t.Fatalf("rescore without lists cleared claims: %v", rescored.ClinicalClaims)
	}
}

func TestSubmitScoresIdempotent(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)
	mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})

	first := mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{7, 7, 7})
	second := mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{7, 7, 7})

	if *first.ClinicalScore != *second.ClinicalScore ||
		*first.SafetyScore != *second.SafetyScore ||
		*first.TransparencyScore != *second.TransparencyScore {
		t.Fatal("identical input produced different scores")
	}
	if *first.OverallGrade != *second.OverallGrade {
		t.Fatal("identical input produced different grades")
	}
	if first.State != second.State {
		t.Fatal("identical input produced different states")
	}
	// Not side-effect free: the version still advances.
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d, want %d", second.Version, first.Version+1)
	}
}

func TestSubmitScoresRejectsOutOfRangeBeforeMutation(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)
	approved := mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})

	_, err := service.SubmitScores(context.Background(), created.SubmissionID, 3, SubmitScoresInput{
		Scores: ScoreRecord{11, 5, 5},
	})
	if !WorkflowErrorHasKind(err, ErrKindInvalidScore) {
		t.Fatalf("expected invalid_score, got %v", err)
	}

	reloaded := reloadSubmission(t, db, created.SubmissionID)
	if reloaded.HasScores() {
		t.Fatal("invalid scores were partially persisted")
	}
	if reloaded.Version != approved.Version {
		t.Fatalf("version advanced on rejected input: %d -> %d", approved.Version, reloaded.Version)
	}
}

func TestFinalDecisionRequiresScores(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)
	approved := mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})

	_, err := service.FinalDecision(context.Background(), created.SubmissionID, 3, FinalDecisionInput{
		Decision: models.StateApproved,
	})
	if !WorkflowErrorHasKind(err, ErrKindMissingScores) {
		t.Fatalf("expected missing_scores, got %v", err)
	}

	reloaded := reloadSubmission(t, db, created.SubmissionID)
	if reloaded.State != models.StateInMedicalReview || reloaded.Version != approved.Version {
		t.Fatalf("guard mutated submission: state=%s version=%d", reloaded.State, reloaded.Version)
	}
}

func TestFinalDecisionRejectsUnknownDecision(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)
	mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{6, 6, 6})

	_, err := service.FinalDecision(context.Background(), created.SubmissionID, 3, FinalDecisionInput{
		Decision: models.StatePendingBDApproval,
	})
	if !WorkflowErrorHasKind(err, ErrKindInvalidTransition) {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
}

func TestRevisionCycleAndTerminalStates(t *testing.T) {
	service, db, sink := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)
	mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{8, 8, 8})

	revised, err := service.FinalDecision(context.Background(), created.SubmissionID, 3, FinalDecisionInput{
		Decision: models.StateRequiresRevision,
		Notes:    strPtr("Add third-party lab testing"),
	})
	if err != nil {
		t.Fatalf("failed to send back for revision: %v", err)
	}
	if revised.State != models.StateRequiresRevision {
		t.Fatalf("state = %s, want %s", revised.State, models.StateRequiresRevision)
	}
	if revised.DecisionNotes == nil || *revised.DecisionNotes != "Add third-party lab testing" {
		t.Fatalf("decision notes = %v", revised.DecisionNotes)
	}

	reopened, err := service.Reopen(context.Background(), created.SubmissionID, 3)
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	if reopened.State != models.StateInMedicalReview {
		t.Fatalf("reopened state = %s, want %s", reopened.State, models.StateInMedicalReview)
	}

	final, err := service.FinalDecision(context.Background(), created.SubmissionID, 3, FinalDecisionInput{
		Decision: models.StateApproved,
	})
	if err != nil {
		t.Fatalf("failed to approve: %v", err)
	}
	if final.State != models.StateApproved {
		t.Fatalf("state = %s, want approved", final.State)
	}

	// approved is terminal: nothing moves it.
	if _, err := service.Reopen(context.Background(), created.SubmissionID, 3); !WorkflowErrorHasKind(err, ErrKindInvalidTransition) {
		t.Fatalf("reopen from approved: expected invalid_transition, got %v", err)
	}
	if _, err := service.SubmitScores(context.Background(), created.SubmissionID, 3, SubmitScoresInput{Scores: ScoreRecord{5, 5, 5}}); !WorkflowErrorHasKind(err, ErrKindInvalidTransition) {
		t.Fatalf("scores on approved: expected invalid_transition, got %v", err)
	}

	wantEvents := []ReviewEventType{
		EventSubmissionCreated,
		EventBDApproved,
		EventScoresSubmitted,
		EventFinalDecisionRecorded,
		EventSubmissionReopened,
		EventFinalDecisionRecorded,
	}
	gotEvents := sink.types()
	if len(gotEvents) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", gotEvents, wantEvents)
	}
	for i := range wantEvents {
		if gotEvents[i] != wantEvents[i] {
			t.Fatalf("event[%d] = %s, want %s", i, gotEvents[i], wantEvents[i])
		}
	}
}

// Every (state, transition) pair outside the legal table fails with
// invalid_transition and leaves the row untouched.
func TestIllegalTransitionsLeaveSubmissionUnchanged(t *testing.T) {
	type operation struct {
		name string
		run  func(service *ReviewWorkflowService, submissionID int) error
	}
	operations := []operation{
		{"approveBD", func(service *ReviewWorkflowService, id int) error {
			_, err := service.ApproveBD(context.Background(), id, 2, ApproveBDInput{})
			return err
		}},
		{"submitScores", func(service *ReviewWorkflowService, id int) error {
			_, err := service.SubmitScores(context.Background(), id, 3, SubmitScoresInput{Scores: ScoreRecord{5, 5, 5}})
			return err
		}},
		{"finalDecision", func(service *ReviewWorkflowService, id int) error {
			_, err := service.FinalDecision(context.Background(), id, 3, FinalDecisionInput{Decision: models.StateApproved})
			return err
		}},
		{"reopen", func(service *ReviewWorkflowService, id int) error {
			_, err := service.Reopen(context.Background(), id, 3)
			return err
		}},
	}

	legal := map[models.ReviewState]map[string]bool{
		models.StatePendingBDApproval: {"approveBD": true},
		models.StateInMedicalReview:   {"submitScores": true, "finalDecision": true},
		models.StateRequiresRevision:  {"reopen": true},
		models.StateApproved:          {},
		models.StateRejected:          {},
	}

	// Drive one submission into each state.
	buildInState := func(t *testing.T, service *ReviewWorkflowService, db *gorm.DB, state models.ReviewState) int {
		brandID := seedBrand(t, db, fmt.Sprintf("Brand %s", state))
		created := mustCreate(t, service, brandID, nil)
		if state == models.StatePendingBDApproval {
			return created.SubmissionID
		}
		mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})
		if state == models.StateInMedicalReview {
			return created.SubmissionID
		}
		mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{6, 6, 6})
		if _, err := service.FinalDecision(context.Background(), created.SubmissionID, 3, FinalDecisionInput{Decision: state}); err != nil {
			t.Fatalf("failed to reach state %s: %v", state, err)
		}
		return created.SubmissionID
	}

	for state, allowed := range legal {
		for _, op := range operations {
			if allowed[op.name] {
				continue
			}
			t.Run(fmt.Sprintf("%s/%s", state, op.name), func(t *testing.T) {
				service, db, _ := newTestWorkflow(t)
				submissionID := buildInState(t, service, db, state)
				before := reloadSubmission(t, db, submissionID)

				if err := op.run(service, submissionID); !WorkflowErrorHasKind(err, ErrKindInvalidTransition) {
					t.Fatalf("expected invalid_transition, got %v", err)
				}

				after := reloadSubmission(t, db, submissionID)
				if after.State != before.State || after.Version != before.Version {
					t.Fatalf("illegal transition mutated submission: %s/%d -> %s/%d",
						before.State, before.Version, after.State, after.Version)
				}
			})
		}
	}
}

func TestExpectedVersionConflict(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	created := mustCreate(t, service, brandID, nil)

	stale := intPtr(created.Version + 5)
	_, err := service.ApproveBD(context.Background(), created.SubmissionID, 2, ApproveBDInput{ExpectedVersion: stale})
	if !WorkflowErrorHasKind(err, ErrKindConcurrentModification) {
		t.Fatalf("expected concurrent_modification, got %v", err)
	}
	if wfErr, ok := AsWorkflowError(err); !ok || !wfErr.Retryable() {
		t.Fatalf("concurrent_modification should be retryable: %v", err)
	}

	reloaded := reloadSubmission(t, db, created.SubmissionID)
	if reloaded.State != models.StatePendingBDApproval {
		t.Fatalf("stale write mutated submission: %s", reloaded.State)
	}

	// A matching version succeeds.
	if _, err := service.ApproveBD(context.Background(), created.SubmissionID, 2, ApproveBDInput{ExpectedVersion: intPtr(created.Version)}); err != nil {
		t.Fatalf("expected success with fresh version, got %v", err)
	}
}

// Medical transitions never touch the commercial pipeline and vice versa.
func TestCommercialStatusIndependentOfReviewState(t *testing.T) {
	service, db, _ := newTestWorkflow(t)
	brandID := seedBrand(t, db, "Acme Wellness")
	if err := db.Create(&models.Deal{BrandID: brandID, DealName: "Launch", Stage: models.StageProposal}).Error; err != nil {
		t.Fatal(err)
	}

	loadStatus := func() models.CommercialStatus {
		deals, err := LoadDealsByBrand(db, []int{brandID})
		if err != nil {
			t.Fatal(err)
		}
		return ResolveCommercialStatus(deals[brandID])
	}

	before := loadStatus()

	created := mustCreate(t, service, brandID, nil)
	mustApproveBD(t, service, created.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, created.SubmissionID, ScoreRecord{9, 9, 9})
	if _, err := service.FinalDecision(context.Background(), created.SubmissionID, 3, FinalDecisionInput{Decision: models.StateApproved}); err != nil {
		t.Fatal(err)
	}

	if after := loadStatus(); after != before {
		t.Fatalf("review transitions changed commercial status: %s -> %s", before, after)
	}

	// And moving the deal does not move the submission.
	if err := db.Model(&models.Deal{}).Where("brand_id = ?", brandID).Update("stage", models.StageClosedWon).Error; err != nil {
		t.Fatal(err)
	}
	reloaded := reloadSubmission(t, db, created.SubmissionID)
	if reloaded.State != models.StateApproved {
		t.Fatalf("deal change moved submission to %s", reloaded.State)
	}
}
