package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"brand-review-api/models"
)

// seedQueueFixture builds a small pipeline:
//
//	Acme    grade A, prospect deal, in_medical_review, 50000  -> at risk
//	Borealis grade B, closed_won deal, approved, 30000        -> partner, not at risk
//	Cobalt  no grade, pending_bd_approval, 10000
//	Drift   grade D, no deals, rejected, 99999                -> excluded from pipeline value
func seedQueueFixture(t *testing.T, service *ReviewWorkflowService, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	acme := seedBrand(t, db, "Acme Wellness")
	if err := db.Create(&models.Deal{BrandID: acme, DealName: "Pilot", Stage: models.StageQualified}).Error; err != nil {
		t.Fatal(err)
	}
	sub := mustCreate(t, service, acme, floatPtr(50000))
	mustApproveBD(t, service, sub.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, sub.SubmissionID, ScoreRecord{9, 9, 9})

	borealis := seedBrand(t, db, "Borealis Labs")
	if err := db.Create(&models.Deal{BrandID: borealis, DealName: "Launch", Stage: models.StageClosedWon}).Error; err != nil {
		t.Fatal(err)
	}
	sub = mustCreate(t, service, borealis, floatPtr(30000))
	mustApproveBD(t, service, sub.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, sub.SubmissionID, ScoreRecord{7, 8, 7})
	if _, err := service.FinalDecision(ctx, sub.SubmissionID, 3, FinalDecisionInput{Decision: models.StateApproved}); err != nil {
		t.Fatal(err)
	}

	cobalt := seedBrand(t, db, "Cobalt Nutrition")
	mustCreate(t, service, cobalt, floatPtr(10000))

	drift := seedBrand(t, db, "Drift Botanicals")
	sub = mustCreate(t, service, drift, floatPtr(99999))
	mustApproveBD(t, service, sub.SubmissionID, ApproveBDInput{})
	mustSubmitScores(t, service, sub.SubmissionID, ScoreRecord{3, 3, 3})
	if _, err := service.FinalDecision(ctx, sub.SubmissionID, 3, FinalDecisionInput{Decision: models.StateRejected}); err != nil {
		t.Fatal(err)
	}
}

func TestQueueRows(t *testing.T) {
	workflow, db, _ := newTestWorkflow(t)
	queue := NewReviewQueueService(db)
	seedQueueFixture(t, workflow, db)

	rows, err := queue.Rows(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to load queue rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	byBrand := make(map[string]QueueRow, len(rows))
	for _, row := range rows {
		byBrand[row.Submission.Brand.BrandName] = row
	}

	acme := byBrand["Acme Wellness"]
	if acme.CommercialStatus != models.CommercialProspect {
		t.Fatalf("Acme status = %s, want prospect", acme.CommercialStatus)
	}
	if !acme.AtRisk {
		t.Fatal("grade A prospect should be flagged at risk")
	}

	borealis := byBrand["Borealis Labs"]
	if borealis.CommercialStatus != models.CommercialPartner {
		t.Fatalf("Borealis status = %s, want partner", borealis.CommercialStatus)
	}
	if borealis.AtRisk {
		t.Fatal("a partner is never at risk, regardless of grade")
	}

	cobalt := byBrand["Cobalt Nutrition"]
	if cobalt.CommercialStatus != models.CommercialUnknown {
		t.Fatalf("Cobalt status = %s, want unknown", cobalt.CommercialStatus)
	}
	if cobalt.AtRisk {
		t.Fatal("a submission without a grade is never at risk")
	}

	drift := byBrand["Drift Botanicals"]
	if drift.AtRisk {
		t.Fatal("a low grade is never at risk")
	}
}

func TestQueueRowsFilterByState(t *testing.T) {
	workflow, db, _ := newTestWorkflow(t)
	queue := NewReviewQueueService(db)
	seedQueueFixture(t, workflow, db)

	state := models.StateInMedicalReview
	rows, err := queue.Rows(context.Background(), &state)
	if err != nil {
		t.Fatalf("failed to load filtered rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows in medical review, want 1", len(rows))
	}
	if rows[0].Submission.State != models.StateInMedicalReview {
		t.Fatalf("filtered row has state %s", rows[0].Submission.State)
	}
}

func TestQueueStats(t *testing.T) {
	workflow, db, _ := newTestWorkflow(t)
	queue := NewReviewQueueService(db)
	seedQueueFixture(t, workflow, db)

	stats, err := queue.Stats(context.Background())
	if err != nil {
		t.Fatalf("failed to load stats: %v", err)
	}

	if stats.Total != 4 {
		t.Fatalf("total = %d, want 4", stats.Total)
	}
	wantCounts := map[models.ReviewState]int64{
		models.StatePendingBDApproval: 1,
		models.StateInMedicalReview:   1,
		models.StateApproved:          1,
		models.StateRejected:          1,
		models.StateRequiresRevision:  0,
	}
	for state, want := range wantCounts {
		if got := stats.CountsByState[state]; got != want {
			t.Errorf("count[%s] = %d, want %d", state, got, want)
		}
	}

	// Rejected revenue stays out of the pipeline value.
	if stats.PipelineValue != 90000 {
		t.Fatalf("pipeline value = %.0f, want 90000", stats.PipelineValue)
	}
	if stats.AtRiskCount != 1 {
		t.Fatalf("at-risk count = %d, want 1", stats.AtRiskCount)
	}
}

func TestQueueStatsEmptyPipeline(t *testing.T) {
	db := newTestDB(t)
	queue := NewReviewQueueService(db)

	stats, err := queue.Stats(context.Background())
	if err != nil {
		t.Fatalf("failed to load stats: %v", err)
	}
	if stats.Total != 0 || stats.PipelineValue != 0 || stats.AtRiskCount != 0 {
		t.Fatalf("empty pipeline stats: %+v", stats)
	}
	if len(stats.CountsByState) != len(models.AllReviewStates) {
		t.Fatalf("expected zeroed counts for every state, got %v", stats.CountsByState)
	}
}
