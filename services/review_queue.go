package services

import (
	"context"

	"gorm.io/gorm"

	"brand-review-api/models"
)

// QueueRow is one dashboard row: a submission annotated with the brand's
// resolved commercial status and the at-risk flag.
type QueueRow struct {
	Submission       models.ReviewSubmission `json:"submission"`
	CommercialStatus models.CommercialStatus `json:"commercial_status"`
	AtRisk           bool                    `json:"at_risk"`
}

// QueueStats aggregates the whole review pipeline for the dashboard
// strip: per-state counts and the summed revenue estimates of everything
// not rejected.
type QueueStats struct {
	CountsByState map[models.ReviewState]int64 `json:"counts_by_state"`
	Total         int64                        `json:"total"`
	PipelineValue float64                      `json:"pipeline_value"`
	AtRiskCount   int64                        `json:"at_risk_count"`
}

// ReviewQueueService builds read-only projections over the submission
// collection. Everything here is recomputed on read; a slightly stale
// snapshot is acceptable for a human-operated dashboard, and none of it
// ever blocks or influences a workflow transition.
type ReviewQueueService struct {
	db *gorm.DB
}

func NewReviewQueueService(db *gorm.DB) *ReviewQueueService {
	return &ReviewQueueService{db: db}
}

// Rows returns queue rows, optionally filtered by state. Submissions with
// no grade or no deals get a false at-risk flag rather than an error.
func (s *ReviewQueueService) Rows(ctx context.Context, state *models.ReviewState) ([]QueueRow, error) {
	query := s.db.WithContext(ctx).Preload("Brand").
		Where("delete_at IS NULL")
	if state != nil {
		query = query.Where("state = ?", *state)
	}

	var submissions []models.ReviewSubmission
	if err := query.Order("updated_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	brandIDs := make([]int, 0, len(submissions))
	seen := make(map[int]bool, len(submissions))
	for _, submission := range submissions {
		if !seen[submission.BrandID] {
			seen[submission.BrandID] = true
			brandIDs = append(brandIDs, submission.BrandID)
		}
	}

	dealsByBrand, err := LoadDealsByBrand(s.db.WithContext(ctx), brandIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]QueueRow, 0, len(submissions))
	for _, submission := range submissions {
		status := ResolveCommercialStatus(dealsByBrand[submission.BrandID])
		rows = append(rows, QueueRow{
			Submission:       submission,
			CommercialStatus: status,
			AtRisk:           atRisk(&submission, status),
		})
	}
	return rows, nil
}

// Stats returns the per-state counts and aggregate pipeline value.
func (s *ReviewQueueService) Stats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{
		CountsByState: make(map[models.ReviewState]int64, len(models.AllReviewStates)),
	}
	for _, state := range models.AllReviewStates {
		stats.CountsByState[state] = 0
	}

	var grouped []struct {
		State models.ReviewState `gorm:"column:state"`
		Count int64              `gorm:"column:count"`
	}
	if err := s.db.WithContext(ctx).Model(&models.ReviewSubmission{}).
		Select("state, COUNT(*) AS count").
		Where("delete_at IS NULL").
		Group("state").
		Scan(&grouped).Error; err != nil {
		return nil, err
	}
	for _, row := range grouped {
		stats.CountsByState[row.State] = row.Count
		stats.Total += row.Count
	}

	if err := s.db.WithContext(ctx).Model(&models.ReviewSubmission{}).
		Where("state <> ? AND delete_at IS NULL", models.StateRejected).
		Select("COALESCE(SUM(revenue_estimate), 0)").
		Scan(&stats.PipelineValue).Error; err != nil {
		return nil, err
	}

	rows, err := s.Rows(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.AtRisk {
			stats.AtRiskCount++
		}
	}

	return stats, nil
}

// atRisk flags high medical merit that has not converted commercially:
// grade A or B while the brand is still just a prospect.
func atRisk(submission *models.ReviewSubmission, status models.CommercialStatus) bool {
	if submission.OverallGrade == nil {
		return false
	}
	return submission.OverallGrade.High() && status == models.CommercialProspect
}
