package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewSubmission represents the review_submissions table: one brand's
// medical-review case for one review cycle.
//
// The three sub-scores are written atomically: either all of
// ClinicalScore/SafetyScore/TransparencyScore are set or none are.
// OverallGrade is a cache of the grade derived from them and is rewritten
// on every score update.
type ReviewSubmission struct {
	SubmissionID     int         `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	SubmissionNumber string      `gorm:"column:submission_number" json:"submission_number"`
	BrandID          int         `gorm:"column:brand_id" json:"brand_id"`
	DealID           *int        `gorm:"column:deal_id" json:"deal_id,omitempty"`
	State            ReviewState `gorm:"column:state" json:"state"`
	Version          int         `gorm:"column:version" json:"version"`

	// BD gate
	RevenueEstimate *float64 `gorm:"column:revenue_estimate" json:"revenue_estimate,omitempty"`
	BDNotes         *string  `gorm:"column:bd_notes" json:"bd_notes,omitempty"`
	BDApprovedBy    *int     `gorm:"column:bd_approved_by" json:"bd_approved_by,omitempty"`

	// Medical scoring
	ClinicalScore       *int                        `gorm:"column:clinical_score" json:"clinical_score,omitempty"`
	SafetyScore         *int                        `gorm:"column:safety_score" json:"safety_score,omitempty"`
	TransparencyScore   *int                        `gorm:"column:transparency_score" json:"transparency_score,omitempty"`
	OverallGrade        *Grade                      `gorm:"column:overall_grade" json:"overall_grade,omitempty"`
	MedicalNotes        *string                     `gorm:"column:medical_notes" json:"medical_notes,omitempty"`
	ClinicalClaims      datatypes.JSONSlice[string] `gorm:"column:clinical_claims" json:"clinical_claims"`
	SafetyConcerns      datatypes.JSONSlice[string] `gorm:"column:safety_concerns" json:"safety_concerns"`
	RequiredDisclaimers datatypes.JSONSlice[string] `gorm:"column:required_disclaimers" json:"required_disclaimers"`

	// Final decision
	DecisionNotes *string `gorm:"column:decision_notes" json:"decision_notes,omitempty"`
	DecidedBy     *int    `gorm:"column:decided_by" json:"decided_by,omitempty"`

	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Brand *Brand `gorm:"foreignKey:BrandID;references:BrandID" json:"brand,omitempty"`
	Deal  *Deal  `gorm:"foreignKey:DealID;references:DealID" json:"deal,omitempty"`
}

// TableName specifies the table name for ReviewSubmission.
func (ReviewSubmission) TableName() string {
	return "review_submissions"
}

// HasScores reports whether a complete score record exists.
func (s *ReviewSubmission) HasScores() bool {
	return s.ClinicalScore != nil && s.SafetyScore != nil && s.TransparencyScore != nil
}
