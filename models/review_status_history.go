package models

import "time"

// ReviewStatusHistory tracks historical state changes for review submissions.
type ReviewStatusHistory struct {
	HistoryID    int          `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int          `gorm:"column:submission_id" json:"submission_id"`
	OldState     *ReviewState `gorm:"column:old_state" json:"old_state"`
	NewState     ReviewState  `gorm:"column:new_state" json:"new_state"`
	ChangedBy    int          `gorm:"column:changed_by" json:"changed_by"`
	Reason       *string      `gorm:"column:reason" json:"reason"`
	Notes        *string      `gorm:"column:notes" json:"notes"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for ReviewStatusHistory.
func (ReviewStatusHistory) TableName() string {
	return "review_status_history"
}
