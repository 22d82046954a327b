package models

import "time"

// DealStage values mirror the sales pipeline. Stages outside the
// won/active and lost/rejected sets count as in-progress.
type DealStage string

const (
	StageLead        DealStage = "lead"
	StageQualified   DealStage = "qualified"
	StageProposal    DealStage = "proposal"
	StageNegotiation DealStage = "negotiation"
	StageActive      DealStage = "active"
	StageClosedWon   DealStage = "closed_won"
	StageClosedLost  DealStage = "closed_lost"
	StageRejected    DealStage = "rejected"
)

// Won reports whether the stage means the brand converted commercially.
func (s DealStage) Won() bool {
	return s == StageClosedWon || s == StageActive
}

// Lost reports whether the stage means the deal fell through.
func (s DealStage) Lost() bool {
	return s == StageClosedLost || s == StageRejected
}

// CommercialStatus classifies a brand's sales-pipeline standing. It is
// derived from that brand's deals on every read and never stored on the
// review submission.
type CommercialStatus string

const (
	CommercialPartner  CommercialStatus = "partner"
	CommercialRejected CommercialStatus = "rejected"
	CommercialProspect CommercialStatus = "prospect"
	CommercialUnknown  CommercialStatus = "unknown"
)

// Deal represents the deals table: one commercial pipeline record.
type Deal struct {
	DealID    int        `gorm:"primaryKey;column:deal_id" json:"deal_id"`
	BrandID   int        `gorm:"column:brand_id" json:"brand_id"`
	DealName  string     `gorm:"column:deal_name" json:"deal_name"`
	Stage     DealStage  `gorm:"column:stage" json:"stage"`
	Amount    *float64   `gorm:"column:amount" json:"amount,omitempty"`
	OwnerID   *int       `gorm:"column:owner_id" json:"owner_id,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Brand *Brand `gorm:"foreignKey:BrandID;references:BrandID" json:"brand,omitempty"`
	Owner *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// TableName specifies the table name for Deal.
func (Deal) TableName() string {
	return "deals"
}
