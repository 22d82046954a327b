package models

import "time"

// Brand represents the brands table: one partner brand under review.
type Brand struct {
	BrandID     int        `gorm:"primaryKey;column:brand_id" json:"brand_id"`
	BrandName   string     `gorm:"column:brand_name" json:"brand_name"`
	CompanyName *string    `gorm:"column:company_name" json:"company_name,omitempty"`
	Website     *string    `gorm:"column:website" json:"website,omitempty"`
	ContactName *string    `gorm:"column:contact_name" json:"contact_name,omitempty"`
	Email       *string    `gorm:"column:email" json:"email,omitempty"`
	OwnerID     *int       `gorm:"column:owner_id" json:"owner_id,omitempty"`
	CreateAt    time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Owner *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Deals []Deal `gorm:"foreignKey:BrandID;references:BrandID" json:"deals,omitempty"`
}

// TableName specifies the table name for Brand.
func (Brand) TableName() string {
	return "brands"
}
