package models

import "time"

// AuditLog records who did what to which entity, for compliance review.
type AuditLog struct {
	LogID        int       `gorm:"primaryKey;column:log_id" json:"log_id"`
	UserID       int       `gorm:"column:user_id" json:"user_id"`
	Action       string    `gorm:"column:action" json:"action"`
	EntityType   string    `gorm:"column:entity_type" json:"entity_type"`
	EntityID     *int      `gorm:"column:entity_id" json:"entity_id,omitempty"`
	EntityNumber *string   `gorm:"column:entity_number" json:"entity_number,omitempty"`
	OldValues    *string   `gorm:"column:old_values" json:"old_values,omitempty"`
	NewValues    *string   `gorm:"column:new_values" json:"new_values,omitempty"`
	Description  *string   `gorm:"column:description" json:"description,omitempty"`
	IPAddress    string    `gorm:"column:ip_address" json:"ip_address"`
	UserAgent    *string   `gorm:"column:user_agent" json:"user_agent,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for AuditLog.
func (AuditLog) TableName() string {
	return "audit_logs"
}
