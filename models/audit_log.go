package models

import "time"

// Entity types and action kinds recorded in the audit log.
const (
	EntityStaff   = "staff"
	EntityPayment = "payment"
	EntityReceipt = "receipt"

	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionStatusChange = "status_change"
	ActionDeactivate   = "deactivate"
	ActionVoid         = "void"
	ActionAttach       = "attach"
)

// AuditLog is an append-only record of a mutation. Rows are only ever
// inserted; there is no update or delete path. No UpdatedAt on purpose.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	EntityType string    `gorm:"size:32;not null;index:idx_audit_entity"`
	EntityID   uint      `gorm:"not null;index:idx_audit_entity"`
	Action     string    `gorm:"size:32;not null;index"`
	Actor      string    `gorm:"size:255;not null"`
	Summary    string    `gorm:"size:512;not null"`
}
