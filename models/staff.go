package models

import "time"

// Staff represents an employee record. Deactivation flips Active instead of
// deleting the row so existing payments keep a valid reference.
type Staff struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Active    bool   `gorm:"default:true;not null;index"`
	Name      string `gorm:"size:255;not null"`
	JobTitle  string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255"` // optional
	// UserID links the staff member to a login account (nullable; most staff
	// have no account).
	UserID   *uint     `gorm:"uniqueIndex"`
	Payments []Payment `gorm:"foreignKey:StaffID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}
