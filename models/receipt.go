package models

import (
	"time"
)

// Receipt represents a stored receipt file attached to a payment. PaymentID is
// nullable so the batch ingest tool can record files it could not match.
type Receipt struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileName    string   `gorm:"size:255;not null"`
	StorePath   string   `gorm:"column:store_path;size:512;uniqueIndex"` // public relative path (e.g. public/receipts/xxx.jpg)
	PaymentID   *uint    `gorm:"index"`
	Payment     *Payment `gorm:"foreignKey:PaymentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	ContentType string   `gorm:"size:128"`
	// Mark the receipt as failed during ingest (do not delete the record so
	// an admin can review it)
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
