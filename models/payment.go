package models

import "time"

// Payment methods and categories accepted by the API.
const (
	MethodBankTransfer = "bank_transfer"
	MethodCash         = "cash"
	MethodCheque       = "cheque"

	CategorySalary        = "salary"
	CategoryBonus         = "bonus"
	CategoryReimbursement = "reimbursement"
	CategoryOther         = "other"

	ReceiptMissing  = "missing"
	ReceiptAttached = "attached"
)

// ValidMethod reports whether m is an accepted payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodBankTransfer, MethodCash, MethodCheque:
		return true
	}
	return false
}

// ValidCategory reports whether c is an accepted payment category.
func ValidCategory(c string) bool {
	switch c {
	case CategorySalary, CategoryBonus, CategoryReimbursement, CategoryOther:
		return true
	}
	return false
}

// Payment is a recorded disbursement to one Staff member. Amount is stored in
// the smallest currency unit (e.g. cents). Void is a soft flag; voided rows
// stay in the ledger.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	StaffID   uint   `gorm:"index;not null"`
	Staff     Staff  `gorm:"foreignKey:StaffID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Amount    int64  `gorm:"not null"`
	Currency  string `gorm:"size:3;not null"`
	Method    string `gorm:"size:32;not null"`
	Category  string `gorm:"size:32;not null"`
	// Reference is a server-generated UUID used on bank statements and in
	// receipt filenames.
	Reference     string    `gorm:"size:64;not null;uniqueIndex"`
	ReceiptStatus string    `gorm:"size:16;not null;default:missing"`
	PaidAt        time.Time `gorm:"not null;index"`
	Voided        bool      `gorm:"default:false;index"`
	VoidReason    string    `gorm:"size:255"`
}
