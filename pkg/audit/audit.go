// Package audit appends immutable mutation records to the audit_logs table.
// Entries are written through the same *gorm.DB handle (usually a
// transaction) as the mutation they describe, so a rolled-back mutation never
// leaves a stray audit row.
package audit

import (
	"fmt"
	"strings"

	"payledger/models"

	"gorm.io/gorm"
)

// Record appends one entry. tx may be a transaction or a plain DB handle.
func Record(tx *gorm.DB, entry models.AuditLog) error {
	if entry.EntityType == "" || entry.Action == "" {
		return fmt.Errorf("audit entry missing entity type or action")
	}
	return tx.Create(&entry).Error
}

// Filter narrows a Query. Zero values mean "any".
type Filter struct {
	EntityType string
	EntityID   uint
	Action     string
	Limit      int
}

// Query returns matching entries, newest first.
func Query(db *gorm.DB, f Filter) ([]models.AuditLog, error) {
	q := db.Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.AuditLog
	if err := q.Order("id desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FormatAmount renders an amount in minor units as "CUR 1,234.56".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	major := minor / 100
	cents := minor % 100
	return fmt.Sprintf("%s %s%s.%02d", currency, sign, groupThousands(major), cents)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// PaymentCreated builds the entry for a freshly created payment. The summary
// carries the payment id and the formatted amount.
func PaymentCreated(p *models.Payment, actor string) models.AuditLog {
	return models.AuditLog{
		EntityType: models.EntityPayment,
		EntityID:   p.ID,
		Action:     models.ActionCreate,
		Actor:      actor,
		Summary: fmt.Sprintf("payment %d created: %s %s via %s to staff %d",
			p.ID, FormatAmount(p.Amount, p.Currency), p.Category, p.Method, p.StaffID),
	}
}

// PaymentUpdated builds the entry for an edited payment.
func PaymentUpdated(p *models.Payment, actor string) models.AuditLog {
	return models.AuditLog{
		EntityType: models.EntityPayment,
		EntityID:   p.ID,
		Action:     models.ActionUpdate,
		Actor:      actor,
		Summary: fmt.Sprintf("payment %d updated: %s %s via %s",
			p.ID, FormatAmount(p.Amount, p.Currency), p.Category, p.Method),
	}
}

// PaymentVoided builds the entry for a voided payment.
func PaymentVoided(p *models.Payment, actor, reason string) models.AuditLog {
	summary := fmt.Sprintf("payment %d voided: %s", p.ID, FormatAmount(p.Amount, p.Currency))
	if reason != "" {
		summary += " (" + reason + ")"
	}
	return models.AuditLog{
		EntityType: models.EntityPayment,
		EntityID:   p.ID,
		Action:     models.ActionVoid,
		Actor:      actor,
		Summary:    summary,
	}
}

// StaffCreated builds the entry for a new staff record.
func StaffCreated(s *models.Staff, actor string) models.AuditLog {
	return models.AuditLog{
		EntityType: models.EntityStaff,
		EntityID:   s.ID,
		Action:     models.ActionCreate,
		Actor:      actor,
		Summary:    fmt.Sprintf("staff %d created: %s (%s)", s.ID, s.Name, s.JobTitle),
	}
}

// StaffUpdated builds the entry for an edited staff record.
func StaffUpdated(s *models.Staff, actor string) models.AuditLog {
	return models.AuditLog{
		EntityType: models.EntityStaff,
		EntityID:   s.ID,
		Action:     models.ActionUpdate,
		Actor:      actor,
		Summary:    fmt.Sprintf("staff %d updated: %s (%s)", s.ID, s.Name, s.JobTitle),
	}
}

// StaffStatusChanged builds the entry for an active-flag toggle.
func StaffStatusChanged(s *models.Staff, actor string) models.AuditLog {
	state := "inactive"
	if s.Active {
		state = "active"
	}
	return models.AuditLog{
		EntityType: models.EntityStaff,
		EntityID:   s.ID,
		Action:     models.ActionStatusChange,
		Actor:      actor,
		Summary:    fmt.Sprintf("staff %d set %s", s.ID, state),
	}
}

// StaffDeactivated builds the entry for a delete request, which deactivates
// instead of removing the row.
func StaffDeactivated(s *models.Staff, actor string) models.AuditLog {
	return models.AuditLog{
		EntityType: models.EntityStaff,
		EntityID:   s.ID,
		Action:     models.ActionDeactivate,
		Actor:      actor,
		Summary:    fmt.Sprintf("staff %d deactivated: %s", s.ID, s.Name),
	}
}

// ReceiptAttached builds the entry for a receipt upload.
func ReceiptAttached(r *models.Receipt, paymentID uint, actor string) models.AuditLog {
	return models.AuditLog{
		EntityType: models.EntityReceipt,
		EntityID:   r.ID,
		Action:     models.ActionAttach,
		Actor:      actor,
		Summary:    fmt.Sprintf("receipt %d (%s) attached to payment %d", r.ID, r.FileName, paymentID),
	}
}
