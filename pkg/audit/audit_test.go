package audit

import (
	"fmt"
	"strings"
	"testing"

	"payledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{0, "IDR", "IDR 0.00"},
		{5, "IDR", "IDR 0.05"},
		{100, "USD", "USD 1.00"},
		{123456, "IDR", "IDR 1,234.56"},
		{100000000, "IDR", "IDR 1,000,000.00"},
		{-123456, "EUR", "EUR -1,234.56"},
		{999, "GBP", "GBP 9.99"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAmount(tc.minor, tc.currency), "minor=%d", tc.minor)
	}
}

func TestPaymentCreatedSummary(t *testing.T) {
	p := &models.Payment{
		ID:       42,
		StaffID:  7,
		Amount:   123456,
		Currency: "IDR",
		Method:   models.MethodBankTransfer,
		Category: models.CategorySalary,
	}
	entry := PaymentCreated(p, "admin")
	assert.Equal(t, models.EntityPayment, entry.EntityType)
	assert.Equal(t, uint(42), entry.EntityID)
	assert.Equal(t, models.ActionCreate, entry.Action)
	assert.Equal(t, "admin", entry.Actor)
	assert.Contains(t, entry.Summary, "payment 42")
	assert.Contains(t, entry.Summary, "IDR 1,234.56")
	assert.Contains(t, entry.Summary, "staff 7")
}

func TestPaymentVoidedSummary(t *testing.T) {
	p := &models.Payment{ID: 9, Amount: 5000, Currency: "USD"}
	entry := PaymentVoided(p, "admin", "duplicate entry")
	assert.Equal(t, models.ActionVoid, entry.Action)
	assert.Contains(t, entry.Summary, "payment 9 voided")
	assert.Contains(t, entry.Summary, "USD 50.00")
	assert.Contains(t, entry.Summary, "duplicate entry")

	noReason := PaymentVoided(p, "admin", "")
	assert.False(t, strings.Contains(noReason.Summary, "("))
}

func TestStaffStatusChangedSummary(t *testing.T) {
	s := &models.Staff{ID: 3, Name: "Ava", JobTitle: "Engineer"}
	for _, tc := range []struct {
		active bool
		want   string
	}{
		{true, "staff 3 set active"},
		{false, "staff 3 set inactive"},
	} {
		s.Active = tc.active
		entry := StaffStatusChanged(s, "admin")
		assert.Equal(t, tc.want, entry.Summary)
		assert.Equal(t, models.ActionStatusChange, entry.Action)
	}
}

func TestReceiptAttachedSummary(t *testing.T) {
	r := &models.Receipt{ID: 11, FileName: "slip.png"}
	entry := ReceiptAttached(r, 42, "receipt_ingest")
	assert.Equal(t, models.EntityReceipt, entry.EntityType)
	assert.Contains(t, entry.Summary, "slip.png")
	assert.Contains(t, entry.Summary, "payment 42")
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	err := Record(nil, models.AuditLog{Action: models.ActionCreate})
	require.Error(t, err)
	err = Record(nil, models.AuditLog{EntityType: models.EntityStaff})
	require.Error(t, err)
}

func TestGroupThousands(t *testing.T) {
	for n, want := range map[int64]string{
		0:          "0",
		12:         "12",
		123:        "123",
		1234:       "1,234",
		12345:      "12,345",
		1234567:    "1,234,567",
		1000000000: "1,000,000,000",
	} {
		assert.Equal(t, want, groupThousands(n), fmt.Sprintf("n=%d", n))
	}
}
