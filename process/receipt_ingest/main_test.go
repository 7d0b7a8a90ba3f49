package main

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payledger/models"
)

func TestReferenceFromFilename(t *testing.T) {
	cases := map[string]string{
		"3f2a77aa-1111-2222-3333-444455556666_slip.png": "3f2a77aa-1111-2222-3333-444455556666",
		"ref123_scan_of_receipt.jpg":                    "ref123",
		"ref123.pdf":                                    "ref123",
		"noext":                                         "noext",
		"_leading.png":                                  "_leading",
	}
	for in, want := range cases {
		assert.Equal(t, want, referenceFromFilename(in), in)
	}
}

func TestPreloadStateRoundTrip(t *testing.T) {
	ps := newPreloadState()
	_, ok := ps.getPayment("missing")
	assert.False(t, ok)
	_, ok = ps.getReceipt("payments/none.png")
	assert.False(t, ok)

	ps.putPayment(&models.Payment{Reference: "ref-1", Amount: 100})
	p, ok := ps.getPayment("ref-1")
	assert.True(t, ok)
	assert.Equal(t, int64(100), p.Amount)
}

// A payment created after the preload snapshot must still resolve, since
// --watch keeps the tool running while the ledger grows.
func TestResolvePaymentAfterPreload(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	db = mustInitDBFromEnv()

	staff := models.Staff{Name: "Ingest Test Staff", JobTitle: "Clerk", Active: true}
	require.NoError(t, db.Create(&staff).Error)

	ps := newPreloadState() // empty snapshot: simulates a stale preload
	ing := &ingester{dir: t.TempDir(), store: t.TempDir(), actor: "test", ps: ps}

	p := models.Payment{
		StaffID:   staff.ID,
		Amount:    5000,
		Currency:  "IDR",
		Method:    models.MethodBankTransfer,
		Category:  models.CategorySalary,
		Reference: uuid.NewString(),
	}
	require.NoError(t, db.Create(&p).Error)

	got, ok := ing.resolvePayment(p.Reference)
	require.True(t, ok, "DB fallback should find the post-snapshot payment")
	assert.Equal(t, p.ID, got.ID)

	// the hit is cached for subsequent files
	cached, ok := ps.getPayment(p.Reference)
	assert.True(t, ok)
	assert.Equal(t, p.ID, cached.ID)
}
