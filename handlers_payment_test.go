package main

import (
	"testing"
	"time"

	"payledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBounds(t *testing.T) {
	start, end, err := monthBounds("2026-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into the next year
	start, end, err = monthBounds("2025-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)

	_, _, err = monthBounds("2026-2")
	assert.Error(t, err)
	_, _, err = monthBounds("not-a-month")
	assert.Error(t, err)
}

func TestValidMethodAndCategory(t *testing.T) {
	assert.True(t, models.ValidMethod(models.MethodBankTransfer))
	assert.True(t, models.ValidMethod(models.MethodCash))
	assert.True(t, models.ValidMethod(models.MethodCheque))
	assert.False(t, models.ValidMethod("wire"))
	assert.False(t, models.ValidMethod(""))

	assert.True(t, models.ValidCategory(models.CategorySalary))
	assert.True(t, models.ValidCategory(models.CategoryBonus))
	assert.True(t, models.ValidCategory(models.CategoryReimbursement))
	assert.True(t, models.ValidCategory(models.CategoryOther))
	assert.False(t, models.ValidCategory("gift"))
}
