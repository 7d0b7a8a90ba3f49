package report

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"payledger/models"
	"payledger/pkg/audit"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded payroll report for one staff member
// (month in YYYY-MM) and optionally lists the matching payment rows. Voided
// payments are excluded from totals.
func RunReport(staffID uint, month string, list bool) {
	gdb := mustDBFromEnv()

	var staff models.Staff
	if err := gdb.First(&staff, staffID).Error; err != nil {
		log.Fatalf("staff not found: %v", err)
	}

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var total sql.NullInt64
	var cnt int64
	if err := gdb.Raw(`SELECT COALESCE(SUM(amount),0) AS total, COUNT(*) AS cnt FROM payments WHERE staff_id = ? AND voided = false AND paid_at >= ? AND paid_at < ?`, staff.ID, start, end).Row().Scan(&total, &cnt); err != nil {
		log.Fatalf("query failed: %v", err)
	}

	fmt.Printf("Report for staff=%d (%s) month=%s (UTC):\n", staff.ID, staff.Name, month)
	fmt.Printf("  payments=%d total=%d\n", cnt, total.Int64)

	if list {
		var rows []models.Payment
		if err := gdb.Where("staff_id = ? AND paid_at >= ? AND paid_at < ?", staff.ID, start, end).Order("id").Find(&rows).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, r := range rows {
			state := ""
			if r.Voided {
				state = " VOID"
			}
			fmt.Printf("%d|%s|%s|%s|%s|%s%s\n", r.ID, r.Reference, audit.FormatAmount(r.Amount, r.Currency), r.Category, r.Method, r.PaidAt.Format(time.RFC3339), state)
		}
	}
}
