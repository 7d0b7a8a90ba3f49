// Seeds a handful of staff and payments for local development. Idempotent:
// reruns skip staff that already exist by name.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"payledger/models"
	"payledger/pkg/audit"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	staffSeed := []models.Staff{
		{Name: "Ava Reyes", JobTitle: "Site Engineer", Email: "ava@example.com", Active: true},
		{Name: "Budi Santoso", JobTitle: "Foreman", Active: true},
		{Name: "Clara Wijaya", JobTitle: "Accountant", Email: "clara@example.com", Active: true},
	}
	for i := range staffSeed {
		s := &staffSeed[i]
		var existing models.Staff
		if err := db.Where("name = ?", s.Name).First(&existing).Error; err == nil {
			*s = existing
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(s).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.StaffCreated(s, "seed_demo"))
		})
		if err != nil {
			log.Fatalf("seed staff %s: %v", s.Name, err)
		}
		fmt.Printf("seeded staff %d %s\n", s.ID, s.Name)
	}

	amounts := []int64{750_000_00, 520_000_00, 910_000_00}
	for i, s := range staffSeed {
		var cnt int64
		db.Model(&models.Payment{}).Where("staff_id = ?", s.ID).Count(&cnt)
		if cnt > 0 {
			continue
		}
		p := models.Payment{
			StaffID:       s.ID,
			Amount:        amounts[i%len(amounts)],
			Currency:      "IDR",
			Method:        models.MethodBankTransfer,
			Category:      models.CategorySalary,
			Reference:     uuid.NewString(),
			ReceiptStatus: models.ReceiptMissing,
			PaidAt:        time.Now().AddDate(0, 0, -i),
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.PaymentCreated(&p, "seed_demo"))
		})
		if err != nil {
			log.Fatalf("seed payment for staff %d: %v", s.ID, err)
		}
		fmt.Printf("seeded payment %d (%s) for staff %d\n", p.ID, audit.FormatAmount(p.Amount, p.Currency), s.ID)
	}
}
