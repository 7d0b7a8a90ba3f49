package main

import (
	"os"

	"payledger/models"
	"payledger/pkg/logging"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	db, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		logging.Fatal("failed to connect postgres database", zap.Error(err))
	}
	// Schema migrations are controlled by DB_AUTO_MIGRATE (default true). Any
	// permission errors are logged and ignored.
	if cfg.AutoMigrate {
		// Ensure the roles master table exists first and seed it so the users FK
		// can be applied safely.
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			logging.Warn("migration warning (roles)", zap.Error(err))
		}
	}
	seedRoles()

	if cfg.AutoMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			logging.Warn("migration warning (users)", zap.Error(err))
		}
		if err := db.AutoMigrate(&models.Staff{}); err != nil {
			logging.Warn("migration warning (staff)", zap.Error(err))
		}
		if err := db.AutoMigrate(&models.Payment{}); err != nil {
			logging.Warn("migration warning (payments)", zap.Error(err))
		}
		if err := db.AutoMigrate(&models.Receipt{}); err != nil {
			logging.Warn("migration warning (receipts)", zap.Error(err))
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			logging.Warn("migration warning (refresh_tokens)", zap.Error(err))
		}
		if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
			logging.Warn("migration warning (audit_logs)", zap.Error(err))
		}
		if err := ensurePaymentStaffFK(); err != nil {
			logging.Warn("ensuring payments->staffs FK failed", zap.Error(err))
		}
	}
	seedDB()
}

// ensurePaymentStaffFK adds the staff_id FK constraint if it is missing. The
// constraint is RESTRICT so a staff row with payments can never be removed
// out from under its ledger.
func ensurePaymentStaffFK() error {
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_staff_id ON payments(staff_id)`).Error; err != nil {
		return err
	}
	type cnt struct{ N int }
	var c cnt
	fkCheckSQL := `SELECT count(*) AS n
		FROM pg_constraint ct
		JOIN pg_class rel ON rel.oid = ct.conrelid
		WHERE rel.relname = 'payments' AND ct.contype = 'f'
		  AND pg_get_constraintdef(ct.oid) ILIKE '%staff_id%' AND pg_get_constraintdef(ct.oid) ILIKE '%staffs%'`
	if err := db.Raw(fkCheckSQL).Scan(&c).Error; err != nil {
		return err
	}
	if c.N == 0 {
		if err := db.Exec(`ALTER TABLE payments
			ADD CONSTRAINT fk_payments_staffs
			FOREIGN KEY (staff_id) REFERENCES staffs(id)
			ON UPDATE CASCADE ON DELETE RESTRICT`).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB() {
	seedRoles()

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			logging.Warn("failed to find administrator role", zap.Error(err))
		}
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		logging.Info("seeded admin user", zap.String("username", "admin"))
	}
	ensureReceiptBase()
}

// ensureReceiptBase creates the base directory for stored receipts.
func ensureReceiptBase() {
	base := receiptBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		logging.Warn("failed to create receipt base dir", zap.String("dir", base), zap.Error(err))
	}
}

// receiptBaseDir returns the base directory for receipt files (configurable via RECEIPT_BASE env)
func receiptBaseDir() string {
	if cfg != nil && cfg.ReceiptBase != "" {
		return cfg.ReceiptBase
	}
	return "receipts"
}
