package main

import (
	"net/http"
	"os"
	"path/filepath"

	"payledger/models"
	"payledger/pkg/audit"
	"payledger/pkg/dbutil"
	"payledger/pkg/logging"
	"payledger/pkg/receipt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// uploadReceiptHandler handles a multipart receipt upload for one payment.
// The file lands on disk first; the DB rows (receipt, payment status flip,
// audit entry) commit together afterwards.
func uploadReceiptHandler(c *gin.Context) {
	var p models.Payment
	if err := db.First(&p, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 5*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}
	if !receipt.IsSupportedExt(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}
	ct := file.Header.Get("Content-Type")
	if ct == "" {
		ct = receipt.MimeFromExt(file.Filename)
	}
	// prefix with the payment reference so ingest and humans can match files
	storedName := p.Reference + "_" + filepath.Base(file.Filename)
	relPath := filepath.ToSlash(filepath.Join("payments", storedName))
	fullPath := filepath.Join(receiptBaseDir(), "payments", storedName)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	if err := receipt.ShrinkToBudget(fullPath, receipt.MaxStoredBytes); err != nil {
		logging.Warn("receipt downscale failed", zap.String("path", fullPath), zap.Error(err))
	}

	// If a receipt for this store path already exists, return it
	var existing models.Receipt
	if err := db.Where("store_path = ?", relPath).First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"id": existing.ID, "path": relPath, "payment_id": existing.PaymentID})
		return
	}

	pid := p.ID
	rec := models.Receipt{FileName: file.Filename, StorePath: relPath, PaymentID: &pid, ContentType: ct}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).
			Update("receipt_status", models.ReceiptAttached).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.ReceiptAttached(&rec, p.ID, actorName(c)))
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) { // race: someone else stored the same file
			c.JSON(http.StatusConflict, gin.H{"error": "receipt already recorded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	publishPaymentChanged(p.ID)
	c.JSON(http.StatusOK, gin.H{"id": rec.ID, "path": relPath, "payment_id": p.ID})
}

// listReceiptsHandler returns receipts; admin sees all, a user only those of
// their own payments.
func listReceiptsHandler(c *gin.Context) {
	q := db.Model(&models.Receipt{})
	if !isAdmin(c) {
		sid := callerStaffID(c)
		if sid == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "no staff record linked to this account"})
			return
		}
		q = q.Joins("JOIN payments ON payments.id = receipts.payment_id").
			Where("payments.staff_id = ?", sid)
	}
	var receipts []models.Receipt
	if err := q.Order("receipts.id desc").Limit(100).Find(&receipts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, receipts)
}

// getReceiptHandler returns a single receipt if admin or owner.
func getReceiptHandler(c *gin.Context) {
	var rec models.Receipt
	if err := db.First(&rec, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) {
		sid := callerStaffID(c)
		allowed := false
		if rec.PaymentID != nil && sid != 0 {
			var p models.Payment
			if err := db.First(&p, *rec.PaymentID).Error; err == nil && p.StaffID == sid {
				allowed = true
			}
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}
	c.JSON(http.StatusOK, rec)
}
