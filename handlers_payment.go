package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"payledger/models"
	"payledger/pkg/audit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createPaymentHandler records a disbursement. The staff reference is checked
// inside the transaction so a concurrent deactivation cannot slip through.
func createPaymentHandler(c *gin.Context) {
	var req struct {
		StaffID  uint   `json:"staff_id" binding:"required"`
		Amount   int64  `json:"amount" binding:"required"`
		Currency string `json:"currency" binding:"required"`
		Method   string `json:"method" binding:"required"`
		Category string `json:"category" binding:"required"`
		PaidAt   string `json:"paid_at"` // optional ISO8601
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if len(req.Currency) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency must be a 3-letter code"})
		return
	}
	if !models.ValidMethod(req.Method) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		return
	}
	if !models.ValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment category"})
		return
	}
	p := models.Payment{
		StaffID:       req.StaffID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Method:        req.Method,
		Category:      req.Category,
		Reference:     uuid.NewString(),
		ReceiptStatus: models.ReceiptMissing,
		PaidAt:        time.Now(),
	}
	if req.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paid_at"})
			return
		}
		p.PaidAt = t
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		var staff models.Staff
		if err := tx.First(&staff, req.StaffID).Error; err != nil {
			return errStaffNotFound
		}
		if !staff.Active {
			return errStaffInactive
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.PaymentCreated(&p, actorName(c)))
	})
	switch err {
	case nil:
	case errStaffNotFound:
		c.JSON(http.StatusBadRequest, gin.H{"error": "staff not found"})
		return
	case errStaffInactive:
		c.JSON(http.StatusBadRequest, gin.H{"error": "staff is inactive"})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	publishPaymentChanged(p.ID)
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "reference": p.Reference})
}

var (
	errStaffNotFound = fmt.Errorf("staff not found")
	errStaffInactive = fmt.Errorf("staff inactive")
)

// listPaymentsHandler lists ledger rows. Non-admin callers only ever see
// payments for their own staff record; admins may filter freely.
func listPaymentsHandler(c *gin.Context) {
	q := db.Model(&models.Payment{})
	if !isAdmin(c) {
		sid := callerStaffID(c)
		if sid == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "no staff record linked to this account"})
			return
		}
		q = q.Where("staff_id = ?", sid)
	} else if v := c.Query("staff_id"); v != "" {
		q = q.Where("staff_id = ?", v)
	}
	if v := c.Query("month"); v != "" {
		start, end, err := monthBounds(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month, expected YYYY-MM"})
			return
		}
		q = q.Where("paid_at >= ? AND paid_at < ?", start, end)
	}
	if v := c.Query("category"); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := c.Query("method"); v != "" {
		q = q.Where("method = ?", v)
	}
	if v := c.Query("voided"); v != "" {
		q = q.Where("voided = ?", v == "true" || v == "1")
	}
	var items []models.Payment
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// monthBounds returns the UTC half-open interval for a YYYY-MM month.
func monthBounds(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

func getPaymentHandler(c *gin.Context) {
	var p models.Payment
	if err := db.First(&p, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && p.StaffID != callerStaffID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func updatePaymentHandler(c *gin.Context) {
	var req struct {
		Amount   *int64  `json:"amount"`
		Method   *string `json:"method"`
		Category *string `json:"category"`
		PaidAt   *string `json:"paid_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var p models.Payment
	if err := db.First(&p, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if p.Voided {
		c.JSON(http.StatusConflict, gin.H{"error": "payment is voided"})
		return
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		p.Amount = *req.Amount
	}
	if req.Method != nil {
		if !models.ValidMethod(*req.Method) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
			return
		}
		p.Method = *req.Method
	}
	if req.Category != nil {
		if !models.ValidCategory(*req.Category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment category"})
			return
		}
		p.Category = *req.Category
	}
	if req.PaidAt != nil {
		t, err := time.Parse(time.RFC3339, *req.PaidAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paid_at"})
			return
		}
		p.PaidAt = t
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.PaymentUpdated(&p, actorName(c)))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	publishPaymentChanged(p.ID)
	c.JSON(http.StatusOK, p)
}

// voidPaymentHandler marks a payment void. The row stays in the ledger.
func voidPaymentHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // body optional
	var p models.Payment
	if err := db.First(&p, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if p.Voided {
		c.JSON(http.StatusConflict, gin.H{"error": "already voided"})
		return
	}
	p.Voided = true
	p.VoidReason = req.Reason
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.PaymentVoided(&p, actorName(c), req.Reason))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "void failed"})
		return
	}
	publishPaymentChanged(p.ID)
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "voided": true})
}

// paymentSummaryHandler returns non-voided amounts grouped by month. Results
// are cached per scope with the configured TTL.
func paymentSummaryHandler(c *gin.Context) {
	scope := "all"
	var staffID uint
	if !isAdmin(c) {
		staffID = callerStaffID(c)
		if staffID == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "no staff record linked to this account"})
			return
		}
		scope = fmt.Sprintf("staff:%d", staffID)
	} else if v := c.Query("staff_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid staff_id"})
			return
		}
		staffID = uint(id)
		scope = fmt.Sprintf("staff:%d", staffID)
	}
	if cached, err := getCachedSummary(c, scope); err == nil && cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}
	q := db.Model(&models.Payment{}).Where("voided = false")
	if staffID != 0 {
		q = q.Where("staff_id = ?", staffID)
	}
	rows, err := q.Select("to_char(paid_at, 'YYYY-MM') as month, sum(amount) as total").Group("month").Order("month").Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	defer rows.Close()
	results := []monthlyTotal{}
	for rows.Next() {
		var r monthlyTotal
		if err := rows.Scan(&r.Month, &r.Total); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
			return
		}
		results = append(results, r)
	}
	cacheSummary(c, scope, results)
	c.JSON(http.StatusOK, results)
}
