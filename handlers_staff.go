package main

import (
	"net/http"
	"strconv"
	"strings"

	"payledger/models"
	"payledger/pkg/audit"
	"payledger/pkg/dbutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// createStaffHandler creates a staff record. Every mutation here and below
// writes its audit entry inside the same transaction.
func createStaffHandler(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		JobTitle string `json:"job_title" binding:"required"`
		Email    string `json:"email"`
		UserID   *uint  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	staff := models.Staff{Name: req.Name, JobTitle: req.JobTitle, Email: req.Email, UserID: req.UserID, Active: true}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&staff).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.StaffCreated(&staff, actorName(c)))
	})
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already linked to a staff record"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	cacheStaff(c, &staff)
	c.JSON(http.StatusOK, gin.H{"id": staff.ID})
}

// listStaffHandler lists staff records, optionally filtered by active flag
// and a free-text match on name or job title.
func listStaffHandler(c *gin.Context) {
	q := db.Model(&models.Staff{})
	if v := c.Query("active"); v != "" {
		active := v == "true" || v == "1"
		q = q.Where("active = ?", active)
	}
	if v := strings.TrimSpace(c.Query("q")); v != "" {
		like := "%" + v + "%"
		q = q.Where("name ILIKE ? OR job_title ILIKE ?", like, like)
	}
	var items []models.Staff
	if err := q.Order("id").Limit(500).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func getStaffHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	// read-through cache
	if cached, err := getCachedStaff(c, uint(id)); err == nil && cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}
	var staff models.Staff
	if err := db.First(&staff, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	cacheStaff(c, &staff)
	c.JSON(http.StatusOK, staff)
}

func updateStaffHandler(c *gin.Context) {
	var req struct {
		Name     string  `json:"name"`
		JobTitle string  `json:"job_title"`
		Email    *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var staff models.Staff
	if err := db.First(&staff, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if req.Name != "" {
		staff.Name = req.Name
	}
	if req.JobTitle != "" {
		staff.JobTitle = req.JobTitle
	}
	if req.Email != nil {
		staff.Email = *req.Email
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&staff).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.StaffUpdated(&staff, actorName(c)))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	publishStaffChanged(staff.ID)
	c.JSON(http.StatusOK, staff)
}

// toggleStaffStatusHandler flips the active flag between its two allowed values.
func toggleStaffStatusHandler(c *gin.Context) {
	var staff models.Staff
	if err := db.First(&staff, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	staff.Active = !staff.Active
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&staff).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.StaffStatusChanged(&staff, actorName(c)))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	publishStaffChanged(staff.ID)
	c.JSON(http.StatusOK, gin.H{"id": staff.ID, "active": staff.Active})
}

// deactivateStaffHandler handles DELETE by deactivating the record. Payments
// keep their staff reference; nothing cascades.
func deactivateStaffHandler(c *gin.Context) {
	var staff models.Staff
	if err := db.First(&staff, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !staff.Active {
		c.JSON(http.StatusOK, gin.H{"id": staff.ID, "active": false})
		return
	}
	staff.Active = false
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&staff).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.StaffDeactivated(&staff, actorName(c)))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deactivate failed"})
		return
	}
	publishStaffChanged(staff.ID)
	c.JSON(http.StatusOK, gin.H{"id": staff.ID, "active": false})
}
