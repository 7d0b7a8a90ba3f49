package main

import (
	"net/http"
	"strconv"

	"payledger/pkg/audit"

	"github.com/gin-gonic/gin"
)

// listAuditHandler returns audit entries, newest first. Admin only.
func listAuditHandler(c *gin.Context) {
	f := audit.Filter{
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
	}
	if v := c.Query("entity_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
			return
		}
		f.EntityID = uint(id)
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		f.Limit = n
	}
	entries, err := audit.Query(db, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
