package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fieldforce/api/internal/model"
)

// AuditHandler exposes the sign-in audit trail to admins
type AuditHandler struct {
	db *gorm.DB
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", h.ListLogs)
}

// ListLogs returns login/logout entries, newest first
// @Summary List login audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param username query string false "Filter by username"
// @Param action query string false "Filter by action (login, logout)"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /audit-logs [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	query := h.db.Model(&model.LoginLog{}).Order("created_at DESC")

	if username := c.Query("username"); username != "" {
		query = query.Where("username = ?", username)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var logs []model.LoginLog
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
