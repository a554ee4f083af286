package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldforce/api/internal/service"
)

// DashboardHandler serves the admin aggregate figures
type DashboardHandler struct {
	reportService *service.ReportService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(reportService *service.ReportService) *DashboardHandler {
	return &DashboardHandler{reportService: reportService}
}

// GetStats returns today's aggregate figures
// @Summary Dashboard stats
// @Description Today's attendance count, order count, sales total and the
// @Description all-time outstanding credit snapshot. Figures whose query
// @Description failed are zeroed and listed under errors; the rest render.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats := h.reportService.DashboardStats(c.Request.Context())
	c.JSON(http.StatusOK, stats)
}
