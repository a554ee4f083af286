package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"fieldforce/api/internal/model"
	"fieldforce/api/internal/service"
)

// AttendanceHandler handles check-ins and the admin feed
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
	exportService     *service.ExportService
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendanceService *service.AttendanceService, exportService *service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		exportService:     exportService,
	}
}

// CheckIn records today's attendance for the authenticated salesman
// @Summary Check in
// @Description Record today's attendance with the client's geolocation reading
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CheckInRequest true "Geolocation"
// @Success 201 {object} model.AttendanceRecord
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.attendanceService.CheckIn(c.Request.Context(), user, &req, c.Request.UserAgent())
	switch {
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{
			"error":  "already checked in today",
			"record": record,
		})
	case errors.Is(err, service.ErrInvalidCoordinates):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, record)
	}
}

// GetToday returns the salesman's check-in state for the current day
// @Summary Today's check-in status
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.CheckInStatus
// @Failure 500 {object} map[string]string
// @Router /attendance/today [get]
func (h *AttendanceHandler) GetToday(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	record, err := h.attendanceService.Today(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.CheckInStatus{
		CheckedIn: record != nil,
		Record:    record,
	})
}

// List returns the check-in feed for a business day, newest first
// @Summary Attendance feed
// @Description Today's check-ins (or a past day via ?date=), newest first
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param date query string false "Business day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	date := c.DefaultQuery("date", h.attendanceService.TodayKey())

	items, err := h.attendanceService.ListForDate(c.Request.Context(), date)
	if err != nil {
		status, body := classifyQueryError(err)
		c.JSON(status, body)
		return
	}

	// An empty day is a valid feed, not an error.
	c.JSON(http.StatusOK, gin.H{
		"date":  date,
		"count": len(items),
		"data":  items,
	})
}

// Export downloads a business day's attendance as an xlsx workbook
// @Summary Export attendance
// @Tags Attendance
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param date query string false "Business day (YYYY-MM-DD), defaults to today"
// @Success 200 {file} binary
// @Failure 500 {object} map[string]string
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	date := c.DefaultQuery("date", h.attendanceService.TodayKey())

	buf, err := h.exportService.AttendanceSheet(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", date)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// classifyQueryError distinguishes a missing schema object (migrations not
// applied) from a generic backend failure. The structured SQLSTATE is checked
// first; the message substring is only a fallback for drivers that don't
// expose one.
func classifyQueryError(err error) (int, gin.H) {
	var pgErr *pgconn.PgError
	missing := errors.As(err, &pgErr) && (pgErr.Code == "42P01" || pgErr.Code == "42703")
	if !missing {
		msg := err.Error()
		missing = strings.Contains(msg, "does not exist") || strings.Contains(msg, "no such table")
	}

	if missing {
		return http.StatusInternalServerError, gin.H{
			"error":       err.Error(),
			"remediation": "database schema is out of date; run migrations and retry",
		}
	}
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}
