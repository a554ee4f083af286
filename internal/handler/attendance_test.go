package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fieldforce/api/internal/model"
	"fieldforce/api/internal/service"
)

// newAttendanceRouter wires the attendance endpoints behind a stub auth layer
// that injects the given user, so the workflow is tested without tokens.
func newAttendanceRouter(t *testing.T, user *model.User) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.AttendanceRecord{}))

	attendanceService := service.NewAttendanceService(db, nil, nil, time.UTC)
	exportService := service.NewExportService(db)
	h := NewAttendanceHandler(attendanceService, exportService)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", user)
		c.Next()
	})
	r.POST("/attendance/check-in", h.CheckIn)
	r.GET("/attendance/today", h.GetToday)
	r.GET("/attendance", h.List)

	return r, db
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckInEndpoint(t *testing.T) {
	user := &model.User{ID: 1, Email: "sam@example.com", Role: model.RoleSalesman, Status: 1}
	r, db := newAttendanceRouter(t, user)

	// First submission creates the record.
	w := postJSON(r, "/attendance/check-in", gin.H{"lat": -6.2146, "lon": 106.8451, "accuracy": 8.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var record model.AttendanceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "test-agent/1.0", record.Device)

	// Re-submission in the same session conflicts and echoes the record.
	w = postJSON(r, "/attendance/check-in", gin.H{"lat": -6.2146, "lon": 106.8451})
	require.Equal(t, http.StatusConflict, w.Code)

	var conflict struct {
		Error  string                  `json:"error"`
		Record *model.AttendanceRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	require.NotNil(t, conflict.Record)
	assert.Equal(t, record.ID, conflict.Record.ID)

	var count int64
	require.NoError(t, db.Model(&model.AttendanceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Missing coordinates never reach the service.
	w = postJSON(r, "/attendance/check-in", gin.H{"lat": -6.2146})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTodayEndpoint(t *testing.T) {
	user := &model.User{ID: 2, Email: "sam@example.com", Role: model.RoleSalesman, Status: 1}
	r, _ := newAttendanceRouter(t, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/today", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status model.CheckInStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.CheckedIn)
	assert.Nil(t, status.Record)

	postJSON(r, "/attendance/check-in", gin.H{"lat": 1.0, "lon": 2.0})

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/today", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.CheckedIn)
	require.NotNil(t, status.Record)
}

func TestFeedEndpointClassifiesMissingSchema(t *testing.T) {
	user := &model.User{ID: 3, Email: "admin@example.com", Role: model.RoleAdmin, Status: 1}
	r, db := newAttendanceRouter(t, user)

	require.NoError(t, db.Migrator().DropTable(&model.AttendanceRecord{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["remediation"], "run migrations")
}
