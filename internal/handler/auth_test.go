package handler

import (
	"bytes"
	"context"
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

	"fieldforce/api/internal/config"
	"fieldforce/api/internal/middleware"
	"fieldforce/api/internal/model"
	"fieldforce/api/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *service.AuthService, *AuthHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.LoginLog{}))

	cfg := &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
	authService := service.NewAuthService(db)
	authHandler := NewAuthHandler(authService, cfg)

	r := gin.New()
	r.POST("/api/v1/auth/login", authHandler.Login)

	api := r.Group("/api/v1")
	api.Use(authHandler.AuthMiddleware())
	{
		api.GET("/auth/me", authHandler.GetMe)

		admin := api.Group("")
		admin.Use(middleware.RequireRole(model.RoleAdmin))
		admin.GET("/dashboard/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		salesman := api.Group("")
		salesman.Use(middleware.RequireRole(model.RoleSalesman))
		salesman.GET("/attendance/today", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}

	return r, db, authService, authHandler
}

func login(t *testing.T, r *gin.Engine, username, password string) (int, model.LoginResponse) {
	t.Helper()

	body, _ := json.Marshal(model.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp model.LoginResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginAndMe(t *testing.T) {
	r, _, authService, _ := newTestRouter(t)

	_, err := authService.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "admin", Password: "admin-password", Email: "admin@example.com", Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	code, resp := login(t, r, "admin", "admin-password")
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)

	w := get(r, "/api/v1/auth/me", resp.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	code, _ = login(t, r, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoleGuard(t *testing.T) {
	r, _, authService, _ := newTestRouter(t)
	ctx := context.Background()

	_, err := authService.CreateUser(ctx, &model.CreateUserRequest{
		Username: "admin", Password: "admin-password", Email: "admin@example.com", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	_, err = authService.CreateUser(ctx, &model.CreateUserRequest{
		Username: "sam", Password: "sam-password", Email: "sam@example.com", Role: model.RoleSalesman,
	})
	require.NoError(t, err)

	_, adminResp := login(t, r, "admin", "admin-password")
	_, samResp := login(t, r, "sam", "sam-password")

	// Each role reaches its own dashboard.
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/dashboard/stats", adminResp.Token).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/attendance/today", samResp.Token).Code)

	// And is denied the other's.
	assert.Equal(t, http.StatusForbidden, get(r, "/api/v1/dashboard/stats", samResp.Token).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/v1/attendance/today", adminResp.Token).Code)

	// No token at all.
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/auth/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/auth/me", "not-a-token").Code)
}

func TestUnknownRoleIsDeniedOutright(t *testing.T) {
	r, db, authService, authHandler := newTestRouter(t)
	ctx := context.Background()

	user, err := authService.CreateUser(ctx, &model.CreateUserRequest{
		Username: "ghost", Password: "ghost-password", Email: "ghost@example.com", Role: model.RoleSalesman,
	})
	require.NoError(t, err)

	token, err := authHandler.issueToken(user)
	require.NoError(t, err)

	// The role record mutates to a non-dashboard role after the token was
	// issued; the middleware re-reads it and must deny, never serve partially.
	require.NoError(t, db.Model(user).Update("role", "guest").Error)

	w := get(r, "/api/v1/auth/me", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
