package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"fieldforce/api/internal/config"
	"fieldforce/api/internal/model"
	"fieldforce/api/internal/service"
)

// AuthHandler handles login and token validation
type AuthHandler struct {
	authService *service.AuthService
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		config:      cfg,
	}
}

// Login authenticates a user and issues a JWT
// @Summary Login
// @Description Authenticate with username/password and receive a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.authService.RecordLogin(c.Request.Context(), &model.LoginLog{
			Username:  req.Username,
			Action:    "login",
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Success:   false,
			ErrorMsg:  err.Error(),
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	h.authService.RecordLogin(c.Request.Context(), &model.LoginLog{
		UserID:    int(user.ID),
		Username:  user.Username,
		Action:    "login",
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
	})

	c.JSON(http.StatusOK, model.LoginResponse{Token: token, User: *user})
}

// Logout records the sign-out. Tokens are stateless; the entry exists for the
// audit trail.
// @Summary Logout
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if user := currentUser(c); user != nil {
		h.authService.RecordLogin(c.Request.Context(), &model.LoginLog{
			UserID:    int(user.ID),
			Username:  user.Username,
			Action:    "logout",
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Success:   true,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetMe returns the authenticated user
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// AuthMiddleware validates the bearer token and resolves the user record.
// The role record is re-fetched on every request: a user whose record has
// disappeared or whose role is not a dashboard role is denied outright,
// never served a partial dashboard.
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		h.authorize(c, strings.TrimPrefix(header, "Bearer "))
	}
}

// WSAuthMiddleware authorizes WebSocket upgrades. Browsers cannot set an
// Authorization header on the handshake, so the token is also accepted from
// the "token" query parameter.
func (h *AuthHandler) WSAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}
		h.authorize(c, tokenString)
	}
}

// authorize validates the token and resolves the user record, applying the
// same deny rules as AuthMiddleware.
func (h *AuthHandler) authorize(c *gin.Context, tokenString string) {
	userID, err := h.parseToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		c.Abort()
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		c.Abort()
		return
	}

	if user.Status != 1 || !user.HasDashboardRole() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		c.Abort()
		return
	}

	c.Set("user", user)
	c.Set("userID", user.ID)
	c.Next()
}

func (h *AuthHandler) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  float64(user.ID),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(h.config.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.config.JWTSecret))
}

func (h *AuthHandler) parseToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, errors.New("invalid subject")
	}
	return uint(sub), nil
}

// currentUser returns the user resolved by AuthMiddleware, or nil.
func currentUser(c *gin.Context) *model.User {
	v, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := v.(*model.User)
	if !ok {
		return nil
	}
	return user
}
