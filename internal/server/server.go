package server

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"fieldforce/api/internal/config"
	"fieldforce/api/internal/handler"
	"fieldforce/api/internal/middleware"
	"fieldforce/api/internal/model"
	"fieldforce/api/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *gorm.DB
	redis     *redis.Client
	nats      *nats.Conn
	wsHub     *handler.WSHub
	wsHandler *handler.WSHandler
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) *Server {
	return &Server{
		config: cfg,
		db:     db,
		redis:  redisClient,
		nats:   natsConn,
	}
}

// Setup initializes routes and handlers
func (s *Server) Setup() {
	// Live feed hub first; handlers publish into it via NATS
	s.wsHub = handler.NewWSHub(s.nats)
	s.wsHandler = handler.NewWSHandler(s.wsHub)

	loc := s.config.Location()

	// Initialize services
	authService := service.NewAuthService(s.db)
	attendanceService := service.NewAttendanceService(s.db, s.redis, s.nats, loc)
	routeService := service.NewRouteService(s.db)
	reportService := service.NewReportService(s.db, s.redis, loc)
	exportService := service.NewExportService(s.db)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, s.config)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, exportService)
	routeHandler := handler.NewRouteHandler(routeService)
	dashboardHandler := handler.NewDashboardHandler(reportService)
	userHandler := handler.NewUserHandler(authService)
	auditHandler := handler.NewAuditHandler(s.db)

	// Start WebSocket hub in background
	go s.wsHub.Run()
	log.Println("[Server] WebSocket hub started")

	// Setup Gin router
	s.router = gin.Default()

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Swagger UI
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	s.router.POST("/api/v1/auth/login", authHandler.Login)

	// WebSocket routes. The live feed carries salesman identities and
	// coordinates, so the upgrade is token-gated; browsers pass ?token=.
	s.router.GET("/ws/attendance", authHandler.WSAuthMiddleware(), s.wsHandler.HandleAttendance)
	s.router.GET("/ws/stats", s.wsHandler.GetStats)

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(authHandler.AuthMiddleware())
	{
		api.GET("/auth/me", authHandler.GetMe)
		api.POST("/auth/logout", authHandler.Logout)

		// Salesman dashboard
		salesman := api.Group("")
		salesman.Use(middleware.RequireRole(model.RoleSalesman))
		{
			salesman.POST("/attendance/check-in", attendanceHandler.CheckIn)
			salesman.GET("/attendance/today", attendanceHandler.GetToday)
			salesman.GET("/routes/my", routeHandler.GetMyRoute)
		}

		// Admin dashboard
		admin := api.Group("")
		admin.Use(middleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/attendance", attendanceHandler.List)
			admin.GET("/attendance/export", attendanceHandler.Export)
			admin.GET("/dashboard/stats", dashboardHandler.GetStats)
			userHandler.RegisterRoutes(admin)
			auditHandler.RegisterRoutes(admin)
		}
	}
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("[Server] HTTP server listening on %s", addr)
	return s.router.Run(addr)
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	if s.wsHub != nil {
		s.wsHub.Stop()
		log.Println("[Server] WebSocket hub stopped")
	}
}
