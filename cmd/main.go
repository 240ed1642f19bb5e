package main

import (
	"workspace-service/internal/handler"
	"workspace-service/internal/mail"
	"workspace-service/internal/middleware"
	"workspace-service/internal/model"
	"workspace-service/internal/rag"
	"workspace-service/internal/security"
	"workspace-service/internal/tenant"
	"workspace-service/pkg/config"
	"workspace-service/pkg/database"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting workspace service...", zap.String("environment", cfg.Server.Env))

	// Initialize database (migrates the shared registry tables)
	dbConfig := database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	}
	if err := database.Initialize(dbConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and registry migrations completed")

	// Initialize token signing
	jwtutil.Initialize(&cfg.JWT)

	db := database.GetDB()

	// Workspace registry, optionally fronted by Redis
	var registry tenant.Registry = tenant.NewGormRegistry(db)
	var cache *tenant.CachedRegistry
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = tenant.NewCachedRegistry(registry, rdb, cfg.Redis.TTL, log)
		registry = cache
		log.Info("Workspace registry cache enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}

	scope := tenant.NewScope(db)
	hasher := security.BcryptHasher{}
	provisioner := tenant.NewProvisioner(db, hasher, security.JWTIssuer{}, log)
	syncer := tenant.NewSyncer(db, log)
	ragClient := rag.NewClient(&cfg.RAG)
	mailSender := mail.NewSMTPSender(&cfg.SMTP)

	// Seed the active-workspace gauge; onboarding and status changes keep it
	// current from here on
	var activeWorkspaces int64
	if err := db.Model(&model.Organization{}).
		Where("status = ?", model.OrgStatusActive).Count(&activeWorkspaces).Error; err != nil {
		log.Warn("Failed to count active workspaces", zap.Error(err))
	} else {
		prometheus.UpdateActiveWorkspaces(int(activeWorkspaces))
	}

	adminHandler := handler.NewAdminHandler(db, provisioner, syncer)
	reservedHandler := handler.NewReservedHandler(db)
	authHandler := handler.NewAuthHandler(db, scope, mailSender)
	orgHandler := handler.NewOrgHandler(db, cache)
	categoryHandler := handler.NewCategoryHandler(scope)
	userHandler := handler.NewUserHandler(scope, hasher)
	kbHandler := handler.NewKBHandler(scope, ragClient)
	chatHandler := handler.NewChatHandler(scope, ragClient)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no workspace resolution required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/verify-otp", authHandler.VerifyOTP)

	// Workspace-scoped routes - every request resolves a workspace first
	ws := e.Group("/workspace")
	ws.Use(middleware.TenantResolver(registry, cfg.Server.BaseDomain))
	ws.POST("/auth/login", authHandler.Login)
	ws.GET("/org", orgHandler.Current)

	api := ws.Group("", middleware.AuthMiddleware)
	api.GET("/categories", categoryHandler.List)
	api.POST("/categories", categoryHandler.Create)
	api.GET("/categories/:id", categoryHandler.Get)
	api.PUT("/categories/:id", categoryHandler.Update)
	api.DELETE("/categories/:id", categoryHandler.Delete)

	api.GET("/users", userHandler.List)
	api.POST("/users", userHandler.Create)
	api.GET("/users/:id", userHandler.Get)
	api.DELETE("/users/:id", userHandler.Delete)

	api.GET("/documents", kbHandler.List)
	api.POST("/documents", kbHandler.Create)
	api.POST("/documents/:id/ingest", kbHandler.Ingest)

	api.GET("/chat/tabs", chatHandler.ListTabs)
	api.POST("/chat/tabs", chatHandler.CreateTab)
	api.GET("/chat/tabs/:id", chatHandler.History)
	api.POST("/chat/tabs/:id/ask", chatHandler.Ask)

	// Admin routes - operator surface, no workspace resolution
	admin := e.Group("/admin", middleware.AuthMiddleware, middleware.RequireAdmin)
	admin.POST("/onboard", adminHandler.Onboard)
	admin.POST("/sync-tenants", adminHandler.SyncTenants)
	admin.GET("/reserved-handles", reservedHandler.List)
	admin.POST("/reserved-handles", reservedHandler.Create)
	admin.PUT("/reserved-handles/:id", reservedHandler.Update)
	admin.DELETE("/reserved-handles/:id", reservedHandler.Delete)
	admin.PUT("/organizations/:handle/status", orgHandler.UpdateStatus)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
