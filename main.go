package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"crm-service/internal/config"
	"crm-service/internal/handlers"
	"crm-service/internal/metrics"
	"crm-service/internal/middleware"
	"crm-service/internal/models"
	natsClient "crm-service/internal/nats"
	redisClient "crm-service/internal/redis"
	"crm-service/internal/repository"
	"crm-service/internal/services"
)

func main() {
	// Load configuration
	cfg := config.New()

	logger := newLogger(cfg)

	// Initialize database connection
	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	// Auto-migrate models
	if err := autoMigrate(db); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// Initialize Redis connection (optional: dashboard caching only)
	rc, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, dashboard metrics will be recomputed on every read")
		rc = nil
	} else {
		logger.Info("Connected to Redis")
	}

	// Initialize NATS connection for event publishing (optional)
	nc, err := natsClient.NewClient(cfg.NATS, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to NATS, event publishing disabled")
		nc = nil
	} else {
		logger.Info("Connected to NATS")
		defer nc.Close()
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	metricsCollector := metrics.New(registry)

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	dealRepo := repository.NewDealRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	productRepo := repository.NewProductRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	identitySvc := services.NewIdentityService(db, cfg.App.JWTSecret)
	ingestionSvc := services.NewIngestionService(leadRepo, nc, logger)
	reportSvc := services.NewReportService(
		leadRepo,
		dealRepo,
		taskRepo,
		rc,
		time.Duration(cfg.Report.CacheTTLSeconds)*time.Second,
		cfg.Report.MonthlyWindow,
		logger,
	)
	adminSvc := services.NewTenantAdminService(
		tenantRepo,
		profileRepo,
		leadRepo,
		dealRepo,
		quoteRepo,
		productRepo,
		taskRepo,
		activityRepo,
		reportSvc,
		nc,
		logger,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, nc, rc)
	leadHandler := handlers.NewLeadHandler(leadRepo, dealRepo, adminSvc, reportSvc, nc)
	dealHandler := handlers.NewDealHandler(dealRepo, reportSvc, nc)
	quoteHandler := handlers.NewQuoteHandler(quoteRepo, reportSvc)
	productHandler := handlers.NewProductHandler(productRepo)
	taskHandler := handlers.NewTaskHandler(taskRepo, reportSvc)
	activityHandler := handlers.NewActivityHandler(activityRepo)
	tenantHandler := handlers.NewTenantHandler(tenantRepo, adminSvc)
	profileHandler := handlers.NewProfileHandler(profileRepo)
	dashboardHandler := handlers.NewDashboardHandler(reportSvc)
	ingestHandler := handlers.NewIngestHandler(identitySvc, ingestionSvc, reportSvc)

	// Setup router
	router := setupRouter(
		cfg,
		logger,
		metricsCollector,
		identitySvc,
		healthHandler,
		leadHandler,
		dealHandler,
		quoteHandler,
		productHandler,
		taskHandler,
		activityHandler,
		tenantHandler,
		profileHandler,
		dashboardHandler,
		ingestHandler,
		registry,
	)

	// Setup server
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting crm-service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if rc != nil {
		if err := rc.Close(); err != nil {
			logger.WithError(err).Error("Error closing Redis connection")
		}
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	// uuid_generate_v4 defaults need the extension in place before migration
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to create uuid extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.Profile{},
		&models.Lead{},
		&models.Deal{},
		&models.Quote{},
		&models.QuoteItem{},
		&models.Product{},
		&models.Task{},
		&models.Activity{},
	); err != nil {
		return err
	}

	// makes ingestion dedupe structural: two concurrent submissions of the
	// same external lead id cannot both insert
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_tenant_external_id
		 ON leads (tenant_id, (metadata ->> 'external_lead_id'))
		 WHERE metadata ->> 'external_lead_id' IS NOT NULL`,
	).Error; err != nil {
		return fmt.Errorf("failed to create lead external id index: %w", err)
	}

	return nil
}

func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	metricsCollector *metrics.Metrics,
	identitySvc *services.IdentityService,
	healthHandler *handlers.HealthHandler,
	leadHandler *handlers.LeadHandler,
	dealHandler *handlers.DealHandler,
	quoteHandler *handlers.QuoteHandler,
	productHandler *handlers.ProductHandler,
	taskHandler *handlers.TaskHandler,
	activityHandler *handlers.ActivityHandler,
	tenantHandler *handlers.TenantHandler,
	profileHandler *handlers.ProfileHandler,
	dashboardHandler *handlers.DashboardHandler,
	ingestHandler *handlers.IngestHandler,
	registry *prometheus.Registry,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "x-api-key"}
	corsConfig.AllowCredentials = true

	// Global middleware
	router.Use(cors.New(corsConfig))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(metricsCollector.Middleware())

	// Metrics endpoint (Prometheus scraping)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Health endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Public lead intake API (x-api-key auth, external contract)
	router.GET("/api/leads", ingestHandler.Status)
	router.POST("/api/leads", ingestHandler.Create)
	router.POST("/api/leads/webhook", ingestHandler.Webhook)

	// Authenticated API
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantSelector())
	v1.Use(middleware.Authenticated(identitySvc))
	{
		v1.GET("/me", profileHandler.Me)
		v1.GET("/dashboard", dashboardHandler.Metrics)

		leads := v1.Group("/leads")
		{
			leads.GET("", leadHandler.List)
			leads.GET("/export", leadHandler.Export)
			leads.POST("", leadHandler.Create)
			leads.GET("/:id", leadHandler.Get)
			leads.PUT("/:id", leadHandler.Update)
			leads.DELETE("/:id", leadHandler.Delete)
			leads.POST("/:id/reassign", leadHandler.Reassign)
		}

		deals := v1.Group("/deals")
		{
			deals.GET("", dealHandler.List)
			deals.POST("", dealHandler.Create)
			deals.GET("/:id", dealHandler.Get)
			deals.PUT("/:id", dealHandler.Update)
			deals.DELETE("/:id", dealHandler.Delete)
		}

		quotes := v1.Group("/quotes")
		{
			quotes.GET("", quoteHandler.List)
			quotes.POST("", quoteHandler.Create)
			quotes.GET("/:id", quoteHandler.Get)
			quotes.PUT("/:id", quoteHandler.Update)
			quotes.DELETE("/:id", quoteHandler.Delete)
			quotes.POST("/:id/items", quoteHandler.AddItem)
			quotes.DELETE("/:id/items/:item_id", quoteHandler.RemoveItem)
		}

		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.POST("", productHandler.Create)
			products.GET("/:id", productHandler.Get)
			products.PUT("/:id", productHandler.Update)
			products.DELETE("/:id", productHandler.Delete)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", taskHandler.List)
			tasks.POST("", taskHandler.Create)
			tasks.GET("/:id", taskHandler.Get)
			tasks.PUT("/:id", taskHandler.Update)
			tasks.DELETE("/:id", taskHandler.Delete)
		}

		activities := v1.Group("/activities")
		{
			activities.GET("", activityHandler.List)
			activities.POST("", activityHandler.Create)
			activities.DELETE("/:id", activityHandler.Delete)
		}

		tenants := v1.Group("/tenants")
		{
			tenants.GET("", tenantHandler.List)
			tenants.POST("", tenantHandler.Create)
			tenants.GET("/:id", tenantHandler.Get)
			tenants.PUT("/:id", tenantHandler.Update)
			tenants.DELETE("/:id", tenantHandler.Delete)
		}

		profiles := v1.Group("/profiles")
		{
			profiles.GET("", profileHandler.List)
			profiles.POST("", profileHandler.Create)
			profiles.GET("/:id", profileHandler.Get)
			profiles.PUT("/:id", profileHandler.Update)
			profiles.DELETE("/:id", profileHandler.Delete)
		}
	}

	return router
}
