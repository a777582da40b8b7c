package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/nattapong-dev/inventory-api/internal/handler"
	"github.com/nattapong-dev/inventory-api/internal/middleware"
	"github.com/nattapong-dev/inventory-api/pkg/config"
	"github.com/nattapong-dev/inventory-api/pkg/database"
	"github.com/nattapong-dev/inventory-api/pkg/jwtutil"
	"github.com/nattapong-dev/inventory-api/pkg/logger"
	"github.com/nattapong-dev/inventory-api/pkg/notify"
	"github.com/nattapong-dev/inventory-api/pkg/storage"
	"github.com/nattapong-dev/inventory-api/prometheus"
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
	log.Info("Starting inventory service...", zap.String("environment", cfg.Server.Env))

	// Initialize database; the handle is injected into every handler
	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connection established")

	// Build collaborators
	tokens := jwtutil.New(&cfg.JWT)
	notifier := notify.NewLogNotifier(log)
	images, err := storage.NewDiskStore(&cfg.Upload)
	if err != nil {
		log.Fatal("Failed to initialize image store", zap.Error(err))
	}

	authHandler := handler.NewAuthHandler(db, tokens, notifier, cfg.OTP.Expiry)
	productHandler := handler.NewProductHandler(db, images)
	invoiceHandler := handler.NewInvoiceHandler(db)
	authGuard := middleware.Auth(tokens)

	// Initialize Echo framework
	e := echo.New()
	e.Validator = handler.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.Static(cfg.Upload.PublicPath, images.Dir())

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/verify-otp", authHandler.VerifyOTP)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.PUT("/update", authHandler.UpdateProfile, authGuard)

	// Product catalog - all require authentication
	products := e.Group("/products", authGuard)
	products.GET("", productHandler.List)
	products.POST("", productHandler.Create)
	products.GET("/search", productHandler.Search)
	products.GET("/category/:category", productHandler.ByCategory)
	products.GET("/low-stock", productHandler.LowStock)
	products.GET("/expiring", productHandler.Expiring)
	products.GET("/:id", productHandler.Get)
	products.PUT("/:id", productHandler.Update)
	products.DELETE("/:id", productHandler.Delete)

	// Invoice ledger - all require authentication
	invoices := e.Group("/invoices", authGuard)
	invoices.GET("", invoiceHandler.List)
	invoices.POST("", invoiceHandler.Create)
	invoices.PUT("/:id", invoiceHandler.Update)
	invoices.DELETE("/:id", invoiceHandler.Delete)
	invoices.PATCH("/:id/status", invoiceHandler.SetStatus)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
