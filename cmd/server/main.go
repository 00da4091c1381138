package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/milkbites/milkbites-backend/config"
	"github.com/milkbites/milkbites-backend/internal/app/controller"
	"github.com/milkbites/milkbites-backend/internal/app/guestcart"
	"github.com/milkbites/milkbites-backend/internal/app/repository"
	"github.com/milkbites/milkbites-backend/internal/app/service"
	"github.com/milkbites/milkbites-backend/internal/db"
	"github.com/milkbites/milkbites-backend/internal/middleware"
	"github.com/milkbites/milkbites-backend/internal/router"
	"github.com/milkbites/milkbites-backend/internal/scheduler"
	"github.com/milkbites/milkbites-backend/internal/storage"
	"github.com/milkbites/milkbites-backend/internal/ws"
	"github.com/milkbites/milkbites-backend/pkg/logger"
	"github.com/milkbites/milkbites-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting MILKBITES Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the guest cart and the token blacklist. The server
	// still runs without it, with in-memory guest carts and no logout
	// revocation.
	redisAvailable := true
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory guest carts", map[string]interface{}{
			"error": err.Error(),
		})
		redisAvailable = false
	} else {
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	discountRepo := repository.NewDiscountRepository(db.GetDB())
	addressRepo := repository.NewAddressRepository(db.GetDB())
	settingsRepo := repository.NewSettingsRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	discountService := service.NewDiscountService(discountRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	addressService := service.NewAddressService(addressRepo)
	orderService := service.NewOrderService(
		orderRepo,
		cartRepo,
		productRepo,
		addressRepo,
		settingsRepo,
		discountService,
	)

	var guestStore guestcart.Store
	if redisAvailable {
		guestStore = guestcart.NewRedisStore(redis.GetClient(), cfg.Shop.GuestCartTTL)
	} else {
		guestStore = guestcart.NewMemoryStore()
	}
	guestService := guestcart.NewService(guestStore, productRepo)

	// Cart badge hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize middleware
	var authMiddleware *middleware.AuthMiddleware
	var revokeToken controller.TokenRevoker
	if redisAvailable {
		authMiddleware = middleware.NewAuthMiddlewareWithBlacklist(cfg.JWT.Secret, redis.IsTokenBlacklisted)
		revokeToken = redis.BlacklistToken
	} else {
		authMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret)
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService, revokeToken, cfg.JWT.AccessTokenExpiry)
	productController := controller.NewProductController(productService, s3Storage)
	cartController := controller.NewCartController(cartService, guestService, hub)
	guestCartController := controller.NewGuestCartController(guestService, hub)
	orderController := controller.NewOrderController(orderService, settingsService, s3Storage, hub)
	discountController := controller.NewDiscountController(discountService)
	addressController := controller.NewAddressController(addressService)
	settingsController := controller.NewSettingsController(settingsService)
	cartSocketController := controller.NewCartSocketController(hub)

	// Nightly discount expiry sweep
	discountScheduler := scheduler.NewDiscountScheduler(discountService)
	if err := discountScheduler.Start(); err != nil {
		logger.Error("Failed to start discount scheduler", err)
	}
	defer discountScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		guestCartController,
		orderController,
		discountController,
		addressController,
		settingsController,
		cartSocketController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
