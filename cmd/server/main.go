package main

import (
	"context"                          // context package is needed for Redis operations
	"vending_machine/internal/api"     // Custom package for API handlers
	"vending_machine/internal/config"  // Custom package for configuration
	"vending_machine/internal/db"      // Database connection and seeding
	"vending_machine/internal/ledger"  // Record store
	"vending_machine/internal/vending" // Purchase rules

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	// Setup the record store
	var store ledger.Store
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		gdb, err := db.Open(cfg.DSN())
		if err != nil {
			logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
		}
		store = ledger.NewGormStore(gdb)
	case config.DriverMemory:
		logrus.Warn("Using in-memory store, data is lost on restart")
		store = ledger.NewMemoryStore()
	default:
		logrus.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.SeedData {
		if err := db.Seed(context.Background(), store); err != nil {
			logrus.Fatalf("failed to seed data: %v", err)
		}
	}

	// Setup Redis client, caching is disabled without an address
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	} else {
		logrus.Warn("REDIS_ADDR not set, slot listings will not be cached")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.RegisterRoutes(r, api.Deps{
		Store:        store,
		Coordinator:  vending.NewCoordinator(store, vending.WithMaxAttempts(cfg.OrderMaxAttempts)),
		Catalog:      vending.NewCatalog(store),
		Redis:        redisClient,
		JWTSecret:    cfg.JWTSecret,
		OrderTimeout: cfg.OrderTimeout,
		CacheTTL:     cfg.CacheTTL,
	})

	logrus.Info("Server running on " + cfg.AppPort) // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil { // Start the server on port cfg.AppPort
		logrus.Fatalf("server stopped: %v", err)
	}
}
