package main

import (
	"context"
	"eventops/config"
	"eventops/database"
	"eventops/models"
	"eventops/routes"
	"eventops/services"
	"eventops/utils"
	"eventops/websocket"
	"eventops/workers"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize Redis
	redisClient := connectRedis(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize storage
	stores, databaseHealth := initializeStorage(cfg, redisClient)
	if databaseHealth != nil {
		defer database.Disconnect()
	}

	// Initialize realtime hub and cross-instance relay
	hub := websocket.NewHub()
	go hub.Run(ctx)

	if redisClient != nil {
		relay := websocket.NewRedisRelay(redisClient, hub, websocket.DefaultRelayChannel, uuid.New().String())
		hub.SetForwarder(relay)
		go relay.Run(ctx)
	}

	// Initialize services
	notifiers := routes.Notifiers{
		Push: services.NewPushService(config.InitFirebaseMessaging(ctx, cfg)),
		SMS:  services.NewSMSService(config.InitTwilio(cfg), cfg.TwilioPhoneNumber),
	}
	svc := routes.InitializeServices(cfg, stores, notifiers, hub)

	// Initialize workers
	sweeper := workers.NewTokenSweepWorker(svc.Shutdown, workers.TokenSweeperConfig{
		Interval:  cfg.TokenSweepIntervalDuration(),
		Retention: cfg.TokenRetentionDuration(),
	})
	if err := sweeper.Start(); err != nil {
		logrus.Fatal("Failed to start token sweeper: ", err)
	}

	// Setup routes
	router := routes.SetupRoutes(svc, routes.Options{
		Config:   cfg,
		Redis:    redisClient,
		Hub:      hub,
		Sweeper:  sweeper,
		Database: databaseHealth,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("🚀 Event operations server starting on port ", cfg.Port)
		logrus.Info("📱 WebSocket endpoint: /ws")
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	if err := sweeper.Stop(); err != nil {
		logrus.Warnf("Token sweeper stop: %v", err)
	}
	svc.Emergency.Wait()
	stop()

	logrus.Info("✅ Server shutdown complete")
}

// connectRedis returns nil when Redis is unreachable and the memory driver
// is in use; the Mongo driver keeps shutdown state in Redis and cannot run
// without it.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	client := config.InitRedis(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		if cfg.StorageDriver == config.StorageMemory {
			logrus.Warnf("Redis unavailable, running single-instance: %v", err)
			client.Close()
			return nil
		}
		logrus.Fatal("Failed to connect to Redis: ", err)
	}

	logrus.Info("✅ Connected to Redis")
	return client
}

func initializeStorage(cfg *config.Config, redisClient *redis.Client) (*routes.Stores, func() map[string]interface{}) {
	var dataset *database.Dataset
	if cfg.SeedData || cfg.StorageDriver == config.StorageMemory {
		var err error
		dataset, err = database.DemoDataset(cfg.SeedAdminSecret)
		if err != nil {
			logrus.Fatal("Failed to build seed data: ", err)
		}
		if cfg.IsDevelopment() {
			logDemoTokens(cfg, dataset)
		}
	}

	if cfg.StorageDriver == config.StorageMemory {
		stores, err := routes.NewMemoryStores(dataset)
		if err != nil {
			logrus.Fatal("Failed to seed memory stores: ", err)
		}
		logrus.Info("📦 Using in-memory storage")
		return stores, nil
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}

	if dataset != nil {
		if err := database.RunSeeders(db, dataset); err != nil {
			logrus.Warnf("Seeder warning: %v", err)
		}
	}

	return routes.NewMongoStores(db, redisClient), database.HealthCheck
}

// logDemoTokens prints bearer tokens for the seeded users so a local
// instance can be driven without the portal's login flow.
func logDemoTokens(cfg *config.Config, dataset *database.Dataset) {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	for _, user := range dataset.Users {
		token, expiresAt, err := jwtService.GenerateAccessToken(models.Identity{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   user.Role,
		})
		if err != nil {
			logrus.Warnf("Failed to sign demo token for %s: %v", user.ID, err)
			continue
		}
		logrus.WithFields(logrus.Fields{
			"userId":    user.ID,
			"role":      user.Role,
			"expiresAt": expiresAt,
		}).Debug("🔑 Demo access token: ", token)
	}
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.IsDevelopment() {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
