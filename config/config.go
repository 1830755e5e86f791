package config

import (
	"eventops/utils"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	Environment   string
	Port          string
	DatabaseURL   string
	DatabaseName  string
	RedisURL      string
	JWTSecret     string
	StorageDriver string
	CORSOrigins   []string
	SeedData      bool

	// Firebase Config
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Shutdown protocol
	ShutdownTokenTTL    int // minutes
	ShutdownTokenMaxTTL int // minutes
	TokenSweepInterval  int // seconds
	TokenRetention      int // minutes
	AdminRoles          []string

	// Alert fan-out
	AlertWorkers         int
	AlertDeliveryTimeout int // seconds

	// Shutdown endpoint rate limit
	RateLimitRequest int
	RateLimitWindow  int // minutes

	// Dev seed credentials
	SeedAdminSecret string
}

func Load() *Config {
	return &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "mongodb://localhost:27017"),
		DatabaseName:  getEnv("DATABASE_NAME", "eventops"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageMongo),
		CORSOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SeedData:      getEnvAsBool("SEED_DATA", false),

		// Firebase
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		// Shutdown protocol
		ShutdownTokenTTL:    getEnvAsInt("SHUTDOWN_TOKEN_TTL_MINUTES", 30),
		ShutdownTokenMaxTTL: getEnvAsInt("SHUTDOWN_TOKEN_MAX_TTL_MINUTES", 120),
		TokenSweepInterval:  getEnvAsInt("TOKEN_SWEEP_INTERVAL_SECONDS", 60),
		TokenRetention:      getEnvAsInt("TOKEN_RETENTION_MINUTES", 60),
		AdminRoles:          getEnvAsList("ADMIN_ROLES", []string{"admin", "superadmin"}),

		// Alert fan-out
		AlertWorkers:         getEnvAsInt("ALERT_WORKERS", 8),
		AlertDeliveryTimeout: getEnvAsInt("ALERT_DELIVERY_TIMEOUT_SECONDS", 10),

		RateLimitRequest: getEnvAsInt("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:  getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),

		SeedAdminSecret: getEnv("SEED_ADMIN_SHUTDOWN_SECRET", ""),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) ShutdownTokenTTLDuration() time.Duration {
	return time.Duration(c.ShutdownTokenTTL) * time.Minute
}

func (c *Config) ShutdownTokenMaxTTLDuration() time.Duration {
	return time.Duration(c.ShutdownTokenMaxTTL) * time.Minute
}

func (c *Config) TokenSweepIntervalDuration() time.Duration {
	return time.Duration(c.TokenSweepInterval) * time.Second
}

func (c *Config) TokenRetentionDuration() time.Duration {
	return time.Duration(c.TokenRetention) * time.Minute
}

func (c *Config) AlertDeliveryTimeoutDuration() time.Duration {
	return time.Duration(c.AlertDeliveryTimeout) * time.Second
}

func (c *Config) RateLimitWindowDuration() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Minute
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if values := utils.SplitAndTrim(os.Getenv(key)); len(values) > 0 {
		return values
	}
	return defaultValue
}
