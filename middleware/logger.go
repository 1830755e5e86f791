package middleware

import (
	"eventops/utils"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Logger         *logrus.Logger
	SkipPaths      []string
	SkipUserAgents []string
	SlowRequest    time.Duration
}

// LoggerMiddleware returns a logger middleware with configuration
func LoggerMiddleware(config LoggerConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.SlowRequest == 0 {
		config.SlowRequest = 2 * time.Second
	}

	return func(c *gin.Context) {
		// Generate request ID if not exists
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(utils.RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		if shouldSkipPath(c.Request.URL.Path, config.SkipPaths) ||
			shouldSkipUserAgent(c.GetHeader("User-Agent"), config.SkipUserAgents) {
			c.Next()
			return
		}

		startTime := time.Now()

		c.Next()

		duration := time.Since(startTime)
		status := c.Writer.Status()

		fields := logrus.Fields{
			"request_id":    requestID,
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"route":         c.FullPath(),
			"status":        status,
			"latency":       duration.String(),
			"latency_ms":    float64(duration.Nanoseconds()) / 1000000.0,
			"ip":            c.ClientIP(),
			"user_agent":    c.GetHeader("User-Agent"),
			"response_size": c.Writer.Size(),
		}
		if userID := c.GetString("userID"); userID != "" {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := config.Logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		case duration > config.SlowRequest:
			entry.Warn("Slow request")
		default:
			entry.Info("Request completed")
		}
	}
}

// DefaultLoggerMiddleware returns a logger middleware with default configuration
func DefaultLoggerMiddleware() gin.HandlerFunc {
	return LoggerMiddleware(LoggerConfig{
		Logger: logrus.StandardLogger(),
		SkipPaths: []string{
			"/health",
			"/favicon.ico",
		},
		SkipUserAgents: []string{
			"kube-probe",
			"GoogleHC",
		},
	})
}

func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

func shouldSkipUserAgent(userAgent string, skipUserAgents []string) bool {
	for _, skipUA := range skipUserAgents {
		if strings.Contains(userAgent, skipUA) {
			return true
		}
	}
	return false
}
