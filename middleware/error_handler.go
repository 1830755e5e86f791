package middleware

import (
	"eventops/models"
	"eventops/utils"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler provides centralized panic recovery and fallback errors
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		// Errors attached with c.Error but never rendered
		if len(c.Errors) > 0 && !c.Writer.Written() {
			utils.HandleServiceError(c, c.Errors.Last().Err, "Request failed")
		}
	}
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic":      err,
		"stack":      string(debug.Stack()),
		"request_id": c.GetString(utils.RequestIDKey),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}).Error("Panic recovered")

	apiErr := &models.APIError{
		Code:    utils.ErrCodeInternal,
		Message: "Internal server error",
	}
	if eh.environment == "development" {
		apiErr.Details = map[string]interface{}{
			"panic": err,
		}
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, utils.Envelope(c, models.APIResponse{
		Message: "Internal server error",
		Error:   apiErr,
	}))
}

// NotFound handles unknown routes
func (eh *ErrorHandler) NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.ErrorResponse(c, http.StatusNotFound, "Route not found", map[string]string{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	}
}

// MethodNotAllowed handles known routes hit with the wrong method
func (eh *ErrorHandler) MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.ErrorResponse(c, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}
