package utils

import (
	"eventops/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestIDKey is the gin context key the logger middleware stores the
// request ID under.
const RequestIDKey = "request_id"

// Envelope stamps the response with the request ID and current time.
func Envelope(c *gin.Context, response models.APIResponse) models.APIResponse {
	response.RequestID = c.GetString(RequestIDKey)
	response.Timestamp = time.Now().UTC()
	return response
}

func respond(c *gin.Context, status int, response models.APIResponse) {
	c.JSON(status, Envelope(c, response))
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, models.APIResponse{Success: true, Message: message, Data: data})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, models.APIResponse{Success: true, Message: message, Data: data})
}

// ErrorResponse reports a transport-level failure (auth, routing, binding)
// whose code follows from the HTTP status.
func ErrorResponse(c *gin.Context, statusCode int, message string, details interface{}) {
	respond(c, statusCode, models.APIResponse{
		Message: message,
		Error: &models.APIError{
			Code:    codeForStatus(statusCode),
			Message: message,
			Details: details,
		},
	})
}

// ErrorResponseWithData renders a ServiceError that still carries a payload,
// such as a rejected shutdown verification.
func ErrorResponseWithData(c *gin.Context, serviceErr ServiceError, data interface{}) {
	respond(c, serviceErr.StatusCode, models.APIResponse{
		Message: serviceErr.Message,
		Data:    data,
		Error: &models.APIError{
			Code:    serviceErr.Code,
			Message: serviceErr.Message,
		},
	})
}

func ValidationErrorResponse(c *gin.Context, validationErrors []ValidationError) {
	respond(c, http.StatusBadRequest, models.APIResponse{
		Message: "Validation failed",
		Error: &models.APIError{
			Code:    ErrCodeInvalidArgument,
			Message: "Validation failed",
			Details: validationErrors,
		},
	})
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access forbidden"
	}
	ErrorResponse(c, http.StatusForbidden, message, nil)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message, nil)
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, message, nil)
}

// HandleServiceError renders err with the status and code of its kind.
// Unknown errors and 5xx kinds are logged and collapsed into a generic 500
// so driver messages never reach the client.
func HandleServiceError(c *gin.Context, err error, fallback string) {
	serviceErr, ok := GetServiceError(err)
	if !ok || serviceErr.StatusCode >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString(RequestIDKey),
		}).WithError(err).Error(fallback)
		InternalServerErrorResponse(c, fallback)
		return
	}

	ErrorResponseWithData(c, serviceErr, nil)
}

func codeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest, http.StatusMethodNotAllowed:
		return ErrCodeInvalidArgument
	case http.StatusUnauthorized:
		return models.ErrCodeAuthentication
	case http.StatusForbidden:
		return ErrCodePermissionDenied
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusTooManyRequests:
		return models.ErrCodeRateLimit
	case http.StatusServiceUnavailable:
		return models.ErrCodeUnavailable
	default:
		return ErrCodeInternal
	}
}

// HealthCheckResponse is healthy only when every dependency reports healthy.
func HealthCheckResponse(dependencies map[string]string, version, uptime string) models.HealthResponse {
	status := "healthy"
	for _, dependencyStatus := range dependencies {
		if dependencyStatus != "healthy" {
			status = "unhealthy"
			break
		}
	}

	return models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  dependencies,
		Version:   version,
		Uptime:    uptime,
	}
}
