package controllers

import (
	"eventops/models"
	"eventops/services"
	"eventops/utils"

	"github.com/gin-gonic/gin"
)

type ShutdownController struct {
	shutdownService *services.ShutdownService
	validator       *utils.ValidationService
}

func NewShutdownController(shutdownService *services.ShutdownService, validator *utils.ValidationService) *ShutdownController {
	return &ShutdownController{
		shutdownService: shutdownService,
		validator:       validator,
	}
}

// =================== SHUTDOWN PROTOCOL ===================

// IssueToken starts the shutdown protocol by issuing a single-use token
func (sc *ShutdownController) IssueToken(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.IssueShutdownTokenRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, sc.validator, &req) {
			return
		}
	}

	token, err := sc.shutdownService.IssueToken(c.Request.Context(), actor, req.TTLMinutes)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to issue shutdown token")
		return
	}

	utils.CreatedResponse(c, "Shutdown token issued", models.IssueShutdownTokenResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// VerifyCredentials checks the caller's shutdown secret against a token.
// Rejections carry the verification result alongside the error.
func (sc *ShutdownController) VerifyCredentials(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.VerifyShutdownRequest
	if !bindAndValidate(c, sc.validator, &req) {
		return
	}

	result, err := sc.shutdownService.VerifyCredentials(c.Request.Context(), actor, req)
	if err != nil {
		if serviceErr, ok := utils.GetServiceError(err); ok && result != nil {
			utils.ErrorResponseWithData(c, serviceErr, result)
			return
		}
		utils.HandleServiceError(c, err, "Failed to verify shutdown credentials")
		return
	}

	utils.SuccessResponse(c, "Shutdown credentials verified", result)
}

// ExecuteShutdown performs the irreversible global shutdown
func (sc *ShutdownController) ExecuteShutdown(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.ExecuteShutdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if !req.ConfirmIrreversible {
		utils.BadRequestResponse(c, "Shutdown must be confirmed as irreversible")
		return
	}
	if validationErrors := sc.validator.ValidateStruct(&req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := sc.shutdownService.ExecuteShutdown(c.Request.Context(), actor, req.Token, req.Reason)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to execute shutdown")
		return
	}

	utils.SuccessResponse(c, result.Message, result)
}

// =================== SYSTEM STATUS ===================

// GetSystemStatus returns the system status and shutdown flow state
func (sc *ShutdownController) GetSystemStatus(c *gin.Context) {
	status, err := sc.shutdownService.GetSystemStatus(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to get system status")
		return
	}

	utils.SuccessResponse(c, "System status retrieved successfully", status)
}

// SetMaintenanceMode switches between operational and maintenance
func (sc *ShutdownController) SetMaintenanceMode(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.MaintenanceModeRequest
	if !bindAndValidate(c, sc.validator, &req) {
		return
	}

	status, err := sc.shutdownService.SetMaintenanceMode(c.Request.Context(), actor, req.Enabled, req.Message)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to change maintenance mode")
		return
	}

	utils.SuccessResponse(c, "Maintenance mode updated", status)
}
