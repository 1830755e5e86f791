package controllers

import (
	"eventops/middleware"
	"eventops/models"
	"eventops/services"
	"eventops/utils"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type EmergencyController struct {
	emergencyService *services.EmergencyService
	validator        *utils.ValidationService
}

func NewEmergencyController(emergencyService *services.EmergencyService, validator *utils.ValidationService) *EmergencyController {
	return &EmergencyController{
		emergencyService: emergencyService,
		validator:        validator,
	}
}

// =================== EMERGENCY STATE ===================

// GetEmergencyState returns the current emergency state of an event
func (ec *EmergencyController) GetEmergencyState(c *gin.Context) {
	state, err := ec.emergencyService.GetEmergencyState(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to get emergency state")
		return
	}

	utils.SuccessResponse(c, "Emergency state retrieved successfully", state)
}

// ActivateEmergency declares an emergency for an event
func (ec *EmergencyController) ActivateEmergency(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.ActivateEmergencyRequest
	if !bindAndValidate(c, ec.validator, &req) {
		return
	}

	state, err := ec.emergencyService.ActivateEmergency(c.Request.Context(), actor, c.Param("eventId"), req)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to activate emergency")
		return
	}

	utils.CreatedResponse(c, "Emergency activated successfully", state)
}

// DeactivateEmergency clears the emergency of an event
func (ec *EmergencyController) DeactivateEmergency(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := ec.emergencyService.DeactivateEmergency(c.Request.Context(), actor, c.Param("eventId")); err != nil {
		utils.HandleServiceError(c, err, "Failed to deactivate emergency")
		return
	}

	utils.SuccessResponse(c, "Emergency deactivated successfully", nil)
}

// BlockCategory adds a ticket category to the active emergency's block list
func (ec *EmergencyController) BlockCategory(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.BlockCategoryRequest
	if !bindAndValidate(c, ec.validator, &req) {
		return
	}

	state, err := ec.emergencyService.BlockCategory(c.Request.Context(), actor, c.Param("eventId"), req.Category)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to block category")
		return
	}

	utils.SuccessResponse(c, "Category blocked successfully", state)
}

// CloseGate closes a single gate
func (ec *EmergencyController) CloseGate(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := ec.emergencyService.CloseGate(c.Request.Context(), actor, c.Param("gateId")); err != nil {
		utils.HandleServiceError(c, err, "Failed to close gate")
		return
	}

	utils.SuccessResponse(c, "Gate closed successfully", nil)
}

// ExportSnapshot downloads the emergency snapshot as a JSON file
func (ec *EmergencyController) ExportSnapshot(c *gin.Context) {
	eventID := c.Param("eventId")

	snapshot, err := ec.emergencyService.ExportSnapshot(c.Request.Context(), eventID)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to export emergency snapshot")
		return
	}

	filename := fmt.Sprintf("emergency-%s-%s.json", eventID, snapshot.ExportedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.IndentedJSON(http.StatusOK, snapshot)
}

// =================== STAFF ALERTS ===================

// BroadcastAlert sends a message to every active staff member of an event
func (ec *EmergencyController) BroadcastAlert(c *gin.Context) {
	actor, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.BroadcastAlertRequest
	if !bindAndValidate(c, ec.validator, &req) {
		return
	}

	result, err := ec.emergencyService.BroadcastAlert(c.Request.Context(), actor, c.Param("eventId"), req)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to broadcast alert")
		return
	}

	utils.SuccessResponse(c, "Alert broadcast completed", result)
}

// Helper functions

func requireIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return models.Identity{}, false
	}
	return identity, true
}

func bindAndValidate(c *gin.Context, validator *utils.ValidationService, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return false
	}

	if validationErrors := validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}
