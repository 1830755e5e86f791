package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"eventops/middleware"
	"eventops/models"
	"eventops/repositories/memory"
	"eventops/services"
	"eventops/utils"
	"eventops/websocket"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret   = "test-secret"
	testAdminSecret = "open sesame"
)

var (
	testAdmin    = models.Identity{UserID: "usr-admin", Role: models.RoleAdmin}
	testOperator = models.Identity{UserID: "usr-operator", Role: models.RoleOperator}
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

type shutdownTestServer struct {
	router *gin.Engine
	jwt    *utils.JWTService
	clock  *manualClock
}

func newShutdownTestServer(t *testing.T) *shutdownTestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	binding.EnableDecoderDisallowUnknownFields = true

	passwords := utils.NewPasswordServiceWithCost(bcrypt.MinCost)
	hash, err := passwords.HashPassword(testAdminSecret)
	require.NoError(t, err)

	users := memory.NewUserStore()
	require.NoError(t, users.Put(context.Background(), models.User{
		ID:                 testAdmin.UserID,
		Role:               models.RoleAdmin,
		IsActive:           true,
		ShutdownSecretHash: hash,
	}))

	clock := &manualClock{now: time.Now().UTC()}
	authorizer := services.NewRoleAuthorizer()
	shutdownService := services.NewShutdownService(
		memory.NewTokenStore(),
		memory.NewStatusStore(),
		services.NewCredentialService(users, passwords),
		authorizer,
		services.NewAuditService(memory.NewAuditLog(), clock),
		websocket.NewHub(),
		clock,
		services.ShutdownServiceConfig{},
	)

	jwtService := utils.NewJWTService(testJWTSecret)
	auth := middleware.NewAuthMiddleware(jwtService, authorizer)
	controller := NewShutdownController(shutdownService, utils.NewValidationService())

	router := gin.New()
	api := router.Group("/api/v1", auth.RequireAuth())
	api.GET("/system/status", controller.GetSystemStatus)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.POST("/shutdown/tokens", controller.IssueToken)
	admin.POST("/shutdown/verify", controller.VerifyCredentials)
	admin.POST("/shutdown/execute", controller.ExecuteShutdown)
	admin.PUT("/system/maintenance", controller.SetMaintenanceMode)

	return &shutdownTestServer{router: router, jwt: jwtService, clock: clock}
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *models.APIError `json:"error"`
}

func (s *shutdownTestServer) do(t *testing.T, identity models.Identity, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, _, err := s.jwt.GenerateAccessToken(identity)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func (s *shutdownTestServer) issueToken(t *testing.T, ttlMinutes int) string {
	t.Helper()
	code, env := s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/tokens", gin.H{"ttlMinutes": ttlMinutes})
	require.Equal(t, http.StatusCreated, code)

	var issued models.IssueShutdownTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	require.NotEmpty(t, issued.Token)
	return issued.Token
}

func TestShutdownController_FullProtocol(t *testing.T) {
	s := newShutdownTestServer(t)
	token := s.issueToken(t, 10)

	code, env := s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/verify", gin.H{
		"token":  token,
		"secret": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, utils.ErrCodePermissionDenied, env.Error.Code)
	var rejected models.VerifyShutdownResponse
	require.NoError(t, json.Unmarshal(env.Data, &rejected))
	assert.False(t, rejected.Verified)
	assert.Equal(t, services.ReasonInvalidCredentials, rejected.Reason)

	code, env = s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/verify", gin.H{
		"token":  token,
		"secret": testAdminSecret,
	})
	require.Equal(t, http.StatusOK, code)
	var verified models.VerifyShutdownResponse
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.True(t, verified.Verified)

	code, _ = s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/execute", gin.H{
		"token":  token,
		"reason": "Venue evacuation",
	})
	assert.Equal(t, http.StatusBadRequest, code, "irreversible confirmation is required")

	code, env = s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/execute", gin.H{
		"token":               token,
		"reason":              "Venue evacuation",
		"confirmIrreversible": true,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.MessageShutdownExecuted, env.Message)

	code, env = s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/execute", gin.H{
		"token":               token,
		"reason":              "Venue evacuation",
		"confirmIrreversible": true,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.MessageAlreadyShutDown, env.Message)

	code, env = s.do(t, testOperator, http.MethodGet, "/api/v1/system/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status models.SystemStatusView
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, models.SystemStatusShutdown, status.Status)
	assert.Equal(t, models.ShutdownFlowExecuted, status.FlowState)
}

func TestShutdownController_ExpiredToken(t *testing.T) {
	s := newShutdownTestServer(t)
	token := s.issueToken(t, 1)
	s.clock.now = s.clock.now.Add(61 * time.Second)

	code, env := s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/verify", gin.H{
		"token":  token,
		"secret": testAdminSecret,
	})
	assert.Equal(t, http.StatusGone, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, utils.ErrCodeExpired, env.Error.Code)

	var rejected models.VerifyShutdownResponse
	require.NoError(t, json.Unmarshal(env.Data, &rejected))
	assert.Equal(t, services.ReasonTokenExpired, rejected.Reason)
}

func TestShutdownController_RequiresAdministrator(t *testing.T) {
	s := newShutdownTestServer(t)

	code, env := s.do(t, testOperator, http.MethodPost, "/api/v1/admin/shutdown/tokens", gin.H{"ttlMinutes": 10})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)
}

func TestShutdownController_RejectsUnknownFields(t *testing.T) {
	s := newShutdownTestServer(t)

	code, _ := s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/tokens", gin.H{
		"ttlMinutes": 10,
		"scope":      "event",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestShutdownController_TTLAboveMaximum(t *testing.T) {
	s := newShutdownTestServer(t)

	code, env := s.do(t, testAdmin, http.MethodPost, "/api/v1/admin/shutdown/tokens", gin.H{"ttlMinutes": 500})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, utils.ErrCodeInvalidArgument, env.Error.Code)
}

func TestShutdownController_MaintenanceMode(t *testing.T) {
	s := newShutdownTestServer(t)

	code, env := s.do(t, testAdmin, http.MethodPut, "/api/v1/admin/system/maintenance", gin.H{
		"enabled": true,
		"message": "Network work",
	})
	require.Equal(t, http.StatusOK, code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, models.SystemStatusMaintenance, status.Status)
}
