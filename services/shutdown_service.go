package services

import (
	"context"
	"eventops/interfaces"
	"eventops/models"
	"eventops/utils"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Verification failure reasons returned to the caller.
const (
	ReasonInvalidToken       = "invalid token"
	ReasonTokenAlreadyUsed   = "token already used"
	ReasonTokenExpired       = "token expired"
	ReasonInvalidCredentials = "invalid credentials"
)

const (
	MessageShutdownExecuted   = "System shutdown executed"
	MessageAlreadyShutDown    = "System is already shut down"
	MessageShutdownInProgress = "System shutdown already in progress"
)

type ShutdownServiceConfig struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// ShutdownService runs the issue, verify, execute protocol for the
// system-wide shutdown. Token table and status live in the injected stores.
type ShutdownService struct {
	tokens      interfaces.TokenStore
	status      interfaces.StatusStore
	credentials *CredentialService
	authorizer  interfaces.Authorizer
	audit       *AuditService
	publisher   interfaces.Publisher
	clock       utils.Clock
	config      ShutdownServiceConfig

	executeMu sync.Mutex
}

func NewShutdownService(
	tokens interfaces.TokenStore,
	status interfaces.StatusStore,
	credentials *CredentialService,
	authorizer interfaces.Authorizer,
	audit *AuditService,
	publisher interfaces.Publisher,
	clock utils.Clock,
	config ShutdownServiceConfig,
) *ShutdownService {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = models.DefaultShutdownTokenTTL
	}
	if config.MaxTTL <= 0 {
		config.MaxTTL = 2 * time.Hour
	}
	return &ShutdownService{
		tokens:      tokens,
		status:      status,
		credentials: credentials,
		authorizer:  authorizer,
		audit:       audit,
		publisher:   publisher,
		clock:       clock,
		config:      config,
	}
}

// =================== TOKENS ===================

// IssueToken creates a new single-use shutdown token. Outstanding tokens are
// left untouched.
func (ss *ShutdownService) IssueToken(ctx context.Context, actor models.Identity, ttlMinutes int) (*models.ShutdownToken, error) {
	if !ss.authorizer.IsAdministrator(actor) {
		return nil, utils.NewPermissionDeniedError("Administrator privileges required")
	}

	// Bound the minutes before multiplying so large values cannot overflow
	// into a negative duration.
	maxMinutes := int(ss.config.MaxTTL / time.Minute)
	if ttlMinutes > maxMinutes {
		return nil, utils.NewInvalidArgumentError(fmt.Sprintf("Token TTL cannot exceed %d minutes", maxMinutes))
	}
	ttl := time.Duration(ttlMinutes) * time.Minute
	if ttlMinutes <= 0 {
		ttl = min(ss.config.DefaultTTL, ss.config.MaxTTL)
	}

	current, err := ss.status.Get(ctx)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get system status")
	}
	if current.Status == models.SystemStatusShutdown {
		return nil, utils.NewConflictError(MessageAlreadyShutDown)
	}

	value, err := utils.GenerateSecureToken(16)
	if err != nil {
		return nil, utils.NewInternalError("Failed to generate shutdown token")
	}

	now := ss.clock.Now()
	token := models.ShutdownToken{
		Token:     value,
		IssuedBy:  actor.UserID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	if err := ss.tokens.Save(ctx, token); err != nil {
		return nil, utils.WrapDatabaseError(err, "save shutdown token")
	}

	logrus.WithFields(logrus.Fields{
		"actor":     actor.UserID,
		"expiresAt": token.ExpiresAt,
	}).Warn("Shutdown token issued")

	ss.audit.Record(ctx, "", models.AuditShutdownTokenIssued, actor, map[string]interface{}{
		"expiresAt":  token.ExpiresAt,
		"ttlMinutes": int(ttl.Minutes()),
	})

	return &token, nil
}

// VerifyCredentials checks the token and the caller's shutdown secret and,
// on success, consumes the token. It never changes the system status.
func (ss *ShutdownService) VerifyCredentials(ctx context.Context, actor models.Identity, req models.VerifyShutdownRequest) (*models.VerifyShutdownResponse, error) {
	if !ss.authorizer.IsAdministrator(actor) {
		return nil, utils.NewPermissionDeniedError("Administrator privileges required")
	}

	now := ss.clock.Now()

	token, err := ss.tokens.Get(ctx, req.Token)
	if err != nil {
		if utils.IsKind(err, utils.ErrCodeNotFound) {
			return ss.rejectVerification(ctx, actor, ReasonInvalidToken,
				utils.NewServiceErrorWithStatus(utils.ErrCodeNotFound, ReasonInvalidToken, http.StatusNotFound))
		}
		return nil, utils.WrapDatabaseError(err, "get shutdown token")
	}

	if token.Consumed {
		return ss.rejectVerification(ctx, actor, ReasonTokenAlreadyUsed, utils.NewAlreadyConsumedError(ReasonTokenAlreadyUsed))
	}
	if token.IsExpiredAt(now) {
		return ss.rejectVerification(ctx, actor, ReasonTokenExpired, utils.NewExpiredError(ReasonTokenExpired))
	}

	ok, err := ss.credentials.Check(ctx, actor.UserID, req.Secret, req.OTPCode, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ss.rejectVerification(ctx, actor, ReasonInvalidCredentials, utils.NewPermissionDeniedError(ReasonInvalidCredentials))
	}

	consumed, err := ss.tokens.Consume(ctx, req.Token, actor.UserID, now)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "consume shutdown token")
	}
	if !consumed {
		return ss.rejectVerification(ctx, actor, ReasonTokenAlreadyUsed, utils.NewAlreadyConsumedError(ReasonTokenAlreadyUsed))
	}

	logrus.WithField("actor", actor.UserID).Warn("Shutdown credentials verified")

	ss.audit.Record(ctx, "", models.AuditShutdownCredentialsVerified, actor, map[string]interface{}{
		"tokenIssuedBy": token.IssuedBy,
	})

	return &models.VerifyShutdownResponse{Verified: true}, nil
}

// rejectVerification audits a failed attempt and returns the response
// alongside kind.
func (ss *ShutdownService) rejectVerification(ctx context.Context, actor models.Identity, reason string, kind error) (*models.VerifyShutdownResponse, error) {
	logrus.WithFields(logrus.Fields{
		"actor":  actor.UserID,
		"reason": reason,
	}).Warn("Shutdown verification rejected")

	ss.audit.Record(ctx, "", models.AuditShutdownVerificationFailed, actor, map[string]interface{}{
		"reason": reason,
	})

	return &models.VerifyShutdownResponse{Verified: false, Reason: reason}, kind
}

// =================== EXECUTION ===================

// ExecuteShutdown moves the system to shutdown using a verified token.
// Repeat calls after a successful execution report success without applying
// any effect again.
func (ss *ShutdownService) ExecuteShutdown(ctx context.Context, actor models.Identity, tokenValue, reason string) (*models.ExecuteShutdownResponse, error) {
	if !ss.authorizer.IsAdministrator(actor) {
		return nil, utils.NewPermissionDeniedError("Administrator privileges required")
	}

	token, err := ss.tokens.Get(ctx, tokenValue)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get shutdown token")
	}
	if !token.Consumed {
		return nil, utils.NewPermissionDeniedError("Shutdown token has not been verified")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, utils.NewInvalidArgumentError("Shutdown reason is required")
	}

	ss.executeMu.Lock()
	defer ss.executeMu.Unlock()

	current, err := ss.status.Get(ctx)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get system status")
	}
	switch current.Status {
	case models.SystemStatusShutdown:
		return &models.ExecuteShutdownResponse{Success: true, Message: MessageAlreadyShutDown}, nil
	case models.SystemStatusShuttingDown:
		return &models.ExecuteShutdownResponse{Success: true, Message: MessageShutdownInProgress}, nil
	}

	now := ss.clock.Now()
	next := models.SystemStatus{
		Status:    models.SystemStatusShutdown,
		Message:   reason,
		UpdatedAt: now,
	}

	// operational|maintenance -> shutting_down -> shutdown is applied as one
	// compare-and-set; the audit entry records both steps.
	after, applied, err := ss.status.Transition(ctx,
		[]string{models.SystemStatusOperational, models.SystemStatusMaintenance}, next)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "transition system status")
	}
	if !applied {
		switch after.Status {
		case models.SystemStatusShutdown:
			return &models.ExecuteShutdownResponse{Success: true, Message: MessageAlreadyShutDown}, nil
		case models.SystemStatusShuttingDown:
			return &models.ExecuteShutdownResponse{Success: true, Message: MessageShutdownInProgress}, nil
		}
		return nil, utils.NewConflictError(fmt.Sprintf("System status changed to %s during shutdown", after.Status))
	}

	if err := ss.tokens.MarkExecuted(ctx, tokenValue); err != nil {
		logrus.WithError(err).Error("Failed to mark shutdown token executed")
	}

	logrus.WithFields(logrus.Fields{
		"actor":  actor.UserID,
		"reason": reason,
		"from":   current.Status,
	}).Warn("System shutdown executed")

	ss.audit.Record(ctx, "", models.AuditSystemShutdownExecuted, actor, map[string]interface{}{
		"reason": reason,
		"transitions": []string{
			current.Status + "->" + models.SystemStatusShuttingDown,
			models.SystemStatusShuttingDown + "->" + models.SystemStatusShutdown,
		},
	})

	ss.publisher.Publish(models.WSMessage{
		Type: models.WSTypeShutdownAlert,
		Data: models.WSShutdownAlert{
			Reason:     reason,
			ExecutedBy: actor.UserID,
			ExecutedAt: now,
			Status:     after,
		},
		Timestamp: now,
	})

	return &models.ExecuteShutdownResponse{Success: true, Message: MessageShutdownExecuted}, nil
}

// =================== STATUS ===================

func (ss *ShutdownService) GetSystemStatus(ctx context.Context) (*models.SystemStatusView, error) {
	current, err := ss.status.Get(ctx)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get system status")
	}

	flow, err := ss.flowState(ctx, current)
	if err != nil {
		return nil, err
	}

	return &models.SystemStatusView{
		SystemStatus: current,
		FlowState:    flow,
	}, nil
}

// flowState derives the global protocol state from the status and the token
// table. Unconsumed tokens past expiry no longer count.
func (ss *ShutdownService) flowState(ctx context.Context, current models.SystemStatus) (string, error) {
	if current.Status == models.SystemStatusShutdown {
		return models.ShutdownFlowExecuted, nil
	}

	tokens, err := ss.tokens.List(ctx)
	if err != nil {
		return "", utils.WrapDatabaseError(err, "list shutdown tokens")
	}

	now := ss.clock.Now()
	flow := models.ShutdownFlowIdle
	for _, t := range tokens {
		switch {
		case t.Consumed && !t.Executed:
			return models.ShutdownFlowCredentialsVerified, nil
		case !t.Consumed && !t.IsExpiredAt(now):
			flow = models.ShutdownFlowTokenIssued
		}
	}
	return flow, nil
}

// SetMaintenanceMode toggles between operational and maintenance. Once a
// shutdown has started the status can no longer change.
func (ss *ShutdownService) SetMaintenanceMode(ctx context.Context, actor models.Identity, enabled bool, message string) (*models.SystemStatus, error) {
	if !ss.authorizer.IsAdministrator(actor) {
		return nil, utils.NewPermissionDeniedError("Administrator privileges required")
	}

	from, to := models.SystemStatusOperational, models.SystemStatusMaintenance
	if !enabled {
		from, to = models.SystemStatusMaintenance, models.SystemStatusOperational
	}

	message = strings.TrimSpace(message)
	if message == "" {
		if enabled {
			message = "Scheduled maintenance"
		} else {
			message = "All systems operational"
		}
	}

	now := ss.clock.Now()
	after, applied, err := ss.status.Transition(ctx, []string{from}, models.SystemStatus{
		Status:    to,
		Message:   message,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "transition system status")
	}
	if !applied {
		if after.Status == to {
			return &after, nil
		}
		return nil, utils.NewConflictError(fmt.Sprintf("Cannot change maintenance mode while system is %s", after.Status))
	}

	logrus.WithFields(logrus.Fields{
		"actor":  actor.UserID,
		"status": to,
	}).Info("System maintenance mode changed")

	ss.audit.Record(ctx, "", models.AuditSystemMaintenanceModeChanged, actor, map[string]interface{}{
		"from":    from,
		"to":      to,
		"message": message,
	})

	ss.publisher.Publish(models.WSMessage{
		Type:      models.WSTypeSystemStatus,
		Data:      after,
		Timestamp: now,
	})

	return &after, nil
}

// SweepExpired deletes unconsumed tokens that expired more than retention ago.
func (ss *ShutdownService) SweepExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := ss.clock.Now().Add(-retention)
	removed, err := ss.tokens.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, utils.WrapDatabaseError(err, "delete expired shutdown tokens")
	}
	return removed, nil
}
