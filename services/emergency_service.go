package services

import (
	"context"
	"eventops/interfaces"
	"eventops/models"
	"eventops/utils"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Emergency update actions carried on the realtime channel.
const (
	EmergencyActionActivated       = "activated"
	EmergencyActionDeactivated     = "deactivated"
	EmergencyActionCategoryBlocked = "category_blocked"
)

type EmergencyService struct {
	events    interfaces.EventRepository
	gates     interfaces.GateRepository
	staff     interfaces.StaffDirectory
	alerts    *AlertService
	audit     *AuditService
	publisher interfaces.Publisher
	clock     utils.Clock

	locks        *keyedMutex
	pending      sync.WaitGroup
	alertTimeout time.Duration
}

func NewEmergencyService(
	events interfaces.EventRepository,
	gates interfaces.GateRepository,
	staff interfaces.StaffDirectory,
	alerts *AlertService,
	audit *AuditService,
	publisher interfaces.Publisher,
	clock utils.Clock,
) *EmergencyService {
	return &EmergencyService{
		events:       events,
		gates:        gates,
		staff:        staff,
		alerts:       alerts,
		audit:        audit,
		publisher:    publisher,
		clock:        clock,
		locks:        newKeyedMutex(),
		alertTimeout: 2 * time.Minute,
	}
}

// =================== EMERGENCY STATE ===================

func (es *EmergencyService) GetEmergencyState(ctx context.Context, eventID string) (*models.EmergencyState, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, utils.NewInvalidArgumentError("Event ID is required")
	}

	event, err := es.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get event")
	}

	state := event.Config.EmergencyState.Clone()
	return &state, nil
}

// ActivateEmergency moves the event from normal to emergency. Only one
// activation per event can win; the loser gets a CONFLICT.
func (es *EmergencyService) ActivateEmergency(ctx context.Context, actor models.Identity, eventID string, req models.ActivateEmergencyRequest) (*models.EmergencyState, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, utils.NewInvalidArgumentError("Event ID is required")
	}
	if !models.IsValidEmergencyType(req.Type) {
		return nil, utils.NewInvalidArgumentError(fmt.Sprintf("Unknown emergency type %q", req.Type))
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, utils.NewInvalidArgumentError("Emergency reason is required")
	}

	unlock := es.locks.Lock(eventID)
	defer unlock()

	event, err := es.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get event")
	}
	if event.Config.EmergencyState.IsActive {
		return nil, utils.NewConflictError("An emergency is already active for this event")
	}

	restrictions := req.Restrictions.ToRestrictions()
	state := models.EmergencyState{
		IsActive:      true,
		Type:          req.Type,
		Reason:        reason,
		ActivatedAt:   es.clock.Now(),
		ActivatedBy:   actor.UserID,
		AffectedAreas: req.NormalizedAreas(),
		Restrictions:  restrictions,
	}

	checkinsEnabled := event.Config.CheckinsEnabled && !restrictions.CheckinsDisabled
	if err := es.events.ActivateEmergency(ctx, eventID, state, checkinsEnabled); err != nil {
		return nil, utils.WrapDatabaseError(err, "activate emergency")
	}

	logger := logrus.WithFields(logrus.Fields{
		"eventId": eventID,
		"actor":   actor.UserID,
		"type":    state.Type,
	})
	logger.Warn("Emergency activated")

	for _, gateID := range restrictions.ClosedGates {
		es.closeGateForEmergency(ctx, actor, eventID, gateID)
	}

	es.audit.Record(ctx, eventID, models.AuditEmergencyActivated, actor, map[string]interface{}{
		"type":          state.Type,
		"reason":        state.Reason,
		"affectedAreas": state.AffectedAreas,
		"restrictions":  state.Restrictions,
	})

	es.publishEmergencyUpdate(eventID, EmergencyActionActivated, state, actor)

	es.dispatchAlert(models.Alert{
		EventID:  eventID,
		From:     actor,
		Subject:  fmt.Sprintf("EMERGENCY: %s", strings.ToUpper(state.Type)),
		Body:     fmt.Sprintf("Emergency declared at %s: %s", event.Name, state.Reason),
		Priority: models.AlertPriorityUrgent,
	})

	out := state.Clone()
	return &out, nil
}

// DeactivateEmergency clears the emergency. Clearing an event that has no
// active emergency, or that does not exist, is a successful no-op.
func (es *EmergencyService) DeactivateEmergency(ctx context.Context, actor models.Identity, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return utils.NewInvalidArgumentError("Event ID is required")
	}

	unlock := es.locks.Lock(eventID)
	defer unlock()

	event, err := es.events.GetByID(ctx, eventID)
	if err != nil {
		if utils.IsKind(err, utils.ErrCodeNotFound) {
			logrus.WithField("eventId", eventID).Debug("Deactivation requested for unknown event")
			return nil
		}
		return utils.WrapDatabaseError(err, "get event")
	}

	previous := event.Config.EmergencyState.Clone()

	cleared, err := es.events.ClearEmergency(ctx, eventID)
	if err != nil {
		if utils.IsKind(err, utils.ErrCodeNotFound) {
			return nil
		}
		return utils.WrapDatabaseError(err, "clear emergency")
	}
	if !cleared {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"eventId": eventID,
		"actor":   actor.UserID,
	}).Info("Emergency deactivated")

	// The audit entry is the record of the cleared restrictions.
	es.audit.Record(ctx, eventID, models.AuditEmergencyDeactivated, actor, map[string]interface{}{
		"previousState": previous,
		"activeFor":     utils.FormatDuration(es.clock.Now().Sub(previous.ActivatedAt)),
	})

	es.publishEmergencyUpdate(eventID, EmergencyActionDeactivated, models.InactiveEmergencyState(), actor)

	es.dispatchAlert(models.Alert{
		EventID:  eventID,
		From:     actor,
		Subject:  "Emergency cleared",
		Body:     fmt.Sprintf("The %s emergency at %s has been cleared. Normal operations resume.", previous.Type, event.Name),
		Priority: models.AlertPriorityHigh,
	})

	return nil
}

// BlockCategory adds category to the active emergency's blocked set.
func (es *EmergencyService) BlockCategory(ctx context.Context, actor models.Identity, eventID, category string) (*models.EmergencyState, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, utils.NewInvalidArgumentError("Event ID is required")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, utils.NewInvalidArgumentError("Category is required")
	}

	unlock := es.locks.Lock(eventID)
	defer unlock()

	event, err := es.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get event")
	}
	if !event.Config.EmergencyState.IsActive {
		return nil, utils.NewConflictError("No active emergency for this event")
	}
	alreadyBlocked := event.Config.EmergencyState.HasBlockedCategory(category)

	state, err := es.events.AddBlockedCategory(ctx, eventID, category)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "block category")
	}
	if alreadyBlocked {
		return state, nil
	}

	logrus.WithFields(logrus.Fields{
		"eventId":  eventID,
		"actor":    actor.UserID,
		"category": category,
	}).Info("Ticket category blocked")

	es.audit.Record(ctx, eventID, models.AuditCategoryBlocked, actor, map[string]interface{}{
		"category": category,
	})

	es.publishEmergencyUpdate(eventID, EmergencyActionCategoryBlocked, *state, actor)

	es.dispatchAlert(models.Alert{
		EventID:  eventID,
		From:     actor,
		Subject:  "Ticket category blocked",
		Body:     fmt.Sprintf("Check-ins for ticket category %q are blocked until further notice.", category),
		Priority: models.AlertPriorityHigh,
	})

	return state, nil
}

// CloseGate closes a gate regardless of emergency state. Unknown or already
// closed gates are a successful no-op.
func (es *EmergencyService) CloseGate(ctx context.Context, actor models.Identity, gateID string) error {
	if strings.TrimSpace(gateID) == "" {
		return utils.NewInvalidArgumentError("Gate ID is required")
	}

	gate, err := es.gates.GetByID(ctx, gateID)
	if err != nil {
		if utils.IsKind(err, utils.ErrCodeNotFound) {
			logrus.WithField("gateId", gateID).Debug("Close requested for unknown gate")
			return nil
		}
		return utils.WrapDatabaseError(err, "get gate")
	}

	unlock := es.locks.Lock(gate.EventID)
	defer unlock()

	changed, err := es.closeGate(ctx, actor, gate)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	es.dispatchAlert(models.Alert{
		EventID:  gate.EventID,
		From:     actor,
		Subject:  "Gate closed",
		Body:     fmt.Sprintf("Gate %s is now closed. Redirect attendees to the nearest open gate.", gateLabel(gate)),
		Priority: models.AlertPriorityHigh,
	})

	return nil
}

// closeGate closes gate and emits its audit entry and realtime update.
// The caller holds the event lock.
func (es *EmergencyService) closeGate(ctx context.Context, actor models.Identity, gate *models.Gate) (bool, error) {
	now := es.clock.Now()
	changed, err := es.gates.Close(ctx, gate.ID, now)
	if err != nil {
		if utils.IsKind(err, utils.ErrCodeNotFound) {
			return false, nil
		}
		return false, utils.WrapDatabaseError(err, "close gate")
	}
	if !changed {
		return false, nil
	}

	gate.Status = models.GateStatusClosed
	gate.UpdatedAt = now

	logrus.WithFields(logrus.Fields{
		"eventId": gate.EventID,
		"gateId":  gate.ID,
		"actor":   actor.UserID,
	}).Info("Gate closed")

	es.audit.Record(ctx, gate.EventID, models.AuditGateClosed, actor, map[string]interface{}{
		"gateId":   gate.ID,
		"gateName": gate.Name,
	})

	es.publisher.Publish(models.WSMessage{
		Type:    models.WSTypeGateStatus,
		EventID: gate.EventID,
		Data: models.WSGateUpdate{
			Gate:  *gate,
			Actor: actor.UserID,
		},
		Timestamp: now,
	})

	return true, nil
}

// closeGateForEmergency closes a gate listed in an activation's restrictions.
// Failures are logged; the activation itself already succeeded.
func (es *EmergencyService) closeGateForEmergency(ctx context.Context, actor models.Identity, eventID, gateID string) {
	logger := logrus.WithFields(logrus.Fields{
		"eventId": eventID,
		"gateId":  gateID,
	})

	gate, err := es.gates.GetByID(ctx, gateID)
	if err != nil {
		logger.WithError(err).Warn("Could not close gate listed in emergency restrictions")
		return
	}
	if gate.EventID != eventID {
		logger.Warn("Gate listed in emergency restrictions belongs to another event")
		return
	}

	if _, err := es.closeGate(ctx, actor, gate); err != nil {
		logger.WithError(err).Warn("Could not close gate listed in emergency restrictions")
	}
}

// =================== EXPORT ===================

const snapshotHistoryLimit = 50

// ExportSnapshot returns a read-only view of the event's emergency state with
// capacity, gates, staff roster and the recent audit trail.
func (es *EmergencyService) ExportSnapshot(ctx context.Context, eventID string) (*models.EmergencySnapshot, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, utils.NewInvalidArgumentError("Event ID is required")
	}

	event, err := es.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get event")
	}

	gates, err := es.gates.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list gates")
	}

	staff, err := es.staff.ActiveStaff(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list staff")
	}

	history, err := es.audit.History(ctx, eventID, snapshotHistoryLimit)
	if err != nil {
		logrus.WithField("eventId", eventID).WithError(err).Warn("Exporting snapshot without audit history")
		history = nil
	}

	return &models.EmergencySnapshot{
		EventID:        event.ID,
		EventName:      event.Name,
		EmergencyState: event.Config.EmergencyState.Clone(),
		Capacity:       models.NewCapacityMetrics(event.Config),
		Gates:          gates,
		Staff:          staff,
		History:        history,
		ExportedAt:     es.clock.Now(),
	}, nil
}

// =================== ALERTS ===================

// BroadcastAlert sends an operator-written alert to the event's active staff
// and waits for the fan-out result.
func (es *EmergencyService) BroadcastAlert(ctx context.Context, actor models.Identity, eventID string, req models.BroadcastAlertRequest) (*models.BroadcastResult, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, utils.NewInvalidArgumentError("Event ID is required")
	}

	event, err := es.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "get event")
	}

	return es.alerts.Broadcast(ctx, models.Alert{
		EventID:  event.ID,
		From:     actor,
		Body:     req.Message,
		Priority: req.Priority,
	})
}

// Wait blocks until all in-flight alert fan-outs have finished.
func (es *EmergencyService) Wait() {
	es.pending.Wait()
}

func (es *EmergencyService) dispatchAlert(alert models.Alert) {
	es.pending.Add(1)
	go func() {
		defer es.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), es.alertTimeout)
		defer cancel()

		result, err := es.alerts.Broadcast(ctx, alert)
		if err != nil {
			logrus.WithField("eventId", alert.EventID).WithError(err).Error("Emergency alert fan-out failed")
			return
		}
		if result.Failed > 0 {
			logrus.WithFields(logrus.Fields{
				"eventId":   alert.EventID,
				"delivered": result.Delivered,
				"failed":    result.Failed,
			}).Warn("Emergency alert partially delivered")
		}
	}()
}

func (es *EmergencyService) publishEmergencyUpdate(eventID, action string, state models.EmergencyState, actor models.Identity) {
	es.publisher.Publish(models.WSMessage{
		Type:    models.WSTypeEmergencyState,
		EventID: eventID,
		Data: models.WSEmergencyUpdate{
			EventID:        eventID,
			Action:         action,
			EmergencyState: state.Clone(),
			Actor:          actor.UserID,
		},
		Timestamp: es.clock.Now(),
	})
}

func gateLabel(gate *models.Gate) string {
	if gate.Name != "" {
		return gate.Name
	}
	return gate.ID
}
