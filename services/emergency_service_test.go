package services

import (
	"context"
	"encoding/json"
	"eventops/models"
	"eventops/utils"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activateRequest() models.ActivateEmergencyRequest {
	return models.ActivateEmergencyRequest{
		Type:          models.EmergencyTypeSecurity,
		Reason:        "Unattended bag at north entrance",
		AffectedAreas: []string{"north", "north", ""},
		Restrictions: models.RestrictionsRequest{
			CheckinsDisabled:  true,
			ClosedGates:       []string{"gate-north", "gate-foreign", "gate-missing"},
			BlockedCategories: []string{"vip"},
		},
	}
}

func TestActivateEmergency_Success(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	state, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, activateRequest())
	require.NoError(t, err)
	f.service.Wait()

	assert.True(t, state.IsActive)
	assert.Equal(t, models.EmergencyTypeSecurity, state.Type)
	assert.Equal(t, f.clock.Now(), state.ActivatedAt)
	assert.Equal(t, operatorIdentity.UserID, state.ActivatedBy)
	assert.Equal(t, []string{"north"}, state.AffectedAreas)
	assert.Equal(t, []string{"vip"}, state.Restrictions.BlockedCategories)

	event, err := f.events.GetByID(ctx, testEventID)
	require.NoError(t, err)
	assert.True(t, event.Config.EmergencyState.IsActive)
	assert.False(t, event.Config.CheckinsEnabled)

	north, _ := f.gates.GetByID(ctx, "gate-north")
	assert.Equal(t, models.GateStatusClosed, north.Status)
	foreign, _ := f.gates.GetByID(ctx, "gate-foreign")
	assert.Equal(t, models.GateStatusOpen, foreign.Status, "gates of other events stay open")

	assert.Len(t, f.audit.EntriesWithAction(models.AuditEmergencyActivated), 1)
	assert.Len(t, f.audit.EntriesWithAction(models.AuditGateClosed), 1)

	updates := f.publisher.OfType(models.WSTypeEmergencyState)
	require.Len(t, updates, 1)
	assert.Equal(t, testEventID, updates[0].EventID)
	assert.Equal(t, EmergencyActionActivated, updates[0].Data.(models.WSEmergencyUpdate).Action)
	assert.Len(t, f.publisher.OfType(models.WSTypeGateStatus), 1)

	messages := f.mailbox.Messages()
	require.Len(t, messages, 2, "only active staff are alerted")
	for _, m := range messages {
		assert.Equal(t, models.AlertPriorityUrgent, m.Priority)
	}
}

func TestActivateEmergency_KeepsCheckinsWhenNotRestricted(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, models.ActivateEmergencyRequest{
		Type:   models.EmergencyTypeWeather,
		Reason: "Lightning nearby",
	})
	require.NoError(t, err)
	f.service.Wait()

	event, _ := f.events.GetByID(ctx, testEventID)
	assert.True(t, event.Config.CheckinsEnabled)
	assert.Empty(t, event.Config.EmergencyState.Restrictions.ClosedGates)
}

func TestActivateEmergency_AlreadyActive(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, activateRequest())
	require.NoError(t, err)

	_, err = f.service.ActivateEmergency(ctx, adminIdentity, testEventID, activateRequest())
	assert.True(t, utils.IsKind(err, utils.ErrCodeConflict))
	f.service.Wait()

	assert.Len(t, f.audit.EntriesWithAction(models.AuditEmergencyActivated), 1)
	assert.Len(t, f.publisher.OfType(models.WSTypeEmergencyState), 1)
}

func TestActivateEmergency_InvalidInput(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, models.ActivateEmergencyRequest{
		Type:   "alien_invasion",
		Reason: "Unknown",
	})
	assert.True(t, utils.IsKind(err, utils.ErrCodeInvalidArgument))

	_, err = f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, models.ActivateEmergencyRequest{
		Type:   models.EmergencyTypeMedical,
		Reason: "   ",
	})
	assert.True(t, utils.IsKind(err, utils.ErrCodeInvalidArgument))

	_, err = f.service.ActivateEmergency(ctx, operatorIdentity, "evt-unknown", activateRequest())
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	assert.Empty(t, f.audit.Entries())
	assert.Empty(t, f.publisher.OfType(models.WSTypeEmergencyState))
}

func TestActivateEmergency_ConcurrentSingleWinner(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, activateRequest())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if utils.IsKind(err, utils.ErrCodeConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	f.service.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, f.audit.EntriesWithAction(models.AuditEmergencyActivated), 1)
}

func TestDeactivateEmergency(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, activateRequest())
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)

	require.NoError(t, f.service.DeactivateEmergency(ctx, adminIdentity, testEventID))
	f.service.Wait()

	event, _ := f.events.GetByID(ctx, testEventID)
	assert.False(t, event.Config.EmergencyState.IsActive)
	assert.True(t, event.Config.CheckinsEnabled)
	assert.Empty(t, event.Config.EmergencyState.Restrictions.BlockedCategories)

	entries := f.audit.EntriesWithAction(models.AuditEmergencyDeactivated)
	require.Len(t, entries, 1)
	previous := entries[0].Payload["previousState"].(models.EmergencyState)
	assert.Equal(t, []string{"vip"}, previous.Restrictions.BlockedCategories)
	assert.Equal(t, "20m", entries[0].Payload["activeFor"])

	updates := f.publisher.OfType(models.WSTypeEmergencyState)
	require.Len(t, updates, 2)
	assert.Equal(t, EmergencyActionDeactivated, updates[1].Data.(models.WSEmergencyUpdate).Action)
}

func TestDeactivateEmergency_ExportShowsNoResidualRestrictions(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	req := activateRequest()
	req.Restrictions.StaffOnlyMode = true
	_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, req)
	require.NoError(t, err)
	_, err = f.service.BlockCategory(ctx, operatorIdentity, testEventID, "general")
	require.NoError(t, err)

	require.NoError(t, f.service.DeactivateEmergency(ctx, adminIdentity, testEventID))
	f.service.Wait()

	first, err := f.service.ExportSnapshot(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, models.InactiveEmergencyState().Clone(), first.EmergencyState)
	assert.True(t, first.Capacity.CheckinsEnabled)

	require.NoError(t, f.service.DeactivateEmergency(ctx, adminIdentity, testEventID))
	f.service.Wait()

	second, err := f.service.ExportSnapshot(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, first.EmergencyState, second.EmergencyState, "deactivating twice leaves the same state")
	assert.Equal(t, first.Capacity, second.Capacity)
	assert.Len(t, f.audit.EntriesWithAction(models.AuditEmergencyDeactivated), 1)

	raw, err := json.Marshal(second)
	require.NoError(t, err)
	var document map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &document))
	require.Contains(t, document, "emergencyState")
	state := document["emergencyState"].(map[string]interface{})
	assert.Equal(t, false, state["isActive"])
	restrictions := state["restrictions"].(map[string]interface{})
	assert.Equal(t, false, restrictions["staffOnlyMode"])
	assert.Empty(t, restrictions["blockedCategories"])
	assert.Empty(t, restrictions["closedGates"])
}

func TestDeactivateEmergency_NoOps(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	assert.NoError(t, f.service.DeactivateEmergency(ctx, adminIdentity, testEventID))
	assert.NoError(t, f.service.DeactivateEmergency(ctx, adminIdentity, "evt-unknown"))
	f.service.Wait()

	assert.Empty(t, f.audit.Entries())
	assert.Empty(t, f.publisher.OfType(models.WSTypeEmergencyState))
	assert.Empty(t, f.mailbox.Messages())
}

func TestBlockCategory(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	_, err := f.service.BlockCategory(ctx, operatorIdentity, testEventID, "general")
	assert.True(t, utils.IsKind(err, utils.ErrCodeConflict), "blocking requires an active emergency")

	_, err = f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, activateRequest())
	require.NoError(t, err)

	state, err := f.service.BlockCategory(ctx, operatorIdentity, testEventID, "general")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "general"}, state.Restrictions.BlockedCategories)

	state, err = f.service.BlockCategory(ctx, operatorIdentity, testEventID, "general")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "general"}, state.Restrictions.BlockedCategories)
	f.service.Wait()

	assert.Len(t, f.audit.EntriesWithAction(models.AuditCategoryBlocked), 1)

	_, err = f.service.BlockCategory(ctx, operatorIdentity, testEventID, " ")
	assert.True(t, utils.IsKind(err, utils.ErrCodeInvalidArgument))
}

func TestCloseGate(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	require.NoError(t, f.service.CloseGate(ctx, operatorIdentity, "gate-south"))
	require.NoError(t, f.service.CloseGate(ctx, operatorIdentity, "gate-south"))
	require.NoError(t, f.service.CloseGate(ctx, operatorIdentity, "gate-missing"))
	f.service.Wait()

	gate, _ := f.gates.GetByID(ctx, "gate-south")
	assert.Equal(t, models.GateStatusClosed, gate.Status)
	assert.Equal(t, f.clock.Now(), gate.UpdatedAt)

	assert.Len(t, f.audit.EntriesWithAction(models.AuditGateClosed), 1)
	updates := f.publisher.OfType(models.WSTypeGateStatus)
	require.Len(t, updates, 1)
	assert.Equal(t, testEventID, updates[0].EventID)
}

func TestExportSnapshot(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	_, err := f.service.ActivateEmergency(ctx, operatorIdentity, testEventID, activateRequest())
	require.NoError(t, err)
	f.service.Wait()

	snapshot, err := f.service.ExportSnapshot(ctx, testEventID)
	require.NoError(t, err)

	assert.Equal(t, "Arena Night", snapshot.EventName)
	assert.True(t, snapshot.EmergencyState.IsActive)
	assert.Equal(t, 750, snapshot.Capacity.Remaining)
	assert.InDelta(t, 25.0, snapshot.Capacity.UtilizationPct, 0.001)
	assert.False(t, snapshot.Capacity.CheckinsEnabled)
	assert.Len(t, snapshot.Gates, 2)
	assert.Len(t, snapshot.Staff, 2)
	require.NotEmpty(t, snapshot.History)
	assert.Equal(t, models.AuditEmergencyActivated, snapshot.History[0].Action)

	_, err = f.service.ExportSnapshot(ctx, "evt-unknown")
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))
}

func TestBroadcastAlert(t *testing.T) {
	f := newEmergencyFixture()
	ctx := context.Background()

	result, err := f.service.BroadcastAlert(ctx, operatorIdentity, testEventID, models.BroadcastAlertRequest{
		Message: "Hold all queues",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Delivered)
	assert.Zero(t, result.Failed)

	messages := f.mailbox.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.AlertPriorityNormal, messages[0].Priority)
	assert.Equal(t, operatorIdentity.UserID, messages[0].FromUserID)
}

func TestActivateEmergency_AuditFailureDoesNotFailMutation(t *testing.T) {
	f := newEmergencyFixture()
	alerts := NewAlertService(f.staff, f.mailbox, AlertServiceConfig{})
	service := NewEmergencyService(f.events, f.gates, f.staff, alerts, NewAuditService(failingAuditSink{}, f.clock), f.publisher, f.clock)

	state, err := service.ActivateEmergency(context.Background(), operatorIdentity, testEventID, activateRequest())
	require.NoError(t, err)
	service.Wait()

	assert.True(t, state.IsActive)
	assert.Len(t, f.publisher.OfType(models.WSTypeEmergencyState), 1)
}
