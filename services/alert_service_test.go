package services

import (
	"context"
	"errors"
	"eventops/models"
	"eventops/repositories/memory"
	"eventops/utils"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRoster(t *testing.T) *memory.StaffStore {
	t.Helper()
	staff := memory.NewStaffStore()
	ctx := context.Background()
	for _, m := range []models.StaffMember{
		{ID: "stf-1", EventID: testEventID, UserID: "usr-1", IsActive: true},
		{ID: "stf-2", EventID: testEventID, UserID: "usr-2", IsActive: true},
		{ID: "stf-3", EventID: testEventID, UserID: "usr-3", IsActive: true},
	} {
		require.NoError(t, staff.Put(ctx, m))
	}
	return staff
}

func staffWithID(id string) interface{} {
	return mock.MatchedBy(func(m models.StaffMember) bool { return m.ID == id })
}

func TestBroadcast_PartialFailure(t *testing.T) {
	mailbox := new(MockMailbox)
	mailbox.On("Deliver", mock.Anything, operatorIdentity, staffWithID("stf-1"), mock.Anything, "Evacuate east stand", models.AlertPriorityUrgent).Return(nil)
	mailbox.On("Deliver", mock.Anything, operatorIdentity, staffWithID("stf-2"), mock.Anything, "Evacuate east stand", models.AlertPriorityUrgent).Return(errors.New("mailbox full"))
	mailbox.On("Deliver", mock.Anything, operatorIdentity, staffWithID("stf-3"), mock.Anything, "Evacuate east stand", models.AlertPriorityUrgent).Return(nil)

	service := NewAlertService(newRoster(t), mailbox, AlertServiceConfig{Workers: 2, DeliveryTimeout: time.Second})

	result, err := service.Broadcast(context.Background(), models.Alert{
		EventID:  testEventID,
		From:     operatorIdentity,
		Body:     "Evacuate east stand",
		Priority: models.AlertPriorityUrgent,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stf-2", result.Failures[0].StaffID)
	assert.Equal(t, "mailbox full", result.Failures[0].Error)
	mailbox.AssertNumberOfCalls(t, "Deliver", 3)
}

func TestBroadcast_DefaultsAndValidation(t *testing.T) {
	mailbox := new(MockMailbox)
	mailbox.On("Deliver", mock.Anything, mock.Anything, mock.Anything, "Event alert", "Gates open late", models.AlertPriorityNormal).Return(nil)

	service := NewAlertService(newRoster(t), mailbox, AlertServiceConfig{})

	result, err := service.Broadcast(context.Background(), models.Alert{
		EventID: testEventID,
		From:    operatorIdentity,
		Body:    "Gates open late",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Delivered)

	_, err = service.Broadcast(context.Background(), models.Alert{EventID: testEventID, Body: "  "})
	assert.True(t, utils.IsKind(err, utils.ErrCodeInvalidArgument))

	_, err = service.Broadcast(context.Background(), models.Alert{EventID: testEventID, Body: "x", Priority: "critical"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeInvalidArgument))
}

func TestBroadcast_RecoversFromPanickingDelivery(t *testing.T) {
	mailbox := new(MockMailbox)
	mailbox.On("Deliver", mock.Anything, mock.Anything, staffWithID("stf-1"), mock.Anything, mock.Anything, mock.Anything).Panic("driver bug")
	mailbox.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := NewAlertService(newRoster(t), mailbox, AlertServiceConfig{Workers: 1})

	result, err := service.Broadcast(context.Background(), models.Alert{EventID: testEventID, Body: "Check radios"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 1, result.Failed)
}

func TestBroadcast_EmptyRoster(t *testing.T) {
	service := NewAlertService(memory.NewStaffStore(), new(MockMailbox), AlertServiceConfig{})

	result, err := service.Broadcast(context.Background(), models.Alert{EventID: testEventID, Body: "Anyone?"})
	require.NoError(t, err)
	assert.Zero(t, result.Attempted)
	assert.Zero(t, result.Delivered)
}
