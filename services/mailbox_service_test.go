package services

import (
	"context"
	"errors"
	"eventops/models"
	"eventops/repositories/memory"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectingMessageStore struct{}

func (rejectingMessageStore) Insert(context.Context, *models.StaffMessage) error {
	return errors.New("write refused")
}

func TestMailboxDeliver_StoresMessageWithoutExternalChannels(t *testing.T) {
	store := memory.NewMailbox()
	clock := newFakeClock()
	mailbox := NewMailboxService(store, NewPushService(nil), NewSMSService(nil, ""), clock)

	member := models.StaffMember{
		ID:          "stf-1",
		EventID:     testEventID,
		UserID:      "usr-1",
		Phone:       "+15550000001",
		DeviceToken: "device-token",
	}
	err := mailbox.Deliver(context.Background(), operatorIdentity, member, "Gate closed", "Use south gate", models.AlertPriorityUrgent)
	require.NoError(t, err)

	messages := store.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "stf-1", messages[0].ToStaffID)
	assert.Equal(t, "usr-1", messages[0].ToUserID)
	assert.Equal(t, testEventID, messages[0].EventID)
	assert.Equal(t, clock.Now(), messages[0].DeliveredAt)
	assert.NotEmpty(t, messages[0].ID)
}

func TestMailboxDeliver_StoreFailure(t *testing.T) {
	mailbox := NewMailboxService(rejectingMessageStore{}, nil, nil, newFakeClock())

	err := mailbox.Deliver(context.Background(), operatorIdentity, models.StaffMember{ID: "stf-1"}, "s", "b", models.AlertPriorityNormal)
	assert.Error(t, err)
}

func TestFormatSMSBody(t *testing.T) {
	assert.Equal(t, "hello", formatSMSBody("  hello  "))

	long := formatSMSBody(strings.Repeat("a", 400))
	assert.Len(t, long, maxSMSLength)
	assert.True(t, strings.HasSuffix(long, "..."))

	accented := formatSMSBody(strings.Repeat("é", 200))
	assert.True(t, utf8.ValidString(accented))
	assert.Equal(t, maxSMSLength, utf8.RuneCountInString(accented))
	assert.True(t, strings.HasSuffix(accented, "..."))
}
