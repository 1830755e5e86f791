package repositories

import (
	"context"
	"eventops/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusAt(status, message string) models.SystemStatus {
	return models.SystemStatus{
		Status:    status,
		Message:   message,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStatusRepository_DefaultsToOperational(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewStatusRepository(client)

	status, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusOperational, status.Status)
	assert.Equal(t, "All systems operational", status.Message)
}

func TestStatusRepository_TransitionRespectsFromSet(t *testing.T) {
	server, client := newTestRedis(t)
	repo := NewStatusRepository(client)
	ctx := context.Background()

	// Unset status counts as operational.
	next := statusAt(models.SystemStatusShuttingDown, "Shutdown initiated")
	current, applied, err := repo.Transition(ctx, []string{models.SystemStatusOperational, models.SystemStatusMaintenance}, next)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, next, current)
	assert.Equal(t, models.SystemStatusShuttingDown, server.HGet(systemStatusKey, "status"))

	blocked := statusAt(models.SystemStatusMaintenance, "Maintenance window")
	current, applied, err = repo.Transition(ctx, []string{models.SystemStatusOperational}, blocked)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.SystemStatusShuttingDown, current.Status, "rejected transition reports the current status")
	assert.Equal(t, "Shutdown initiated", current.Message)

	stored, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, stored, "rejected transition leaves the hash untouched")

	done := statusAt(models.SystemStatusShutdown, "System shut down")
	_, applied, err = repo.Transition(ctx, []string{models.SystemStatusShuttingDown}, done)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestStatusRepository_EmptyFromSetNeverApplies(t *testing.T) {
	server, client := newTestRedis(t)
	repo := NewStatusRepository(client)

	_, applied, err := repo.Transition(context.Background(), nil, statusAt(models.SystemStatusShutdown, "System shut down"))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.False(t, server.Exists(systemStatusKey))
}
