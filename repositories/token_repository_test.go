package repositories

import (
	"context"
	"eventops/models"
	"eventops/utils"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedToken(value string, now time.Time) models.ShutdownToken {
	return models.ShutdownToken{
		Token:     value,
		IssuedBy:  "admin-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
}

func TestTokenRepository_ConsumeHasExactlyOneWinner(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewTokenRepository(client)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, issuedToken("tok-race", now)))

	const contenders = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(who string) {
			defer wg.Done()
			won, err := repo.Consume(ctx, "tok-race", who, now)
			assert.NoError(t, err)
			if won {
				mu.Lock()
				wins = append(wins, who)
				mu.Unlock()
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	require.Len(t, wins, 1)

	stored, err := repo.Get(ctx, "tok-race")
	require.NoError(t, err)
	assert.True(t, stored.Consumed)
	assert.Equal(t, wins[0], stored.ConsumedBy)
	assert.True(t, stored.ConsumedAt.Equal(now))
	assert.False(t, stored.Executed)
}

func TestTokenRepository_ConsumeMissingAndRepeated(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewTokenRepository(client)
	ctx := context.Background()
	now := time.Now().UTC()

	won, err := repo.Consume(ctx, "tok-missing", "admin-1", now)
	assert.False(t, won)
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	require.NoError(t, repo.Save(ctx, issuedToken("tok-once", now)))

	won, err = repo.Consume(ctx, "tok-once", "admin-1", now)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.Consume(ctx, "tok-once", "admin-2", now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, won, "second consume must lose")

	stored, err := repo.Get(ctx, "tok-once")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", stored.ConsumedBy, "loser does not overwrite the winner")
}

func TestTokenRepository_SaveRejectsDuplicate(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewTokenRepository(client)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, issuedToken("tok-dup", now)))
	err := repo.Save(ctx, issuedToken("tok-dup", now))
	assert.True(t, utils.IsKind(err, utils.ErrCodeConflict))
}

func TestTokenRepository_DeleteExpiredKeepsConsumed(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewTokenRepository(client)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, repo.Save(ctx, issuedToken("tok-stale", past)))
	require.NoError(t, repo.Save(ctx, issuedToken("tok-used", past)))
	require.NoError(t, repo.Save(ctx, issuedToken("tok-fresh", time.Now().UTC())))

	won, err := repo.Consume(ctx, "tok-used", "admin-1", past)
	require.NoError(t, err)
	require.True(t, won)

	removed, err := repo.DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	tokens, err := repo.List(ctx)
	require.NoError(t, err)
	var values []string
	for _, token := range tokens {
		values = append(values, token.Token)
	}
	assert.ElementsMatch(t, []string{"tok-used", "tok-fresh"}, values)
}
