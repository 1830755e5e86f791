package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	limiter := NewRateLimiter(3, time.Hour)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
	assert.Equal(t, 0, limiter.Remaining())
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter := NewRateLimiter(2, 20*time.Millisecond)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	assert.Eventually(t, limiter.Allow, time.Second, 5*time.Millisecond)
}

func TestServiceErrorKinds(t *testing.T) {
	err := NewExpiredError("token expired")

	assert.True(t, IsKind(err, ErrCodeExpired))
	assert.False(t, IsKind(err, ErrCodeNotFound))

	serviceErr, ok := GetServiceError(WrapDatabaseError(err, "verify"))
	assert.True(t, ok)
	assert.Equal(t, ErrCodeExpired, serviceErr.Code)
}
