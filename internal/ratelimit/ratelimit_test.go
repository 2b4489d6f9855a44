package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kl := New(tt.rps, tt.burst)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if kl.Allow("chat") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedLimiter_KeysAreIndependent(t *testing.T) {
	kl := New(1, 1)

	assert.True(t, kl.Allow("chat-a"))
	assert.False(t, kl.Allow("chat-a"))

	// A drained bucket for one chat does not affect another.
	assert.True(t, kl.Allow("chat-b"))
}

func TestKeyedLimiter_WaitRespectsContext(t *testing.T) {
	kl := New(0.001, 1)
	require.True(t, kl.Allow("chat"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := kl.Wait(ctx, "chat")
	assert.Error(t, err)
}

func TestKeyedLimiter_WaitAllowsWithinBurst(t *testing.T) {
	kl := New(100, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, kl.Wait(ctx, "chat"))
	require.NoError(t, kl.Wait(ctx, "chat"))
}
