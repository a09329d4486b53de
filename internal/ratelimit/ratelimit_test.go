package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucket_BurstThenCancel(t *testing.T) {
	tb := NewTokenBucket(0.001, 2)

	ctx := context.Background()
	require.NoError(t, tb.Wait(ctx))
	require.NoError(t, tb.Wait(ctx), "burst capacity admits immediately")

	// Bucket is drained and refills at ~one token per 1000s; a canceled
	// context must unblock the waiter.
	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMinInterval_SpacesRequests(t *testing.T) {
	m := &MinInterval{Interval: 30 * time.Millisecond}
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, m.Wait(ctx))
	require.NoError(t, m.Wait(ctx))
	require.NoError(t, m.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestMinInterval_ZeroIsNoop(t *testing.T) {
	m := &MinInterval{}
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, m.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), time.Second)
}
