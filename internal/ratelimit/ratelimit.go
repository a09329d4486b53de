package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates outbound requests to the market-data provider. Wait blocks
// until the next request may proceed or the context is canceled.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinInterval enforces a minimum spacing between consecutive requests.
// Concurrent callers queue behind the gate.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	now := time.Now()
	at := m.next
	if at.Before(now) {
		at = now
	}
	m.next = at.Add(m.Interval)
	m.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
