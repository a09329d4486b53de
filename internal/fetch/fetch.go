// Package fetch retrieves raw endpoint payloads from the upstream market
// data provider with a bounded-concurrency fanout.
package fetch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"marketsync/internal/endpoint"
	"marketsync/internal/ratelimit"
)

// Result carries the outcome for one endpoint. Exactly one of Data and
// Err is meaningful.
type Result struct {
	Endpoint endpoint.Descriptor
	Data     any
	Err      error
}

// Orchestrator fans a batch of endpoint fetches out over at most Limit
// concurrent requests. A failing endpoint never blocks or cancels its
// siblings.
type Orchestrator struct {
	Client  *Client
	Limit   int64
	Limiter ratelimit.Limiter
	Log     zerolog.Logger
}

// FetchAll fetches every descriptor and returns one Result per input, in
// input order. The context bounds the whole batch; each request also
// carries the client's own per-request timeout.
func (o *Orchestrator) FetchAll(ctx context.Context, eps []endpoint.Descriptor) []Result {
	limit := o.Limit
	if limit <= 0 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)
	results := make([]Result, len(eps))
	done := make(chan struct{})

	for i, d := range eps {
		go func(i int, d endpoint.Descriptor) {
			defer func() { done <- struct{}{} }()
			res := Result{Endpoint: d}
			if err := sem.Acquire(ctx, 1); err != nil {
				res.Err = err
				results[i] = res
				return
			}
			defer sem.Release(1)
			if o.Limiter != nil {
				if err := o.Limiter.Wait(ctx); err != nil {
					res.Err = err
					results[i] = res
					return
				}
			}
			start := time.Now()
			res.Data, res.Err = o.Client.Get(ctx, d)
			ev := o.Log.Debug()
			if res.Err != nil {
				ev = o.Log.Warn().Err(res.Err)
			}
			ev.Str("endpoint", d.Name).Dur("elapsed", time.Since(start)).Msg("fetched")
			results[i] = res
		}(i, d)
	}
	for range eps {
		<-done
	}
	return results
}
