// Package cycle runs one end-to-end sync pass: fetch every eligible
// endpoint, transform and persist its snapshot, feed the history store,
// and regenerate the consolidated views.
package cycle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/config"
	"marketsync/internal/endpoint"
	"marketsync/internal/fetch"
	"marketsync/internal/history"
	"marketsync/internal/lookup"
	"marketsync/internal/market"
	"marketsync/internal/snapshot"
	"marketsync/internal/transform"
)

// Summary describes what one cycle did.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

type Runner struct {
	Cfg      config.Config
	Registry []endpoint.Descriptor
	Orch     *fetch.Orchestrator
	Store    *history.Store
	Snap     *snapshot.Writer
	Hours    market.Hours
	Log      zerolog.Logger

	// Now is the cycle clock; nil means time.Now. One reading stamps the
	// whole cycle so every endpoint aggregates against the same reference.
	Now func() time.Time
}

// Run executes a single cycle. The only fatal condition is a missing
// credential pair; every per-endpoint failure is contained, logged, and
// counted in the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	if err := r.Cfg.RequireCredentials(); err != nil {
		return Summary{}, err
	}

	tables := lookup.Load(r.Cfg.Sync.DictionaryDir, r.Log)

	ref := time.Now()
	if r.Now != nil {
		ref = r.Now()
	}
	open := r.Hours.IsOpen(ref)
	eligible := endpoint.Eligible(r.Registry, open)
	r.Log.Info().
		Bool("market_open", open).
		Int("endpoints", len(eligible)).
		Msg("cycle started")

	sum := Summary{Attempted: len(eligible)}
	for _, res := range r.Orch.FetchAll(ctx, eligible) {
		if res.Err != nil {
			sum.Failed++
			r.Log.Error().Err(res.Err).Str("endpoint", res.Endpoint.Name).Msg("endpoint failed")
			continue
		}
		if err := r.process(res.Endpoint, res.Data, tables, ref); err != nil {
			sum.Failed++
			r.Log.Error().Err(err).Str("endpoint", res.Endpoint.Name).Msg("endpoint failed")
			continue
		}
		sum.Succeeded++
	}

	// Regenerating the consolidated views after an all-failure or empty
	// cycle would only republish what is already on disk.
	if sum.Attempted > 0 && (sum.Succeeded > 0 || sum.Failed == 0) {
		if merged, err := r.Snap.Consolidate(); err != nil {
			r.Log.Error().Err(err).Msg("consolidation failed")
		} else if err := r.Snap.WriteLite(tables.LiteAssets, merged); err != nil {
			r.Log.Error().Err(err).Msg("lite snapshot failed")
		}
	}

	sum.Duration = time.Since(start)
	r.Log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.Duration).
		Msg("cycle finished")
	return sum, nil
}

func (r *Runner) process(d endpoint.Descriptor, data any, tables *lookup.Tables, ref time.Time) error {
	data = transform.Apply(d.Transform, data, tables)
	data = transform.FilterDenylist(data, tables.Denylist)

	if err := r.Snap.WriteLatest(d, data); err != nil {
		return err
	}

	recs := transform.ExtractRecords(data, ref)
	if len(recs) > 0 {
		if err := r.Store.AppendRaw(d.Name, recs); err != nil {
			return err
		}
	}
	if len(d.Windows) > 0 {
		if err := r.Store.ComputeAggregates(d.Name, d.Windows, ref); err != nil {
			return err
		}
	}
	return nil
}
