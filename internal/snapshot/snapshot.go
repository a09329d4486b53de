package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"marketsync/internal/endpoint"
	"marketsync/internal/jsonfile"
	"marketsync/internal/lookup"
)

const (
	// ConsolidatedFile merges every per-endpoint snapshot, keyed by endpoint name.
	ConsolidatedFile = "all_market_data.json"
	// LiteFile is the configured subset of the consolidated view.
	LiteFile = "lite.json"
	// StockSubdir holds the latest snapshots of exchange endpoints.
	StockSubdir = "stock"
)

// Writer persists latest-snapshot JSON for external consumers. All writes
// are atomic replaces so a crashed cycle never leaves a torn file behind.
type Writer struct {
	DataDir string
	Compact bool
	Log     zerolog.Logger
}

func (w *Writer) indent() string {
	if w.Compact {
		return ""
	}
	return "    "
}

// WriteLatest persists the transformed payload of one endpoint.
func (w *Writer) WriteLatest(d endpoint.Descriptor, data any) error {
	dir := w.DataDir
	if d.StockData {
		dir = filepath.Join(w.DataDir, StockSubdir)
	}
	if err := jsonfile.Write(filepath.Join(dir, d.OutputFile), data, w.indent()); err != nil {
		return fmt.Errorf("write latest %s: %w", d.Name, err)
	}
	return nil
}

// Consolidate re-reads every per-endpoint snapshot in the data directory
// (deliberately including endpoints not fetched this cycle, so a partially
// failing cycle still publishes the freshest known view) and writes the
// merged object. Unreadable files are skipped. When nothing is found, no
// file is written and an empty map is returned.
func (w *Writer) Consolidate() (map[string]any, error) {
	entries, err := os.ReadDir(w.DataDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	merged := make(map[string]any)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name == ConsolidatedFile || name == LiteFile {
			continue
		}
		var data any
		if err := jsonfile.Read(filepath.Join(w.DataDir, name), &data); err != nil {
			w.Log.Warn().Err(err).Str("file", name).Msg("skipping unreadable snapshot during consolidation")
			continue
		}
		merged[strings.TrimSuffix(name, ".json")] = data
	}
	if len(merged) == 0 {
		w.Log.Warn().Msg("no snapshots to consolidate")
		return merged, nil
	}
	if err := jsonfile.Write(filepath.Join(w.DataDir, ConsolidatedFile), merged, w.indent()); err != nil {
		return merged, fmt.Errorf("write consolidated: %w", err)
	}
	w.Log.Debug().Int("endpoints", len(merged)).Msg("consolidated snapshot written")
	return merged, nil
}

// WriteLite selects the configured assets out of the consolidated view and
// writes the lite snapshot. An empty asset list skips the file; assets that
// cannot be found are logged and skipped.
func (w *Writer) WriteLite(assets []lookup.LiteAsset, consolidated map[string]any) error {
	if len(assets) == 0 {
		w.Log.Debug().Msg("lite asset list empty, skipping lite snapshot")
		return nil
	}
	lite := make(map[string]any)
	found := 0
	for _, a := range assets {
		if a.Symbol == "" || a.Category == "" || a.SymbolKey == "" {
			w.Log.Warn().Interface("asset", a).Msg("invalid lite asset entry")
			continue
		}
		item, ok := findAsset(consolidated[a.Category], a.SymbolKey, a.Symbol)
		if !ok {
			w.Log.Warn().Str("category", a.Category).Str("symbol", a.Symbol).Msg("lite asset not found")
			continue
		}
		bucket, _ := lite[a.Category].([]any)
		lite[a.Category] = append(bucket, item)
		found++
	}
	if found != len(assets) {
		w.Log.Warn().Int("found", found).Int("configured", len(assets)).Msg("lite snapshot is missing assets")
	}
	if err := jsonfile.Write(filepath.Join(w.DataDir, LiteFile), lite, w.indent()); err != nil {
		return fmt.Errorf("write lite: %w", err)
	}
	return nil
}

// findAsset searches a category payload (list, or object of lists) for the
// first item whose key field equals symbol.
func findAsset(category any, key, symbol string) (any, bool) {
	var items []any
	switch v := category.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, inner := range v {
			if lst, ok := inner.([]any); ok {
				items = append(items, lst...)
			}
		}
	default:
		return nil, false
	}
	for _, it := range items {
		if item, ok := it.(map[string]any); ok && item[key] == symbol {
			return item, true
		}
	}
	return nil, false
}
