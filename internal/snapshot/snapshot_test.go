package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"marketsync/internal/endpoint"
	"marketsync/internal/jsonfile"
	"marketsync/internal/lookup"
)

func newWriter(t *testing.T) *Writer {
	t.Helper()
	return &Writer{DataDir: t.TempDir(), Log: zerolog.Nop()}
}

func TestWriteLatest_PlainAndStock(t *testing.T) {
	w := newWriter(t)
	gold := endpoint.Descriptor{Name: "gold", OutputFile: "gold.json"}
	tse := endpoint.Descriptor{Name: "tse_ifb_symbols", OutputFile: "tse_ifb_symbols.json", StockData: true}

	require.NoError(t, w.WriteLatest(gold, map[string]any{"gold": []any{}}))
	require.NoError(t, w.WriteLatest(tse, []any{}))

	require.FileExists(t, filepath.Join(w.DataDir, "gold.json"))
	require.FileExists(t, filepath.Join(w.DataDir, StockSubdir, "tse_ifb_symbols.json"))
}

func TestConsolidate(t *testing.T) {
	w := newWriter(t)
	require.NoError(t, jsonfile.Write(filepath.Join(w.DataDir, "gold.json"), map[string]any{"gold": []any{}}, ""))
	require.NoError(t, jsonfile.Write(filepath.Join(w.DataDir, "currency.json"), map[string]any{"currency": []any{}}, ""))
	// Previously written outputs and garbage must not be re-ingested.
	require.NoError(t, jsonfile.Write(filepath.Join(w.DataDir, ConsolidatedFile), map[string]any{"stale": true}, ""))
	require.NoError(t, jsonfile.Write(filepath.Join(w.DataDir, LiteFile), map[string]any{}, ""))
	require.NoError(t, os.WriteFile(filepath.Join(w.DataDir, "broken.json"), []byte("{"), 0o644))

	merged, err := w.Consolidate()
	require.NoError(t, err)
	require.Len(t, merged, 2)
	require.Contains(t, merged, "gold")
	require.Contains(t, merged, "currency")

	var onDisk map[string]any
	require.NoError(t, jsonfile.Read(filepath.Join(w.DataDir, ConsolidatedFile), &onDisk))
	require.NotContains(t, onDisk, "stale")
	require.NotContains(t, onDisk, "lite")
	require.NotContains(t, onDisk, "broken")
}

func TestConsolidate_EmptyDirWritesNothing(t *testing.T) {
	w := newWriter(t)
	merged, err := w.Consolidate()
	require.NoError(t, err)
	require.Empty(t, merged)
	require.NoFileExists(t, filepath.Join(w.DataDir, ConsolidatedFile))
}

func TestWriteLite(t *testing.T) {
	w := newWriter(t)
	consolidated := map[string]any{
		"currency": map[string]any{
			"currency": []any{
				map[string]any{"symbol": "USD", "price": 1.0},
				map[string]any{"symbol": "EUR", "price": 1.1},
			},
		},
		"crypto": []any{
			map[string]any{"name": "Bitcoin", "price": 50000.0},
		},
	}
	assets := []lookup.LiteAsset{
		{Symbol: "USD", Category: "currency", SymbolKey: "symbol"},
		{Symbol: "Bitcoin", Category: "crypto", SymbolKey: "name"},
		{Symbol: "MISSING", Category: "crypto", SymbolKey: "name"},
		{Symbol: "", Category: "x", SymbolKey: ""}, // invalid entry skipped
	}
	require.NoError(t, w.WriteLite(assets, consolidated))

	var lite map[string][]map[string]any
	require.NoError(t, jsonfile.Read(filepath.Join(w.DataDir, LiteFile), &lite))
	require.Len(t, lite["currency"], 1)
	require.Equal(t, "USD", lite["currency"][0]["symbol"])
	require.Len(t, lite["crypto"], 1)
}

func TestWriteLite_NoAssetsSkipsFile(t *testing.T) {
	w := newWriter(t)
	require.NoError(t, w.WriteLite(nil, map[string]any{}))
	require.NoFileExists(t, filepath.Join(w.DataDir, LiteFile))
}
