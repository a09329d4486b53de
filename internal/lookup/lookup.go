package lookup

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"marketsync/internal/jsonfile"
)

// Dictionary file names, relative to the dictionary directory.
const (
	goldSymbolFile = "gold_symbol_simplify.json"
	marketNameFile = "market_name_mapping.json"
	cryptoNameFile = "crypto_names_fa.json"
	denylistFile   = "blacklist.json"
	liteAssetsFile = "lite_assets.json"
)

// NameEntry is one localized display-name mapping for a symbol.
type NameEntry struct {
	NameFa string `json:"nameFa"`
	NameEn string `json:"nameEn"`
}

// LiteAsset selects one item of the consolidated view for the lite snapshot.
type LiteAsset struct {
	Symbol    string `json:"symbol"`
	Category  string `json:"category"`
	SymbolKey string `json:"symbol_key"`
}

// Tables carries every lookup table the transform pipeline needs. It is
// loaded once per cycle and threaded through the pipeline by reference; no
// package-level state. A missing or malformed file yields an empty table,
// never an error.
type Tables struct {
	GoldSymbols map[string]string
	MarketNames map[string]map[string]NameEntry
	CryptoNames map[string]string
	Denylist    map[string]struct{}
	LiteAssets  []LiteAsset
}

// Load reads all dictionary files from dir.
func Load(dir string, log zerolog.Logger) *Tables {
	t := &Tables{
		GoldSymbols: map[string]string{},
		MarketNames: map[string]map[string]NameEntry{},
		CryptoNames: map[string]string{},
		Denylist:    map[string]struct{}{},
	}
	loadFile(filepath.Join(dir, goldSymbolFile), &t.GoldSymbols, log)
	loadFile(filepath.Join(dir, marketNameFile), &t.MarketNames, log)
	loadFile(filepath.Join(dir, cryptoNameFile), &t.CryptoNames, log)

	var deny []string
	loadFile(filepath.Join(dir, denylistFile), &deny, log)
	for _, name := range deny {
		t.Denylist[name] = struct{}{}
	}

	var lite struct {
		Assets []LiteAsset `json:"assets"`
	}
	loadFile(filepath.Join(dir, liteAssetsFile), &lite, log)
	t.LiteAssets = lite.Assets

	log.Debug().
		Int("gold_symbols", len(t.GoldSymbols)).
		Int("market_names", len(t.MarketNames)).
		Int("crypto_names", len(t.CryptoNames)).
		Int("denylist", len(deny)).
		Int("lite_assets", len(t.LiteAssets)).
		Msg("lookup tables loaded")
	return t
}

func loadFile(path string, v any, log zerolog.Logger) {
	err := jsonfile.Read(path, v)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("file", path).Msg("lookup file absent, using empty table")
	default:
		log.Warn().Err(err).Str("file", path).Msg("lookup file unreadable, using empty table")
	}
}
