package endpoint

import (
	"strings"
	"time"
)

// TransformKind selects which normalization stage applies to an endpoint's
// payload. The set is closed; dispatch happens in transform.Apply.
type TransformKind int

const (
	TransformNone TransformKind = iota
	TransformGoldSymbols
	TransformCurrencySection
	TransformCryptoNames
	TransformMarketNames
	TransformStockDigits
)

// Window is one trailing aggregation interval, e.g. {"4h", 4 * time.Hour}.
type Window struct {
	Name     string
	Duration time.Duration
}

// Descriptor describes one logical market-data endpoint of the upstream
// provider. Descriptors are static configuration: consumed, never mutated.
type Descriptor struct {
	Name        string
	Path        string // relative URL, {api_key} is substituted at request time
	OutputFile  string
	Enabled     bool
	MarketHours bool // fetch only while the exchange is open
	StockData   bool // latest snapshot goes to the stock subdirectory
	Windows     []Window
	Transform   TransformKind
}

// URL builds the full request URL against base with the API key substituted.
func (d Descriptor) URL(base, apiKey string) string {
	path := strings.ReplaceAll(d.Path, "{api_key}", apiKey)
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

var fullWindows = []Window{
	{Name: "4h", Duration: 4 * time.Hour},
	{Name: "12h", Duration: 12 * time.Hour},
	{Name: "24h", Duration: 24 * time.Hour},
	{Name: "3d", Duration: 3 * 24 * time.Hour},
	{Name: "7d", Duration: 7 * 24 * time.Hour},
}

var stockWindows = []Window{
	{Name: "24h", Duration: 24 * time.Hour},
	{Name: "7d", Duration: 7 * 24 * time.Hour},
}

// Registry returns the provider endpoint table.
func Registry() []Descriptor {
	return []Descriptor{
		{
			Name:       "gold",
			Path:       "/Api/Market/Gold_Currency.php?key={api_key}",
			OutputFile: "gold.json",
			Enabled:    true,
			Windows:    fullWindows,
			Transform:  TransformGoldSymbols,
		},
		{
			Name:       "currency",
			Path:       "/Api/Market/Gold_Currency.php?key={api_key}",
			OutputFile: "currency.json",
			Enabled:    true,
			Windows:    fullWindows,
			Transform:  TransformCurrencySection,
		},
		{
			Name:       "crypto",
			Path:       "/Api/Market/Cryptocurrency.php?key={api_key}",
			OutputFile: "cryptocurrency.json",
			Enabled:    true,
			Windows:    fullWindows,
			Transform:  TransformCryptoNames,
		},
		{
			Name:       "commodity",
			Path:       "/Api/Market/Commodity.php?key={api_key}",
			OutputFile: "commodity.json",
			Enabled:    true,
			Windows:    fullWindows,
			Transform:  TransformMarketNames,
		},
		{
			Name:        "tse_ifb_symbols",
			Path:        "/Api/Tsetmc/AllSymbols.php?key={api_key}&type=1",
			OutputFile:  "tse_ifb_symbols.json",
			Enabled:     true,
			MarketHours: true,
			StockData:   true,
			Windows:     stockWindows,
			Transform:   TransformStockDigits,
		},
		{
			Name:        "tse_options",
			Path:        "/Api/Tsetmc/Option.php?key={api_key}",
			OutputFile:  "tse_options.json",
			Enabled:     false,
			MarketHours: true,
			StockData:   true,
		},
		{
			Name:        "tse_nav",
			Path:        "/Api/Tsetmc/Nav.php?key={api_key}",
			OutputFile:  "tse_nav.json",
			Enabled:     false,
			MarketHours: true,
			StockData:   true,
		},
		{
			Name:        "tse_index",
			Path:        "/Api/Tsetmc/Index.php?key={api_key}&type=1",
			OutputFile:  "tse_index.json",
			Enabled:     false,
			MarketHours: true,
			StockData:   true,
		},
		{
			Name:        "ifb_index",
			Path:        "/Api/Tsetmc/Index.php?key={api_key}&type=2",
			OutputFile:  "ifb_index.json",
			Enabled:     false,
			MarketHours: true,
			StockData:   true,
		},
		{
			Name:        "selected_indices",
			Path:        "/Api/Tsetmc/Index.php?key={api_key}&type=3",
			OutputFile:  "selected_indices.json",
			Enabled:     false,
			MarketHours: true,
			StockData:   true,
		},
		{
			Name:        "debt_securities",
			Path:        "/Api/Tsetmc/AllSymbols.php?key={api_key}&type=4",
			OutputFile:  "debt_securities.json",
			Enabled:     true,
			MarketHours: true,
			StockData:   true,
			Windows:     fullWindows,
			Transform:   TransformStockDigits,
		},
		{
			Name:        "housing_facilities",
			Path:        "/Api/Tsetmc/AllSymbols.php?key={api_key}&type=5",
			OutputFile:  "housing_facilities.json",
			Enabled:     true,
			MarketHours: true,
			StockData:   true,
			Windows:     fullWindows,
			Transform:   TransformStockDigits,
		},
		{
			Name:        "futures",
			Path:        "/Api/Tsetmc/AllSymbols.php?key={api_key}&type=3",
			OutputFile:  "futures.json",
			Enabled:     true,
			MarketHours: true,
			StockData:   true,
			Windows:     fullWindows,
			Transform:   TransformStockDigits,
		},
	}
}

// Eligible filters descriptors down to the set fetched this cycle.
// Disabled endpoints are skipped; market-hours endpoints are skipped while
// the exchange is closed.
func Eligible(eps []Descriptor, marketOpen bool) []Descriptor {
	out := make([]Descriptor, 0, len(eps))
	for _, d := range eps {
		if !d.Enabled {
			continue
		}
		if d.MarketHours && !marketOpen {
			continue
		}
		out = append(out, d)
	}
	return out
}

// MaxWindow returns the longest duration among windows; raw records older
// than this relative to the cycle reference time are pruned.
func MaxWindow(ws []Window) time.Duration {
	var max time.Duration
	for _, w := range ws {
		if w.Duration > max {
			max = w.Duration
		}
	}
	return max
}

// ByName indexes descriptors for result correlation.
func ByName(eps []Descriptor) map[string]Descriptor {
	m := make(map[string]Descriptor, len(eps))
	for _, d := range eps {
		m[d.Name] = d
	}
	return m
}
