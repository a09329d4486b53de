package endpoint_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/endpoint"
)

func TestURL(t *testing.T) {
	t.Parallel()

	d := endpoint.Descriptor{Path: "/Api/Market/Gold_Currency.php?key={api_key}"}

	url := d.URL("https://provider.test", "secret")
	require.Equal(t, "https://provider.test/Api/Market/Gold_Currency.php?key=secret", url)

	// A trailing slash on the base must not double up.
	url = d.URL("https://provider.test/", "secret")
	require.Equal(t, "https://provider.test/Api/Market/Gold_Currency.php?key=secret", url)
}

func TestEligible(t *testing.T) {
	t.Parallel()

	eps := []endpoint.Descriptor{
		{Name: "always", Enabled: true},
		{Name: "gated", Enabled: true, MarketHours: true},
		{Name: "off", Enabled: false},
		{Name: "off_gated", Enabled: false, MarketHours: true},
	}

	open := endpoint.Eligible(eps, true)
	require.Len(t, open, 2)
	require.Equal(t, "always", open[0].Name)
	require.Equal(t, "gated", open[1].Name)

	closed := endpoint.Eligible(eps, false)
	require.Len(t, closed, 1)
	require.Equal(t, "always", closed[0].Name)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	byName := endpoint.ByName(endpoint.Registry())

	gold, ok := byName["gold"]
	require.True(t, ok)
	require.True(t, gold.Enabled)
	require.False(t, gold.MarketHours)
	require.Len(t, gold.Windows, 5)
	require.Equal(t, endpoint.TransformGoldSymbols, gold.Transform)

	// gold and currency share the upstream path but split the payload.
	require.Equal(t, gold.Path, byName["currency"].Path)
	require.NotEqual(t, gold.OutputFile, byName["currency"].OutputFile)

	tse, ok := byName["tse_ifb_symbols"]
	require.True(t, ok)
	require.True(t, tse.MarketHours)
	require.True(t, tse.StockData)

	// Disabled endpoints stay in the table for future use.
	require.False(t, byName["tse_options"].Enabled)
}

func TestMaxWindow(t *testing.T) {
	t.Parallel()

	ws := []endpoint.Window{
		{Name: "4h", Duration: 4 * time.Hour},
		{Name: "7d", Duration: 7 * 24 * time.Hour},
		{Name: "24h", Duration: 24 * time.Hour},
	}
	require.Equal(t, 7*24*time.Hour, endpoint.MaxWindow(ws))
	require.Equal(t, time.Duration(0), endpoint.MaxWindow(nil))
}
