package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var tradingDays = []time.Weekday{
	time.Saturday, time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
}

func tehranHours(t *testing.T) Hours {
	t.Helper()
	h, err := New("Asia/Tehran", "08:30", "12:45", tradingDays)
	require.NoError(t, err)
	return h
}

func TestIsOpen_ClosedOutsideTradingDays(t *testing.T) {
	h := tehranHours(t)
	// 2025-01-03 is a Friday; closed at any time of day.
	for _, hour := range []int{0, 9, 12, 23} {
		now := time.Date(2025, 1, 3, hour, 0, 0, 0, h.Location)
		require.False(t, h.IsOpen(now), "hour=%d", hour)
	}
}

func TestIsOpen_Bounds(t *testing.T) {
	h := tehranHours(t)
	// 2025-01-04 is a Saturday, a trading day.
	day := func(hh, mm int) time.Time {
		return time.Date(2025, 1, 4, hh, mm, 0, 0, h.Location)
	}
	require.False(t, h.IsOpen(day(8, 29)))
	require.True(t, h.IsOpen(day(8, 30)), "open bound is inclusive")
	require.True(t, h.IsOpen(day(12, 44)))
	require.False(t, h.IsOpen(day(12, 45)), "close bound is exclusive")
}

func TestIsOpen_ConvertsToLocation(t *testing.T) {
	h := tehranHours(t)
	// 06:00 UTC on a Saturday is 09:30 in Tehran, inside the session.
	now := time.Date(2025, 1, 4, 6, 0, 0, 0, time.UTC)
	require.True(t, h.IsOpen(now))
}

func TestIsOpen_FailSafe(t *testing.T) {
	h := Hours{Open: Clock{8, 30}, Close: Clock{12, 45}, Days: tradingDays}
	require.False(t, h.IsOpen(time.Now()), "nil location must resolve to closed")

	_, err := New("Not/AZone", "08:30", "12:45", tradingDays)
	require.Error(t, err)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:30")
	require.NoError(t, err)
	require.Equal(t, Clock{8, 30}, c)

	_, err = ParseClock("25:00")
	require.Error(t, err)
	_, err = ParseClock("bogus")
	require.Error(t, err)
}
