package market

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("clock %q out of range", s)
	}
	return c, nil
}

// Hours describes an exchange trading session in a fixed location.
type Hours struct {
	Location *time.Location
	Open     Clock
	Close    Clock
	Days     []time.Weekday
}

// New builds trading hours from configuration strings. The timezone must
// resolve; open/close are "HH:MM".
func New(timezone, open, close string, days []time.Weekday) (Hours, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Hours{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	o, err := ParseClock(open)
	if err != nil {
		return Hours{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return Hours{}, err
	}
	return Hours{Location: loc, Open: o, Close: c, Days: days}, nil
}

// IsOpen reports whether now falls on a trading day inside the session
// interval. The open bound is inclusive, the close bound exclusive. Any
// internal failure resolves to closed; this predicate never fails open.
func (h Hours) IsOpen(now time.Time) bool {
	if h.Location == nil {
		return false
	}
	local := now.In(h.Location)
	day := local.Weekday()
	trading := false
	for _, d := range h.Days {
		if d == day {
			trading = true
			break
		}
	}
	if !trading {
		return false
	}
	cur := local.Hour()*60 + local.Minute()
	return h.Open.minutes() <= cur && cur < h.Close.minutes()
}
