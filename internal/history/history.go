package history

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/endpoint"
	"marketsync/internal/jsonfile"
)

// MaxSeriesEntries caps every per-symbol aggregation series; the oldest
// points are evicted first when the cap is exceeded.
const MaxSeriesEntries = 10

// seriesTimeLayout is the local wall-clock format used for series points.
const seriesTimeLayout = "2006-01-02T15:04:05"

// RawRecord is one extracted price observation. Timestamps are always
// timezone-aware; records that fail to parse never enter the store.
type RawRecord struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Point is one aggregation entry. The short keys ("t", "m") are the
// persisted wire format consumed by snapshot clients. The timestamp is the
// cycle's aggregation reference time, not any contributing record's time:
// a point means "median of the window as observed at this instant".
type Point struct {
	Time   string  `json:"t"`
	Median float64 `json:"m"`
}

// Series maps symbol to its ordered, capped aggregation points.
type Series map[string][]Point

// Store owns the per-endpoint raw record logs and windowed median series
// under a base directory. A mutex per endpoint serializes writers, since
// the on-disk layout assumes single-writer semantics. Missing or corrupt
// files load as empty state.
type Store struct {
	base string
	loc  *time.Location
	log  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(base string, loc *time.Location, log zerolog.Logger) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		base:  base,
		loc:   loc,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) rawPath(name string) string {
	return filepath.Join(s.base, "raw_"+name+".json")
}

func (s *Store) seriesPath(name, window string) string {
	return filepath.Join(s.base, name, window+".json")
}

// AppendRaw appends new records to the endpoint's raw log.
func (s *Store) AppendRaw(name string, recs []RawRecord) error {
	if len(recs) == 0 {
		return nil
	}
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	all, _ := s.loadRaw(name)
	all = append(all, recs...)
	if err := jsonfile.Write(s.rawPath(name), all, "  "); err != nil {
		return fmt.Errorf("append raw %s: %w", name, err)
	}
	return nil
}

// ComputeAggregates computes, for every window, the per-symbol median over
// records at or after ref-window and appends one point per symbol to that
// window's series. Every window of the cycle is evaluated against the same
// ref. After all windows are processed the raw log is pruned once, to the
// longest window. A write failure on one window's series is logged and does
// not abort the remaining windows.
func (s *Store) ComputeAggregates(name string, windows []endpoint.Window, ref time.Time) error {
	if len(windows) == 0 {
		return nil
	}
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	recs, ok := s.loadRaw(name)
	if !ok {
		return nil
	}
	stamp := ref.In(s.loc).Format(seriesTimeLayout)

	for _, w := range windows {
		cutoff := ref.Add(-w.Duration)
		groups := make(map[string][]float64)
		for _, r := range recs {
			if !r.Timestamp.Before(cutoff) {
				groups[r.Symbol] = append(groups[r.Symbol], r.Price)
			}
		}

		series := s.loadSeries(name, w.Name)
		for sym, prices := range groups {
			pts := append(series[sym], Point{Time: stamp, Median: Median(prices)})
			if len(pts) > MaxSeriesEntries {
				pts = pts[len(pts)-MaxSeriesEntries:]
			}
			series[sym] = pts
		}
		if err := jsonfile.Write(s.seriesPath(name, w.Name), series, "  "); err != nil {
			s.log.Error().Err(err).
				Str("endpoint", name).
				Str("window", w.Name).
				Msg("series write failed, continuing with next window")
		}
	}

	oldest := ref.Add(-endpoint.MaxWindow(windows))
	pruned := recs[:0]
	for _, r := range recs {
		if !r.Timestamp.Before(oldest) {
			pruned = append(pruned, r)
		}
	}
	if err := jsonfile.Write(s.rawPath(name), pruned, "  "); err != nil {
		return fmt.Errorf("prune raw %s: %w", name, err)
	}
	return nil
}

// LoadSeries returns the persisted series for one endpoint window.
// Missing or corrupt files come back empty.
func (s *Store) LoadSeries(name, window string) Series {
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()
	return s.loadSeries(name, window)
}

// RawLog returns the current raw record log for an endpoint.
func (s *Store) RawLog(name string) []RawRecord {
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()
	recs, _ := s.loadRaw(name)
	return recs
}

// loadRaw reads the raw log, dropping individual records whose price or
// timestamp does not parse. ok is false when the file does not exist.
func (s *Store) loadRaw(name string) (recs []RawRecord, ok bool) {
	var items []struct {
		Symbol    string `json:"symbol"`
		Price     any    `json:"price"`
		Timestamp string `json:"timestamp"`
	}
	err := jsonfile.Read(s.rawPath(name), &items)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false
		}
		s.log.Warn().Err(err).Str("endpoint", name).Msg("raw log unreadable, recovering as empty")
		return nil, true
	}
	recs = make([]RawRecord, 0, len(items))
	dropped := 0
	for _, it := range items {
		price, perr := toPrice(it.Price)
		ts, terr := time.Parse(time.RFC3339, it.Timestamp)
		if it.Symbol == "" || perr != nil || terr != nil {
			dropped++
			continue
		}
		recs = append(recs, RawRecord{Symbol: it.Symbol, Price: price, Timestamp: ts})
	}
	if dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Str("endpoint", name).Msg("unparseable raw records discarded")
	}
	return recs, true
}

func (s *Store) loadSeries(name, window string) Series {
	series := Series{}
	err := jsonfile.Read(s.seriesPath(name, window), &series)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).
			Str("endpoint", name).
			Str("window", window).
			Msg("series unreadable, recovering as empty")
		return Series{}
	}
	return series
}

func toPrice(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("price has unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("price %v is not finite", f)
	}
	return f, nil
}

// Median returns the standard median: the middle value for an odd count,
// the mean of the two middle values for an even count. The input must be
// non-empty; callers only build groups with at least one price.
func Median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
