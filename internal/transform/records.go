package transform

import (
	"math"
	"strconv"
	"time"

	"marketsync/internal/history"
)

var (
	symbolKeys = []string{"symbol", "name", "l18"}
	priceKeys  = []string{"price", "price_toman", "pc", "pl"}
)

// ExtractRecords walks an arbitrary transformed payload and collects raw
// price records for the history store. An object carrying both a
// symbol-like and a price-like field is a leaf record; traversal does not
// descend into leaves. Records whose symbol is missing or whose price does
// not parse to a finite non-zero value are discarded here, never stored as
// garbage. Timestamps come from a provider-supplied time_unix epoch when
// convertible, otherwise from the cycle reference time.
func ExtractRecords(data any, ref time.Time) []history.RawRecord {
	leaves := gatherLeaves(data)
	recs := make([]history.RawRecord, 0, len(leaves))
	for _, item := range leaves {
		sym := firstString(item, symbolKeys...)
		if sym == "" {
			continue
		}
		price, ok := firstPrice(item)
		if !ok {
			continue
		}
		recs = append(recs, history.RawRecord{
			Symbol:    sym,
			Price:     price,
			Timestamp: recordTime(item, ref),
		})
	}
	return recs
}

// gatherLeaves mirrors the recursive search: leaf objects are only
// recognized inside lists; any other container is traversed.
func gatherLeaves(v any) []map[string]any {
	var found []map[string]any
	switch x := v.(type) {
	case []any:
		for _, elem := range x {
			switch e := elem.(type) {
			case map[string]any:
				if hasAnyKey(e, symbolKeys) && hasAnyKey(e, priceKeys) {
					found = append(found, e)
				} else {
					for _, vv := range e {
						found = append(found, gatherLeaves(vv)...)
					}
				}
			case []any:
				found = append(found, gatherLeaves(e)...)
			}
		}
	case map[string]any:
		for _, vv := range x {
			found = append(found, gatherLeaves(vv)...)
		}
	}
	return found
}

func hasAnyKey(item map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := item[k]; ok {
			return true
		}
	}
	return false
}

// firstPrice returns the first price-like field holding a finite, non-zero
// value. Zero and empty values fall through to the next candidate key.
func firstPrice(item map[string]any) (float64, bool) {
	for _, k := range priceKeys {
		v, ok := item[k]
		if !ok {
			continue
		}
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case string:
			parsed, err := strconv.ParseFloat(x, 64)
			if err != nil {
				continue
			}
			f = parsed
		default:
			continue
		}
		if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return f, true
	}
	return 0, false
}

func recordTime(item map[string]any, ref time.Time) time.Time {
	if epoch, ok := item["time_unix"].(float64); ok && epoch > 0 {
		return time.Unix(int64(epoch), 0).UTC()
	}
	return ref
}
