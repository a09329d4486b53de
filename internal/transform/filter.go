package transform

// aliasKeys are every field a denylisted name or symbol can hide under.
var aliasKeys = []string{
	"name", "symbol", "l18", "l30", "cs",
	"nameFa", "name_fa", "symbolFa", "nameEn", "symbolEn", "name_en",
}

// FilterDenylist recursively drops items whose alias fields match a
// denylist entry. Lists are filtered directly; for objects each list-valued
// field is filtered independently and other fields pass through. Inputs
// with no matching items round-trip unchanged, and an empty denylist is a
// no-op.
func FilterDenylist(data any, deny map[string]struct{}) any {
	if len(deny) == 0 {
		return data
	}
	switch v := data.(type) {
	case []any:
		return filterItems(v, deny)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if items, ok := val.([]any); ok {
				out[k] = filterItems(items, deny)
			} else {
				out[k] = val
			}
		}
		return out
	}
	return data
}

func filterItems(items []any, deny map[string]struct{}) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		if allowed(it, deny) {
			out = append(out, it)
		}
	}
	return out
}

func allowed(it any, deny map[string]struct{}) bool {
	item, ok := it.(map[string]any)
	if !ok {
		return true
	}
	for _, k := range aliasKeys {
		if s, ok := item[k].(string); ok {
			if _, blocked := deny[s]; blocked {
				return false
			}
		}
	}
	return true
}
