package transform

import (
	"marketsync/internal/endpoint"
	"marketsync/internal/lookup"
)

// Apply runs the normalization stage selected by the endpoint descriptor.
// Every stage is a pure mapping over decoded JSON; when a stage cannot
// interpret the shape of its input it returns the input unchanged.
// Downstream consumers rely on "never fails, worst case is a no-op".
func Apply(kind endpoint.TransformKind, data any, t *lookup.Tables) any {
	switch kind {
	case endpoint.TransformGoldSymbols:
		return simplifyGoldSymbols(data, t)
	case endpoint.TransformCurrencySection:
		return currencySection(data)
	case endpoint.TransformCryptoNames:
		return localizeCryptoNames(data, t.CryptoNames)
	case endpoint.TransformMarketNames:
		return applyMarketNames(data, t.MarketNames)
	case endpoint.TransformStockDigits:
		return convertStockDigits(data)
	default:
		return data
	}
}

// simplifyGoldSymbols rewrites the gold section: provider symbols are
// replaced with canonical short codes and localized names are attached.
// Output is always {"gold": [...]}.
func simplifyGoldSymbols(data any, t *lookup.Tables) any {
	obj, ok := data.(map[string]any)
	if !ok {
		return data
	}
	items, _ := obj["gold"].([]any)
	out := make([]any, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			out = append(out, it)
			continue
		}
		orig, _ := item["symbol"].(string)
		if short, ok := t.GoldSymbols[orig]; ok {
			item["symbol"] = short
		}
		attachNames(item, t.MarketNames["gold"], orig)
		out = append(out, item)
	}
	return map[string]any{"gold": out}
}

// currencySection keeps only the currency list of the combined
// gold/currency payload.
func currencySection(data any) any {
	if data == nil {
		return map[string]any{"currency": []any{}}
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return data
	}
	cur, ok := obj["currency"]
	if !ok {
		cur = []any{}
	}
	return map[string]any{"currency": cur}
}

// cryptoPassthroughKeys are the provider fields kept on localized crypto
// items; everything else is dropped.
var cryptoPassthroughKeys = []string{
	"date",
	"time",
	"time_unix",
	"price",
	"price_toman",
	"change_percent",
	"market_cap",
	"link_icon",
}

// localizeCryptoNames rebuilds each crypto item so "name" always carries
// the English title and "nameFa" the localized one. When the name map has
// no entry, the provider's own localized name field is used as fallback.
// Items without any English name are dropped.
func localizeCryptoNames(data any, names map[string]string) any {
	items, ok := data.([]any)
	if !ok {
		return data
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		english := firstString(item, "name_en", "nameEn", "name")
		if english == "" {
			continue
		}
		persian := names[english]
		if persian == "" {
			if _, hasEn := item["name_en"]; hasEn {
				persian, _ = item["name"].(string)
			} else if _, hasEn := item["nameEn"]; hasEn {
				persian, _ = item["name"].(string)
			}
		}
		clean := make(map[string]any, len(cryptoPassthroughKeys)+2)
		for _, k := range cryptoPassthroughKeys {
			if v, ok := item[k]; ok {
				clean[k] = v
			}
		}
		clean["name"] = english
		if persian != "" {
			clean["nameFa"] = persian
		}
		out = append(out, clean)
	}
	return out
}

// applyMarketNames attaches nameFa/nameEn to every item of every section
// that has a name mapping, keyed by the item's symbol.
func applyMarketNames(data any, names map[string]map[string]lookup.NameEntry) any {
	obj, ok := data.(map[string]any)
	if !ok {
		return data
	}
	for section, v := range obj {
		items, ok := v.([]any)
		if !ok {
			continue
		}
		sectionNames, ok := names[section]
		if !ok {
			continue
		}
		for _, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				continue
			}
			sym, _ := item["symbol"].(string)
			if sym == "" {
				continue
			}
			if _, found := sectionNames[sym]; found {
				attachNames(item, sectionNames, sym)
			} else if name, ok := item["name"]; ok {
				item["nameFa"] = name
			}
		}
	}
	return data
}

// attachNames sets nameFa/nameEn/name on item from the section name map,
// falling back to the provider-supplied name so the display name is never
// left blank.
func attachNames(item map[string]any, sectionNames map[string]lookup.NameEntry, sym string) {
	if entry, ok := sectionNames[sym]; ok {
		fa := entry.NameFa
		if fa == "" {
			fa, _ = item["name"].(string)
		}
		item["nameFa"] = fa
		item["nameEn"] = entry.NameEn
		item["name"] = fa
		return
	}
	fa, _ := item["name"].(string)
	item["nameFa"] = fa
	item["name"] = fa
}

// stockTextKeys are the display fields of TSE symbol payloads that get
// digit-script conversion. Prices and numeric fields stay untouched.
var stockTextKeys = []string{"l18", "l30", "cs"}

// convertStockDigits converts Western digits to Persian glyphs inside the
// display fields of each stock item.
func convertStockDigits(data any) any {
	items, ok := data.([]any)
	if !ok {
		return data
	}
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range stockTextKeys {
			if s, ok := item[k].(string); ok {
				item[k] = ToPersianDigits(s)
			}
		}
	}
	return data
}

func firstString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, _ := item[k].(string); s != "" {
			return s
		}
	}
	return ""
}
