// Command missingnames reports cryptocurrency entries in the latest
// snapshot that have no Persian name in the localization dictionary.
// It exits non-zero when any are missing so it can gate CI on dictionary
// completeness.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"marketsync/internal/jsonfile"
)

func main() {
	var dataDir, dictDir string
	flag.StringVar(&dataDir, "data", "api/v1/market", "snapshot data directory")
	flag.StringVar(&dictDir, "dict", "dictionaries", "dictionary directory")
	flag.Parse()

	var items []any
	if err := jsonfile.Read(filepath.Join(dataDir, "cryptocurrency.json"), &items); err != nil {
		fmt.Fprintf(os.Stderr, "read crypto snapshot: %v\n", err)
		os.Exit(2)
	}
	names := map[string]string{}
	if err := jsonfile.Read(filepath.Join(dictDir, "crypto_names_fa.json"), &names); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "read name dictionary: %v\n", err)
		os.Exit(2)
	}

	missing := map[string]struct{}{}
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		en, _ := item["nameEn"].(string)
		if en == "" {
			en, _ = item["name"].(string)
		}
		if en == "" {
			continue
		}
		if _, ok := names[en]; !ok {
			missing[en] = struct{}{}
		}
	}
	if len(missing) == 0 {
		fmt.Println("all cryptocurrency names are localized")
		return
	}

	sorted := make([]string, 0, len(missing))
	for name := range missing {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	fmt.Printf("%d names missing a Persian translation:\n", len(sorted))
	for _, name := range sorted {
		fmt.Println("  " + name)
	}
	os.Exit(1)
}
