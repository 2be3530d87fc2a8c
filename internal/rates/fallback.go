package rates

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Built-in fallback spot prices (in EUR). Deliberately conservative and
// clearly stale; callers see Source "fallback" and can flag the staleness.
var defaultFallbackPrices = map[string]string{
	"BTC":  "60000",
	"ETH":  "2600",
	"USDT": "0.92",
	"USDC": "0.92",
}

type fallbackConfig struct {
	Rates map[string]string `yaml:"rates"`
}

// loadFallbackTable reads the static price table from file, falling back to
// the compiled-in defaults when the file is absent or unreadable. Rate
// lookups must always resolve to some price, so this never fails.
func loadFallbackTable(file string) map[string]decimal.Decimal {
	table := make(map[string]decimal.Decimal, len(defaultFallbackPrices))
	for symbol, price := range defaultFallbackPrices {
		table[symbol] = decimal.RequireFromString(price)
	}

	if file == "" {
		return table
	}

	path := file
	if !filepath.IsAbs(file) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, file)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table
	}

	var config fallbackConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return table
	}

	for symbol, raw := range config.Rates {
		price, err := decimal.NewFromString(fmt.Sprintf("%v", raw))
		if err != nil {
			continue
		}
		table[symbol] = price
	}

	return table
}
