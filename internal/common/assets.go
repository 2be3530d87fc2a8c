package common

import (
	"fmt"
	"os"
	"path/filepath"

	"invest-platform-go/internal/store"

	"gopkg.in/yaml.v2"
)

type AssetConfig struct {
	Symbol  string `yaml:"symbol"`
	Network string `yaml:"network"`
}

type AssetsConfig struct {
	Assets []AssetConfig `yaml:"assets"`
}

// LoadAssetConfig reads the supported-asset list from assetsFile. When the
// file is absent the built-in set is used so the platform still starts on a
// bare checkout.
func LoadAssetConfig(assetsFile string) ([]AssetConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultAssets(), nil
		}
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", assetsFile, err)
	}

	for i, asset := range config.Assets {
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
	}

	return config.Assets, nil
}

// LoadAssetSymbols returns just the symbols of the supported assets.
func LoadAssetSymbols(assetsFile string) ([]string, error) {
	assets, err := LoadAssetConfig(assetsFile)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(assets))
	for i, asset := range assets {
		symbols[i] = asset.Symbol
	}

	return symbols, nil
}

// DefaultAssets mirrors the closed set the validator enforces.
func DefaultAssets() []AssetConfig {
	assets := make([]AssetConfig, len(store.SupportedAssets))
	for i, symbol := range store.SupportedAssets {
		assets[i] = AssetConfig{Symbol: symbol}
	}
	return assets
}
