package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// MarketFixture is one market's bootstrap parameters as they appear in
// the markets YAML document: symbol, margin fractions, and an optional
// initial mark price. A host driver loads these fixtures and feeds each
// as a MarketInit event before any other event can reference that
// market.
type MarketFixture struct {
	MarketId          string `yaml:"market_id"`
	InitialMargin     string `yaml:"initial_margin_fraction"`
	MaintenanceMargin string `yaml:"maintenance_margin_fraction"`
	InitialMarkPrice  string `yaml:"initial_mark_price"`
}

type marketsDocument struct {
	Markets []MarketFixture `yaml:"markets"`
}

// LoadMarketFixtures reads and parses a markets YAML document directly
// with yaml.v3 (not through viper, since this is engine-input data, not
// host runtime configuration).
func LoadMarketFixtures(path string) ([]MarketFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read market fixtures %q: %w", path, err)
	}
	var doc marketsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse market fixtures %q: %w", path, err)
	}
	return doc.Markets, nil
}

// ToMarketInitPayload translates one YAML fixture into the typed
// MarketInit payload apply_event expects. Decimal fields are parsed
// through decimal.FromString so a malformed fixture fails loudly at
// load time rather than producing a silently-wrong market.
func (f MarketFixture) ToMarketInitPayload() (*types.MarketInitPayload, error) {
	im, err := decimal.FromString(f.InitialMargin)
	if err != nil {
		return nil, fmt.Errorf("config: market %q initial_margin_fraction: %w", f.MarketId, err)
	}
	mm, err := decimal.FromString(f.MaintenanceMargin)
	if err != nil {
		return nil, fmt.Errorf("config: market %q maintenance_margin_fraction: %w", f.MarketId, err)
	}
	markPrice := decimal.Zero()
	if f.InitialMarkPrice != "" {
		markPrice, err = decimal.FromString(f.InitialMarkPrice)
		if err != nil {
			return nil, fmt.Errorf("config: market %q initial_mark_price: %w", f.MarketId, err)
		}
	}
	return &types.MarketInitPayload{
		MarketId:                  ids.MarketId(f.MarketId),
		InitialMarginFraction:     im,
		MaintenanceMarginFraction: mm,
		InitialMarkPrice:          markPrice,
	}, nil
}
