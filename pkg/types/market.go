// Package types defines the engine's domain values: markets, positions,
// accounts, and the closed set of events that can ever be applied to
// them. Nothing here reads a clock, touches the filesystem, or emits a
// log line — that ambient behavior lives one layer up in engine, eventlog,
// and snapshot, which is why these types are safe to share between the
// pure core and the I/O-carrying shell around it.
package types

import (
	"fmt"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
)

// Market holds the parameters and current mark price of one perpetual
// futures market. There is no order book here, so no tick/lot sizing —
// only what margin computation and funding settlement read.
type Market struct {
	MarketId ids.MarketId `json:"market_id"`

	// MarkPrice is the most recently applied MarkPriceUpdate price.
	MarkPrice decimal.D `json:"mark_price"`

	// InitialMarginFraction and MaintenanceMarginFraction are expressed
	// as fractions of notional (e.g. "0.10" for 10%), not basis points.
	InitialMarginFraction     decimal.D `json:"initial_margin_fraction"`
	MaintenanceMarginFraction decimal.D `json:"maintenance_margin_fraction"`

	// CumulativeFundingIndex is the running sum of funding rate applied
	// to this market, carried forward by FundingUpdate events.
	CumulativeFundingIndex decimal.D `json:"cumulative_funding_index"`
}

// Clone returns a value-wise independent copy. Decimal.D is immutable
// once constructed, so a plain struct copy is already deep.
func (m *Market) Clone() *Market {
	c := *m
	return &c
}

// Validate checks the static shape a market must satisfy at every commit
// boundary: maintenance margin can never exceed initial margin, and
// fractions/prices can never go negative.
func (m *Market) Validate() error {
	if m.InitialMarginFraction.IsNegative() {
		return fmt.Errorf("market %s: initial margin fraction is negative", m.MarketId)
	}
	if m.MaintenanceMarginFraction.IsNegative() {
		return fmt.Errorf("market %s: maintenance margin fraction is negative", m.MarketId)
	}
	if m.MaintenanceMarginFraction.GreaterThan(m.InitialMarginFraction) {
		return fmt.Errorf("market %s: maintenance margin fraction exceeds initial margin fraction", m.MarketId)
	}
	if m.MarkPrice.IsNegative() {
		return fmt.Errorf("market %s: mark price is negative", m.MarketId)
	}
	return nil
}
