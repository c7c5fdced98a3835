package types

import (
	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
)

// Position is one account's open exposure in one market. Quantity is
// signed: positive is long, negative is short. CostBasis carries the
// same sign as Quantity and holds the total entry cost (quantity *
// entry price, signed) as a running sum rather than an average price,
// since the trade-fill cases add and subtract cost shares directly.
//
// A Position is only ever present in an Account's Positions map while
// Quantity is non-zero; closing a position removes its entry entirely.
type Position struct {
	MarketId  ids.MarketId `json:"market_id"`
	Quantity  decimal.D    `json:"quantity"`
	CostBasis decimal.D    `json:"cost_basis"`
}

// Clone returns a value-wise independent copy.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// EntryPrice returns CostBasis / Quantity, the average price the
// position was entered at. Callers must not invoke this on a
// zero-quantity position.
func (p *Position) EntryPrice() decimal.D {
	return p.CostBasis.Div(p.Quantity, decimal.RoundHalfEven)
}

// IsLong reports whether the position is net long.
func (p *Position) IsLong() bool { return p.Quantity.IsPositive() }

// IsShort reports whether the position is net short.
func (p *Position) IsShort() bool { return p.Quantity.IsNegative() }
