// Package margin computes the pure risk quantities the rest of the
// engine gates on: unrealized PnL, notional, equity, initial and
// maintenance margin, and the liquidatable predicate. Every function
// here takes a read-only *state.State and returns a value; none of them
// mutate anything or produce a log line.
package margin

import (
	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// marketView resolves the margin-relevant fields of a market, treating a
// missing market as all zeros: margin math never errors on a dangling
// market reference, it just contributes nothing.
type marketView struct {
	markPrice decimal.D
	imFrac    decimal.D
	mmFrac    decimal.D
}

func lookupMarket(s *state.State, marketId ids.MarketId) marketView {
	m := s.Market(marketId)
	if m == nil {
		return marketView{markPrice: decimal.Zero(), imFrac: decimal.Zero(), mmFrac: decimal.Zero()}
	}
	return marketView{markPrice: m.MarkPrice, imFrac: m.InitialMarginFraction, mmFrac: m.MaintenanceMarginFraction}
}

// UnrealizedPnL returns mark_price*quantity - cost_basis for a single
// position, looking up its market in s.
func UnrealizedPnL(s *state.State, p *types.Position) decimal.D {
	mv := lookupMarket(s, p.MarketId)
	return mv.markPrice.Mul(p.Quantity).Sub(p.CostBasis)
}

// Notional returns |mark_price*quantity| for a single position.
func Notional(s *state.State, p *types.Position) decimal.D {
	mv := lookupMarket(s, p.MarketId)
	return mv.markPrice.Mul(p.Quantity).Abs()
}

// Equity returns collateral plus the sum of unrealized PnL across every
// open position, in ascending MarketId order.
func Equity(s *state.State, a *types.Account) decimal.D {
	total := a.Collateral
	a.Positions.Range(func(_ ids.MarketId, p *types.Position) bool {
		total = total.Add(UnrealizedPnL(s, p))
		return true
	})
	return total
}

// InitialMargin returns the sum of notional*im_fraction across every
// open position, in ascending MarketId order.
func InitialMargin(s *state.State, a *types.Account) decimal.D {
	total := decimal.Zero()
	a.Positions.Range(func(_ ids.MarketId, p *types.Position) bool {
		mv := lookupMarket(s, p.MarketId)
		total = total.Add(Notional(s, p).Mul(mv.imFrac))
		return true
	})
	return total
}

// MaintenanceMargin returns the sum of notional*mm_fraction across every
// open position, in ascending MarketId order.
func MaintenanceMargin(s *state.State, a *types.Account) decimal.D {
	total := decimal.Zero()
	a.Positions.Range(func(_ ids.MarketId, p *types.Position) bool {
		mv := lookupMarket(s, p.MarketId)
		total = total.Add(Notional(s, p).Mul(mv.mmFrac))
		return true
	})
	return total
}

// IsLiquidatable reports whether equity <= maintenance margin. The
// boundary (equity == mm) is liquidatable.
func IsLiquidatable(s *state.State, a *types.Account) bool {
	return Equity(s, a).LessThanOrEqual(MaintenanceMargin(s, a))
}
