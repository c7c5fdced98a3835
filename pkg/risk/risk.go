// Package risk implements pre-trade and pre-withdrawal validation: the
// four-case trade simulation, the risk-reducing exemption from the
// initial-margin gate, and the withdrawal check. Nothing here mutates
// State — SimulateTrade works against a scratch copy of one position and
// returns a decision. Rejections are data, never errors.
package risk

import (
	"fmt"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/margin"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// Decision is the outcome of a trade or withdrawal simulation: data, not
// an error. Accepted carries the position delta the caller should
// commit; Reason is set only when Accepted is false.
type Decision struct {
	Accepted bool
	Reason   string

	// NewQuantity and NewCostBasis are the position's values after the
	// trade, valid only when Accepted. A zero NewQuantity means the
	// position is fully closed and should be removed.
	NewQuantity  decimal.D
	NewCostBasis decimal.D
	RealizedPnL  decimal.D
}

// tradeCase names which of the four branches in simulateFill fired; it
// exists purely to make tests and callers legible, the engine package
// only inspects the returned Decision.
type tradeCase int

const (
	caseIncrease tradeCase = iota
	caseExactClose
	caseReduce
	caseFlip
)

// simulateFill runs the four-case arithmetic in isolation, independent
// of any account-level acceptance check.
func simulateFill(oldQty, oldCost, fillQty, fillPrice decimal.D) (newQty, newCost, realizedPnL decimal.D, kind tradeCase) {
	newQty = oldQty.Add(fillQty)

	sameSignOrOpen := oldQty.IsZero() || oldQty.Sign() == fillQty.Sign()

	switch {
	case sameSignOrOpen:
		newCost = oldCost.Add(fillQty.Mul(fillPrice))
		return newQty, newCost, decimal.Zero(), caseIncrease

	case newQty.IsZero():
		realizedPnL = fillPrice.Mul(oldQty).Sub(oldCost)
		return decimal.Zero(), decimal.Zero(), realizedPnL, caseExactClose

	case newQty.Sign() == oldQty.Sign():
		// Reduce: |newQty| < |oldQty| is implied by opposite-signed fillQty
		// with the same post-trade sign as oldQty. realizedPnL is the value
		// of the closed portion at fill price minus its cost-basis share:
		// close_ratio*old_cost - fill_quantity*fill_price (close_ratio is
		// negative here, so this nets to the same sign convention as the
		// exact-close case).
		closeRatio := fillQty.Div(oldQty, decimal.RoundHalfEven) // negative
		realizedPnL = closeRatio.Mul(oldCost).Sub(fillQty.Mul(fillPrice))
		newCost = oldCost.Mul(decimal.NewFromInt(1).Add(closeRatio))
		return newQty, newCost, realizedPnL, caseReduce

	default:
		// Flip: close the old quantity entirely, then open the residual
		// at fill price. Realized PnL comes only from the close leg.
		realizedPnL = fillPrice.Mul(oldQty).Sub(oldCost)
		newCost = newQty.Mul(fillPrice)
		return newQty, newCost, realizedPnL, caseFlip
	}
}

// isRiskReducing reports whether a fill strictly shrinks |quantity|
// without crossing zero — exempt from the initial-margin check. An
// exact close qualifies: it reaches zero without crossing it, so an
// underwater account can always close out entirely.
func isRiskReducing(oldQty, newQty decimal.D) bool {
	if oldQty.IsZero() {
		return false
	}
	if newQty.IsZero() {
		return true
	}
	if newQty.Sign() != oldQty.Sign() {
		return false // flip
	}
	return newQty.Abs().LessThan(oldQty.Abs())
}

// SimulateTrade checks preconditions first (non-zero quantity, positive
// price, market must exist), then runs the four-case fill arithmetic
// against a scratch copy of the position, then decides acceptance
// against simulated equity and simulated IM for the whole account —
// every other position held at its current value.
func SimulateTrade(s *state.State, accountId ids.AccountId, marketId ids.MarketId, fillQty, fillPrice decimal.D) (Decision, error) {
	if fillQty.IsZero() {
		return Decision{Accepted: false, Reason: types.ReasonZeroQuantity}, nil
	}
	if !fillPrice.IsPositive() {
		return Decision{}, fmt.Errorf("risk: fill price must be positive, got %s", fillPrice)
	}
	if s.Market(marketId) == nil {
		return Decision{Accepted: false, Reason: types.ReasonUnknownMarket}, nil
	}

	account := s.Account(accountId)
	var oldQty, oldCost decimal.D
	if account != nil {
		if p := account.Position(marketId); p != nil {
			oldQty, oldCost = p.Quantity, p.CostBasis
		} else {
			oldQty, oldCost = decimal.Zero(), decimal.Zero()
		}
	} else {
		oldQty, oldCost = decimal.Zero(), decimal.Zero()
	}

	newQty, newCost, realizedPnL, _ := simulateFill(oldQty, oldCost, fillQty, fillPrice)

	if isRiskReducing(oldQty, newQty) {
		return Decision{Accepted: true, NewQuantity: newQty, NewCostBasis: newCost, RealizedPnL: realizedPnL}, nil
	}

	simEquity, simIM := simulateAccountTotals(s, account, marketId, newQty, newCost, realizedPnL)
	if simEquity.LessThan(simIM) {
		return Decision{Accepted: false, Reason: types.ReasonInitialMargin}, nil
	}
	return Decision{Accepted: true, NewQuantity: newQty, NewCostBasis: newCost, RealizedPnL: realizedPnL}, nil
}

// simulateAccountTotals recomputes equity and initial margin for the
// whole account as if the traded market's position were replaced by
// (newQty, newCost) and collateral were adjusted by realizedPnL; every
// other position contributes its current, unmodified value.
func simulateAccountTotals(s *state.State, account *types.Account, tradedMarket ids.MarketId, newQty, newCost, realizedPnL decimal.D) (equity, im decimal.D) {
	collateral := decimal.Zero()
	if account != nil {
		collateral = account.Collateral
	}
	collateral = collateral.Add(realizedPnL)

	equity = collateral
	im = decimal.Zero()

	if account != nil {
		account.Positions.Range(func(marketId ids.MarketId, p *types.Position) bool {
			if marketId == tradedMarket {
				return true // handled separately below
			}
			equity = equity.Add(margin.UnrealizedPnL(s, p))
			im = im.Add(margin.Notional(s, p).Mul(imFractionOf(s, marketId)))
			return true
		})
	}

	if !newQty.IsZero() {
		simPos := &types.Position{MarketId: tradedMarket, Quantity: newQty, CostBasis: newCost}
		equity = equity.Add(margin.UnrealizedPnL(s, simPos))
		im = im.Add(margin.Notional(s, simPos).Mul(imFractionOf(s, tradedMarket)))
	}

	return equity, im
}

func imFractionOf(s *state.State, marketId ids.MarketId) decimal.D {
	m := s.Market(marketId)
	if m == nil {
		return decimal.Zero()
	}
	return m.InitialMarginFraction
}

// CheckWithdrawal rejects a withdrawal that would exceed available
// collateral, or that would push equity below the account's current
// initial margin requirement.
func CheckWithdrawal(s *state.State, accountId ids.AccountId, amount decimal.D) Decision {
	account := s.Account(accountId)
	if account == nil {
		return Decision{Accepted: false, Reason: types.ReasonUnknownAccount}
	}
	if amount.GreaterThan(account.Collateral) {
		return Decision{Accepted: false, Reason: types.ReasonInsufficientCollateral}
	}
	equity := margin.Equity(s, account)
	im := margin.InitialMargin(s, account)
	if equity.Sub(amount).LessThan(im) {
		return Decision{Accepted: false, Reason: types.ReasonInitialMargin}
	}
	return Decision{Accepted: true}
}
