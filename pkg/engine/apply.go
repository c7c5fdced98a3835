// Package engine implements ApplyEvent, the pure event-to-state
// transition every live and replay path funnels through, plus the
// Sequencer and Engine types that wrap it with live-mode concerns
// (sequence assignment, append, liquidation scanning). ApplyEvent
// itself never logs, never emits events, and never reads a clock.
package engine

import (
	"fmt"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// ErrInvariant marks a bug-indicating invariant violation: the event was
// well-formed JSON with a recognized kind, but applying it would corrupt
// State in a way the data model forbids (e.g. a position left at zero
// quantity, or a market with mm_fraction > im_fraction). Callers must
// abort replay/ingestion rather than proceed.
type ErrInvariant struct {
	Detail string
}

func (e *ErrInvariant) Error() string { return "engine: invariant violation: " + e.Detail }

// ApplyEvent is pure, total on well-formed events, no I/O, no scanning,
// no event generation. It returns a new *state.State; the State passed
// in is never mutated (Clone happens once, up front).
func ApplyEvent(s *state.State, ev *types.Event) (*state.State, error) {
	next := s.Clone()

	switch ev.Kind {
	case types.KindDeposit:
		if err := applyDeposit(next, ev.Deposit); err != nil {
			return nil, err
		}
	case types.KindWithdraw:
		if err := applyWithdraw(next, ev.Withdraw); err != nil {
			return nil, err
		}
	case types.KindTradeRejected, types.KindWithdrawalRejected:
		// informational; no state mutation beyond the clone itself.
	case types.KindTradeFill:
		if err := applyTradeFill(next, ev.TradeFill); err != nil {
			return nil, err
		}
	case types.KindMarkPriceUpdate:
		if err := applyMarkPriceUpdate(next, ev.MarkPriceUpdate); err != nil {
			return nil, err
		}
	case types.KindFundingUpdate:
		if err := applyFundingUpdate(next, ev.FundingUpdate); err != nil {
			return nil, err
		}
	case types.KindLiquidationFill:
		if err := applyLiquidationFill(next, ev.LiquidationFill); err != nil {
			return nil, err
		}
	case types.KindMarketInit:
		if err := applyMarketInit(next, ev.MarketInit); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("engine: unknown event kind %q", ev.Kind)
	}

	next.NextSequence = ev.Sequence + 1
	return next, nil
}

func applyDeposit(s *state.State, p *types.DepositPayload) error {
	if p == nil {
		return fmt.Errorf("engine: deposit payload is nil")
	}
	if !p.Amount.IsPositive() {
		return &ErrInvariant{Detail: fmt.Sprintf("deposit amount must be positive, got %s", p.Amount)}
	}
	account := s.OrCreateAccount(p.AccountId)
	account.Collateral = account.Collateral.Add(p.Amount)
	return nil
}

func applyWithdraw(s *state.State, p *types.WithdrawPayload) error {
	if p == nil {
		return fmt.Errorf("engine: withdraw payload is nil")
	}
	account := s.Account(p.AccountId)
	if account == nil {
		return &ErrInvariant{Detail: fmt.Sprintf("withdraw references unknown account %q", p.AccountId)}
	}
	account.Collateral = account.Collateral.Sub(p.Amount)
	return nil
}

func applyTradeFill(s *state.State, p *types.TradeFillPayload) error {
	if p == nil {
		return fmt.Errorf("engine: trade fill payload is nil")
	}
	market := s.Market(p.MarketId)
	if market == nil {
		return &ErrInvariant{Detail: fmt.Sprintf("trade fill references unbootstrapped market %q", p.MarketId)}
	}
	account := s.OrCreateAccount(p.AccountId)

	var oldQty, oldCost decimal.D
	existing := account.Position(p.MarketId)
	isNewPosition := existing == nil
	if existing != nil {
		oldQty, oldCost = existing.Quantity, existing.CostBasis
	} else {
		oldQty, oldCost = decimal.Zero(), decimal.Zero()
	}

	newQty, newCost, realizedPnL := fillDelta(oldQty, oldCost, p.Quantity, p.Price)

	account.Collateral = account.Collateral.Add(realizedPnL)
	if newQty.IsZero() {
		account.RemovePosition(p.MarketId)
	} else {
		account.Positions.Set(p.MarketId, &types.Position{MarketId: p.MarketId, Quantity: newQty, CostBasis: newCost})
		if isNewPosition {
			account.LastFunding.Set(p.MarketId, market.CumulativeFundingIndex)
		}
	}
	return nil
}

// fillDelta is the four-case fill arithmetic (increase, exact close,
// reduce, flip) for the mutation path. Package risk carries its own
// copy, run against a scratch account for acceptance decisions only, so
// engine has no import-time dependency on risk's Decision plumbing; the
// two must stay in sync. The exact-close tests in both packages use the
// same literal numbers; the reduce and flip branches have literal-number
// tests only in package risk.
func fillDelta(oldQty, oldCost, fillQty, fillPrice decimal.D) (newQty, newCost, realizedPnL decimal.D) {
	newQty = oldQty.Add(fillQty)
	sameSignOrOpen := oldQty.IsZero() || oldQty.Sign() == fillQty.Sign()

	switch {
	case sameSignOrOpen:
		return newQty, oldCost.Add(fillQty.Mul(fillPrice)), decimal.Zero()
	case newQty.IsZero():
		return decimal.Zero(), decimal.Zero(), fillPrice.Mul(oldQty).Sub(oldCost)
	case newQty.Sign() == oldQty.Sign():
		closeRatio := fillQty.Div(oldQty, decimal.RoundHalfEven)
		realizedPnL = closeRatio.Mul(oldCost).Sub(fillQty.Mul(fillPrice))
		newCost = oldCost.Mul(decimal.NewFromInt(1).Add(closeRatio))
		return newQty, newCost, realizedPnL
	default:
		realizedPnL = fillPrice.Mul(oldQty).Sub(oldCost)
		newCost = newQty.Mul(fillPrice)
		return newQty, newCost, realizedPnL
	}
}

func applyMarkPriceUpdate(s *state.State, p *types.MarkPriceUpdatePayload) error {
	if p == nil {
		return fmt.Errorf("engine: mark price update payload is nil")
	}
	market := s.Market(p.MarketId)
	if market == nil {
		return &ErrInvariant{Detail: fmt.Sprintf("mark price update references unbootstrapped market %q", p.MarketId)}
	}
	market.MarkPrice = p.Price
	return nil
}

func applyFundingUpdate(s *state.State, p *types.FundingUpdatePayload) error {
	if p == nil {
		return fmt.Errorf("engine: funding update payload is nil")
	}
	market := s.Market(p.MarketId)
	if market == nil {
		return &ErrInvariant{Detail: fmt.Sprintf("funding update references unbootstrapped market %q", p.MarketId)}
	}

	// Snapshot the key set before mutating: accounts are visited exactly
	// once per pass in ascending AccountId order, regardless of what the
	// settlement itself does to any individual account.
	accountIds := s.Accounts.Keys()
	for _, accountId := range accountIds {
		account := s.Account(accountId)
		pos := account.Position(p.MarketId)
		if pos == nil {
			continue
		}
		last, ok := account.LastFunding.Get(p.MarketId)
		if !ok {
			return &ErrInvariant{Detail: fmt.Sprintf("account %q holds a position in %q with no last_funding entry", accountId, p.MarketId)}
		}
		delta := last.Sub(p.NewCumulativeIndex).Mul(pos.Quantity)
		account.Collateral = account.Collateral.Add(delta)
		account.LastFunding.Set(p.MarketId, p.NewCumulativeIndex)
	}
	market.CumulativeFundingIndex = p.NewCumulativeIndex
	return nil
}

func applyLiquidationFill(s *state.State, p *types.LiquidationFillPayload) error {
	if p == nil {
		return fmt.Errorf("engine: liquidation fill payload is nil")
	}
	account := s.Account(p.AccountId)
	if account == nil {
		return &ErrInvariant{Detail: fmt.Sprintf("liquidation fill references unknown account %q", p.AccountId)}
	}
	pos := account.Position(p.MarketId)
	if pos == nil {
		return &ErrInvariant{Detail: fmt.Sprintf("liquidation fill references a position account %q does not hold in %q", p.AccountId, p.MarketId)}
	}
	if !pos.Quantity.Equal(p.Quantity) {
		return &ErrInvariant{Detail: fmt.Sprintf("liquidation fill quantity %s does not match held position quantity %s", p.Quantity, pos.Quantity)}
	}

	realizedPnL := p.Price.Mul(pos.Quantity).Sub(pos.CostBasis)
	account.Collateral = account.Collateral.Add(realizedPnL)
	account.RemovePosition(p.MarketId)

	if account.Positions.Len() == 0 && account.Collateral.IsNegative() {
		account.BankruptcyDeficit = account.Collateral.Abs()
	}
	return nil
}

func applyMarketInit(s *state.State, p *types.MarketInitPayload) error {
	if p == nil {
		return fmt.Errorf("engine: market init payload is nil")
	}
	if s.Market(p.MarketId) != nil {
		return &ErrInvariant{Detail: fmt.Sprintf("market %q already bootstrapped", p.MarketId)}
	}
	m := &types.Market{
		MarketId:                  p.MarketId,
		MarkPrice:                 p.InitialMarkPrice,
		InitialMarginFraction:     p.InitialMarginFraction,
		MaintenanceMarginFraction: p.MaintenanceMarginFraction,
		CumulativeFundingIndex:    decimal.Zero(),
	}
	if err := m.Validate(); err != nil {
		return &ErrInvariant{Detail: err.Error()}
	}
	s.Markets.Set(p.MarketId, m)
	return nil
}
