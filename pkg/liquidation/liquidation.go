// Package liquidation implements the live-mode orchestrator: given the
// event just applied, it determines which accounts are in scope for a
// liquidation scan, then for each liquidatable candidate repeatedly
// closes its largest-notional position until the account is healthy or
// has nothing left to close. Every close is expressed as a
// LiquidationFill event fed through the same apply function live and
// replay both use, so live state and replay state can never diverge on
// a liquidation.
//
// This package takes its ApplyFunc and NextSeqFunc as parameters rather
// than importing package engine directly, which keeps the dependency
// graph a DAG: engine depends on liquidation for the live orchestrator,
// not the other way around.
package liquidation

import (
	"fmt"
	"sort"

	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/margin"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// ApplyFunc applies one event to state, returning the resulting state.
// Engine.ApplyEvent satisfies this signature.
type ApplyFunc func(s *state.State, ev *types.Event) (*state.State, error)

// NextSeqFunc returns the next sequence number to assign to an
// engine-emitted event. Engine.Sequencer.Next satisfies this signature.
type NextSeqFunc func() uint64

// ScopeFor returns the candidate accounts a liquidation scan must
// consider after applying ev, in ascending AccountId order, per the
// event-kind scope table: MarkPriceUpdate and FundingUpdate scan every
// account with a position in the affected market; TradeFill scans only
// the account that just traded; every other kind (including
// LiquidationFill itself, to prevent recursion within one pass)
// contributes no candidates.
func ScopeFor(s *state.State, ev *types.Event) []ids.AccountId {
	switch ev.Kind {
	case types.KindMarkPriceUpdate:
		return accountsWithPositionIn(s, ev.MarkPriceUpdate.MarketId)
	case types.KindFundingUpdate:
		return accountsWithPositionIn(s, ev.FundingUpdate.MarketId)
	case types.KindTradeFill:
		return []ids.AccountId{ev.TradeFill.AccountId}
	default:
		return nil
	}
}

func accountsWithPositionIn(s *state.State, marketId ids.MarketId) []ids.AccountId {
	var out []ids.AccountId
	s.Accounts.Range(func(accountId ids.AccountId, a *types.Account) bool {
		if a.Position(marketId) != nil {
			out = append(out, accountId)
		}
		return true
	})
	return out
}

// Run scans candidates in order, liquidating every account that is
// presently liquidatable. It returns the state after every liquidation
// fill has been applied and the ordered list of LiquidationFill events
// that were generated (already sequence-stamped), for the caller to
// append to the durable log.
func Run(s *state.State, candidates []ids.AccountId, nextSeq NextSeqFunc, apply ApplyFunc) (*state.State, []*types.Event, error) {
	var emitted []*types.Event

	for _, accountId := range candidates {
		for {
			account := s.Account(accountId)
			if account == nil || account.Positions.Len() == 0 {
				break
			}
			if !margin.IsLiquidatable(s, account) {
				break
			}

			marketId, pos := pickLargestNotional(s, account)
			mkt := s.Market(marketId)
			if mkt == nil {
				return nil, nil, fmt.Errorf("liquidation: account %q holds a position in unbootstrapped market %q", accountId, marketId)
			}

			ev := &types.Event{
				Sequence: nextSeq(),
				Kind:     types.KindLiquidationFill,
				LiquidationFill: &types.LiquidationFillPayload{
					AccountId: accountId,
					MarketId:  marketId,
					Quantity:  pos.Quantity,
					Price:     mkt.MarkPrice,
				},
			}

			next, err := apply(s, ev)
			if err != nil {
				return nil, nil, fmt.Errorf("liquidation: applying fill for %q/%q: %w", accountId, marketId, err)
			}
			s = next
			emitted = append(emitted, ev)
		}
	}

	return s, emitted, nil
}

// pickLargestNotional ranks an account's open positions by notional
// descending, tie-breaking by ascending MarketId, and returns the
// winner.
func pickLargestNotional(s *state.State, a *types.Account) (ids.MarketId, *types.Position) {
	marketIds := a.Positions.Keys()
	sort.Slice(marketIds, func(i, j int) bool {
		pi, _ := a.Positions.Get(marketIds[i])
		pj, _ := a.Positions.Get(marketIds[j])
		ni := margin.Notional(s, pi)
		nj := margin.Notional(s, pj)
		if !ni.Equal(nj) {
			return ni.GreaterThan(nj)
		}
		return marketIds[i] < marketIds[j]
	})
	top := marketIds[0]
	p, _ := a.Positions.Get(top)
	return top, p
}
