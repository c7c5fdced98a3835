// Package snapshot captures State as a value-wise, order-independent
// record and persists it durably. Every field crosses the Pebble/msgpack
// boundary as a plain string or slice rather than through the live
// ordered.Map types, so equality between two snapshots never depends on
// map iteration order or on decimal.D's internal representation — only
// on the same canonical decimal string the event log uses.
package snapshot

import (
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// PositionSnapshot is one open position, decimals rendered canonically.
type PositionSnapshot struct {
	MarketId  ids.MarketId `msgpack:"market_id"`
	Quantity  string       `msgpack:"quantity"`
	CostBasis string       `msgpack:"cost_basis"`
}

// FundingSnapshot is one last_funding entry.
type FundingSnapshot struct {
	MarketId ids.MarketId `msgpack:"market_id"`
	Index    string       `msgpack:"index"`
}

// AccountSnapshot is one account, positions and funding records rendered
// as arrays in ascending MarketId order.
type AccountSnapshot struct {
	AccountId         ids.AccountId      `msgpack:"account_id"`
	Collateral        string             `msgpack:"collateral"`
	Positions         []PositionSnapshot `msgpack:"positions"`
	LastFunding       []FundingSnapshot  `msgpack:"last_funding"`
	BankruptcyDeficit string             `msgpack:"bankruptcy_deficit"`
}

// MarketSnapshot is one market.
type MarketSnapshot struct {
	MarketId                  ids.MarketId `msgpack:"market_id"`
	MarkPrice                 string       `msgpack:"mark_price"`
	InitialMarginFraction     string       `msgpack:"initial_margin_fraction"`
	MaintenanceMarginFraction string       `msgpack:"maintenance_margin_fraction"`
	CumulativeFundingIndex    string       `msgpack:"cumulative_funding_index"`
}

// Snapshot is a deep, value-wise copy of State at a given sequence,
// independent of iteration order: accounts and markets are rendered as
// arrays already sorted by id, so two snapshots built from states with
// identical content always compare equal regardless of insertion order.
type Snapshot struct {
	Sequence uint64            `msgpack:"sequence"`
	Accounts []AccountSnapshot `msgpack:"accounts"`
	Markets  []MarketSnapshot  `msgpack:"markets"`
}

// FromState renders s as a Snapshot.
func FromState(s *state.State) *Snapshot {
	snap := &Snapshot{Sequence: s.NextSequence}

	for _, accountId := range s.Accounts.Keys() {
		a, _ := s.Accounts.Get(accountId)
		snap.Accounts = append(snap.Accounts, accountSnapshotOf(a))
	}
	for _, marketId := range s.Markets.Keys() {
		m, _ := s.Markets.Get(marketId)
		snap.Markets = append(snap.Markets, marketSnapshotOf(m))
	}
	return snap
}

func accountSnapshotOf(a *types.Account) AccountSnapshot {
	out := AccountSnapshot{
		AccountId:         a.AccountId,
		Collateral:        a.Collateral.String(),
		BankruptcyDeficit: a.BankruptcyDeficit.String(),
	}
	for _, marketId := range a.Positions.Keys() {
		p, _ := a.Positions.Get(marketId)
		out.Positions = append(out.Positions, PositionSnapshot{
			MarketId:  p.MarketId,
			Quantity:  p.Quantity.String(),
			CostBasis: p.CostBasis.String(),
		})
	}
	for _, marketId := range a.LastFunding.Keys() {
		idx, _ := a.LastFunding.Get(marketId)
		out.LastFunding = append(out.LastFunding, FundingSnapshot{MarketId: marketId, Index: idx.String()})
	}
	return out
}

func marketSnapshotOf(m *types.Market) MarketSnapshot {
	return MarketSnapshot{
		MarketId:                  m.MarketId,
		MarkPrice:                 m.MarkPrice.String(),
		InitialMarginFraction:     m.InitialMarginFraction.String(),
		MaintenanceMarginFraction: m.MaintenanceMarginFraction.String(),
		CumulativeFundingIndex:    m.CumulativeFundingIndex.String(),
	}
}
