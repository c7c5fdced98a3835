// Package state holds the single aggregate the engine ever mutates:
// every account and every market, plus the next sequence number the
// sequencer will assign. It is purely in-memory — durability lives in
// the event log and snapshot store above it, never inside the core.
package state

import (
	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/ordered"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// State is the engine's entire world: every account, every market, and
// the sequence number the next ingested event must carry. It holds no
// mutex — the engine is strictly single-threaded, so synchronization
// would only hide bugs a race detector should catch instead.
type State struct {
	Accounts     *ordered.Map[ids.AccountId, *types.Account]
	Markets      *ordered.Map[ids.MarketId, *types.Market]
	NextSequence uint64
}

// New returns an empty state with no accounts, no markets, and sequence
// numbering starting at zero.
func New() *State {
	return &State{
		Accounts: ordered.New[ids.AccountId, *types.Account](),
		Markets:  ordered.New[ids.MarketId, *types.Market](),
	}
}

// Clone returns a value-wise independent copy of the entire world.
// apply_event never mutates the State it is handed; it always clones
// first and returns the clone, which is what makes replay deterministic
// regardless of what a caller does with an older State value afterward.
func (s *State) Clone() *State {
	return &State{
		Accounts:     s.Accounts.Clone(func(a *types.Account) *types.Account { return a.Clone() }),
		Markets:      s.Markets.Clone(func(m *types.Market) *types.Market { return m.Clone() }),
		NextSequence: s.NextSequence,
	}
}

// Account returns the account for id, or nil if it has never been seen.
func (s *State) Account(id ids.AccountId) *types.Account {
	a, ok := s.Accounts.Get(id)
	if !ok {
		return nil
	}
	return a
}

// Market returns the market for id, or nil if it has not been bootstrapped.
func (s *State) Market(id ids.MarketId) *types.Market {
	m, ok := s.Markets.Get(id)
	if !ok {
		return nil
	}
	return m
}

// OrCreateAccount returns the existing account for id, or a fresh empty
// one inserted into State if this is the first time id has appeared.
func (s *State) OrCreateAccount(id ids.AccountId) *types.Account {
	if a := s.Account(id); a != nil {
		return a
	}
	a := types.NewAccount(id)
	s.Accounts.Set(id, a)
	return a
}

// TotalBankruptcyDeficit sums BankruptcyDeficit across every account, in
// ascending AccountId order, as a reporting helper for cmd/riskctl and
// for tests asserting that liquidation never silently drops a deficit.
func (s *State) TotalBankruptcyDeficit() decimal.D {
	total := decimal.Zero()
	s.Accounts.Range(func(_ ids.AccountId, a *types.Account) bool {
		total = total.Add(a.BankruptcyDeficit)
		return true
	})
	return total
}
