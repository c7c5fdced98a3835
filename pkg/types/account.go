package types

import (
	"encoding/json"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/ordered"
)

// Account is one cross-margin collateral pool: a single Collateral
// balance shared across every open Position. Margin requirements sum
// additively across positions, so there is no per-market locked or
// available split to track.
type Account struct {
	AccountId ids.AccountId `json:"account_id"`

	// Collateral is the account's free-standing balance, independent of
	// any position. It can go negative only via liquidation into deficit.
	Collateral decimal.D `json:"collateral"`

	// Positions holds at most one entry per market, keyed by MarketId.
	Positions *ordered.Map[ids.MarketId, *Position] `json:"-"`

	// LastFunding records, per market the account holds a position in,
	// the cumulative funding index observed at the account's last
	// settlement against that position. Always defined for exactly the
	// set of markets with an open position.
	LastFunding *ordered.Map[ids.MarketId, decimal.D] `json:"-"`

	// BankruptcyDeficit is set to |Collateral| when a liquidation fill
	// closes the account's last position and leaves Collateral negative;
	// see applyLiquidationFill in the engine package.
	BankruptcyDeficit decimal.D `json:"bankruptcy_deficit"`
}

// NewAccount returns an empty account with zero collateral and no
// positions.
func NewAccount(id ids.AccountId) *Account {
	return &Account{
		AccountId:         id,
		Collateral:        decimal.Zero(),
		Positions:         ordered.New[ids.MarketId, *Position](),
		LastFunding:       ordered.New[ids.MarketId, decimal.D](),
		BankruptcyDeficit: decimal.Zero(),
	}
}

// Clone returns a value-wise independent copy, including fresh Positions
// and LastFunding maps.
func (a *Account) Clone() *Account {
	c := &Account{
		AccountId:         a.AccountId,
		Collateral:        a.Collateral,
		BankruptcyDeficit: a.BankruptcyDeficit,
	}
	c.Positions = a.Positions.Clone(func(p *Position) *Position { return p.Clone() })
	c.LastFunding = a.LastFunding.Clone(nil) // decimal.D is an immutable value type
	return c
}

// Position returns the account's position in marketId, or nil if it has
// none.
func (a *Account) Position(marketId ids.MarketId) *Position {
	p, ok := a.Positions.Get(marketId)
	if !ok {
		return nil
	}
	return p
}

// PositionMarketIds returns the account's open market ids in ascending
// order; used wherever a caller must scan every open position
// deterministically (margin totals, liquidation ranking).
func (a *Account) PositionMarketIds() []ids.MarketId {
	return a.Positions.Keys()
}

// RemovePosition deletes the position and matching funding-settlement
// record for marketId, leaving the account with no trace of it.
func (a *Account) RemovePosition(marketId ids.MarketId) {
	a.Positions.Delete(marketId)
	a.LastFunding.Delete(marketId)
}

// accountJSON is the canonical wire shape of an Account: positions and
// funding records rendered as arrays in ascending MarketId order rather
// than the internal ordered.Map, so two accounts with identical contents
// always marshal to the same bytes.
type accountJSON struct {
	AccountId         ids.AccountId      `json:"account_id"`
	Collateral        decimal.D          `json:"collateral"`
	Positions         []*Position        `json:"positions"`
	LastFunding       []lastFundingEntry `json:"last_funding"`
	BankruptcyDeficit decimal.D          `json:"bankruptcy_deficit"`
}

type lastFundingEntry struct {
	MarketId ids.MarketId `json:"market_id"`
	Index    decimal.D    `json:"index"`
}

// MarshalJSON renders the account with its positions and funding records
// as sorted arrays.
func (a *Account) MarshalJSON() ([]byte, error) {
	out := accountJSON{
		AccountId:         a.AccountId,
		Collateral:        a.Collateral,
		BankruptcyDeficit: a.BankruptcyDeficit,
	}
	for _, marketId := range a.Positions.Keys() {
		p, _ := a.Positions.Get(marketId)
		out.Positions = append(out.Positions, p)
	}
	for _, marketId := range a.LastFunding.Keys() {
		idx, _ := a.LastFunding.Get(marketId)
		out.LastFunding = append(out.LastFunding, lastFundingEntry{MarketId: marketId, Index: idx})
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds an account from its canonical wire shape.
func (a *Account) UnmarshalJSON(data []byte) error {
	var in accountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	a.AccountId = in.AccountId
	a.Collateral = in.Collateral
	a.BankruptcyDeficit = in.BankruptcyDeficit
	a.Positions = ordered.New[ids.MarketId, *Position]()
	for _, p := range in.Positions {
		a.Positions.Set(p.MarketId, p)
	}
	a.LastFunding = ordered.New[ids.MarketId, decimal.D]()
	for _, f := range in.LastFunding {
		a.LastFunding.Set(f.MarketId, f.Index)
	}
	return nil
}
