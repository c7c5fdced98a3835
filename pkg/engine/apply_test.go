package engine

import (
	"testing"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

func mustApply(t *testing.T, s *state.State, ev *types.Event) *state.State {
	t.Helper()
	next, err := ApplyEvent(s, ev)
	if err != nil {
		t.Fatalf("ApplyEvent(%v): %v", ev.Kind, err)
	}
	return next
}

func TestApplyEventNeverMutatesInputState(t *testing.T) {
	s := state.New()
	ev := &types.Event{Sequence: 0, Kind: types.KindDeposit, Deposit: &types.DepositPayload{AccountId: "alice", Amount: decimal.NewFromInt(100)}}
	_ = mustApply(t, s, ev)

	if s.Accounts.Len() != 0 {
		t.Fatalf("original state was mutated: %d accounts", s.Accounts.Len())
	}
}

func TestFundingUpdateSettlesOpenPositions(t *testing.T) {
	s := state.New()
	s = mustApply(t, s, &types.Event{Sequence: 0, Kind: types.KindMarketInit, MarketInit: &types.MarketInitPayload{
		MarketId: "ETH-PERP", InitialMarginFraction: decimal.MustFromString("0.10"), MaintenanceMarginFraction: decimal.MustFromString("0.05"),
		InitialMarkPrice: decimal.NewFromInt(3000),
	}})
	s = mustApply(t, s, &types.Event{Sequence: 1, Kind: types.KindDeposit, Deposit: &types.DepositPayload{AccountId: "bob", Amount: decimal.NewFromInt(10000)}})
	s = mustApply(t, s, &types.Event{Sequence: 2, Kind: types.KindTradeFill, TradeFill: &types.TradeFillPayload{
		AccountId: "bob", MarketId: "ETH-PERP", Quantity: decimal.NewFromInt(20), Price: decimal.NewFromInt(3000),
	}})

	s = mustApply(t, s, &types.Event{Sequence: 3, Kind: types.KindFundingUpdate, FundingUpdate: &types.FundingUpdatePayload{
		MarketId: "ETH-PERP", NewCumulativeIndex: decimal.MustFromString("1.50"),
	}})

	bob := s.Account("bob")
	if !bob.Collateral.Equal(decimal.NewFromInt(9970)) {
		t.Fatalf("collateral = %s, want 9970", bob.Collateral)
	}
	idx, ok := bob.LastFunding.Get("ETH-PERP")
	if !ok || !idx.Equal(decimal.MustFromString("1.50")) {
		t.Fatalf("last_funding[ETH-PERP] = %v (ok=%v), want 1.50", idx, ok)
	}
	if !s.Market("ETH-PERP").CumulativeFundingIndex.Equal(decimal.MustFromString("1.50")) {
		t.Fatalf("market cumulative funding index not updated")
	}
}

func TestTradeFillExactCloseRemovesPosition(t *testing.T) {
	s := state.New()
	s = mustApply(t, s, &types.Event{Sequence: 0, Kind: types.KindMarketInit, MarketInit: &types.MarketInitPayload{
		MarketId: "BTC-PERP", InitialMarginFraction: decimal.MustFromString("0.05"), MaintenanceMarginFraction: decimal.MustFromString("0.03"),
		InitialMarkPrice: decimal.NewFromInt(50000),
	}})
	s = mustApply(t, s, &types.Event{Sequence: 1, Kind: types.KindDeposit, Deposit: &types.DepositPayload{AccountId: "alice", Amount: decimal.NewFromInt(100000)}})
	s = mustApply(t, s, &types.Event{Sequence: 2, Kind: types.KindTradeFill, TradeFill: &types.TradeFillPayload{
		AccountId: "alice", MarketId: "BTC-PERP", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(50000),
	}})
	s = mustApply(t, s, &types.Event{Sequence: 3, Kind: types.KindTradeFill, TradeFill: &types.TradeFillPayload{
		AccountId: "alice", MarketId: "BTC-PERP", Quantity: decimal.NewFromInt(-10), Price: decimal.NewFromInt(41000),
	}})

	alice := s.Account("alice")
	if alice.Positions.Len() != 0 {
		t.Fatalf("expected position fully closed")
	}
	if !alice.Collateral.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("collateral = %s, want 10000 (100000 - 90000)", alice.Collateral)
	}
}

func TestLiquidationFillSetsBankruptcyDeficit(t *testing.T) {
	s := state.New()
	s = mustApply(t, s, &types.Event{Sequence: 0, Kind: types.KindMarketInit, MarketInit: &types.MarketInitPayload{
		MarketId: "BTC-PERP", InitialMarginFraction: decimal.MustFromString("0.1"), MaintenanceMarginFraction: decimal.MustFromString("0.1"),
		InitialMarkPrice: decimal.NewFromInt(100),
	}})
	s = mustApply(t, s, &types.Event{Sequence: 1, Kind: types.KindDeposit, Deposit: &types.DepositPayload{AccountId: "deep", Amount: decimal.NewFromInt(100)}})
	s = mustApply(t, s, &types.Event{Sequence: 2, Kind: types.KindTradeFill, TradeFill: &types.TradeFillPayload{
		AccountId: "deep", MarketId: "BTC-PERP", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	}})

	s = mustApply(t, s, &types.Event{Sequence: 3, Kind: types.KindLiquidationFill, LiquidationFill: &types.LiquidationFillPayload{
		AccountId: "deep", MarketId: "BTC-PERP", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(50),
	}})

	deep := s.Account("deep")
	// realized pnl = 50*10 - 1000 = -500; collateral = 100-500 = -400
	if !deep.Collateral.Equal(decimal.NewFromInt(-400)) {
		t.Fatalf("collateral = %s, want -400", deep.Collateral)
	}
	if !deep.BankruptcyDeficit.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("bankruptcy deficit = %s, want 400", deep.BankruptcyDeficit)
	}
}

func TestMarketInitRejectsDuplicateBootstrap(t *testing.T) {
	s := state.New()
	s = mustApply(t, s, &types.Event{Sequence: 0, Kind: types.KindMarketInit, MarketInit: &types.MarketInitPayload{
		MarketId: "BTC-PERP", InitialMarginFraction: decimal.MustFromString("0.1"), MaintenanceMarginFraction: decimal.MustFromString("0.05"),
	}})
	_, err := ApplyEvent(s, &types.Event{Sequence: 1, Kind: types.KindMarketInit, MarketInit: &types.MarketInitPayload{
		MarketId: "BTC-PERP", InitialMarginFraction: decimal.MustFromString("0.2"), MaintenanceMarginFraction: decimal.MustFromString("0.1"),
	}})
	if err == nil {
		t.Fatalf("expected error re-bootstrapping an existing market")
	}
	if _, ok := err.(*ErrInvariant); !ok {
		t.Fatalf("expected *ErrInvariant, got %T: %v", err, err)
	}

	// identical fields are no exception: one bootstrap per market, ever.
	_, err = ApplyEvent(s, &types.Event{Sequence: 1, Kind: types.KindMarketInit, MarketInit: &types.MarketInitPayload{
		MarketId: "BTC-PERP", InitialMarginFraction: decimal.MustFromString("0.1"), MaintenanceMarginFraction: decimal.MustFromString("0.05"),
	}})
	if err == nil {
		t.Fatalf("expected error re-bootstrapping with identical fields")
	}
	if _, ok := err.(*ErrInvariant); !ok {
		t.Fatalf("expected *ErrInvariant for identical-fields duplicate, got %T: %v", err, err)
	}
}

func TestRejectedEventsAreInformationalOnly(t *testing.T) {
	s := state.New()
	s = mustApply(t, s, &types.Event{Sequence: 0, Kind: types.KindDeposit, Deposit: &types.DepositPayload{AccountId: "bob", Amount: decimal.NewFromInt(100)}})
	before := s.Account("bob").Collateral

	s = mustApply(t, s, &types.Event{Sequence: 1, Kind: types.KindTradeRejected, TradeRejected: &types.TradeRejectedPayload{
		AccountId: "bob", MarketId: "ETH-PERP", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1), Reason: types.ReasonInitialMargin,
	}})

	if !s.Account("bob").Collateral.Equal(before) {
		t.Fatalf("TradeRejected must not mutate collateral")
	}
}
