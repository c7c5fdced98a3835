package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

func TestFromStateIsOrderIndependent(t *testing.T) {
	buildA := func() *state.State {
		s := state.New()
		s.OrCreateAccount("alice").Collateral = decimal.NewFromInt(100)
		s.OrCreateAccount("bob").Collateral = decimal.NewFromInt(200)
		return s
	}
	buildB := func() *state.State {
		s := state.New()
		s.OrCreateAccount("bob").Collateral = decimal.NewFromInt(200)
		s.OrCreateAccount("alice").Collateral = decimal.NewFromInt(100)
		return s
	}

	snapA := FromState(buildA())
	snapB := FromState(buildB())
	if !Equal(snapA, snapB) {
		t.Fatalf("expected snapshots to be equal regardless of insertion order:\n%+v\n%+v", snapA, snapB)
	}
}

func TestFromStateRendersPositionsAndMarkets(t *testing.T) {
	s := state.New()
	s.Markets.Set("BTC-PERP", &types.Market{
		MarketId: "BTC-PERP", MarkPrice: decimal.NewFromInt(50000),
		InitialMarginFraction: decimal.MustFromString("0.05"), MaintenanceMarginFraction: decimal.MustFromString("0.03"),
	})
	a := s.OrCreateAccount("alice")
	a.Collateral = decimal.NewFromInt(100000)
	a.Positions.Set("BTC-PERP", &types.Position{MarketId: "BTC-PERP", Quantity: decimal.NewFromInt(10), CostBasis: decimal.NewFromInt(500000)})
	a.LastFunding.Set("BTC-PERP", decimal.Zero())

	snap := FromState(s)
	if len(snap.Accounts) != 1 || len(snap.Markets) != 1 {
		t.Fatalf("expected 1 account and 1 market, got %d/%d", len(snap.Accounts), len(snap.Markets))
	}
	acct := snap.Accounts[0]
	if acct.Collateral != "100000.00000000" {
		t.Fatalf("collateral = %q, want canonical 100000.00000000", acct.Collateral)
	}
	if len(acct.Positions) != 1 || acct.Positions[0].MarketId != "BTC-PERP" {
		t.Fatalf("unexpected positions: %+v", acct.Positions)
	}
}

func TestStoreSaveLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	s := state.New()
	s.OrCreateAccount("alice").Collateral = decimal.NewFromInt(42)
	snap := FromState(s)
	snap.Sequence = 7

	if err := st.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := st.Load(7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to be found")
	}
	if !Equal(got, snap) {
		t.Fatalf("round-tripped snapshot differs: got %+v, want %+v", got, snap)
	}

	latest, ok, err := st.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !ok || latest.Sequence != 7 {
		t.Fatalf("expected Latest to return sequence 7, got %+v (ok=%v)", latest, ok)
	}
}

func TestStoreLoadMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	_, ok, err := st.Load(99)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a missing sequence")
	}
}
