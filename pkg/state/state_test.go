package state

import (
	"testing"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
)

func TestOrCreateAccountIsIdempotent(t *testing.T) {
	s := New()
	a := s.OrCreateAccount("alice")
	a.Collateral = decimal.NewFromInt(100)

	again := s.OrCreateAccount("alice")
	if !again.Collateral.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("OrCreateAccount returned a fresh account instead of the existing one")
	}
	if s.Accounts.Len() != 1 {
		t.Fatalf("expected exactly one account, got %d", s.Accounts.Len())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	a := s.OrCreateAccount("alice")
	a.Collateral = decimal.NewFromInt(100)

	clone := s.Clone()
	clone.Account("alice").Collateral = decimal.NewFromInt(999)
	clone.OrCreateAccount("bob")

	if !s.Account("alice").Collateral.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("clone mutation leaked into original state")
	}
	if s.Accounts.Len() != 1 {
		t.Fatalf("clone insertion leaked into original state: len=%d", s.Accounts.Len())
	}
}

func TestTotalBankruptcyDeficitSumsAllAccounts(t *testing.T) {
	s := New()
	s.OrCreateAccount("alice").BankruptcyDeficit = decimal.NewFromInt(10)
	s.OrCreateAccount("bob").BankruptcyDeficit = decimal.NewFromInt(5)

	total := s.TotalBankruptcyDeficit()
	if !total.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("TotalBankruptcyDeficit() = %s, want 15", total)
	}
}

func TestMarketLookupMissingReturnsNil(t *testing.T) {
	s := New()
	if s.Market(ids.MarketId("BTC-PERP")) != nil {
		t.Fatalf("expected nil for unbootstrapped market")
	}
}
