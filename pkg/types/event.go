package types

import (
	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
)

// Kind identifies which payload field of an Event is populated. Event is
// a closed tagged union, not an open interface: the engine switches
// exhaustively on Kind and every case is enumerated below.
type Kind string

const (
	KindDeposit            Kind = "deposit"
	KindWithdraw           Kind = "withdraw"
	KindTradeFill          Kind = "trade_fill"
	KindMarkPriceUpdate    Kind = "mark_price_update"
	KindFundingUpdate      Kind = "funding_update"
	KindLiquidationFill    Kind = "liquidation_fill"
	KindTradeRejected      Kind = "trade_rejected"
	KindWithdrawalRejected Kind = "withdrawal_rejected"
	KindMarketInit         Kind = "market_init"
)

// Event is the single append-only unit of the log. Sequence is assigned
// by the sequencer before the event is ever written; exactly one payload
// field is non-nil, selected by Kind.
type Event struct {
	Sequence uint64 `json:"sequence"`
	Kind     Kind   `json:"kind"`

	Deposit            *DepositPayload            `json:"deposit,omitempty"`
	Withdraw           *WithdrawPayload           `json:"withdraw,omitempty"`
	TradeFill          *TradeFillPayload          `json:"trade_fill,omitempty"`
	MarkPriceUpdate    *MarkPriceUpdatePayload    `json:"mark_price_update,omitempty"`
	FundingUpdate      *FundingUpdatePayload      `json:"funding_update,omitempty"`
	LiquidationFill    *LiquidationFillPayload    `json:"liquidation_fill,omitempty"`
	TradeRejected      *TradeRejectedPayload      `json:"trade_rejected,omitempty"`
	WithdrawalRejected *WithdrawalRejectedPayload `json:"withdrawal_rejected,omitempty"`
	MarketInit         *MarketInitPayload         `json:"market_init,omitempty"`
}

// DepositPayload credits collateral to an account, creating it if absent.
type DepositPayload struct {
	AccountId ids.AccountId `json:"account_id"`
	Amount    decimal.D     `json:"amount"`
}

// WithdrawPayload debits collateral from an account that has already
// passed the withdrawal margin check; a withdrawal that fails the check
// is recorded as WithdrawalRejected instead, never as a Withdraw.
type WithdrawPayload struct {
	AccountId ids.AccountId `json:"account_id"`
	Amount    decimal.D     `json:"amount"`
}

// TradeFillPayload applies a fill of Quantity (signed: buy positive,
// sell negative) at Price to an account's position in MarketId.
type TradeFillPayload struct {
	AccountId ids.AccountId `json:"account_id"`
	MarketId  ids.MarketId  `json:"market_id"`
	Quantity  decimal.D     `json:"quantity"`
	Price     decimal.D     `json:"price"`
}

// MarkPriceUpdatePayload replaces a market's mark price.
type MarkPriceUpdatePayload struct {
	MarketId ids.MarketId `json:"market_id"`
	Price    decimal.D    `json:"price"`
}

// FundingUpdatePayload sets a market's cumulative funding index and
// settles every open position in that market against the delta, per
// account, in the same pass.
type FundingUpdatePayload struct {
	MarketId           ids.MarketId `json:"market_id"`
	NewCumulativeIndex decimal.D    `json:"new_cumulative_index"`
}

// LiquidationFillPayload is structurally identical to a trade fill but
// is only ever emitted by the liquidation module itself, at the
// account's current mark price, never accepted from an external caller.
type LiquidationFillPayload struct {
	AccountId ids.AccountId `json:"account_id"`
	MarketId  ids.MarketId  `json:"market_id"`
	Quantity  decimal.D     `json:"quantity"`
	Price     decimal.D     `json:"price"`
}

// TradeRejectedPayload records a trade that the pre-trade simulation
// rejected, with the reason code in Reason; it carries no state
// mutation, only an audit record.
type TradeRejectedPayload struct {
	AccountId ids.AccountId `json:"account_id"`
	MarketId  ids.MarketId  `json:"market_id"`
	Quantity  decimal.D     `json:"quantity"`
	Price     decimal.D     `json:"price"`
	Reason    string        `json:"reason"`
}

// WithdrawalRejectedPayload records a withdrawal that the withdrawal
// check rejected (unknown account, insufficient collateral, or the
// post-withdrawal initial margin check), with the reason code in Reason.
type WithdrawalRejectedPayload struct {
	AccountId ids.AccountId `json:"account_id"`
	Amount    decimal.D     `json:"amount"`
	Reason    string        `json:"reason"`
}

// MarketInitPayload bootstraps a new market into State. Re-bootstrapping
// a market id that already exists is an invariant violation, not a
// silent overwrite — see engine.ErrInvariant.
type MarketInitPayload struct {
	MarketId                  ids.MarketId `json:"market_id"`
	InitialMarginFraction     decimal.D    `json:"initial_margin_fraction"`
	MaintenanceMarginFraction decimal.D    `json:"maintenance_margin_fraction"`
	InitialMarkPrice          decimal.D    `json:"initial_mark_price"`
}

// Rejection reason codes. This is the closed set of strings that can
// appear in a TradeRejectedPayload.Reason or WithdrawalRejectedPayload.Reason;
// callers should compare against these constants rather than literal
// strings.
const (
	ReasonInitialMargin          = "initial_margin"
	ReasonInsufficientCollateral = "insufficient_collateral"
	ReasonZeroQuantity           = "zero_quantity"
	ReasonUnknownMarket          = "unknown_market"
	ReasonUnknownAccount         = "unknown_account"
)
