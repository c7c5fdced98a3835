package engine

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/tembolo1284/cross-margin-engine/pkg/decimal"
	"github.com/tembolo1284/cross-margin-engine/pkg/eventlog"
	"github.com/tembolo1284/cross-margin-engine/pkg/ids"
	"github.com/tembolo1284/cross-margin-engine/pkg/liquidation"
	"github.com/tembolo1284/cross-margin-engine/pkg/risk"
	"github.com/tembolo1284/cross-margin-engine/pkg/state"
	"github.com/tembolo1284/cross-margin-engine/pkg/types"
)

// Outcome is the live-mode ingest result: accepted, or rejected with a
// reason from the closed reason-code set.
type Outcome struct {
	Accepted bool
	Reason   string
}

// Engine is the live-mode orchestrator: it owns the one State value a
// running process ever mutates, assigns sequence numbers through its
// Sequencer, appends every accepted and every rejected event to the
// durable log, applies it, and runs a liquidation scan when the event
// kind calls for one. Replay never touches this type — ReplayFrom
// drives ApplyEvent directly, with no scanning.
//
// The mutex is the single serial region: ingestion may arrive
// concurrently at the edge, but only one goroutine is ever inside
// Ingest* at a time.
type Engine struct {
	mu     sync.Mutex
	state  *state.State
	seq    *Sequencer
	log    *eventlog.Writer
	logger *zap.Logger
}

// New returns a live engine seeded with initial state, appending
// accepted/rejected events to log and logging orchestration decisions
// through logger.
func New(initial *state.State, log *eventlog.Writer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		state:  initial,
		seq:    NewSequencer(initial.NextSequence),
		log:    log,
		logger: logger,
	}
}

// State returns the engine's current state. Callers must not mutate the
// returned value; Snapshot (package snapshot) is the supported way to
// capture an independent copy.
func (e *Engine) State() *state.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) appendAndApply(ev *types.Event) error {
	next, err := ApplyEvent(e.state, ev)
	if err != nil {
		return err
	}
	if e.log != nil {
		if err := e.log.Append(ev); err != nil {
			return fmt.Errorf("engine: append to log: %w", err)
		}
	}
	e.state = next
	return nil
}

func (e *Engine) runLiquidationScan(triggerEvent *types.Event) error {
	candidates := liquidation.ScopeFor(e.state, triggerEvent)
	if len(candidates) == 0 {
		return nil
	}
	next, emitted, err := liquidation.Run(e.state, candidates, e.seq.Next, ApplyEvent)
	if err != nil {
		return err
	}
	e.state = next
	for _, fill := range emitted {
		if e.log != nil {
			if err := e.log.Append(fill); err != nil {
				return fmt.Errorf("engine: append liquidation fill to log: %w", err)
			}
		}
		e.logger.Warn("liquidation fill",
			zap.String("account_id", string(fill.LiquidationFill.AccountId)),
			zap.String("market_id", string(fill.LiquidationFill.MarketId)),
			zap.String("quantity", fill.LiquidationFill.Quantity.String()),
			zap.String("price", fill.LiquidationFill.Price.String()),
		)
	}
	return nil
}

// IngestDeposit credits collateral. Deposits never trigger a liquidation
// scan (they can only improve health).
func (e *Engine) IngestDeposit(accountId ids.AccountId, amount decimal.D) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := &types.Event{Sequence: e.seq.Next(), Kind: types.KindDeposit, Deposit: &types.DepositPayload{AccountId: accountId, Amount: amount}}
	if err := e.appendAndApply(ev); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("deposit applied", zap.String("account_id", string(accountId)), zap.String("amount", amount.String()))
	return Outcome{Accepted: true}, nil
}

// IngestWithdraw runs check_withdrawal, then either applies a Withdraw
// or records a WithdrawalRejected; withdrawals never trigger a scan
// either, since they can only reduce collateral within the bound the
// check already enforces.
func (e *Engine) IngestWithdraw(accountId ids.AccountId, amount decimal.D) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	decision := risk.CheckWithdrawal(e.state, accountId, amount)
	if !decision.Accepted {
		ev := &types.Event{
			Sequence:           e.seq.Next(),
			Kind:               types.KindWithdrawalRejected,
			WithdrawalRejected: &types.WithdrawalRejectedPayload{AccountId: accountId, Amount: amount, Reason: decision.Reason},
		}
		if err := e.appendAndApply(ev); err != nil {
			return Outcome{}, err
		}
		e.logger.Info("withdrawal rejected", zap.String("account_id", string(accountId)), zap.String("reason", decision.Reason))
		return Outcome{Accepted: false, Reason: decision.Reason}, nil
	}

	ev := &types.Event{Sequence: e.seq.Next(), Kind: types.KindWithdraw, Withdraw: &types.WithdrawPayload{AccountId: accountId, Amount: amount}}
	if err := e.appendAndApply(ev); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("withdrawal applied", zap.String("account_id", string(accountId)), zap.String("amount", amount.String()))
	return Outcome{Accepted: true}, nil
}

// IngestTradeFill runs simulate_trade, then either applies a TradeFill
// (followed by a liquidation scan scoped to this account) or records a
// TradeRejected.
func (e *Engine) IngestTradeFill(accountId ids.AccountId, marketId ids.MarketId, quantity, price decimal.D) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	decision, err := risk.SimulateTrade(e.state, accountId, marketId, quantity, price)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Accepted {
		ev := &types.Event{
			Sequence:      e.seq.Next(),
			Kind:          types.KindTradeRejected,
			TradeRejected: &types.TradeRejectedPayload{AccountId: accountId, MarketId: marketId, Quantity: quantity, Price: price, Reason: decision.Reason},
		}
		if err := e.appendAndApply(ev); err != nil {
			return Outcome{}, err
		}
		e.logger.Info("trade rejected", zap.String("account_id", string(accountId)), zap.String("market_id", string(marketId)), zap.String("reason", decision.Reason))
		return Outcome{Accepted: false, Reason: decision.Reason}, nil
	}

	ev := &types.Event{
		Sequence:  e.seq.Next(),
		Kind:      types.KindTradeFill,
		TradeFill: &types.TradeFillPayload{AccountId: accountId, MarketId: marketId, Quantity: quantity, Price: price},
	}
	if err := e.appendAndApply(ev); err != nil {
		return Outcome{}, err
	}
	if err := e.runLiquidationScan(ev); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("trade fill applied", zap.String("account_id", string(accountId)), zap.String("market_id", string(marketId)))
	return Outcome{Accepted: true}, nil
}

// IngestMarkPriceUpdate applies a mark price change and, only if the
// price actually moved, runs a liquidation scan over every account
// holding a position in that market.
func (e *Engine) IngestMarkPriceUpdate(marketId ids.MarketId, price decimal.D) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	market := e.state.Market(marketId)
	var priceMoved bool
	if market != nil {
		priceMoved = !market.MarkPrice.Equal(price)
	}

	ev := &types.Event{Sequence: e.seq.Next(), Kind: types.KindMarkPriceUpdate, MarkPriceUpdate: &types.MarkPriceUpdatePayload{MarketId: marketId, Price: price}}
	if err := e.appendAndApply(ev); err != nil {
		return Outcome{}, err
	}
	if priceMoved {
		if err := e.runLiquidationScan(ev); err != nil {
			return Outcome{}, err
		}
	}
	e.logger.Info("mark price updated", zap.String("market_id", string(marketId)), zap.String("price", price.String()))
	return Outcome{Accepted: true}, nil
}

// IngestFundingUpdate settles funding across every position in the
// market, then runs a liquidation scan over the same set.
func (e *Engine) IngestFundingUpdate(marketId ids.MarketId, newIndex decimal.D) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := &types.Event{Sequence: e.seq.Next(), Kind: types.KindFundingUpdate, FundingUpdate: &types.FundingUpdatePayload{MarketId: marketId, NewCumulativeIndex: newIndex}}
	if err := e.appendAndApply(ev); err != nil {
		return Outcome{}, err
	}
	if err := e.runLiquidationScan(ev); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("funding settled", zap.String("market_id", string(marketId)), zap.String("new_index", newIndex.String()))
	return Outcome{Accepted: true}, nil
}

// IngestMarketInit bootstraps a new market. No scan: a market with no
// accounts yet cannot have a liquidatable position.
func (e *Engine) IngestMarketInit(marketId ids.MarketId, imFraction, mmFraction, initialMarkPrice decimal.D) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := &types.Event{
		Sequence: e.seq.Next(),
		Kind:     types.KindMarketInit,
		MarketInit: &types.MarketInitPayload{
			MarketId:                  marketId,
			InitialMarginFraction:     imFraction,
			MaintenanceMarginFraction: mmFraction,
			InitialMarkPrice:          initialMarkPrice,
		},
	}
	if err := e.appendAndApply(ev); err != nil {
		return Outcome{}, err
	}
	e.logger.Info("market initialized", zap.String("market_id", string(marketId)))
	return Outcome{Accepted: true}, nil
}

// ReplayFrom rebuilds state from scratch by reading every event from r
// and applying it via ApplyEvent, with no liquidation scanning — replay
// trusts that every LiquidationFill the live run emitted is already
// present in the log as data.
func ReplayFrom(r *eventlog.Reader) (*state.State, error) {
	s := state.New()
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, err
		}
		next, applyErr := ApplyEvent(s, ev)
		if applyErr != nil {
			return nil, applyErr
		}
		s = next
	}
}
