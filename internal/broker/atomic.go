package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/errs"
	"github.com/aristath/rebalancer/internal/money"
)

// AtomicBroker is the in-memory implementation of Broker. State is a
// two-level mapping, batchID -> operationID -> OrderOutcome, guarded by a
// mutex held only around table mutations, never across order I/O — the same
// discipline the batch table's spec requires and the pattern
// 0xtitan6-polymarket-mm's risk.Manager and store.Store apply to their own
// mutex-guarded maps.
type AtomicBroker struct {
	market Market
	delay  ExecutionDelay
	log    zerolog.Logger

	mu      sync.Mutex
	batches map[string]map[string]*OrderOutcome

	maxRollbackAttempts int
	rollbackRetryDelay  time.Duration
	maxQuantity         money.Quantity
}

// NewAtomicBroker constructs a broker backed by market for pricing. Orders
// whose realized quantity would exceed maxQuantity (the per-order quantity
// ceiling) are rejected rather than executed.
func NewAtomicBroker(market Market, delay ExecutionDelay, maxRollbackAttempts int, maxQuantity money.Quantity, log zerolog.Logger) *AtomicBroker {
	if delay == nil {
		delay = NoDelay{}
	}
	return &AtomicBroker{
		market:              market,
		delay:               delay,
		log:                 log.With().Str("component", "atomic_broker").Logger(),
		batches:             make(map[string]map[string]*OrderOutcome),
		maxRollbackAttempts: maxRollbackAttempts,
		rollbackRetryDelay:  50 * time.Millisecond,
		maxQuantity:         maxQuantity,
	}
}

func (b *AtomicBroker) BuyByAmount(ctx context.Context, symbol string, amount money.Money, batchID, operationID string) (OrderOutcome, error) {
	return b.execute(ctx, OrderRequest{
		OperationID: operationID, Symbol: symbol, Kind: KindBuyByAmount, Amount: amount, BatchID: batchID,
	})
}

func (b *AtomicBroker) BuyByQuantity(ctx context.Context, symbol string, quantity money.Quantity, batchID, operationID string) (OrderOutcome, error) {
	return b.execute(ctx, OrderRequest{
		OperationID: operationID, Symbol: symbol, Kind: KindBuyByQuantity, Quantity: quantity, BatchID: batchID,
	})
}

func (b *AtomicBroker) SellByAmount(ctx context.Context, symbol string, amount money.Money, batchID, operationID string) (OrderOutcome, error) {
	return b.execute(ctx, OrderRequest{
		OperationID: operationID, Symbol: symbol, Kind: KindSellByAmount, Amount: amount, BatchID: batchID,
	})
}

func (b *AtomicBroker) SellByQuantity(ctx context.Context, symbol string, quantity money.Quantity, batchID, operationID string) (OrderOutcome, error) {
	return b.execute(ctx, OrderRequest{
		OperationID: operationID, Symbol: symbol, Kind: KindSellByQuantity, Quantity: quantity, BatchID: batchID,
	})
}

func sideOf(kind OrderKind) Side {
	if kind == KindBuyByAmount || kind == KindBuyByQuantity {
		return SideBuy
	}
	return SideSell
}

// execute resolves price, applies delay, computes realized quantity, and
// unconditionally records the outcome in the batch table if a batch id was
// supplied. It is idempotent relative to operationID within a still-live batch.
func (b *AtomicBroker) execute(ctx context.Context, req OrderRequest) (OrderOutcome, error) {
	if req.BatchID != "" {
		if existing, ok := b.lookup(req.BatchID, req.OperationID); ok {
			return *existing, existing.Err
		}
	}

	side := sideOf(req.Kind)
	price, ok := b.market.PriceOf(req.Symbol)
	if !ok {
		outcome := OrderOutcome{Request: req, Status: StatusError}
		err := &errs.OrderError{Side: string(side), Symbol: req.Symbol, BatchID: req.BatchID, OperationID: req.OperationID, Reason: "symbol not found in market"}
		outcome.Err = err
		b.record(req.BatchID, req.OperationID, &outcome)
		return outcome, err
	}

	select {
	case <-ctx.Done():
		outcome := OrderOutcome{Request: req, Status: StatusError, Err: ctx.Err()}
		b.record(req.BatchID, req.OperationID, &outcome)
		return outcome, ctx.Err()
	case <-time.After(b.delay.Delay()):
	}

	var realized money.Quantity
	switch req.Kind {
	case KindBuyByAmount, KindSellByAmount:
		realized = req.Amount.DivPrice(price)
	case KindBuyByQuantity, KindSellByQuantity:
		realized = req.Quantity
	}

	if !b.maxQuantity.IsZero() && realized.Abs().GreaterThan(b.maxQuantity) {
		outcome := OrderOutcome{Request: req, Status: StatusError}
		err := &errs.OrderError{Side: string(side), Symbol: req.Symbol, BatchID: req.BatchID, OperationID: req.OperationID, Reason: "realized quantity exceeds configured ceiling"}
		outcome.Err = err
		b.record(req.BatchID, req.OperationID, &outcome)
		return outcome, err
	}

	outcome := OrderOutcome{
		Request:          req,
		Status:           StatusSuccess,
		ExecutionPrice:   price,
		RealizedQuantity: realized,
	}
	b.record(req.BatchID, req.OperationID, &outcome)
	return outcome, nil
}

func (b *AtomicBroker) lookup(batchID, operationID string) (*OrderOutcome, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops, ok := b.batches[batchID]
	if !ok {
		return nil, false
	}
	outcome, ok := ops[operationID]
	return outcome, ok
}

func (b *AtomicBroker) record(batchID, operationID string, outcome *OrderOutcome) {
	if batchID == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ops, ok := b.batches[batchID]
	if !ok {
		ops = make(map[string]*OrderOutcome)
		b.batches[batchID] = ops
	}
	ops[operationID] = outcome
}

// Outcomes returns a copy of every recorded operation outcome for batchID,
// keyed by operation id. Used by the read-only HTTP surface; never returns
// the live map.
func (b *AtomicBroker) Outcomes(batchID string) (map[string]OrderOutcome, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops, ok := b.batches[batchID]
	if !ok {
		return nil, false
	}
	out := make(map[string]OrderOutcome, len(ops))
	for opID, o := range ops {
		out[opID] = *o
	}
	return out, true
}

// RollbackBatch reverses every successful, not-yet-rolled-back operation in
// batchID by issuing its inverse (a buy becomes a sell of the realized
// quantity, and vice versa, at the current market price — quantity-based so
// the share count reverses exactly, per the spec's rationale). A reversed
// operation is marked RolledBack with status rolled_back. The inverse orders
// run without a batch id, so their own outcomes are not recorded in the batch
// table. Returns true if every successful operation was reversed.
func (b *AtomicBroker) RollbackBatch(ctx context.Context, batchID string) bool {
	b.mu.Lock()
	ops, ok := b.batches[batchID]
	if !ok {
		b.mu.Unlock()
		return true
	}
	toReverse := make([]*OrderOutcome, 0, len(ops))
	for _, o := range ops {
		if o.Status == StatusSuccess && !o.RolledBack {
			toReverse = append(toReverse, o)
		}
	}
	b.mu.Unlock()

	allReversed := true
	for _, original := range toReverse {
		if !b.reverseOne(ctx, batchID, original) {
			allReversed = false
		}
	}
	return allReversed
}

func (b *AtomicBroker) reverseOne(ctx context.Context, batchID string, original *OrderOutcome) bool {
	inverseSide := SideSell
	if sideOf(original.Request.Kind) == SideSell {
		inverseSide = SideBuy
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxRollbackAttempts; attempt++ {
		inverseOpID := uuid.NewString()
		var outcome OrderOutcome
		var err error
		if inverseSide == SideSell {
			outcome, err = b.SellByQuantity(ctx, original.Request.Symbol, original.RealizedQuantity, "", inverseOpID)
		} else {
			outcome, err = b.BuyByQuantity(ctx, original.Request.Symbol, original.RealizedQuantity, "", inverseOpID)
		}
		if err == nil && outcome.Status == StatusSuccess {
			b.mu.Lock()
			original.RolledBack = true
			original.Status = StatusRolledBack
			b.mu.Unlock()
			return true
		}
		lastErr = err
		b.log.Warn().
			Str("batch_id", batchID).
			Str("symbol", original.Request.Symbol).
			Int("attempt", attempt).
			Err(lastErr).
			Msg("rollback attempt failed")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.rollbackRetryDelay):
		}
	}
	return false
}
