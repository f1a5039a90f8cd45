package portfolio

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aristath/rebalancer/internal/broker"
	"github.com/aristath/rebalancer/internal/errs"
	"github.com/aristath/rebalancer/internal/money"
)

type deviation struct {
	symbol        string
	held          money.Quantity
	price         money.Price
	targetPercent money.Percent
	deviation     money.Percent
}

// Rebalance acquires the portfolio's lock, measures deviation of every
// holding from its target allocation, and — only if any deviation meets the
// configured threshold — executes the sell-then-buy batch that restores
// target weights. A second call while one is already in flight is skipped
// silently (not an error): the lock protocol is advisory concurrency
// control, not a queue.
func (p *Portfolio) Rebalance(ctx context.Context) error {
	if p.IsStale() {
		return &errs.StaleError{}
	}

	if !p.acquireLock() {
		return nil
	}
	defer p.releaseLock()

	p.allocMu.RLock()
	snapshot := make(map[string]AllocatedStock, len(p.alloc))
	for sym, a := range p.alloc {
		snapshot[sym] = a
	}
	p.allocMu.RUnlock()

	totalValue := money.Money{}
	for _, a := range snapshot {
		totalValue = totalValue.Add(a.Held.MulPrice(a.Stock.CurrentPrice()))
	}
	if totalValue.IsZero() {
		return nil
	}

	devs := make([]deviation, 0, len(snapshot))
	needsRebalance := false
	maxDeviation := money.Percent{}
	for sym, a := range snapshot {
		price := a.Stock.CurrentPrice()
		currentValue := a.Held.MulPrice(price)
		currentPercent, err := currentValue.DivMoney(totalValue)
		if err != nil {
			continue
		}
		d := currentPercent.Sub(a.TargetPercent).Abs()
		devs = append(devs, deviation{symbol: sym, held: a.Held, price: price, targetPercent: a.TargetPercent, deviation: d})
		if d.GreaterThan(maxDeviation) {
			maxDeviation = d
		}
		if d.GreaterThanOrEqual(p.deviationThresh) {
			needsRebalance = true
		}
	}
	if p.devRecorder != nil {
		maxDev, _ := maxDeviation.Decimal().Float64()
		p.devRecorder.Record(maxDev)
	}
	if !needsRebalance {
		return nil
	}

	batchID := uuid.NewString()

	type plannedOrder struct {
		symbol string
		delta  money.Quantity // positive: buy this quantity; negative: sell abs(this) quantity
	}
	orders := make([]plannedOrder, 0, len(devs))
	for _, d := range devs {
		targetQuantity := money.TargetQuantity(totalValue, d.targetPercent, d.price)
		delta := targetQuantity.Sub(d.held)
		if delta.IsZero() {
			continue
		}
		orders = append(orders, plannedOrder{symbol: d.symbol, delta: delta})
	}

	type orderResult struct {
		symbol      string
		side        string
		operationID string
		outcome     broker.OrderOutcome
		err         error
	}

	runPhase := func(phase []plannedOrder, sell bool) []orderResult {
		results := make([]orderResult, len(phase))
		var wg sync.WaitGroup
		for i, o := range phase {
			wg.Add(1)
			go func(i int, o plannedOrder) {
				defer wg.Done()
				opID := uuid.NewString()
				var outcome broker.OrderOutcome
				var err error
				var side string
				if sell {
					side = "sell"
					outcome, err = p.broker.SellByQuantity(ctx, o.symbol, o.delta.Abs(), batchID, opID)
				} else {
					side = "buy"
					outcome, err = p.broker.BuyByQuantity(ctx, o.symbol, o.delta, batchID, opID)
				}
				results[i] = orderResult{symbol: o.symbol, side: side, operationID: opID, outcome: outcome, err: err}
			}(i, o)
		}
		wg.Wait()
		return results
	}

	var sells, buys []plannedOrder
	for _, o := range orders {
		if o.delta.IsNegative() {
			sells = append(sells, o)
		} else {
			buys = append(buys, o)
		}
	}

	allResults := make([]orderResult, 0, len(orders))
	allResults = append(allResults, runPhase(sells, true)...)
	allResults = append(allResults, runPhase(buys, false)...)

	var failed []errs.FailedOperation
	for _, r := range allResults {
		if r.err != nil {
			failed = append(failed, errs.FailedOperation{
				OperationID: r.operationID, Symbol: r.symbol, Side: r.side, Reason: r.err.Error(),
			})
		}
	}

	if len(failed) == 0 {
		p.allocMu.Lock()
		for _, r := range allResults {
			a := p.alloc[r.symbol]
			if r.side == "sell" {
				a.Held = a.Held.Sub(r.outcome.RealizedQuantity)
			} else {
				a.Held = a.Held.Add(r.outcome.RealizedQuantity)
			}
			p.alloc[r.symbol] = a
		}
		p.allocMu.Unlock()
		return nil
	}

	if p.broker.RollbackBatch(ctx, batchID) {
		// Rebalance makes one attempt per call and keeps no count across
		// calls, so Attempt is always 1.
		return &errs.RetryError{BatchID: batchID, Failed: failed, Attempt: 1}
	}
	p.setStale()
	return &errs.StaleError{BatchID: batchID, Failed: failed}
}
