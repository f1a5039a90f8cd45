package portfolio

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aristath/rebalancer/internal/broker"
	"github.com/aristath/rebalancer/internal/errs"
)

type initResult struct {
	symbol      string
	operationID string
	outcome     broker.OrderOutcome
	err         error
}

// Initialize executes the opening batch of buys that establishes this
// portfolio's positions. It must be called exactly once, before the first
// Rebalance. On success, the portfolio registers itself in its registry
// under every allocated symbol.
func (p *Portfolio) Initialize(ctx context.Context) error {
	if p.IsStale() {
		return &errs.StaleError{}
	}

	batchID := uuid.NewString()

	p.allocMu.RLock()
	symbols := make([]string, 0, len(p.alloc))
	for sym := range p.alloc {
		symbols = append(symbols, sym)
	}
	p.allocMu.RUnlock()

	results := make([]initResult, len(symbols))

	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()

			p.allocMu.RLock()
			a := p.alloc[sym]
			p.allocMu.RUnlock()

			targetAmount := p.initialInvestment.MulPercent(a.TargetPercent)
			opID := uuid.NewString()
			outcome, err := p.broker.BuyByAmount(ctx, sym, targetAmount, batchID, opID)
			results[i] = initResult{symbol: sym, operationID: opID, outcome: outcome, err: err}
		}(i, sym)
	}
	wg.Wait()

	var failed []errs.FailedOperation
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, errs.FailedOperation{
				OperationID: r.operationID, Symbol: r.symbol, Side: "buy", Reason: r.err.Error(),
			})
		}
	}

	if len(failed) == 0 {
		p.allocMu.Lock()
		for _, r := range results {
			a := p.alloc[r.symbol]
			a.Held = r.outcome.RealizedQuantity
			p.alloc[r.symbol] = a
		}
		p.allocMu.Unlock()

		if p.reg != nil {
			p.reg.Register(p)
		}
		return nil
	}

	if p.broker.RollbackBatch(ctx, batchID) {
		return &errs.InitializationError{BatchID: batchID, Failed: failed}
	}
	p.setStale()
	return &errs.StaleError{BatchID: batchID, Failed: failed}
}
