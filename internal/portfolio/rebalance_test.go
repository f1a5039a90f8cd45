package portfolio

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/rebalancer/internal/money"
)

func initializedPortfolio(t *testing.T, b *fakeBroker) *Portfolio {
	t.Helper()
	cfg := basicConfig(t, b, &fakeRegistry{})
	p, err := New(cfg, zerolog.Nop())
	assert.NoError(t, err)
	assert.NoError(t, p.Initialize(context.Background()))
	return p
}

func TestRebalanceNoopWhenWithinThreshold(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	p := initializedPortfolio(t, b)

	beforeAAPL := p.HeldQuantity("AAPL")
	err := p.Rebalance(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, beforeAAPL.String(), p.HeldQuantity("AAPL").String())
}

func TestRebalanceTradesWhenDeviationExceedsThreshold(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	p := initializedPortfolio(t, b)

	p.allocMu.Lock()
	a := p.alloc["AAPL"]
	a.Stock = testStock(t, "AAPL", 300)
	p.alloc["AAPL"] = a
	p.allocMu.Unlock()

	err := p.Rebalance(context.Background())
	assert.NoError(t, err)

	held := p.HeldQuantity("AAPL")
	assert.NotEqual(t, "5.000000000", held.String())
}

func TestRebalanceSkippedWhenAlreadyInFlight(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	p := initializedPortfolio(t, b)

	assert.True(t, p.acquireLock())
	defer p.releaseLock()

	err := p.Rebalance(context.Background())
	assert.NoError(t, err)
}

func TestRebalanceConcurrentCallsOnlyOneProceeds(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	p := initializedPortfolio(t, b)

	p.allocMu.Lock()
	a := p.alloc["AAPL"]
	a.Stock = testStock(t, "AAPL", 400)
	p.alloc["AAPL"] = a
	p.allocMu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Rebalance(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestRebalanceRejectedWhenStale(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	p := initializedPortfolio(t, b)
	p.setStale()

	err := p.Rebalance(context.Background())
	assert.Error(t, err)
}

type fakeRecorder struct {
	recorded []float64
}

func (r *fakeRecorder) Record(maxDeviation float64) { r.recorded = append(r.recorded, maxDeviation) }

func TestRebalanceRecordsMaxDeviationRegardlessOfThreshold(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	cfg := basicConfig(t, b, &fakeRegistry{})
	rec := &fakeRecorder{}
	cfg.DeviationRecorder = rec
	p, err := New(cfg, zerolog.Nop())
	assert.NoError(t, err)
	assert.NoError(t, p.Initialize(context.Background()))

	assert.NoError(t, p.Rebalance(context.Background()))
	assert.Len(t, rec.recorded, 1)
}

func TestRebalanceRollsBackAndReturnsRetryErrorOnFailure(t *testing.T) {
	b := newFakeBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100), "MSFT": money.PriceFromFloat(200)})
	p := initializedPortfolio(t, b)

	p.allocMu.Lock()
	a := p.alloc["AAPL"]
	a.Stock = testStock(t, "AAPL", 300)
	p.alloc["AAPL"] = a
	p.allocMu.Unlock()

	b.failSymbols["AAPL"] = true

	err := p.Rebalance(context.Background())
	assert.Error(t, err)
	assert.False(t, p.IsStale())
}
