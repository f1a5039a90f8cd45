package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/rebalancer/internal/money"
)

type fakePortfolio struct {
	id      string
	symbols []string
	calls   int32
	err     error
}

func (f *fakePortfolio) ID() string        { return f.id }
func (f *fakePortfolio) Symbols() []string { return f.symbols }
func (f *fakePortfolio) Rebalance(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

func TestRegisterAndGetBySymbol(t *testing.T) {
	r := New(zerolog.Nop())
	p := &fakePortfolio{id: "p1", symbols: []string{"AAPL", "MSFT"}}
	r.Register(p)

	got := r.GetBySymbol("AAPL")
	assert.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID())

	assert.Empty(t, r.GetBySymbol("GOOG"))
}

func TestUnregisterRemovesAllMemberships(t *testing.T) {
	r := New(zerolog.Nop())
	p := &fakePortfolio{id: "p1", symbols: []string{"AAPL", "MSFT"}}
	r.Register(p)
	r.Unregister(p)

	assert.Empty(t, r.GetBySymbol("AAPL"))
	assert.Empty(t, r.GetBySymbol("MSFT"))
}

func TestOnPriceChangeDispatchesOnlyToHolders(t *testing.T) {
	r := New(zerolog.Nop())
	holder := &fakePortfolio{id: "holder", symbols: []string{"AAPL"}}
	other := &fakePortfolio{id: "other", symbols: []string{"MSFT"}}
	r.Register(holder)
	r.Register(other)

	r.OnPriceChange("AAPL", money.PriceFromFloat(100), money.PriceFromFloat(110), money.PercentFromFloat(0.1))

	assert.EqualValues(t, 1, atomic.LoadInt32(&holder.calls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&other.calls))
}

func TestOnPriceChangeDispatchesToAllHolders(t *testing.T) {
	r := New(zerolog.Nop())
	const n = 20
	portfolios := make([]*fakePortfolio, n)
	for i := 0; i < n; i++ {
		portfolios[i] = &fakePortfolio{id: string(rune('a' + i)), symbols: []string{"AAPL"}}
		r.Register(portfolios[i])
	}

	r.OnPriceChange("AAPL", money.PriceFromFloat(100), money.PriceFromFloat(101.5), money.PercentFromFloat(0.015))

	for _, p := range portfolios {
		assert.EqualValues(t, 1, atomic.LoadInt32(&p.calls))
	}
}

func TestOnPriceChangeLogsAndContinuesOnError(t *testing.T) {
	r := New(zerolog.Nop())
	failing := &fakePortfolio{id: "failing", symbols: []string{"AAPL"}, err: assertErr{}}
	ok := &fakePortfolio{id: "ok", symbols: []string{"AAPL"}}
	r.Register(failing)
	r.Register(ok)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.OnPriceChange("AAPL", money.PriceFromFloat(100), money.PriceFromFloat(105), money.PercentFromFloat(0.05))
	}()
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&failing.calls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&ok.calls))
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated rebalance failure" }
