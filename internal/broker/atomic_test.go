package broker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/rebalancer/internal/money"
)

type fakeMarket struct {
	prices map[string]money.Price
}

func (m *fakeMarket) PriceOf(symbol string) (money.Price, bool) {
	p, ok := m.prices[symbol]
	return p, ok
}

func (m *fakeMarket) Has(symbol string) bool {
	_, ok := m.prices[symbol]
	return ok
}

func newTestBroker(prices map[string]money.Price) *AtomicBroker {
	return NewAtomicBroker(&fakeMarket{prices: prices}, NoDelay{}, 3, money.QuantityFromFloat(1000000), zerolog.Nop())
}

func TestBuyByAmountComputesQuantity(t *testing.T) {
	b := newTestBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100)})
	outcome, err := b.BuyByAmount(context.Background(), "AAPL", money.MoneyFromFloat(1000), "batch1", "op1")
	assert.NoError(t, err)
	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, "10.000000000", outcome.RealizedQuantity.String())
}

func TestExecuteFailsForUnknownSymbol(t *testing.T) {
	b := newTestBroker(map[string]money.Price{})
	outcome, err := b.BuyByAmount(context.Background(), "ZZZZ", money.MoneyFromFloat(100), "batch1", "op1")
	assert.Error(t, err)
	assert.Equal(t, StatusError, outcome.Status)
}

func TestExecuteIsIdempotentWithinBatch(t *testing.T) {
	b := newTestBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100)})
	first, err1 := b.BuyByAmount(context.Background(), "AAPL", money.MoneyFromFloat(1000), "batch1", "op1")
	assert.NoError(t, err1)

	second, err2 := b.BuyByAmount(context.Background(), "AAPL", money.MoneyFromFloat(9999), "batch1", "op1")
	assert.NoError(t, err2)
	assert.Equal(t, first.RealizedQuantity.String(), second.RealizedQuantity.String())
}

func TestRollbackBatchReversesSuccessfulOrders(t *testing.T) {
	b := newTestBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100)})
	outcome, err := b.BuyByAmount(context.Background(), "AAPL", money.MoneyFromFloat(1000), "batch1", "op1")
	assert.NoError(t, err)
	assert.False(t, outcome.RolledBack)

	ok := b.RollbackBatch(context.Background(), "batch1")
	assert.True(t, ok)

	b.mu.Lock()
	reversed := b.batches["batch1"]["op1"].RolledBack
	b.mu.Unlock()
	assert.True(t, reversed)
}

func TestRollbackBatchUnknownBatchIsNoop(t *testing.T) {
	b := newTestBroker(map[string]money.Price{})
	assert.True(t, b.RollbackBatch(context.Background(), "nonexistent"))
}

func TestRollbackSkipsAlreadyRolledBackOrders(t *testing.T) {
	b := newTestBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100)})
	_, err := b.BuyByAmount(context.Background(), "AAPL", money.MoneyFromFloat(1000), "batch1", "op1")
	assert.NoError(t, err)

	assert.True(t, b.RollbackBatch(context.Background(), "batch1"))
	assert.True(t, b.RollbackBatch(context.Background(), "batch1"))
}

func TestExecuteRejectsOrderExceedingMaxQuantityCeiling(t *testing.T) {
	b := NewAtomicBroker(&fakeMarket{prices: map[string]money.Price{"AAPL": money.PriceFromFloat(100)}}, NoDelay{}, 3, money.QuantityFromFloat(5), zerolog.Nop())
	outcome, err := b.BuyByQuantity(context.Background(), "AAPL", money.QuantityFromFloat(10), "batch1", "op1")
	assert.Error(t, err)
	assert.Equal(t, StatusError, outcome.Status)
}

func TestStandaloneRequestWithoutBatchIDIsNotRecorded(t *testing.T) {
	b := newTestBroker(map[string]money.Price{"AAPL": money.PriceFromFloat(100)})
	_, err := b.SellByQuantity(context.Background(), "AAPL", money.QuantityFromFloat(1), "", "op1")
	assert.NoError(t, err)

	b.mu.Lock()
	_, ok := b.batches[""]
	b.mu.Unlock()
	assert.False(t, ok)
}
