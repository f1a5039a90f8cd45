package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/rebalancer/internal/money"
)

func TestMarketAddAndLookup(t *testing.T) {
	m := NewMarket()
	s, err := NewStock("AAPL", money.PriceFromFloat(100), testBounds(), nil)
	assert.NoError(t, err)
	m.Add(s)

	assert.True(t, m.Has("AAPL"))
	assert.False(t, m.Has("MSFT"))

	price, ok := m.PriceOf("AAPL")
	assert.True(t, ok)
	assert.Equal(t, "100.00", price.String())

	_, ok = m.PriceOf("MSFT")
	assert.False(t, ok)

	assert.Same(t, s, m.Get("AAPL"))
	assert.Nil(t, m.Get("MSFT"))
}
