package market

import (
	"sync"

	"github.com/aristath/rebalancer/internal/errs"
	"github.com/aristath/rebalancer/internal/money"
)

// Market is the opaque price source the broker consumes: "priceOf(symbol)"
// and "has(symbol)" per the external interfaces table. The broker treats it
// as a read-only lookup; it never mutates prices itself (only Stock.SetPrice,
// driven by an external feed, does that).
type Market struct {
	mu     sync.RWMutex
	stocks map[string]*Stock
}

// NewMarket constructs an empty market.
func NewMarket() *Market {
	return &Market{stocks: make(map[string]*Stock)}
}

// Add registers a stock in the market, keyed by its symbol.
func (m *Market) Add(s *Stock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[s.Symbol()] = s
}

// Has reports whether symbol is present in the market.
func (m *Market) Has(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.stocks[symbol]
	return ok
}

// PriceOf returns the current price of symbol, or false if absent.
func (m *Market) PriceOf(symbol string) (money.Price, bool) {
	m.mu.RLock()
	s, ok := m.stocks[symbol]
	m.mu.RUnlock()
	if !ok {
		return money.Price{}, false
	}
	return s.CurrentPrice(), true
}

// Get returns the Stock for symbol, or nil if absent.
func (m *Market) Get(symbol string) *Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stocks[symbol]
}

// SetPrice routes a price update to the named stock. Used by external price
// feed ingress (see internal/api's PriceFeedSocket) so callers never need a
// direct *Stock reference.
func (m *Market) SetPrice(symbol string, price money.Price) error {
	s := m.Get(symbol)
	if s == nil {
		return &errs.StockNotFoundError{Symbol: symbol}
	}
	return s.SetPrice(price)
}
