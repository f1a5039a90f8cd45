// Package market implements the Stock entity: a named tradable asset with a
// validated symbol and a validated current price that notifies interested
// listeners (the portfolio registry, in practice) when the price moves enough
// to matter.
package market

import (
	"regexp"
	"sync"

	"github.com/aristath/rebalancer/internal/errs"
	"github.com/aristath/rebalancer/internal/money"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{4}$`)

// ValidateSymbol enforces the four-uppercase-letter rule named in the data model.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return &errs.InvalidSymbolError{Symbol: symbol}
	}
	return nil
}

// PriceListener is notified whenever a Stock's price changes by at least the
// configured alert threshold. This interface breaks the circular dependency
// between market (which owns Stock) and registry (which dispatches on price
// change and holds portfolios, which in turn reference market.Stock) — market
// depends only on this narrow contract, never on the registry package itself.
type PriceListener interface {
	OnPriceChange(symbol string, oldPrice, newPrice money.Price, percentChange money.Percent)
}

// Bounds carries the price validation range and the alert threshold, so Stock
// does not need to import the config package directly.
type Bounds struct {
	MinPrice      money.Price
	MaxPrice      money.Price
	AlertThresh   money.Percent
}

// Stock is a tradable asset with a validated symbol and current price.
type Stock struct {
	symbol string
	bounds Bounds

	mu    sync.RWMutex
	price money.Price

	listener PriceListener
}

// NewStock validates symbol and initialPrice and constructs a Stock. The
// listener (typically a Registry) is notified on subsequent price changes; it
// may be nil for a standalone Stock used outside the rebalancing pipeline.
func NewStock(symbol string, initialPrice money.Price, bounds Bounds, listener PriceListener) (*Stock, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := validatePrice(symbol, initialPrice, bounds); err != nil {
		return nil, err
	}
	return &Stock{symbol: symbol, bounds: bounds, price: initialPrice, listener: listener}, nil
}

// Symbol returns the stock's validated symbol.
func (s *Stock) Symbol() string { return s.symbol }

// CurrentPrice is a pure read of the stock's current price.
func (s *Stock) CurrentPrice() money.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price
}

// SetPrice validates newPrice, no-ops if it equals the current price at
// MoneyScale, otherwise updates the stored price and notifies the listener
// if the percent change meets or exceeds the alert threshold.
func (s *Stock) SetPrice(newPrice money.Price) error {
	if err := validatePrice(s.symbol, newPrice, s.bounds); err != nil {
		return err
	}

	s.mu.Lock()
	oldPrice := s.price
	if oldPrice.Decimal().Equal(newPrice.Decimal()) {
		s.mu.Unlock()
		return nil
	}
	s.price = newPrice
	listener := s.listener
	s.mu.Unlock()

	change := money.PercentChange(oldPrice, newPrice)
	if listener != nil && change.Abs().GreaterThanOrEqual(s.bounds.AlertThresh) {
		listener.OnPriceChange(s.symbol, oldPrice, newPrice, change)
	}
	return nil
}

func validatePrice(symbol string, p money.Price, bounds Bounds) error {
	d := p.Decimal()
	if !d.IsPositive() {
		return &errs.InvalidPriceError{Symbol: symbol, Reason: "must be positive"}
	}
	if d.LessThan(bounds.MinPrice.Decimal()) {
		return &errs.InvalidPriceError{Symbol: symbol, Reason: "below MIN_PRICE"}
	}
	if d.GreaterThan(bounds.MaxPrice.Decimal()) {
		return &errs.InvalidPriceError{Symbol: symbol, Reason: "above MAX_PRICE"}
	}
	return nil
}
