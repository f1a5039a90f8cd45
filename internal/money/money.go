// Package money provides exact decimal arithmetic at the fixed scales the
// rebalancing engine requires: money (cents), share quantity (fractional
// shares), and percent (allocation fractions). Every value quantizes to its
// scale at construction and after every arithmetic result, so no caller can
// accumulate sub-scale drift by accident.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of decimal places cash values quantize to.
	MoneyScale = 2
	// QuantityScale is the number of decimal places share quantities quantize to.
	QuantityScale = 9
	// PercentScale is the number of decimal places allocation fractions quantize to.
	PercentScale = 4
)

// Money is an exact decimal cash value, quantized to MoneyScale half-up.
type Money struct{ d decimal.Decimal }

// NewMoney quantizes amount to MoneyScale.
func NewMoney(amount decimal.Decimal) Money {
	return Money{d: amount.Round(MoneyScale)}
}

// MoneyFromFloat is a convenience constructor for literal values in tests and config.
func MoneyFromFloat(amount float64) Money {
	return NewMoney(decimal.NewFromFloat(amount))
}

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) Add(o Money) Money        { return NewMoney(m.d.Add(o.d)) }
func (m Money) Sub(o Money) Money        { return NewMoney(m.d.Sub(o.d)) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) LessThan(o Money) bool    { return m.d.LessThan(o.d) }
func (m Money) String() string           { return m.d.StringFixed(MoneyScale) }

// MulPercent multiplies a cash value by an allocation fraction, quantizing the result.
func (m Money) MulPercent(p Percent) Money { return NewMoney(m.d.Mul(p.d)) }

// Quantity is an exact decimal share count, quantized to QuantityScale half-up.
type Quantity struct{ d decimal.Decimal }

func NewQuantity(q decimal.Decimal) Quantity {
	return Quantity{d: q.Round(QuantityScale)}
}

func QuantityFromFloat(q float64) Quantity {
	return NewQuantity(decimal.NewFromFloat(q))
}

func (q Quantity) Decimal() decimal.Decimal    { return q.d }
func (q Quantity) Add(o Quantity) Quantity     { return NewQuantity(q.d.Add(o.d)) }
func (q Quantity) Sub(o Quantity) Quantity     { return NewQuantity(q.d.Sub(o.d)) }
func (q Quantity) IsZero() bool                { return q.d.IsZero() }
func (q Quantity) IsNegative() bool            { return q.d.IsNegative() }
func (q Quantity) Abs() Quantity               { return NewQuantity(q.d.Abs()) }
func (q Quantity) GreaterThan(o Quantity) bool { return q.d.GreaterThan(o.d) }
func (q Quantity) String() string              { return q.d.StringFixed(QuantityScale) }

// MulPrice converts a share quantity to a cash value at the given price.
func (q Quantity) MulPrice(p Price) Money { return NewMoney(q.d.Mul(p.d)) }

// Price is an exact decimal per-share price. It quantizes to MoneyScale,
// since prices and cash share the same granularity in this system.
type Price struct{ d decimal.Decimal }

func NewPrice(p decimal.Decimal) Price { return Price{d: p.Round(MoneyScale)} }

func PriceFromFloat(p float64) Price { return NewPrice(decimal.NewFromFloat(p)) }

func (p Price) Decimal() decimal.Decimal { return p.d }
func (p Price) IsPositive() bool         { return p.d.IsPositive() }
func (p Price) String() string           { return p.d.StringFixed(MoneyScale) }

// DivPrice converts a cash amount to a share quantity at the given price,
// rounded at the share-quantity scale.
func (m Money) DivPrice(p Price) Quantity {
	return NewQuantity(m.d.DivRound(p.d, QuantityScale+2).Round(QuantityScale))
}

// PercentChange computes (new-old)/old as a Percent, unbounded (not quantized
// to the [0,1] allocation range — this is a raw relative change, used only for
// the price-change alert threshold comparison).
func PercentChange(old, new Price) Percent {
	if old.d.IsZero() {
		return Percent{d: decimal.Zero}
	}
	return Percent{d: new.d.Sub(old.d).DivRound(old.d, PercentScale+2).Round(PercentScale)}
}

// Percent is an exact decimal fraction of 1, quantized to PercentScale half-up.
type Percent struct{ d decimal.Decimal }

func NewPercent(p decimal.Decimal) Percent { return Percent{d: p.Round(PercentScale)} }

func PercentFromFloat(p float64) Percent { return NewPercent(decimal.NewFromFloat(p)) }

func (p Percent) Decimal() decimal.Decimal { return p.d }
func (p Percent) Abs() Percent             { return Percent{d: p.d.Abs()} }
func (p Percent) Sub(o Percent) Percent    { return NewPercent(p.d.Sub(o.d)) }
func (p Percent) GreaterThanOrEqual(o Percent) bool {
	return p.d.GreaterThanOrEqual(o.d)
}
func (p Percent) GreaterThan(o Percent) bool { return p.d.GreaterThan(o.d) }
func (p Percent) LessThan(o Percent) bool    { return p.d.LessThan(o.d) }
func (p Percent) String() string             { return p.d.StringFixed(PercentScale) }

// SumPercents adds a slice of Percent values exactly, quantizing only the final result.
func SumPercents(ps []Percent) Percent {
	sum := decimal.Zero
	for _, p := range ps {
		sum = sum.Add(p.d)
	}
	return NewPercent(sum)
}

// TargetQuantity computes (totalValue * targetPercent) / price directly at
// the quantity scale, rounding exactly once. Callers must not derive this by
// rounding an intermediate target cash amount to MoneyScale first and then
// dividing — that is a coarser, doubly-rounded result.
func TargetQuantity(totalValue Money, targetPercent Percent, price Price) Quantity {
	raw := totalValue.d.Mul(targetPercent.d)
	return NewQuantity(raw.DivRound(price.d, QuantityScale+2))
}

// DivMoney divides one cash value by another and returns the ratio as a
// Percent, as used when computing a holding's share of total value. Returns
// an error when o is zero.
func (m Money) DivMoney(o Money) (Percent, error) {
	if o.d.IsZero() {
		return Percent{}, fmt.Errorf("money: division by zero")
	}
	return NewPercent(m.d.DivRound(o.d, PercentScale+2)), nil
}
