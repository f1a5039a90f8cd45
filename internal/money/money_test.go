package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoneyQuantizesToScale(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"already at scale", 10.50, "10.50"},
		{"rounds half up", 10.505, "10.51"},
		{"whole number", 100, "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoneyFromFloat(tt.in)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestQuantityQuantizesToNineDecimals(t *testing.T) {
	q := QuantityFromFloat(1.0 / 3.0)
	assert.Equal(t, "0.333333333", q.String())
}

func TestMoneyDivPrice(t *testing.T) {
	amount := MoneyFromFloat(1000)
	price := PriceFromFloat(333.33)
	qty := amount.DivPrice(price)
	assert.Equal(t, "3.000030000", qty.String())
}

func TestQuantityMulPrice(t *testing.T) {
	qty := QuantityFromFloat(10)
	price := PriceFromFloat(25.505)
	got := qty.MulPrice(price)
	assert.Equal(t, "255.10", got.String())
}

func TestPercentChange(t *testing.T) {
	old := PriceFromFloat(100)
	new := PriceFromFloat(110)
	got := PercentChange(old, new)
	assert.Equal(t, "0.1000", got.String())
}

func TestPercentChangeFromZeroIsZero(t *testing.T) {
	old := PriceFromFloat(0)
	got := PercentChange(old, PriceFromFloat(5))
	assert.True(t, got.Decimal().IsZero())
}

func TestSumPercentsExactlyOne(t *testing.T) {
	ps := []Percent{
		PercentFromFloat(0.3333),
		PercentFromFloat(0.3333),
		PercentFromFloat(0.3334),
	}
	sum := SumPercents(ps)
	assert.True(t, sum.Decimal().Equal(decimal.NewFromFloat(1.0)))
}

func TestMoneyDivMoneyByZero(t *testing.T) {
	m := MoneyFromFloat(10)
	_, err := m.DivMoney(MoneyFromFloat(0))
	assert.Error(t, err)
}

func TestMoneyComparisons(t *testing.T) {
	a := MoneyFromFloat(10)
	b := MoneyFromFloat(20)
	assert.True(t, b.GreaterThan(a))
	assert.True(t, a.LessThan(b))
	assert.False(t, a.IsNegative())
	assert.True(t, MoneyFromFloat(0).IsZero())
}

func TestTargetQuantitySingleRoundingAtQuantityScale(t *testing.T) {
	totalValue := MoneyFromFloat(33.33)
	targetPercent := PercentFromFloat(0.4)
	price := PriceFromFloat(7)

	got := TargetQuantity(totalValue, targetPercent, price)
	assert.Equal(t, "1.904571429", got.String())

	doubleRounded := totalValue.MulPercent(targetPercent).DivPrice(price)
	assert.NotEqual(t, doubleRounded.String(), got.String())
}

func TestQuantityAbsAndSub(t *testing.T) {
	a := QuantityFromFloat(5)
	b := QuantityFromFloat(8)
	diff := a.Sub(b)
	assert.True(t, diff.IsNegative())
	assert.Equal(t, "3.000000000", diff.Abs().String())
}
