package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/analytics"
	"github.com/aristath/rebalancer/internal/broker"
	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/market"
	"github.com/aristath/rebalancer/internal/money"
	"github.com/aristath/rebalancer/internal/portfolio"
	"github.com/aristath/rebalancer/internal/registry"
)

// seedMarket registers the initial tradable universe. A production
// deployment would source this from a securities catalog; this process has
// no persistence layer by design, so the universe is a fixed starter set.
func seedMarket(mkt *market.Market, reg *registry.Registry) error {
	bounds := market.Bounds{
		MinPrice:    money.PriceFromFloat(0.01),
		MaxPrice:    money.PriceFromFloat(1000000),
		AlertThresh: money.PercentFromFloat(0.01),
	}

	seeds := []struct {
		symbol string
		price  float64
	}{
		{"AAPL", 190.00},
		{"MSFT", 420.00},
		{"GOOG", 150.00},
		{"AMZN", 175.00},
	}

	for _, s := range seeds {
		stock, err := market.NewStock(s.symbol, money.PriceFromFloat(s.price), bounds, reg)
		if err != nil {
			return err
		}
		mkt.Add(stock)
	}
	return nil
}

// seedPortfolios constructs the starter portfolio set and runs their opening
// buy batch. Allocation percentages and symbols are fixed here for the same
// reason as seedMarket: there is no configuration store to read them from.
func seedPortfolios(cfg *config.Config, mkt *market.Market, b *broker.AtomicBroker, reg *registry.Registry, store *portfolioStore, history *analytics.History, log zerolog.Logger) error {
	allocations := map[string]portfolio.AllocatedStock{
		"AAPL": {Stock: mkt.Get("AAPL"), TargetPercent: money.PercentFromFloat(0.40)},
		"MSFT": {Stock: mkt.Get("MSFT"), TargetPercent: money.PercentFromFloat(0.35)},
		"GOOG": {Stock: mkt.Get("GOOG"), TargetPercent: money.PercentFromFloat(0.25)},
	}

	p, err := portfolio.New(portfolio.Config{
		Name:                     "default",
		InitialInvestment:        money.MoneyFromFloat(10000),
		Broker:                   b,
		Registry:                 reg,
		DeviationRecorder:        history,
		Allocations:              allocations,
		MinInvestment:            money.NewMoney(cfg.MinInvestment),
		MaxPortfolioValue:        money.NewMoney(cfg.MaxPortfolioValue),
		RebalanceDeviationThresh: money.NewPercent(cfg.RebalanceDeviationThresh),
		LockTTL:                  cfg.RebalanceLockTTL,
	}, log)
	if err != nil {
		return err
	}

	if err := p.Initialize(context.Background()); err != nil {
		return err
	}

	store.add(p)
	return nil
}
