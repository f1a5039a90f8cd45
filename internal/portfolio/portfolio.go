// Package portfolio implements the rebalancing engine's central type: a
// collection of allocated stocks held against a broker, rebalanced under a
// per-portfolio, TTL-bounded mutual-exclusion lock. See Initialize and
// Rebalance for the two mutating operations.
package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/broker"
	"github.com/aristath/rebalancer/internal/errs"
	"github.com/aristath/rebalancer/internal/market"
	"github.com/aristath/rebalancer/internal/money"
)

// Registry is the narrow contract a portfolio depends on to make itself
// discoverable by symbol. This interface breaks the circular dependency
// between portfolio (which registers itself in Initialize) and
// registry (which must invoke Rebalance on the portfolios it indexes) — the
// portfolio package never imports the registry package's concrete type.
type Registry interface {
	Register(p Rebalancer)
	Unregister(p Rebalancer)
}

// Rebalancer mirrors registry.Rebalancer so this package never imports the
// registry package (only depends on the shape it requires of a Portfolio).
// Both are aliases of the same interface literal, so *registry.Registry
// satisfies Registry.
type Rebalancer = interface {
	ID() string
	Symbols() []string
	Rebalance(ctx context.Context) error
}

// DeviationRecorder receives the maximum per-symbol deviation observed on
// every Rebalance call that acquires the lock and finds a non-zero total
// value, whether or not it crossed the trading threshold. Calls rejected as
// stale, skipped on a held lock, or on a zero-value portfolio record nothing.
// Satisfied by *analytics.History; optional, purely observational.
type DeviationRecorder interface {
	Record(maxDeviation float64)
}

// AllocatedStock is a target slot within a portfolio: a reference to a
// market.Stock, a target allocation percentage, and currently-held quantity.
type AllocatedStock struct {
	Stock         *market.Stock
	TargetPercent money.Percent
	Held          money.Quantity
}

// Config is the fully-validated configuration a Portfolio is constructed
// from. Construction is inert: nothing is bought until Initialize runs.
type Config struct {
	ID                string // generated if empty
	Name              string
	InitialInvestment money.Money
	Broker            broker.Broker
	Registry          Registry          // optional
	DeviationRecorder DeviationRecorder // optional
	Allocations       map[string]AllocatedStock

	MinInvestment            money.Money
	MaxPortfolioValue        money.Money
	RebalanceDeviationThresh money.Percent
	LockTTL                  time.Duration
}

// Portfolio holds allocated positions, computes deviation, and executes
// rebalance under a TTL lock. Construct with New, then call Initialize
// before the first Rebalance.
type Portfolio struct {
	id          string
	name        string
	broker      broker.Broker
	reg         Registry
	devRecorder DeviationRecorder
	log         zerolog.Logger

	initialInvestment money.Money
	deviationThresh   money.Percent
	lockTTL           time.Duration

	allocMu sync.RWMutex
	alloc   map[string]AllocatedStock

	lockMu        sync.Mutex
	isRebalancing bool
	startedAt     time.Time

	staleMu sync.RWMutex
	stale   bool
}

// New validates cfg and constructs an inert Portfolio. No broker call is made.
func New(cfg Config, log zerolog.Logger) (*Portfolio, error) {
	if len(cfg.Allocations) == 0 {
		return nil, &errs.InvalidSymbolError{Symbol: "<none>"}
	}
	if cfg.InitialInvestment.LessThan(cfg.MinInvestment) || cfg.InitialInvestment.GreaterThan(cfg.MaxPortfolioValue) {
		return nil, &errs.InvalidPriceError{Symbol: cfg.Name, Reason: "initial investment out of bounds"}
	}

	sum := money.Percent{}
	percents := make([]money.Percent, 0, len(cfg.Allocations))
	for symbol, a := range cfg.Allocations {
		if err := market.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
		percents = append(percents, a.TargetPercent)
	}
	sum = money.SumPercents(percents)
	if sum.Decimal().Cmp(money.PercentFromFloat(1.0).Decimal()) != 0 {
		return nil, &errs.InvalidPriceError{Symbol: cfg.Name, Reason: "allocation percentages must sum to exactly 1"}
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	alloc := make(map[string]AllocatedStock, len(cfg.Allocations))
	for symbol, a := range cfg.Allocations {
		alloc[symbol] = a
	}

	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	return &Portfolio{
		id:                id,
		name:              cfg.Name,
		broker:            cfg.Broker,
		reg:               cfg.Registry,
		devRecorder:       cfg.DeviationRecorder,
		log:               log.With().Str("component", "portfolio").Str("portfolio_id", id).Logger(),
		initialInvestment: cfg.InitialInvestment,
		deviationThresh:   cfg.RebalanceDeviationThresh,
		lockTTL:           ttl,
		alloc:             alloc,
	}, nil
}

// ID returns the portfolio's opaque unique id.
func (p *Portfolio) ID() string { return p.id }

// Name returns the portfolio's name.
func (p *Portfolio) Name() string { return p.name }

// Symbols returns the symbols this portfolio currently allocates to. Used by
// the registry to index this portfolio under each of its symbols.
func (p *Portfolio) Symbols() []string {
	p.allocMu.RLock()
	defer p.allocMu.RUnlock()
	out := make([]string, 0, len(p.alloc))
	for sym := range p.alloc {
		out = append(out, sym)
	}
	return out
}

// IsStale reports whether the portfolio is in the stale state.
func (p *Portfolio) IsStale() bool {
	p.staleMu.RLock()
	defer p.staleMu.RUnlock()
	return p.stale
}

// ClearStale clears the stale flag. Not a business-logic recovery path —
// calling this without having first reconciled broker state out-of-band
// leaves holdings inconsistent with the broker. Operator action only.
func (p *Portfolio) ClearStale() {
	p.staleMu.Lock()
	defer p.staleMu.Unlock()
	p.stale = false
}

func (p *Portfolio) setStale() {
	p.staleMu.Lock()
	defer p.staleMu.Unlock()
	p.stale = true
}

// HoldingView is a read-only view of one allocated position, used by the
// HTTP surface and the snapshot exporter. It never aliases internal state.
type HoldingView struct {
	Symbol        string
	TargetPercent money.Percent
	Held          money.Quantity
	Price         money.Price
	Value         money.Money
}

// View is a read-only, point-in-time snapshot of a portfolio's public state.
type View struct {
	ID       string
	Name     string
	Stale    bool
	Holdings []HoldingView
}

// Snapshot returns a copy of the portfolio's current state. Safe to call
// concurrently with Initialize/Rebalance; never blocks on the rebalance lock.
func (p *Portfolio) Snapshot() View {
	p.allocMu.RLock()
	holdings := make([]HoldingView, 0, len(p.alloc))
	for sym, a := range p.alloc {
		price := a.Stock.CurrentPrice()
		holdings = append(holdings, HoldingView{
			Symbol:        sym,
			TargetPercent: a.TargetPercent,
			Held:          a.Held,
			Price:         price,
			Value:         a.Held.MulPrice(price),
		})
	}
	p.allocMu.RUnlock()

	return View{ID: p.id, Name: p.name, Stale: p.IsStale(), Holdings: holdings}
}

// HeldQuantity returns the currently-held quantity for symbol (zero if absent).
func (p *Portfolio) HeldQuantity(symbol string) money.Quantity {
	p.allocMu.RLock()
	defer p.allocMu.RUnlock()
	if a, ok := p.alloc[symbol]; ok {
		return a.Held
	}
	return money.Quantity{}
}

// LockHeldSince reports whether the rebalance lock is currently held and, if
// so, how long ago it was acquired. Used by the stale-lock sweep job to
// surface locks that have outlived their TTL without force-releasing them.
func (p *Portfolio) LockHeldSince() (time.Duration, bool) {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()
	if !p.isRebalancing {
		return 0, false
	}
	return time.Since(p.startedAt), true
}

// LockTTL returns the portfolio's configured stuck-lock takeover duration.
func (p *Portfolio) LockTTL() time.Duration { return p.lockTTL }

// acquireLock implements the acquire protocol of the per-portfolio rebalance
// lock. Returns true if acquired (including stuck-lock takeover), false if
// the lock is held and unexpired ("skip").
func (p *Portfolio) acquireLock() bool {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()

	now := time.Now()
	if !p.isRebalancing {
		p.isRebalancing = true
		p.startedAt = now
		return true
	}
	if now.Sub(p.startedAt) < p.lockTTL {
		return false
	}
	// Stuck lock: take over. A liveness property only — no behavior depends
	// on the TTL for correctness.
	p.startedAt = now
	return true
}

func (p *Portfolio) releaseLock() {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()
	p.isRebalancing = false
	p.startedAt = time.Time{}
}
