// Package registry implements the symbol-indexed portfolio registry: a weak
// index mapping symbol -> portfolios holding it, used to fan out a price
// change to exactly the portfolios affected by it. Dispatch is direct,
// synchronous-per-portfolio-call fan-out, not a message bus — the registry
// performs a lookup and invokes Rebalance itself.
package registry

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/money"
)

// Rebalancer is the narrow contract the registry depends on. This interface
// breaks the circular dependency between registry (which must dispatch
// price-change events) and portfolio (which must register itself on the
// registry it was constructed with) — registry never imports the portfolio
// package, only this shape, following the AllocationTargetProvider-style
// seams the teacher uses throughout internal/domain to avoid import cycles.
// It is an alias of an interface literal, identical to portfolio.Rebalancer,
// so *Registry satisfies portfolio.Registry.
type Rebalancer = interface {
	ID() string
	Symbols() []string
	Rebalance(ctx context.Context) error
}

// Registry maps symbol -> set of portfolios currently holding it. Membership
// is non-owning: Go has no weak references, so this realizes "the registry
// never extends portfolio lifetime" with runtime.AddCleanup, registered at
// Register time, which removes the membership entries if a portfolio becomes
// unreachable through every other path before an explicit Unregister call.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	bySym   map[string]map[string]Rebalancer // symbol -> portfolio id -> portfolio
	cleanup map[string]func()                // portfolio id -> cleanup canceller, for Unregister
}

// New constructs an empty registry. Multiple registries may coexist —
// cmd/server constructs one for the process; tests inject isolated instances.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		log:     log.With().Str("component", "portfolio_registry").Logger(),
		bySym:   make(map[string]map[string]Rebalancer),
		cleanup: make(map[string]func()),
	}
}

// Register records p's membership under each of its current allocated
// symbols, and arms a cleanup so p's membership is removed automatically if
// every other reference to p is dropped without an explicit Unregister.
func (r *Registry) Register(p Rebalancer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	for _, sym := range p.Symbols() {
		set, ok := r.bySym[sym]
		if !ok {
			set = make(map[string]Rebalancer)
			r.bySym[sym] = set
		}
		set[id] = p
	}

	stop := runtime.AddCleanup(p, func(portfolioID string) {
		r.removeByID(portfolioID)
	}, id)
	r.cleanup[id] = stop
}

// Unregister removes all membership entries for p and disarms its cleanup.
func (r *Registry) Unregister(p Rebalancer) {
	r.mu.Lock()
	if stop, ok := r.cleanup[p.ID()]; ok {
		stop()
		delete(r.cleanup, p.ID())
	}
	r.mu.Unlock()
	r.removeByID(p.ID())
}

func (r *Registry) removeByID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sym, set := range r.bySym {
		delete(set, id)
		if len(set) == 0 {
			delete(r.bySym, sym)
		}
	}
}

// GetBySymbol returns the live portfolios currently holding symbol. The
// returned slice is a copy: callers never see a live view of internal state,
// and concurrent registration/unregistration during iteration is safe.
func (r *Registry) GetBySymbol(symbol string) []Rebalancer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.bySym[symbol]
	if !ok {
		return nil
	}
	out := make([]Rebalancer, 0, len(set))
	for _, p := range set {
		out = append(out, p)
	}
	return out
}

// All returns every distinct portfolio currently registered, regardless of
// symbol.
func (r *Registry) All() []Rebalancer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]Rebalancer)
	for _, set := range r.bySym {
		for id, p := range set {
			seen[id] = p
		}
	}
	out := make([]Rebalancer, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	return out
}

// OnPriceChange implements market.PriceListener. For each portfolio holding
// symbol, it invokes Rebalance concurrently; each portfolio serializes itself
// independently via its own rebalance lock, so this fan-out never needs to
// wait for one portfolio before dispatching to the next.
func (r *Registry) OnPriceChange(symbol string, oldPrice, newPrice money.Price, percentChange money.Percent) {
	portfolios := r.GetBySymbol(symbol)
	if len(portfolios) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, p := range portfolios {
		wg.Add(1)
		go func(p Rebalancer) {
			defer wg.Done()
			r.log.Debug().
				Str("portfolio_id", p.ID()).
				Str("symbol", symbol).
				Str("old_price", oldPrice.String()).
				Str("new_price", newPrice.String()).
				Str("percent_change", percentChange.String()).
				Msg("dispatching rebalance on price change")
			// "Log and continue" here is not a recovery: a returned error
			// already means state was updated (stale flag, batch table) or
			// the caller was given structured context — this dispatcher's
			// job is only to keep one portfolio's failure from blocking
			// another's, not to decide what the failure means.
			if err := p.Rebalance(context.Background()); err != nil {
				r.log.Error().
					Str("portfolio_id", p.ID()).
					Str("symbol", symbol).
					Err(err).
					Msg("rebalance failed")
			}
		}(p)
	}
	wg.Wait()
}
