// Package broker defines the order-execution contract consumed by the
// portfolio (four order primitives plus batch rollback) and an in-memory
// implementation, AtomicBroker, that groups related orders under a batch
// identity, tracks per-operation outcomes, and performs compensating
// rollback by inverse trade when a batch is not wholly successful.
package broker

import (
	"context"
	"time"

	"github.com/aristath/rebalancer/internal/money"
)

// Side identifies a buy or sell.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderKind distinguishes the four request shapes named in the data model.
type OrderKind string

const (
	KindBuyByAmount    OrderKind = "buy_by_amount"
	KindBuyByQuantity  OrderKind = "buy_by_quantity"
	KindSellByAmount   OrderKind = "sell_by_amount"
	KindSellByQuantity OrderKind = "sell_by_quantity"
)

// Status is the lifecycle state of a single order outcome within a batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusRolledBack Status = "rolled_back"
)

// OrderRequest carries everything a primitive needs: a per-operation unique
// id, the symbol, either a cash amount or a share quantity at native
// precision, and an optional batch id. A request carries no outcome.
type OrderRequest struct {
	OperationID string
	Symbol      string
	Kind        OrderKind
	Amount      money.Money    // set for *ByAmount kinds
	Quantity    money.Quantity // set for *ByQuantity kinds
	BatchID     string         // empty means stand-alone, no residual state
}

// OrderOutcome records the result of one order primitive.
type OrderOutcome struct {
	Request          OrderRequest
	Status           Status
	ExecutionPrice   money.Price
	RealizedQuantity money.Quantity
	RolledBack       bool
	Err              error
}

// Broker is the contract the portfolio depends on. It never depends on a
// concrete transport — a live broker and a simulated one both implement it.
type Broker interface {
	BuyByAmount(ctx context.Context, symbol string, amount money.Money, batchID string, operationID string) (OrderOutcome, error)
	BuyByQuantity(ctx context.Context, symbol string, quantity money.Quantity, batchID string, operationID string) (OrderOutcome, error)
	SellByAmount(ctx context.Context, symbol string, amount money.Money, batchID string, operationID string) (OrderOutcome, error)
	SellByQuantity(ctx context.Context, symbol string, quantity money.Quantity, batchID string, operationID string) (OrderOutcome, error)
	RollbackBatch(ctx context.Context, batchID string) bool
}

// Market is the opaque price source the broker consumes. Implemented by
// market.Market; declared here (not imported) so broker has no dependency on
// the market package's concrete type, only its read-only shape — the same
// interface-segregation idiom the teacher uses throughout internal/domain to
// avoid import cycles between packages that would otherwise depend on each other.
type Market interface {
	PriceOf(symbol string) (money.Price, bool)
	Has(symbol string) bool
}

// ExecutionDelay simulates or bounds real network latency for an order
// primitive. A zero-returning implementation is appropriate for tests.
type ExecutionDelay interface {
	Delay() time.Duration
}

// NoDelay never sleeps; used in unit tests and whenever latency simulation is unwanted.
type NoDelay struct{}

func (NoDelay) Delay() time.Duration { return 0 }
