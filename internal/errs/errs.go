// Package errs defines the typed error taxonomy surfaced by the rebalancing
// core. Each kind carries whatever contextual payload a caller needs to act
// on it (batch id, failed operations, attempt count) instead of a bare
// string, and each implements error so callers use errors.As/errors.Is.
package errs

import (
	"errors"
	"fmt"
)

// InvalidSymbolError is returned when a symbol fails the four-uppercase-letter rule.
type InvalidSymbolError struct {
	Symbol string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("errs: invalid symbol %q: must be exactly four uppercase letters", e.Symbol)
}

// InvalidPriceError is returned when a price is outside bounds or non-finite/non-positive.
type InvalidPriceError struct {
	Symbol string
	Reason string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("errs: invalid price for %q: %s", e.Symbol, e.Reason)
}

// StockNotFoundError is returned when a symbol is not present in the market.
type StockNotFoundError struct {
	Symbol string
}

func (e *StockNotFoundError) Error() string {
	return fmt.Sprintf("errs: stock not found: %q", e.Symbol)
}

// BrokerConnectionError wraps a retriable transport-layer failure.
type BrokerConnectionError struct {
	Err error
}

func (e *BrokerConnectionError) Error() string {
	return fmt.Sprintf("errs: broker connection failed: %v", e.Err)
}

func (e *BrokerConnectionError) Unwrap() error { return e.Err }

// OrderError is a single failed order primitive. Carries the triggering batch
// id (if any) and the operation id, per the broker contract's requirement
// that every failure be traceable to its batch.
type OrderError struct {
	Side        string // "buy" or "sell"
	Symbol      string
	BatchID     string
	OperationID string
	Reason      string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("errs: %s failed for %s (batch=%s op=%s): %s",
		e.Side, e.Symbol, e.BatchID, e.OperationID, e.Reason)
}

// FailedOperation names one operation that did not succeed within a batch.
type FailedOperation struct {
	OperationID string
	Symbol      string
	Side        string
	Reason      string
}

// InitializationError is returned when one or more opening orders failed and
// rollback of the opening batch succeeded.
type InitializationError struct {
	BatchID string
	Failed  []FailedOperation
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("errs: portfolio initialization failed (batch=%s): %d operation(s) failed",
		e.BatchID, len(e.Failed))
}

// RetryError is returned when a rebalance failed but rollback of the
// rebalance batch succeeded. Carries the failed-operation list and the
// current attempt count so a caller can decide whether to retry.
type RetryError struct {
	BatchID string
	Failed  []FailedOperation
	Attempt int
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("errs: rebalance failed, rolled back (batch=%s, attempt=%d): %d operation(s) failed",
		e.BatchID, e.Attempt, len(e.Failed))
}

// StaleError is returned when a rebalance (or initialization) failed and the
// subsequent rollback also failed. The portfolio transitions to stale and
// rejects further mutation until explicit operator intervention.
type StaleError struct {
	BatchID string
	Failed  []FailedOperation
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("errs: portfolio is stale after failed rollback (batch=%s): holdings may not match broker state", e.BatchID)
}

// IsStale reports whether err is (or wraps) a StaleError.
func IsStale(err error) bool {
	_, ok := AsStale(err)
	return ok
}

// AsStale extracts a StaleError from err, if any.
func AsStale(err error) (*StaleError, bool) {
	var target *StaleError
	ok := errors.As(err, &target)
	return target, ok
}

// AsRetry extracts a RetryError from err, if any.
func AsRetry(err error) (*RetryError, bool) {
	var target *RetryError
	ok := errors.As(err, &target)
	return target, ok
}
