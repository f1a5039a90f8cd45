package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStale(t *testing.T) {
	err := &StaleError{BatchID: "b1"}
	assert.True(t, IsStale(err))
	assert.False(t, IsStale(&InitializationError{BatchID: "b1"}))
}

func TestAsStaleUnwraps(t *testing.T) {
	wrapped := fmtWrap(&StaleError{BatchID: "b1"})
	stale, ok := AsStale(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "b1", stale.BatchID)
}

func TestAsRetry(t *testing.T) {
	err := &RetryError{BatchID: "b2", Attempt: 2}
	retry, ok := AsRetry(err)
	assert.True(t, ok)
	assert.Equal(t, 2, retry.Attempt)
}

func TestBrokerConnectionErrorUnwraps(t *testing.T) {
	inner := errors.New("dial timeout")
	err := &BrokerConnectionError{Err: inner}
	assert.ErrorIs(t, err, inner)
}

func fmtWrap(err error) error {
	return &wrapper{err: err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }
