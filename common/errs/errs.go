package errs

import (
	"errors"
	"fmt"
)

type HttpError struct {
	Code    int
	Message string
	Data    any
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("code %d: %s, data: %v", e.Code, e.Message, e.Data)
}

var (
	// ErrGeneratorExhausted is returned when no free ticket number was found
	// within the retry budget.
	ErrGeneratorExhausted = errors.New("ticket number generator exhausted")

	// ErrQueueNotEmpty rejects a manual reset while customers are waiting.
	ErrQueueNotEmpty = errors.New("queue is not empty")

	// ErrDayNotReady is returned when the queue meta could not be brought to
	// the current day.
	ErrDayNotReady = errors.New("queue day is not ready")

	ErrInvalidPin     = errors.New("invalid pin")
	ErrPinMismatch    = errors.New("pin confirmation does not match")
	ErrPinFormat      = errors.New("pin must be exactly 6 digits")
	ErrInvalidSession = errors.New("invalid cashier session")
	ErrInvalidPath    = errors.New("invalid store path")
	ErrAtomicRequired = errors.New("store does not support atomic operations")
)

// StoreError wraps a failed round-trip to the queue store. These failures are
// transient: the caller reports them and the user retries the action.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
