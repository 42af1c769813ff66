package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic turns a value returned by recover() into a fatal internal
// error. Handlers that panic are never retried.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetail("panic", true).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}
