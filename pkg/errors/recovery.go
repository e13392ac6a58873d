package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const stackTraceDetail = "stack_trace"

// RecoverPanic turns a value caught by recover into a fatal ErrInternal. The
// goroutine stack is kept in the details for logs; ToErrorResponse never
// renders it.
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
		WithDetail(stackTraceDetail, string(debug.Stack())).
		AsFatal()
}

// StackTrace returns the stack captured by RecoverPanic, or "".
func StackTrace(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return ""
	}
	stack, _ := appErr.Details[stackTraceDetail].(string)
	return stack
}
