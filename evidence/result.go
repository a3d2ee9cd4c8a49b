package evidence

import "errors"

// ErrAbsent is reported by a Result that was made absent without a reason.
var ErrAbsent = errors.New("evidence absent")

// Result is the outcome of one best-effort evidence source: either the value
// it produced or the reason it produced nothing. Signal logic branches on it
// explicitly instead of catching failures.
type Result[T any] struct {
	value  T
	ok     bool
	reason error
}

// Present wraps a value that was collected.
func Present[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Absent records that a source produced nothing, and why.
func Absent[T any](reason error) Result[T] {
	if reason == nil {
		reason = ErrAbsent
	}
	return Result[T]{reason: reason}
}

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// Ok reports whether the value is present.
func (r Result[T]) Ok() bool {
	return r.ok
}

// Reason is nil for a present value.
func (r Result[T]) Reason() error {
	if r.ok {
		return nil
	}
	if r.reason == nil {
		return ErrAbsent
	}
	return r.reason
}
