// Package failure classifies the outcome of a pipeline step so that callers can
// tell required failures from ignorable ones without inspecting error values.
//
// A step either succeeded (StatusOK), degraded to a fallback value that the
// pipeline may keep using (StatusDegraded), or failed in a way that must abort
// the invocation (StatusFatal). Degraded results still carry the underlying
// error so that it can be logged and counted.
package failure

// Status is the classification of a step outcome.
type Status uint8

const (
	// StatusOK means the step produced its value.
	StatusOK Status = iota
	// StatusDegraded means the step failed but produced a usable fallback value.
	StatusDegraded
	// StatusFatal means the step failed and the invocation must stop.
	StatusFatal
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result pairs a step value with its classification.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// OK wraps a successful value.
func OK[T any](value T) Result[T] {
	return Result[T]{Value: value, Status: StatusOK}
}

// Degraded wraps a fallback value together with the error that caused it.
func Degraded[T any](fallback T, err error) Result[T] {
	return Result[T]{Value: fallback, Status: StatusDegraded, Err: err}
}

// Fatal wraps an error that must reach the caller.
func Fatal[T any](err error) Result[T] {
	var zero T

	return Result[T]{Value: zero, Status: StatusFatal, Err: err}
}

// IsDegraded reports whether the result fell back to a default.
func (r Result[T]) IsDegraded() bool { return r.Status == StatusDegraded }

// IsFatal reports whether the result must abort the invocation.
func (r Result[T]) IsFatal() bool { return r.Status == StatusFatal }

// Unwrap returns the value and the error only when the result is fatal.
// Degraded errors are dropped: they never propagate.
func (r Result[T]) Unwrap() (T, error) {
	if r.Status == StatusFatal {
		return r.Value, r.Err
	}

	return r.Value, nil
}
