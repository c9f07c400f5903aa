package model

// ResultError is the error variant of [Result]. StatusCode is optional.
type ResultError struct {
	Message    string
	StatusCode *int
}

// Error implements the error interface so a failure can be logged or wrapped.
func (e *ResultError) Error() string {
	return e.Message
}

// Result is a tagged success/error outcome. Repository reads return it
// instead of an error so that not-found and persistence failures are data
// the caller renders, not control flow.
type Result[T any] struct {
	value T
	err   *ResultError
}

// Success wraps v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps message and an optional status code.
func Failure[T any](message string, statusCode *int) Result[T] {
	return Result[T]{err: &ResultError{Message: message, StatusCode: statusCode}}
}

// IsSuccess reports whether the result holds a value.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Value returns the wrapped value and true on success.
func (r Result[T]) Value() (T, bool) {
	if r.err != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the failure, or nil on success.
func (r Result[T]) Err() *ResultError {
	return r.err
}

// StatusCode is a helper for building the optional code of a failure.
func StatusCode(code int) *int { return &code }
