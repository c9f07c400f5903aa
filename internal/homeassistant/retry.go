// Package homeassistant delivers reminder notifications through the Home
// Assistant mobile app. It wraps the go-ha-client REST API, provides an
// [Adapter] that implements [notify.Notifier], and a 3-attempt
// exponential-backoff [Retry] helper.
package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Backoff schedule for [Retry]: attempt n waits a random duration in
// [d/2, d) where d = baseDelay * 2^n, capped at maxDelay.
const (
	defaultMaxAttempts = 3
	baseDelay          = 500 * time.Millisecond
	maxDelay           = 5 * time.Second
)

// permanentError marks a failure that retrying cannot fix, such as a rejected
// token or an unknown notify service.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so [Retry] returns it without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether any error in err's chain came from [Permanent].
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn until it succeeds, returns a [Permanent] error, or
// maxAttempts calls have failed. Cancelling ctx aborts the wait between
// attempts.
func Retry(ctx context.Context, maxAttempts int, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if werr := sleepCtx(ctx, backoffDelay(attempt-1)); werr != nil {
				return fmt.Errorf("retry cancelled: %w", werr)
			}
		} else if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("retry cancelled: %w", cerr)
		}

		if err = fn(); err == nil || IsPermanent(err) {
			return err
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxAttempts, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	d := min(baseDelay<<attempt, maxDelay)
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half))) //nolint:gosec // jitter only
}
