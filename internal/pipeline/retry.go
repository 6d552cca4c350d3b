package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"time"
)

const MaxRetries = 3

// temporary is implemented by errors that know whether a repeat may succeed.
type temporary interface {
	Temporary() bool
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Transport failures are always worth another attempt.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry runs fn until it succeeds, fails permanently, MaxRetries is
// reached or ctx is done.
func withRetry(ctx context.Context, backoff func(int) time.Duration, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
