package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// Linear waits n × BaseDelay before retry n.
	Linear Backoff = iota
	// Exponential waits BaseDelay × 2^(n-1) plus jitter before retry n.
	Exponential
)

// Config holds retry configuration
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	Backoff    Backoff
	// Retryable decides whether a failed attempt is worth repeating. When nil,
	// IsRetryable is used.
	Retryable func(error) bool
	// Sleep waits between attempts. When nil the wait honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns the retry configuration used for AI calls: two
// retries with a linear 2s step.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		Backoff:    Linear,
	}
}

// StatusError is returned by HTTP operations that got a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// StatusOf extracts the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// Delay returns the wait before retry n (1-based).
func (c Config) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	switch c.Backoff {
	case Exponential:
		d := c.BaseDelay * time.Duration(1<<(n-1))
		if c.BaseDelay > 0 {
			d += time.Duration(rand.Int63n(int64(c.BaseDelay)))
		}
		return d
	default:
		return time.Duration(n) * c.BaseDelay
	}
}

// Do runs operation until it succeeds, fails with a non-retryable error or
// MaxRetries retries have been spent. It returns the number of attempts made.
func Do(ctx context.Context, config Config, operation func(context.Context) error) (int, error) {
	retryable := config.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := config.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	attempts := 0
	for {
		attempts++
		err := operation(ctx)
		if err == nil {
			return attempts, nil
		}

		if !retryable(err) {
			return attempts, fmt.Errorf("non-retryable error: %w", err)
		}

		if attempts > config.MaxRetries {
			return attempts, fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
		}

		if err := sleep(ctx, config.Delay(attempts)); err != nil {
			return attempts, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsRetryable is the default retry predicate: HTTP statuses are judged by
// HTTPStatusRetryable, context cancellation never retries and any other
// error (network trouble) does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code, ok := StatusOf(err); ok {
		return HTTPStatusRetryable(code)
	}
	return true
}

// HTTPStatusRetryable checks if an HTTP status code is retryable
func HTTPStatusRetryable(statusCode int) bool {
	// Retry on server errors (5xx) and rate limiting (429)
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
