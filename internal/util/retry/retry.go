package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Poll when the condition did not hold before the deadline.
var ErrTimeout = errors.New("timed out waiting for condition")

// Backoff describes how often and how patiently an operation is retried.
// The zero value makes a single attempt.
type Backoff struct {
	// Retries is the number of attempts after the first one.
	Retries int
	Initial time.Duration
	Max     time.Duration
	// Factor multiplies the delay after each failed attempt; values below 1
	// keep the delay constant.
	Factor float64
}

// Delay returns the wait before retry number n (starting at 1).
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	for range n - 1 {
		if b.Factor > 1 {
			d = time.Duration(float64(d) * b.Factor)
		}
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Do runs op until it succeeds, fails with a Fatal error, ctx is done or
// the retries are exhausted.
func (b Backoff) Do(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}
		if attempt >= b.Retries {
			break
		}

		timer := time.NewTimer(b.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", b.Retries+1, err)
}

// Poll evaluates cond every interval until it reports done, returns an error,
// or timeout elapses. The first evaluation happens immediately. A zero timeout
// means no deadline other than ctx.
//
// cond receives a context bounded by the timeout. Once that deadline has
// passed, Poll returns ErrTimeout even when cond failed because of it;
// any other error returned by cond stops polling and is returned as is.
func Poll(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}

	pollCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	expired := func() bool {
		return timeout > 0 && ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(pollCtx)
		switch {
		case done && err == nil:
			return nil
		case expired():
			return fmt.Errorf("%w after %v", ErrTimeout, timeout)
		case err != nil:
			return err
		}

		select {
		case <-pollCtx.Done():
			if expired() {
				return fmt.Errorf("%w after %v", ErrTimeout, timeout)
			}
			return pollCtx.Err()
		case <-ticker.C:
		}
	}
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
// Operations that encounter fatal errors will not be retried.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
