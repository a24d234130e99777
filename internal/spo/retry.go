package spo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Retry and backoff constants. Only token and digest fetches are retried;
// file writes fail fast.
const (
	maxRetries     = 3
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// retrier re-runs an auth call on network errors and retryable statuses.
type retrier struct {
	logger *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

func newRetrier(logger *slog.Logger) retrier {
	return retrier{logger: logger, sleepFunc: timeSleep}
}

// do calls fn until it succeeds, returns a non-retryable error, or the
// retry budget is spent. fn must return *AuthError for classification.
func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	var attempt int
	for {
		err := fn()
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("spo: %s canceled: %w", op, ctx.Err())
		}

		var ae *AuthError
		if !errors.As(err, &ae) || !ae.retryable() || attempt >= maxRetries {
			return err
		}

		backoff := ae.retryAfter
		if backoff <= 0 {
			backoff = calcBackoff(attempt)
		}

		r.logger.Warn("retrying auth request",
			slog.String("op", op),
			slog.Int("status", ae.StatusCode),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		if sleepErr := r.sleepFunc(ctx, backoff); sleepErr != nil {
			return fmt.Errorf("spo: %s canceled: %w", op, sleepErr)
		}

		attempt++
	}
}

// retryable reports whether the failure is transient: a network error or a
// retryable HTTP status.
func (e *AuthError) retryable() bool {
	if e.StatusCode != 0 {
		return isRetryable(e.StatusCode)
	}

	var ue *url.Error
	return errors.As(e.Err, &ue)
}

// parseRetryAfter reads a delay-seconds Retry-After header. HTTP-date values
// are ignored and fall back to exponential backoff.
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}

// calcBackoff computes exponential backoff with ±25% jitter.
func calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
