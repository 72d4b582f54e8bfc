package browser

import (
	"context"
	"errors"
	"time"

	"github.com/llegapo/scraper/internal/retry"
	"github.com/rs/zerolog/log"
)

// Navigation defaults
const (
	DefaultNavigateTimeout = 30 * time.Second
	DefaultNavigateRetries = 2
	DefaultNavigateBackoff = 1 * time.Second

	DefaultMarkerTimeout = 5 * time.Second
	DefaultMarkerRetries = 2
	DefaultMarkerBackoff = 500 * time.Millisecond
)

// NavigateOptions bounds Navigate. Zero fields take the defaults; a negative
// Retries disables retrying.
type NavigateOptions struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// WaitOptions bounds WaitForMarker. Timeout applies to each attempt.
type WaitOptions struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Navigate loads url and waits for the network to settle, retrying with a
// fixed backoff. It returns a *NavigationError once every attempt failed.
func Navigate(ctx context.Context, p Page, url string, opts NavigateOptions) error {
	timeout := orDefault(opts.Timeout, DefaultNavigateTimeout)
	cfg := retry.Fixed(retries(opts.Retries, DefaultNavigateRetries), orDefault(opts.Backoff, DefaultNavigateBackoff))
	cfg.Name = "navigate"
	cfg.Retryable = callerAlive(ctx)

	attempts := 0
	err := retry.Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		attempts = attempt
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		log.Debug().Str("url", url).Int("attempt", attempt).Msg("Navigating")
		return p.Goto(attemptCtx, url)
	})
	if err != nil {
		return &NavigationError{URL: url, Attempts: attempts, Err: unwrapRetry(err)}
	}
	return nil
}

// WaitForMarker waits for selector to be present, retrying with a fixed
// backoff. It returns a *MarkerTimeoutError once every attempt failed.
func WaitForMarker(ctx context.Context, p Page, selector string, opts WaitOptions) error {
	timeout := orDefault(opts.Timeout, DefaultMarkerTimeout)
	cfg := retry.Fixed(retries(opts.Retries, DefaultMarkerRetries), orDefault(opts.Backoff, DefaultMarkerBackoff))
	cfg.Name = "marker"
	cfg.Retryable = callerAlive(ctx)

	err := retry.Do(ctx, cfg, func(ctx context.Context, _ int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return p.WaitSelector(attemptCtx, selector)
	})
	if err != nil {
		return &MarkerTimeoutError{Selector: selector, Timeout: timeout, Err: unwrapRetry(err)}
	}
	return nil
}

// callerAlive retries any failure while the caller's context is still live
func callerAlive(ctx context.Context) func(error) bool {
	return func(err error) bool {
		return ctx.Err() == nil && !errors.Is(err, ErrSessionClosed)
	}
}

func unwrapRetry(err error) error {
	var re *retry.Error
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func retries(n, def int) int {
	switch {
	case n < 0:
		return 0
	case n == 0:
		return def
	}
	return n
}
