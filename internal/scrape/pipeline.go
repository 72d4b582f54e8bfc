// Package scrape runs one source through the browser: launch, navigate, wait
// for the page marker, snapshot, extract and clean up.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/llegapo/scraper/internal/browser"
	"github.com/llegapo/scraper/internal/cache"
	"github.com/llegapo/scraper/internal/extract"
	"github.com/llegapo/scraper/internal/metrics"
	"github.com/llegapo/scraper/internal/ratelimit"
	"github.com/llegapo/scraper/internal/reqctx"
	urlutil "github.com/llegapo/scraper/internal/utils/url"
	"github.com/rs/zerolog"
)

// Launcher starts browser sessions
type Launcher interface {
	Launch(ctx context.Context, opts browser.SessionOptions) (*browser.Session, error)
}

// MarkerPolicy decides what a missing page marker means
type MarkerPolicy int

const (
	// MarkerSoft logs the missing marker and extracts whatever is present
	MarkerSoft MarkerPolicy = iota
	// MarkerHard fails the run
	MarkerHard
)

// Source describes one scrapeable page
type Source[T any] struct {
	Name          string
	Path          string
	Marker        string
	MarkerPolicy  MarkerPolicy
	MarkerTimeout time.Duration
	Settle        time.Duration // extra wait after the marker for late rendering
	CacheTTL      time.Duration // 0 disables caching of this source
	Extract       func(doc *goquery.Document, baseURL string) (T, extract.Report)
}

// Result is the outcome of a successful run
type Result[T any] struct {
	Data      T              `json:"data"`
	Report    extract.Report `json:"report"`
	URL       string         `json:"url"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Cached    bool           `json:"-"`
}

// Options are the runner-wide browser settings
type Options struct {
	BaseURL        string
	SessionTimeout time.Duration
	UserAgent      string
	Viewport       browser.Viewport
	Headers        map[string]string
	Navigate       browser.NavigateOptions
	Marker         browser.WaitOptions
}

// RunOptions tune a single run
type RunOptions struct {
	// Fresh skips the cache lookup; the new result is still stored.
	Fresh bool
}

// Runner holds the shared infrastructure of every run
type Runner struct {
	launcher Launcher
	limiter  ratelimit.RateLimiter
	cache    cache.Cache
	opts     Options
}

// NewRunner creates a runner. A nil cache disables caching and a nil limiter
// disables rate limiting.
func NewRunner(launcher Launcher, limiter ratelimit.RateLimiter, c cache.Cache, opts Options) *Runner {
	if c == nil {
		c = cache.Noop{}
	}
	if limiter == nil {
		limiter = ratelimit.NewDomainLimiter(0, 0)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = extract.DefaultBaseURL
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = browser.DefaultLaunchTimeout
	}
	return &Runner{
		launcher: launcher,
		limiter:  limiter,
		cache:    c,
		opts:     opts,
	}
}

// BaseURL returns the site origin pages are loaded from
func (r *Runner) BaseURL() string {
	return r.opts.BaseURL
}

// Launcher returns the session launcher of the runner
func (r *Runner) Launcher() Launcher {
	return r.launcher
}

// SessionOptions returns the options every session is launched with
func (r *Runner) SessionOptions() browser.SessionOptions {
	return browser.SessionOptions{
		Timeout:   r.opts.SessionTimeout,
		UserAgent: r.opts.UserAgent,
		Viewport:  r.opts.Viewport,
		Headers:   r.opts.Headers,
	}
}

// Run scrapes src. The browser session, when one is started, is cleaned up
// exactly once before Run returns, whatever the outcome.
func Run[T any](ctx context.Context, r *Runner, src Source[T], ro RunOptions) (Result[T], error) {
	start := time.Now()
	url := urlutil.Join(r.opts.BaseURL, src.Path)
	logger := reqctx.Logger(ctx).With().Str("source", src.Name).Str("url", url).Logger()
	key := cache.Key(src.Name)

	if !ro.Fresh && src.CacheTTL > 0 {
		if res, ok := lookup[T](ctx, r.cache, key, logger); ok {
			metrics.CacheLookups.WithLabelValues(src.Name, "hit").Inc()
			metrics.ScrapesTotal.WithLabelValues(src.Name, "cached").Inc()
			logger.Debug().Msg("Serving cached result")
			return res, nil
		}
		metrics.CacheLookups.WithLabelValues(src.Name, "miss").Inc()
	}

	if err := r.limiter.Wait(ctx, url); err != nil {
		metrics.ScrapesTotal.WithLabelValues(src.Name, KindCanceled).Inc()
		return Result[T]{}, fmt.Errorf("rate limit wait: %w", err)
	}

	data, report, err := fetch(ctx, r, src, url, logger)
	elapsed := time.Since(start)
	metrics.ScrapeDuration.WithLabelValues(src.Name).Observe(elapsed.Seconds())

	if err != nil {
		kind := Kind(err)
		metrics.ScrapesTotal.WithLabelValues(src.Name, kind).Inc()
		logger.Error().
			Err(err).
			Str("kind", kind).
			Dur("elapsed", elapsed).
			Msg("Scrape failed")
		return Result[T]{}, err
	}

	metrics.ScrapesTotal.WithLabelValues(src.Name, "success").Inc()
	metrics.RecordsExtracted.WithLabelValues(src.Name).Add(float64(report.Processed))
	metrics.RecordsDropped.WithLabelValues(src.Name).Add(float64(report.Dropped))

	logger.Info().
		Int("found", report.Found).
		Int("processed", report.Processed).
		Int("dropped", report.Dropped).
		Dur("elapsed", elapsed).
		Msg("Scrape completed")
	if report.Dropped > 0 {
		logger.Warn().
			Int("dropped", report.Dropped).
			Msg("Incomplete records dropped")
	}

	res := Result[T]{
		Data:      data,
		Report:    report,
		URL:       url,
		FetchedAt: time.Now(),
	}

	if src.CacheTTL > 0 {
		store(ctx, r.cache, key, res, src.CacheTTL, logger)
	}

	return res, nil
}

func fetch[T any](ctx context.Context, r *Runner, src Source[T], url string, logger zerolog.Logger) (data T, report extract.Report, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic in scrape pipeline")
			err = &ExtractionError{Source: src.Name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	session, err := r.launcher.Launch(ctx, r.SessionOptions())
	if err != nil {
		return data, report, err
	}
	defer session.Cleanup()

	if err := browser.Navigate(ctx, session.Page, url, r.opts.Navigate); err != nil {
		return data, report, err
	}

	if src.Marker != "" {
		wait := r.opts.Marker
		if src.MarkerTimeout > 0 {
			wait.Timeout = src.MarkerTimeout
		}
		if err := browser.WaitForMarker(ctx, session.Page, src.Marker, wait); err != nil {
			if src.MarkerPolicy == MarkerHard {
				return data, report, err
			}
			logger.Warn().
				Err(err).
				Str("selector", src.Marker).
				Msg("Marker not found, extracting anyway")
		}
	}

	if src.Settle > 0 {
		timer := time.NewTimer(src.Settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return data, report, ctx.Err()
		}
	}

	snapCtx, cancel := context.WithTimeout(ctx, r.opts.SessionTimeout)
	defer cancel()

	html, err := session.Page.Content(snapCtx)
	if err != nil {
		return data, report, &ExtractionError{Source: src.Name, Err: fmt.Errorf("snapshot: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return data, report, &ExtractionError{Source: src.Name, Err: fmt.Errorf("parse html: %w", err)}
	}

	data, report = src.Extract(doc, r.opts.BaseURL)
	return data, report, nil
}

func lookup[T any](ctx context.Context, c cache.Cache, key string, logger zerolog.Logger) (Result[T], bool) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache lookup failed")
		return Result[T]{}, false
	}
	if !ok {
		return Result[T]{}, false
	}

	var res Result[T]
	if err := json.Unmarshal(raw, &res); err != nil {
		logger.Warn().Err(err).Msg("Discarding undecodable cache entry")
		return Result[T]{}, false
	}
	res.Cached = true
	return res, true
}

func store[T any](ctx context.Context, c cache.Cache, key string, res Result[T], ttl time.Duration, logger zerolog.Logger) {
	raw, err := json.Marshal(res)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to encode result for cache")
		return
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warn().Err(err).Msg("Failed to store result in cache")
	}
}
