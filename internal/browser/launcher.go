package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/llegapo/scraper/internal/metrics"
	"github.com/llegapo/scraper/internal/proxy"
	"github.com/rs/zerolog/log"
)

// DefaultLaunchTimeout bounds browser startup when SessionOptions.Timeout is zero
const DefaultLaunchTimeout = 30 * time.Second

// LauncherOptions configures a ChromeLauncher
type LauncherOptions struct {
	Headless bool

	// Proxies rotates upstream proxies across launches; nil disables rotation.
	Proxies *proxy.ProxyPool
}

// ChromeLauncher starts a fresh headless Chrome per session using a launch
// strategy chosen at construction time.
type ChromeLauncher struct {
	strategy LaunchStrategy
	headless bool
	proxies  *proxy.ProxyPool
}

// NewChromeLauncher creates a launcher for the given strategy
func NewChromeLauncher(strategy LaunchStrategy, opts LauncherOptions) *ChromeLauncher {
	return &ChromeLauncher{
		strategy: strategy,
		headless: opts.Headless,
		proxies:  opts.Proxies,
	}
}

// Strategy returns the name of the launch strategy
func (l *ChromeLauncher) Strategy() string {
	return l.strategy.Name()
}

// Launch starts a browser and opens a page. Failures are returned as *LaunchError.
func (l *ChromeLauncher) Launch(ctx context.Context, opts SessionOptions) (*Session, error) {
	start := time.Now()
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLaunchTimeout
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = DefaultViewport
	}

	execPath, err := l.strategy.Resolve(ctx)
	if err != nil {
		return nil, &LaunchError{Strategy: l.strategy.Name(), Err: err}
	}

	proxyURL := opts.Proxy
	if proxyURL == "" && l.proxies != nil {
		proxyURL = l.proxies.GetNext()
	}

	allocOpts := allocatorOptions(execPath, l.strategy.LaunchFlags())
	if l.headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocOpts = append(allocOpts,
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if proxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser, so it must not run on a context
	// that is cancelled when startup ends. Timeouts kill the allocator instead.
	timer := time.AfterFunc(opts.Timeout, allocCancel)
	stop := context.AfterFunc(ctx, allocCancel)
	err = chromedp.Run(tabCtx, setupActions(opts)...)
	timer.Stop()
	stop()

	if err != nil {
		tabCancel()
		allocCancel()
		if proxyURL != "" && l.proxies != nil {
			l.proxies.MarkFailed(proxyURL)
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		} else if errors.Is(err, context.Canceled) {
			err = fmt.Errorf("browser did not start within %s: %w", opts.Timeout, err)
		}
		return nil, &LaunchError{Strategy: l.strategy.Name(), Err: err}
	}

	metrics.BrowsersActive.Inc()
	log.Debug().
		Str("strategy", l.strategy.Name()).
		Str("exec_path", execPath).
		Bool("proxy", proxyURL != "").
		Dur("elapsed", time.Since(start)).
		Msg("Browser launched")

	teardown := func() error {
		defer metrics.BrowsersActive.Dec()
		defer allocCancel()

		// Cancel closes the tab and the browser, then waits for both.
		if err := chromedp.Cancel(tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	return NewSession(&chromePage{tab: tabCtx}, l.strategy.Name(), teardown), nil
}

// setupActions prepares a new tab before the first navigation
func setupActions(opts SessionOptions) []chromedp.Action {
	actions := []chromedp.Action{
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(int64(opts.Viewport.Width), int64(opts.Viewport.Height)),
	}
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	return actions
}
