package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/llegapo/scraper/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Page is a navigable browser tab. Every method is bounded by ctx.
type Page interface {
	// Goto loads url and waits until the network has settled
	Goto(ctx context.Context, url string) error

	// WaitSelector blocks until an element matching selector is present
	WaitSelector(ctx context.Context, selector string) error

	// Content returns the serialized DOM of the current page
	Content(ctx context.Context) (string, error)

	Title(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
}

// Viewport is the emulated window size
type Viewport struct {
	Width  int
	Height int
}

// DefaultViewport matches a common desktop screen
var DefaultViewport = Viewport{Width: 1920, Height: 1080}

// SessionOptions configures a single launch
type SessionOptions struct {
	Timeout   time.Duration
	UserAgent string
	Viewport  Viewport
	Proxy     string
	Headers   map[string]string // sent with every request of the page
}

// Session owns one browser process and its page. Cleanup must be called when
// the session is no longer needed.
type Session struct {
	Page      Page
	Strategy  string
	StartedAt time.Time

	once     sync.Once
	teardown func() error
}

// NewSession wraps page with a teardown that runs at most once
func NewSession(page Page, strategy string, teardown func() error) *Session {
	return &Session{
		Page:      page,
		Strategy:  strategy,
		StartedAt: time.Now(),
		teardown:  teardown,
	}
}

// Cleanup releases the browser. It is idempotent and never panics; teardown
// failures are logged and counted.
func (s *Session) Cleanup() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				s.reportCleanupError(fmt.Errorf("panic during teardown: %v", r))
			}
		}()

		if s.teardown == nil {
			return
		}
		if err := s.teardown(); err != nil {
			s.reportCleanupError(err)
			return
		}

		log.Debug().
			Str("strategy", s.Strategy).
			Dur("lifetime", time.Since(s.StartedAt)).
			Msg("Browser session closed")
	})
}

func (s *Session) reportCleanupError(err error) {
	metrics.CleanupErrors.Inc()
	log.Warn().
		Err(&CleanupError{Err: err}).
		Str("strategy", s.Strategy).
		Msg("Browser cleanup failed")
}
