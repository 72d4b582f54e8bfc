// Package browsertest provides in-memory browser fakes for tests that must
// not start Chrome.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/llegapo/scraper/internal/browser"
)

// Page is a scripted browser.Page. Pages maps a URL to the HTML served for it;
// GotoErrs are returned by successive Goto calls before succeeding.
type Page struct {
	mu sync.Mutex

	Pages     map[string]string
	Titles    map[string]string
	GotoErrs  []error
	Missing   map[string]bool // selectors that never appear
	PanicOn   string          // method name that panics: "Goto", "Content"
	GotoCalls int
	WaitCalls int

	current string
}

func (p *Page) Goto(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.GotoCalls++
	if p.PanicOn == "Goto" {
		panic("fake page: goto")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.GotoErrs) > 0 {
		err := p.GotoErrs[0]
		p.GotoErrs = p.GotoErrs[1:]
		return err
	}
	if _, ok := p.Pages[url]; !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	p.current = url
	return nil
}

func (p *Page) WaitSelector(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.WaitCalls++
	missing := p.Missing[selector]
	p.mu.Unlock()

	if missing {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PanicOn == "Content" {
		panic("fake page: content")
	}
	return p.Pages[p.current], ctx.Err()
}

func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Titles[p.current], ctx.Err()
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, ctx.Err()
}

// Launcher hands out sessions backed by Page and counts launches and cleanups
type Launcher struct {
	Page        *Page
	Err         error
	TeardownErr error

	launches atomic.Int32
	cleanups atomic.Int32
}

func (l *Launcher) Launch(ctx context.Context, _ browser.SessionOptions) (*browser.Session, error) {
	l.launches.Add(1)
	if l.Err != nil {
		return nil, &browser.LaunchError{Strategy: "fake", Err: l.Err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &browser.LaunchError{Strategy: "fake", Err: err}
	}
	return browser.NewSession(l.Page, "fake", func() error {
		l.cleanups.Add(1)
		return l.TeardownErr
	}), nil
}

// Strategy names the fake launch strategy
func (l *Launcher) Strategy() string { return "fake" }

// Launches returns the number of Launch calls
func (l *Launcher) Launches() int { return int(l.launches.Load()) }

// Cleanups returns the number of teardowns that ran
func (l *Launcher) Cleanups() int { return int(l.cleanups.Load()) }
