package browser

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromePage implements Page on a chromedp tab context
type chromePage struct {
	tab context.Context
}

// bind derives an operation context from the tab that carries the deadline
// of ctx and is cancelled together with it.
func (p *chromePage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(p.tab)
	if deadline, ok := ctx.Deadline(); ok {
		cancel()
		opCtx, cancel = context.WithDeadline(p.tab, deadline)
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Goto(ctx context.Context, url string) error {
	if p.tab.Err() != nil {
		return ErrSessionClosed
	}

	opCtx, cancel := p.bind(ctx)
	defer cancel()

	var mainFrame cdp.FrameID
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		mainFrame = tree.Frame.ID
		return nil
	}))
	if err != nil {
		return err
	}

	idle := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(opCtx)
	defer stopListening()

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch mainFrameLifecycle(ev, mainFrame) {
		case "init":
			// a new document started loading; forget idle signals of the previous one
			select {
			case <-idle:
			default:
			}
		case "networkIdle":
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return err
	}

	select {
	case <-idle:
		return nil
	case <-opCtx.Done():
		return opCtx.Err()
	}
}

// mainFrameLifecycle returns the lifecycle event name of ev when it belongs
// to mainFrame, and "" otherwise. Iframes report their own lifecycle.
func mainFrameLifecycle(ev interface{}, mainFrame cdp.FrameID) string {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.FrameID != mainFrame {
		return ""
	}
	return e.Name
}

func (p *chromePage) WaitSelector(ctx context.Context, selector string) error {
	opCtx, cancel := p.bind(ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	opCtx, cancel := p.bind(ctx)
	defer cancel()

	var html string
	err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	opCtx, cancel := p.bind(ctx)
	defer cancel()

	var title string
	err := chromedp.Run(opCtx, chromedp.Title(&title))
	return title, err
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	opCtx, cancel := p.bind(ctx)
	defer cancel()

	var location string
	err := chromedp.Run(opCtx, chromedp.Location(&location))
	return location, err
}
