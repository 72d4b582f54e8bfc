// Package diagnostics checks that a browser can be started in the current
// environment and that the transit site is reachable and not blocking it.
package diagnostics

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/llegapo/scraper/internal/browser"
	"github.com/llegapo/scraper/internal/reqctx"
	"github.com/llegapo/scraper/internal/scrape"
	urlutil "github.com/llegapo/scraper/internal/utils/url"
)

// Check statuses
const (
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
	StatusNotFound   = "404 DETECTED"
	StatusBlocked    = "POTENTIAL BLOCKING"
	StatusNotBlocked = "NO BLOCKING"
)

// DefaultProbeURL is an echo service used to test plain navigation
const DefaultProbeURL = "https://httpbin.org"

const pagePreviewLength = 300

// Upper bounds for a whole probe run
const (
	testTimeout  = time.Minute
	debugTimeout = 3 * time.Minute
)

var blockingIndicators = []string{
	"Access Denied",
	"Forbidden",
	"Bot",
	"Cloudflare",
	"Security",
	"Blocked",
	"Rate Limit",
}

// Environment describes how the browser is provisioned
type Environment struct {
	Production        bool   `json:"isProduction"`
	Env               string `json:"env"`
	Strategy          string `json:"strategy"`
	Headless          bool   `json:"headless"`
	NavigationTimeout string `json:"navigationTimeout"`
	ChromePath        string `json:"chromePath,omitempty"`
	PackageURL        string `json:"chromiumPackUrl,omitempty"`
}

// Check is the outcome of one diagnostic step
type Check struct {
	Status       string   `json:"status"`
	Title        string   `json:"title,omitempty"`
	FinalURL     string   `json:"finalUrl,omitempty"`
	HasContainer *bool    `json:"hasContainer,omitempty"`
	LinksFound   *int     `json:"linksFound,omitempty"`
	Response     string   `json:"response,omitempty"`
	Indicators   []string `json:"indicators,omitempty"`
	PagePreview  string   `json:"pagePreview,omitempty"`
}

// CheckError records why a check failed
type CheckError struct {
	Test  string `json:"test"`
	Error string `json:"error"`
}

// DebugReport is the result of Prober.Debug
type DebugReport struct {
	Timestamp   time.Time        `json:"timestamp"`
	Environment Environment      `json:"environment"`
	Tests       map[string]Check `json:"tests"`
	Errors      []CheckError     `json:"errors"`
}

// UserAgentTest is the body returned by the probe echo endpoint
type UserAgentTest struct {
	Content string `json:"content"`
}

// TestReport is the result of Prober.Test
type TestReport struct {
	Message       string        `json:"message"`
	UserAgentTest UserAgentTest `json:"userAgentTest"`
	Environment   Environment   `json:"environment"`
}

// Prober runs diagnostics with the same launcher and options as the scrapers
type Prober struct {
	launcher scrape.Launcher
	session  browser.SessionOptions
	baseURL  string
	probeURL string
	env      Environment
}

// NewProber creates a prober sharing runner's launcher and session options
func NewProber(runner *scrape.Runner, probeURL string, env Environment) *Prober {
	if probeURL == "" {
		probeURL = DefaultProbeURL
	}
	return &Prober{
		launcher: runner.Launcher(),
		session:  runner.SessionOptions(),
		baseURL:  runner.BaseURL(),
		probeURL: probeURL,
		env:      env,
	}
}

// Environment returns the environment description reported by the probes
func (p *Prober) Environment() Environment {
	return p.env
}

// Test starts a browser and loads the user agent echo page. A launch or
// navigation failure is returned as an error.
func (p *Prober) Test(ctx context.Context) (*TestReport, error) {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	opts := p.session
	opts.Timeout = 10 * time.Second

	session, err := p.launcher.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer session.Cleanup()

	target := urlutil.Join(p.probeURL, "/user-agent")
	if err := browser.Navigate(ctx, session.Page, target, browser.NavigateOptions{Timeout: 10 * time.Second}); err != nil {
		return nil, err
	}

	body, err := bodyText(ctx, session.Page)
	if err != nil {
		return nil, err
	}

	return &TestReport{
		Message:       "Browser session created successfully",
		UserAgentTest: UserAgentTest{Content: body},
		Environment:   p.env,
	}, nil
}

// Debug runs every check on a single session and reports each outcome. It
// never fails: check errors are collected in the report.
func (p *Prober) Debug(ctx context.Context) *DebugReport {
	ctx, cancel := context.WithTimeout(ctx, debugTimeout)
	defer cancel()

	logger := reqctx.Logger(ctx)
	report := &DebugReport{
		Timestamp:   time.Now(),
		Environment: p.env,
		Tests:       make(map[string]Check),
		Errors:      []CheckError{},
	}

	fail := func(name string, err error) {
		report.Tests[name] = Check{Status: StatusFailed}
		report.Errors = append(report.Errors, CheckError{Test: name, Error: err.Error()})
		logger.Warn().Err(err).Str("check", name).Msg("Diagnostic check failed")
	}

	opts := p.session
	opts.Timeout = 15 * time.Second

	session, err := p.launcher.Launch(ctx, opts)
	if err != nil {
		fail("browserCreation", err)
		return report
	}
	defer session.Cleanup()
	report.Tests["browserCreation"] = Check{Status: StatusSuccess}

	page := session.Page
	short := browser.NavigateOptions{Timeout: 10 * time.Second}
	long := browser.NavigateOptions{Timeout: 15 * time.Second}
	deviationsURL := urlutil.Join(p.baseURL, scrape.DeviationsPath)

	if err := browser.Navigate(ctx, page, urlutil.Join(p.probeURL, "/status/200"), short); err != nil {
		fail("simpleNavigation", err)
	} else {
		report.Tests["simpleNavigation"] = Check{Status: StatusSuccess}
	}

	if check, err := p.pageCheck(ctx, page, p.baseURL, long); err != nil {
		fail("redClMainPage", err)
	} else {
		report.Tests["redClMainPage"] = check
	}

	if check, err := p.deviationsCheck(ctx, page, deviationsURL, long); err != nil {
		fail("redClDeviationsPage", err)
	} else {
		report.Tests["redClDeviationsPage"] = check
	}

	if err := browser.Navigate(ctx, page, urlutil.Join(p.probeURL, "/user-agent"), short); err != nil {
		fail("userAgent", err)
	} else if body, err := bodyText(ctx, page); err != nil {
		fail("userAgent", err)
	} else {
		report.Tests["userAgent"] = Check{Status: StatusSuccess, Response: body}
	}

	if check, err := p.blockingCheck(ctx, page, deviationsURL, long); err != nil {
		fail("botDetection", err)
	} else {
		report.Tests["botDetection"] = check
	}

	return report
}

func (p *Prober) pageCheck(ctx context.Context, page browser.Page, url string, nav browser.NavigateOptions) (Check, error) {
	if err := browser.Navigate(ctx, page, url, nav); err != nil {
		return Check{}, err
	}
	title, err := page.Title(ctx)
	if err != nil {
		return Check{}, err
	}
	location, err := page.Location(ctx)
	if err != nil {
		return Check{}, err
	}
	return Check{Status: StatusSuccess, Title: title, FinalURL: location}, nil
}

func (p *Prober) deviationsCheck(ctx context.Context, page browser.Page, url string, nav browser.NavigateOptions) (Check, error) {
	check, err := p.pageCheck(ctx, page, url, nav)
	if err != nil {
		return Check{}, err
	}

	doc, err := snapshot(ctx, page)
	if err != nil {
		return Check{}, err
	}

	hasContainer := doc.Find("div.row.noticias").Length() > 0
	links := doc.Find("a.noticia").Length()
	check.HasContainer = &hasContainer
	check.LinksFound = &links

	if strings.Contains(check.FinalURL, "404") || strings.Contains(doc.Find("body").Text(), "404") {
		check.Status = StatusNotFound
	}
	return check, nil
}

func (p *Prober) blockingCheck(ctx context.Context, page browser.Page, url string, nav browser.NavigateOptions) (Check, error) {
	if err := browser.Navigate(ctx, page, url, nav); err != nil {
		return Check{}, err
	}
	body, err := bodyText(ctx, page)
	if err != nil {
		return Check{}, err
	}

	indicators := DetectBlocking(body)
	status := StatusNotBlocked
	if len(indicators) > 0 {
		status = StatusBlocked
	}

	return Check{
		Status:      status,
		Indicators:  indicators,
		PagePreview: preview(body, pagePreviewLength),
	}, nil
}

// DetectBlocking returns the anti-bot indicators present in text, case-insensitively
func DetectBlocking(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, indicator := range blockingIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			found = append(found, indicator)
		}
	}
	return found
}

func snapshot(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	html, err := page.Content(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func bodyText(ctx context.Context, page browser.Page) (string, error) {
	doc, err := snapshot(ctx, page)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("body").Text()), nil
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
