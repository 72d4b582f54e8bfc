package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/llegapo/scraper/internal/browser"
	"github.com/llegapo/scraper/internal/browser/browsertest"
	"github.com/llegapo/scraper/internal/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	siteURL  = "https://www.red.cl"
	probeURL = "https://httpbin.org"
)

func newProber(l scrape.Launcher) *Prober {
	runner := scrape.NewRunner(l, nil, nil, scrape.Options{
		BaseURL:        siteURL,
		SessionTimeout: time.Second,
	})
	return NewProber(runner, probeURL, Environment{Env: "development", Strategy: "fake"})
}

func healthyPages() map[string]string {
	return map[string]string{
		probeURL + "/status/200":        "<html><body></body></html>",
		probeURL + "/user-agent":        `<html><body>{"user-agent": "Mozilla/5.0 llegapo"}</body></html>`,
		siteURL:                         "<html><head><title>Red Movilidad</title></head><body>Inicio</body></html>",
		siteURL + scrape.DeviationsPath: `<html><body><div class="row noticias"><a class="noticia"></a><a class="noticia"></a></div></body></html>`,
	}
}

func TestDebug_AllChecksPass(t *testing.T) {
	page := &browsertest.Page{
		Pages:  healthyPages(),
		Titles: map[string]string{siteURL: "Red Movilidad"},
	}
	launcher := &browsertest.Launcher{Page: page}

	report := newProber(launcher).Debug(context.Background())

	assert.Empty(t, report.Errors)
	assert.Equal(t, StatusSuccess, report.Tests["browserCreation"].Status)
	assert.Equal(t, StatusSuccess, report.Tests["simpleNavigation"].Status)

	main := report.Tests["redClMainPage"]
	assert.Equal(t, StatusSuccess, main.Status)
	assert.Equal(t, "Red Movilidad", main.Title)
	assert.Equal(t, siteURL, main.FinalURL)

	deviations := report.Tests["redClDeviationsPage"]
	assert.Equal(t, StatusSuccess, deviations.Status)
	require.NotNil(t, deviations.HasContainer)
	assert.True(t, *deviations.HasContainer)
	require.NotNil(t, deviations.LinksFound)
	assert.Equal(t, 2, *deviations.LinksFound)

	assert.Contains(t, report.Tests["userAgent"].Response, "llegapo")
	assert.Equal(t, StatusNotBlocked, report.Tests["botDetection"].Status)
	assert.Equal(t, 1, launcher.Cleanups())
}

func TestDebug_LaunchFailureIsReported(t *testing.T) {
	launcher := &browsertest.Launcher{Err: errors.New("no chrome")}

	report := newProber(launcher).Debug(context.Background())

	assert.Equal(t, StatusFailed, report.Tests["browserCreation"].Status)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "browserCreation", report.Errors[0].Test)
	assert.NotContains(t, report.Tests, "simpleNavigation")
}

func TestDebug_DetectsBlockingAnd404(t *testing.T) {
	pages := healthyPages()
	pages[siteURL+scrape.DeviationsPath] = "<html><body>Error 404. Access Denied by Cloudflare</body></html>"
	delete(pages, probeURL+"/status/200")

	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: pages}}
	report := newProber(launcher).Debug(context.Background())

	assert.Equal(t, StatusFailed, report.Tests["simpleNavigation"].Status)
	assert.Equal(t, StatusNotFound, report.Tests["redClDeviationsPage"].Status)

	bot := report.Tests["botDetection"]
	assert.Equal(t, StatusBlocked, bot.Status)
	assert.Equal(t, []string{"Access Denied", "Cloudflare"}, bot.Indicators)
	assert.Contains(t, bot.PagePreview, "Error 404")
	assert.Equal(t, 1, launcher.Cleanups())
}

func TestTest_ReturnsUserAgentBody(t *testing.T) {
	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: healthyPages()}}

	report, err := newProber(launcher).Test(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"user-agent": "Mozilla/5.0 llegapo"}`, report.UserAgentTest.Content)
	assert.Equal(t, "fake", report.Environment.Strategy)
	assert.Equal(t, 1, launcher.Cleanups())
}

func TestTest_LaunchFailure(t *testing.T) {
	launcher := &browsertest.Launcher{Err: errors.New("no chrome")}

	_, err := newProber(launcher).Test(context.Background())
	var launchErr *browser.LaunchError
	assert.ErrorAs(t, err, &launchErr)
}

func TestDetectBlocking(t *testing.T) {
	assert.Equal(t, []string{"Forbidden", "Rate Limit"}, DetectBlocking("403 forbidden: rate limit exceeded"))
	assert.Empty(t, DetectBlocking("Estado del servicio"))
}
