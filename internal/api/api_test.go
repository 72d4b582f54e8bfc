package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/llegapo/scraper/internal/api"
	"github.com/llegapo/scraper/internal/browser"
	"github.com/llegapo/scraper/internal/browser/browsertest"
	"github.com/llegapo/scraper/internal/cache"
	"github.com/llegapo/scraper/internal/diagnostics"
	"github.com/llegapo/scraper/internal/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	siteURL  = "https://www.red.cl"
	probeURL = "https://probe.test"
)

const deviationsHTML = `<html><body><div class="row noticias">
<a class="noticia" href="/n/1" title="Leer artículo: Cierre de estación"><span>03/02/2025</span><p>Por obras.</p></a>
<a class="noticia" href="/n/2" title=""></a>
</div></body></html>`

const metroHTML = `<html><body><table class="table"><tbody>
<tr><td><div class="linea-metro" title="L1"></div></td><td>Operativa</td></tr>
<tr><td><div class="linea-metro" title="L4A"></div></td><td>Cerrada</td></tr>
</tbody></table></body></html>`

const tarifasHTML = `<html><body>
<h2 class="titular">Horario Valle</h2>
<p>Iniciando 09:00 - 17:59</p>
<table><tbody><tr><td>Metro</td><td>$ 810</td></tr></tbody></table>
</body></html>`

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp int64           `json:"timestamp"`
	Debug     *struct {
		Found     int  `json:"found"`
		Processed int  `json:"processed"`
		Dropped   int  `json:"dropped"`
		Cached    bool `json:"cached"`
	} `json:"debug"`
}

func sitePages() map[string]string {
	return map[string]string{
		siteURL + scrape.DeviationsPath:  deviationsHTML,
		siteURL + scrape.MetroStatusPath: metroHTML,
		siteURL + scrape.TarifasPath:     tarifasHTML,
		siteURL:                          "<html><body>Inicio</body></html>",
		probeURL + "/status/200":         "<html><body></body></html>",
		probeURL + "/user-agent":         `<html><body>{"user-agent": "llegapo-test"}</body></html>`,
	}
}

func newRouter(t *testing.T, launcher scrape.Launcher, c cache.Cache, ttl time.Duration) *gin.Engine {
	t.Helper()

	runner := scrape.NewRunner(launcher, nil, c, scrape.Options{
		BaseURL:        siteURL,
		SessionTimeout: time.Second,
		Navigate:       browser.NavigateOptions{Timeout: time.Second, Retries: -1},
		Marker:         browser.WaitOptions{Timeout: 10 * time.Millisecond, Retries: -1},
	})

	sources := api.Sources{
		Deviations:  scrape.DeviationsSource(ttl),
		MetroStatus: scrape.MetroStatusSource(ttl, 0),
		Tarifas:     scrape.TarifasSource(ttl),
	}
	sources.MetroStatus.Settle = 0

	prober := diagnostics.NewProber(runner, probeURL, diagnostics.Environment{Env: "development", Strategy: "fake"})
	return api.NewRouter(api.NewHandlers(runner, sources, prober))
}

func get(t *testing.T, router http.Handler, target string, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for k, v := range header {
		req.Header[k] = v
	}
	router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestDeviationsEndpoint(t *testing.T) {
	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: sitePages()}}
	router := newRouter(t, launcher, nil, 0)

	w, env := get(t, router, "/api/deviations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotZero(t, env.Timestamp)

	var data []map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, "Cierre de estación", data[0]["title"])
	assert.Equal(t, "https://www.red.cl/n/1", data[0]["link"])

	require.NotNil(t, env.Debug)
	assert.Equal(t, 2, env.Debug.Found)
	assert.Equal(t, 1, env.Debug.Processed)
	assert.Equal(t, 1, env.Debug.Dropped)
	assert.False(t, env.Debug.Cached)

	assert.Equal(t, 1, launcher.Cleanups())
}

func TestMetroStatusEndpoint(t *testing.T) {
	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: sitePages()}}
	router := newRouter(t, launcher, nil, 0)

	w, env := get(t, router, "/api/metro-status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data []map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 2)
	assert.Equal(t, "1", data[0]["line"])
	assert.Equal(t, "4a", data[1]["line"])
	assert.Equal(t, "Cerrada", data[1]["status"])
}

func TestTarifasEndpoint(t *testing.T) {
	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: sitePages()}}
	router := newRouter(t, launcher, nil, 0)

	w, env := get(t, router, "/api/tarifas", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Tarifas []struct {
			Tipo    string `json:"tipo"`
			Precios struct {
				Total int `json:"total"`
			} `json:"precios"`
		} `json:"tarifas"`
		InformacionGeneral json.RawMessage `json:"informacionGeneral"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Tarifas, 1)
	assert.Equal(t, "valle", data.Tarifas[0].Tipo)
	assert.Equal(t, 810, data.Tarifas[0].Precios.Total)
	assert.NotEmpty(t, data.InformacionGeneral)
}

func TestScrapeFailureReturnsErrorEnvelope(t *testing.T) {
	launcher := &browsertest.Launcher{Err: errors.New("chrome not found")}
	router := newRouter(t, launcher, nil, 0)

	for _, path := range []string{"/api/deviations", "/api/metro-status", "/api/tarifas", "/api/test"} {
		t.Run(path, func(t *testing.T) {
			w, env := get(t, router, path, nil)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.False(t, env.Success)
			assert.Contains(t, env.Error, "chrome not found")
			assert.Empty(t, env.Data)
		})
	}
	assert.Equal(t, 0, launcher.Cleanups())
}

func TestFreshBypassesCache(t *testing.T) {
	mc := cache.NewMemoryCache(0)
	defer mc.Close()

	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: sitePages()}}
	router := newRouter(t, launcher, mc, time.Minute)

	_, first := get(t, router, "/api/deviations", nil)
	require.True(t, first.Success)
	assert.False(t, first.Debug.Cached)

	_, second := get(t, router, "/api/deviations", nil)
	require.True(t, second.Success)
	assert.True(t, second.Debug.Cached)
	assert.Equal(t, 1, launcher.Launches())

	_, third := get(t, router, "/api/deviations?fresh=1", nil)
	require.True(t, third.Success)
	assert.False(t, third.Debug.Cached)
	assert.Equal(t, 2, launcher.Launches())
}

func TestTestEndpoint(t *testing.T) {
	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: sitePages()}}
	router := newRouter(t, launcher, nil, 0)

	w, env := get(t, router, "/api/test", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report diagnostics.TestReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, `{"user-agent": "llegapo-test"}`, report.UserAgentTest.Content)
	assert.Nil(t, env.Debug)
}

func TestDebugEndpointSucceedsWithFailedChecks(t *testing.T) {
	launcher := &browsertest.Launcher{Err: errors.New("no chrome")}
	router := newRouter(t, launcher, nil, 0)

	w, env := get(t, router, "/api/debug", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var report diagnostics.DebugReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, diagnostics.StatusFailed, report.Tests["browserCreation"].Status)
	require.Len(t, report.Errors, 1)
}

func TestRequestID(t *testing.T) {
	launcher := &browsertest.Launcher{Page: &browsertest.Page{Pages: sitePages()}}
	router := newRouter(t, launcher, nil, 0)

	w, _ := get(t, router, "/healthz", http.Header{"X-Request-Id": {"upstream-123"}})
	assert.Equal(t, "upstream-123", w.Header().Get("X-Request-ID"))

	w, _ = get(t, router, "/healthz", http.Header{"X-Request-Id": {strings.Repeat("x", 500)}})
	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	assert.Len(t, id, 36)
}

func TestHealthz(t *testing.T) {
	router := newRouter(t, &browsertest.Launcher{}, nil, 0)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(t, &browsertest.Launcher{}, nil, 0)
	get(t, router, "/healthz", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "llegapo_http_requests_total")
}

func TestPanicInHandlerReturnsEnvelope(t *testing.T) {
	router := newRouter(t, &browsertest.Launcher{}, nil, 0)
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w, env := get(t, router, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "internal server error", env.Error)
}
