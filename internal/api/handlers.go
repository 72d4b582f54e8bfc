package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/llegapo/scraper/internal/diagnostics"
	"github.com/llegapo/scraper/internal/scrape"
	"github.com/llegapo/scraper/pkg/models"
)

// Sources groups the scrape sources served by the API
type Sources struct {
	Deviations  scrape.Source[[]models.Deviation]
	MetroStatus scrape.Source[[]models.MetroLineStatus]
	Tarifas     scrape.Source[models.TarifasData]
}

// Handlers serves the scrape and diagnostic endpoints
type Handlers struct {
	runner    *scrape.Runner
	sources   Sources
	prober    *diagnostics.Prober
	startedAt time.Time
}

// NewHandlers creates the endpoint handlers
func NewHandlers(runner *scrape.Runner, sources Sources, prober *diagnostics.Prober) *Handlers {
	return &Handlers{
		runner:    runner,
		sources:   sources,
		prober:    prober,
		startedAt: time.Now(),
	}
}

// Deviations handles GET /api/deviations
func (h *Handlers) Deviations(c *gin.Context) {
	serveSource(c, h.runner, h.sources.Deviations)
}

// MetroStatus handles GET /api/metro-status
func (h *Handlers) MetroStatus(c *gin.Context) {
	serveSource(c, h.runner, h.sources.MetroStatus)
}

// Tarifas handles GET /api/tarifas
func (h *Handlers) Tarifas(c *gin.Context) {
	serveSource(c, h.runner, h.sources.Tarifas)
}

// Test handles GET /api/test
func (h *Handlers) Test(c *gin.Context) {
	report, err := h.prober.Test(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, report, nil, false)
}

// Debug handles GET /api/debug. Failed checks are part of the report, so the
// endpoint itself always succeeds.
func (h *Handlers) Debug(c *gin.Context) {
	respondData(c, h.prober.Debug(c.Request.Context()), nil, false)
}

// Health handles GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func serveSource[T any](c *gin.Context, runner *scrape.Runner, src scrape.Source[T]) {
	res, err := scrape.Run(c.Request.Context(), runner, src, scrape.RunOptions{Fresh: fresh(c)})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, res.Data, &res.Report, res.Cached)
}

// fresh reports whether the request asks to bypass the result cache
func fresh(c *gin.Context) bool {
	v, ok := c.GetQuery("fresh")
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
