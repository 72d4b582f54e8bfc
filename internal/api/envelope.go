package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/llegapo/scraper/internal/extract"
	"github.com/llegapo/scraper/internal/reqctx"
	"github.com/llegapo/scraper/pkg/models"
)

// respondData writes a success envelope. report may be nil for endpoints
// that do not extract records.
func respondData(c *gin.Context, data interface{}, report *extract.Report, cached bool) {
	env := models.Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if report != nil {
		env.Debug = &models.Debug{
			Found:     report.Found,
			Processed: report.Processed,
			Dropped:   report.Dropped,
			Cached:    cached,
		}
	}
	c.JSON(http.StatusOK, env)
}

// respondError records err, tagged with the request id, on the gin context
// and writes the failure envelope
func respondError(c *gin.Context, err error) {
	_ = c.Error(reqctx.NewRequestError(c.Request.Context(), err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.Envelope{
		Success: false,
		Error:   err.Error(),
	})
}
