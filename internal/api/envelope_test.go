package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/llegapo/scraper/internal/reqctx"
	"github.com/llegapo/scraper/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorTagsRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/api/deviations", nil)
	c.Request = req.WithContext(reqctx.WithRequestID(req.Context(), "req-7"))

	cause := errors.New("navigation failed")
	respondError(c, cause)

	require.Len(t, c.Errors, 1)
	var reqErr *reqctx.RequestError
	require.ErrorAs(t, c.Errors.Last().Err, &reqErr)
	assert.Equal(t, "req-7", reqErr.RequestID)
	assert.ErrorIs(t, c.Errors.Last().Err, cause)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env models.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "navigation failed", env.Error)
}
