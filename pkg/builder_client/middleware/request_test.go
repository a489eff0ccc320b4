package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/middleware"
)

func newEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(zerolog.New(buf)))
	r.GET("/ping/:id", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.String(http.StatusOK, middleware.GetRequestID(c))
	})
	return r
}

func TestRequestID_Generated(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))

	id := w.Header().Get(middleware.RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())
}

func TestRequestID_Propagated(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	req := httptest.NewRequest(http.MethodGet, "/ping/1", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inside, access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inside))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))
	assert.Equal(t, "abc-123", inside["requestId"])
	assert.Equal(t, "abc-123", access["requestId"])
	assert.Equal(t, "/ping/:id", access["path"])
	assert.EqualValues(t, 200, access["status"])
	assert.Equal(t, "info", access["level"])
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var access map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &access))
	assert.Equal(t, "warn", access["level"])
}
