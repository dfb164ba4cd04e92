package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestLogger(logging.NewWriterLogger(&buf, "info")))
	router.GET("/projects/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/projects/abc", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "/projects/abc", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status_code"])
}

func TestRequestLoggerGeneratesID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestLogger(logging.NewNopLogger()))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(201))
	assert.Equal(t, "3xx", statusLabel(304))
	assert.Equal(t, "4xx", statusLabel(409))
	assert.Equal(t, "5xx", statusLabel(502))
}
