package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ring := NewRingSink(10)
	rec, _ := newTestRecorder(t, newFakeClock(), ring)

	var seen TraceContext
	router := gin.New()
	router.Use(HTTPMiddleware(rec))
	router.GET("/jobs/:id", func(c *gin.Context) {
		seen, _ = FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("propagates supplied ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/jobs/42", nil)
		req.Header.Set(HeaderRequestID, "req-123")
		req.Header.Set(HeaderCorrelationID, "corr-456")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "corr-456", w.Header().Get(HeaderCorrelationID))
		assert.Equal(t, TraceID("corr-456"), seen.TraceID)
		assert.NotEmpty(t, seen.SpanID)
	})

	t.Run("generates ids when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/jobs/7", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
		assert.Equal(t, w.Header().Get(HeaderRequestID), w.Header().Get(HeaderCorrelationID))
	})

	rec.Close()
	spans := ring.Last(10)
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /jobs/:id", spans[0].Name)
	assert.Equal(t, "204", spans[0].Tags["http.status"])
}
