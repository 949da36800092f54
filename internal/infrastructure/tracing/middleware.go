package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware seeds the TraceContext from inbound headers, opens the
// request's root span, echoes the ids on the response and reports leaked
// spans once the handler returns.
func HTTPMiddleware(rec *Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := FromHeaders(c.GetHeader(HeaderRequestID), c.GetHeader(HeaderCorrelationID))
		ctx := WithTraceContext(c.Request.Context(), tc)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		span, ctx := rec.StartSpan(ctx, c.Request.Method+" "+route)
		rec.Tag(span, "http.method", c.Request.Method)
		rec.Tag(span, "http.route", route)
		rec.Tag(span, "request_id", tc.RequestID)

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderCorrelationID, string(tc.TraceID))

		defer func() {
			rec.Tag(span, "http.status", strconv.Itoa(c.Writer.Status()))
			if len(c.Errors) > 0 {
				rec.LogError(span, c.Errors.Last())
			}
			rec.Finish(span)
			rec.FlushTrace(tc.TraceID)
		}()

		c.Next()
	}
}
