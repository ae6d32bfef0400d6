// middleware/correlation.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDKey is the gin context key holding the request's
	// correlation id.
	CorrelationIDKey = "correlationID"

	// CorrelationIDHeader carries the correlation id on requests and
	// responses so multi-instance flows can be stitched together.
	CorrelationIDHeader = "X-Correlation-ID"
)

// CorrelationID accepts the caller's correlation id or mints a fresh one,
// and echoes it back on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Header(CorrelationIDHeader, correlationID)
		c.Next()
	}
}
