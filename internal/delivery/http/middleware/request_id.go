package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Request correlation keys. Batch passes are long-running, so the id is
// echoed back to the caller and stamped on every log line: an operator can
// tie a slow commit to its request without grepping by job id.
const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID propagates the caller's correlation id, minting a UUIDv7 when
// the request arrives without one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			if v7, err := uuid.NewV7(); err == nil {
				id = v7.String()
			} else {
				id = uuid.NewString()
			}
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
