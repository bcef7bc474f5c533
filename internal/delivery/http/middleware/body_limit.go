package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit rejects requests whose body exceeds maxBytes. Batches arrive
// inline as JSON rows, so the limit is checked before any row is parsed and
// the configured ceiling is reported back to the caller.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("Request body exceeds the %d byte limit; split the batch and resubmit", maxBytes),
			})
			return
		}

		// Content-Length is client-supplied; the reader enforces the limit
		// for real while the body streams in.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
