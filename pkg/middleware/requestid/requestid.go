package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID on requests and responses.
	Header = "X-Request-ID"

	contextKey = "request_id"
	maxLength  = 64
)

// Middleware tags every request with an ID and echoes it on the response so
// clients can quote it when reporting problems. A caller-supplied ID is kept
// when it looks sane, which lets the scheduling frontend correlate retries.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if !acceptable(id) {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the request ID assigned by Middleware, or "" outside of it.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// acceptable bounds inbound IDs and keeps them printable, so hostile values
// cannot smuggle control characters into access logs.
func acceptable(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7E {
			return false
		}
	}
	return true
}
