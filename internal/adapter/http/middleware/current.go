package middleware

import (
	"time"

	ct "taskapp/pkg/context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 64
	currentKey      = "current"
)

// CurrentMiddleware stores a ct.Current for the request and echoes its id in
// the X-Request-ID response header.
func CurrentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		current := &ct.Current{
			RequestID: requestID(c.GetHeader(RequestIDHeader)),
			ClientIP:  c.ClientIP(),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Started:   time.Now(),
		}

		c.Request = c.Request.WithContext(ct.SetCurrent(c.Request.Context(), current))
		c.Set(currentKey, current)
		c.Header(RequestIDHeader, current.RequestID)

		c.Next()
	}
}

// requestID keeps a caller supplied id when it is short printable ASCII and
// mints a UUID otherwise.
func requestID(incoming string) string {
	if incoming == "" || len(incoming) > maxRequestIDLen {
		return uuid.NewString()
	}

	for i := 0; i < len(incoming); i++ {
		if incoming[i] < 0x21 || incoming[i] > 0x7e {
			return uuid.NewString()
		}
	}

	return incoming
}

func GetCurrent(c *gin.Context) *ct.Current {
	if v, ok := c.Get(currentKey); ok {
		if current, ok := v.(*ct.Current); ok {
			return current
		}
	}

	return ct.GetCurrent(c.Request.Context())
}
