package config

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPSEnforcer redirects plain HTTP requests to their https:// equivalent.
type HTTPSEnforcer struct {
	enabled bool
	logger  *zap.Logger
}

func NewHTTPSEnforcer(enabled bool, logger *zap.Logger) *HTTPSEnforcer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPSEnforcer{enabled: enabled, logger: logger}
}

func (he *HTTPSEnforcer) HTTPSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request

		if !he.enabled || isSecure(r) || isLoopback(r.Host) {
			c.Next()
			return
		}

		target := "https://" + r.Host + r.URL.RequestURI()

		// writes get 308 so the method and body survive the redirect
		status := http.StatusPermanentRedirect
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			status = http.StatusMovedPermanently
		}

		he.logger.Debug("Redirecting to HTTPS",
			zap.String("method", r.Method),
			zap.String("target", target),
			zap.Int("status", status))

		c.Redirect(status, target)
		c.Abort()
	}
}

// isSecure reports whether r arrived over TLS, directly or through a
// terminating proxy.
func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func isLoopback(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}

	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(strings.Trim(host, "[]"))

	return ip != nil && ip.IsLoopback()
}
