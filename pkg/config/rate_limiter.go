package config

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// RateLimitMetrics receives the limiter's decisions.
type RateLimitMetrics interface {
	RecordRateLimitHit(ctx context.Context, path, keyType string)
	RecordRateLimitAllowed(ctx context.Context, path, keyType string)
}

type RateLimitEndpointConfig struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

type RateLimiter struct {
	cache   *cache.Cache
	config  map[string]RateLimitEndpointConfig
	logger  *zap.Logger
	metrics RateLimitMetrics
	mutex   sync.RWMutex
}

// window is the request count of one key inside its current window.
type window struct {
	count   int
	resetAt time.Time
}

// decision is the outcome of charging one request to a key.
type decision struct {
	allowed   bool
	limit     int
	remaining int
	resetAt   time.Time
}

// NewRateLimiter builds a limiter with a 60 req/min default per client IP,
// overridden per "METHOD /path" by the given configs.
func NewRateLimiter(logger *zap.Logger, metrics RateLimitMetrics, configs map[string]RateLimitConfig) *RateLimiter {
	c := cache.New(5*time.Minute, 10*time.Minute)

	endpoints := map[string]RateLimitEndpointConfig{
		"default": {
			Requests: 60,
			Window:   time.Minute,
			KeyFunc:  GetClientIP,
		},
	}

	for path, cfg := range configs {
		endpoints[path] = RateLimitEndpointConfig{
			Requests: cfg.Requests,
			Window:   cfg.Window,
			KeyFunc:  GetClientIP,
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		cache:   c,
		config:  endpoints,
		logger:  logger,
		metrics: metrics,
	}
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		route := rl.normalizePath(path)
		methodRoute := c.Request.Method + " " + route

		rule := rl.lookup(methodRoute, route)
		key := rl.generateKey(c, methodRoute, rule.KeyFunc)
		d := rl.take(key, rule, time.Now())

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

		if d.allowed {
			rl.record(c.Request.Context(), route, true)
			c.Next()
			return
		}

		rl.record(c.Request.Context(), route, false)

		rl.logger.Warn("Rate limit exceeded",
			zap.String("key", key),
			zap.String("route", methodRoute),
			zap.Int("limit", rule.Requests),
			zap.Duration("window", rule.Window))

		retryAfter := int(time.Until(d.resetAt).Seconds()) + 1
		h.Set("Retry-After", strconv.Itoa(retryAfter))

		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{
				"code": "RATE_LIMIT_EXCEEDED",
				"errors": []gin.H{{
					"field":   "request",
					"message": fmt.Sprintf("Too many requests. Limit: %d per %v", rule.Requests, rule.Window),
				}},
			},
		})
	}
}

func (rl *RateLimiter) record(ctx context.Context, route string, allowed bool) {
	if rl.metrics == nil {
		return
	}

	if allowed {
		rl.metrics.RecordRateLimitAllowed(ctx, route, "ip")
	} else {
		rl.metrics.RecordRateLimitHit(ctx, route, "ip")
	}
}

func (rl *RateLimiter) lookup(methodPath, path string) RateLimitEndpointConfig {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	if config, ok := rl.config[methodPath]; ok {
		return config
	}

	if config, ok := rl.config[path]; ok {
		return config
	}

	return rl.config["default"]
}

// take charges one request to key. A rejected request does not extend or
// consume the window.
func (rl *RateLimiter) take(key string, rule RateLimitEndpointConfig, now time.Time) decision {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	w := window{resetAt: now.Add(rule.Window)}

	if v, ok := rl.cache.Get(key); ok {
		if cur := v.(window); now.Before(cur.resetAt) {
			w = cur
		}
	}

	if w.count >= rule.Requests {
		return decision{limit: rule.Requests, resetAt: w.resetAt}
	}

	w.count++
	rl.cache.Set(key, w, w.resetAt.Sub(now))

	return decision{
		allowed:   true,
		limit:     rule.Requests,
		remaining: rule.Requests - w.count,
		resetAt:   w.resetAt,
	}
}

// normalizePath folds the trailing slash and task ids so every task gets the
// same bucket: /tasks/ -> /tasks, /tasks/42 -> /tasks/:id.
func (rl *RateLimiter) normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	if rest, ok := strings.CutPrefix(path, "/tasks/"); ok && !strings.Contains(rest, "/") {
		if _, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return "/tasks/:id"
		}
	}

	return path
}

func (rl *RateLimiter) generateKey(c *gin.Context, methodRoute string, keyFunc func(*gin.Context) string) string {
	return "rate_limit:" + methodRoute + ":" + keyFunc(c)
}

func (rl *RateLimiter) SetConfig(path string, config RateLimitEndpointConfig) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if config.KeyFunc == nil {
		config.KeyFunc = GetClientIP
	}

	rl.config[path] = config
}

func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	return map[string]interface{}{
		"active_entries": rl.cache.ItemCount(),
		"configs":        len(rl.config),
	}
}

// GetClientIP keys clients by the first X-Forwarded-For hop, then X-Real-IP,
// then the connection address.
func GetClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}

	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return "unknown"
}
