package config

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"taskapp/internal/core/telemetry"
)

func limitedRouter(rl *RateLimiter, routes ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	for _, route := range routes {
		method, path, _ := strings.Cut(route, " ")
		router.Handle(method, path, func(c *gin.Context) { c.Status(http.StatusOK) })
	}

	return router
}

// hit sends one request and returns its status and X-RateLimit-Remaining.
func hit(router http.Handler, method, path, clientIP string) (int, int) {
	req := httptest.NewRequest(method, path, nil)
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP+", 192.168.0.1")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	remaining, _ := strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))

	return w.Code, remaining
}

func newTestLimiter() *RateLimiter {
	metrics := telemetry.NewAppMetrics(prometheus.NewRegistry())
	return NewRateLimiter(zap.NewNop(), metrics, GetDefaultConfig().RateLimitConfigs)
}

func TestNewRateLimiterDefaults(t *testing.T) {
	RegisterTestingT(t)

	rl := newTestLimiter()
	Expect(rl.config).To(HaveKey("default"))
	Expect(rl.config).To(HaveKey("POST /tasks/import"))
	Expect(rl.metrics).ToNot(BeNil())

	bare := NewRateLimiter(nil, nil, nil)
	Expect(bare.logger).ToNot(BeNil())
	Expect(bare.config).To(HaveLen(1))
}

func TestRateLimitCountsDown(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "GET /health")

	for i := range 5 {
		code, remaining := hit(router, http.MethodGet, "/health", "")

		Expect(code).To(Equal(http.StatusOK))
		Expect(remaining).To(Equal(59 - i))
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "GET /health")

	for range 60 {
		code, _ := hit(router, http.MethodGet, "/health", "")
		Expect(code).To(Equal(http.StatusOK))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	Expect(w.Code).To(Equal(http.StatusTooManyRequests))
	Expect(w.Body.String()).To(ContainSubstring("RATE_LIMIT_EXCEEDED"))
	Expect(w.Header().Get("Retry-After")).ToNot(BeEmpty())
	Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("0"))
}

func TestRateLimitImportHasOwnBudget(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "POST /tasks/import")

	var remaining []int

	for range 5 {
		code, left := hit(router, http.MethodPost, "/tasks/import", "")
		Expect(code).To(Equal(http.StatusOK))
		remaining = append(remaining, left)
	}

	Expect(remaining).To(Equal([]int{4, 3, 2, 1, 0}))

	code, _ := hit(router, http.MethodPost, "/tasks/import", "")
	Expect(code).To(Equal(http.StatusTooManyRequests))
}

func TestRateLimitTrailingSlashSharesBucket(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "POST /tasks", "POST /tasks/")

	var remaining []int

	for _, path := range []string{"/tasks", "/tasks/", "/tasks"} {
		_, left := hit(router, http.MethodPost, path, "")
		remaining = append(remaining, left)
	}

	Expect(remaining).To(Equal([]int{29, 28, 27}))
}

func TestRateLimitTaskIDsShareBucket(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "PATCH /tasks/:id")

	_, first := hit(router, http.MethodPatch, "/tasks/1", "")
	_, second := hit(router, http.MethodPatch, "/tasks/2", "")

	Expect(second).To(Equal(first - 1))
}

func TestRateLimitKeysByClient(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "GET /tasks/export")

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		code, remaining := hit(router, http.MethodGet, "/tasks/export", ip)

		Expect(code).To(Equal(http.StatusOK))
		Expect(remaining).To(Equal(9))
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	RegisterTestingT(t)

	rl := newTestLimiter()
	rl.SetConfig("GET /health", RateLimitEndpointConfig{Requests: 2, Window: 50 * time.Millisecond})
	router := limitedRouter(rl, "GET /health")

	var codes []int
	for range 3 {
		code, _ := hit(router, http.MethodGet, "/health", "")
		codes = append(codes, code)
	}

	Expect(codes).To(Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}))

	Eventually(func() int {
		code, _ := hit(router, http.MethodGet, "/health", "")
		return code
	}, time.Second, 20*time.Millisecond).Should(Equal(http.StatusOK))
}

func TestRateLimiterNormalizePath(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	cases := map[string]string{
		"/tasks/":       "/tasks",
		"/tasks/42":     "/tasks/:id",
		"/tasks/:id":    "/tasks/:id",
		"/tasks/export": "/tasks/export",
		"/":             "/",
	}

	for in, want := range cases {
		Expect(rl.normalizePath(in)).To(Equal(want), in)
	}
}

func TestRateLimiterStatsAndSetConfig(t *testing.T) {
	RegisterTestingT(t)
	rl := newTestLimiter()

	stats := rl.GetStats()
	Expect(stats["active_entries"]).To(Equal(0))
	Expect(stats["configs"]).To(Equal(len(GetDefaultConfig().RateLimitConfigs) + 1))

	rl.SetConfig("/custom", RateLimitEndpointConfig{Requests: 5, Window: time.Minute})

	Expect(rl.config["/custom"].Requests).To(Equal(5))
	Expect(rl.config["/custom"].KeyFunc).ToNot(BeNil())
}

func TestRateLimitConcurrentRequestsCountOnce(t *testing.T) {
	RegisterTestingT(t)
	router := limitedRouter(newTestLimiter(), "POST /tasks")

	const n = 10

	results := make([]int, n)
	var wg sync.WaitGroup

	for i := range n {
		wg.Go(func() {
			_, results[i] = hit(router, http.MethodPost, "/tasks", "")
		})
	}

	wg.Wait()
	sort.Ints(results)

	Expect(results).To(Equal([]int{20, 21, 22, 23, 24, 25, 26, 27, 28, 29}))
}
