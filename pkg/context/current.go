package context

import (
	"context"
	"time"
)

// Current describes the HTTP request being served. It is filled once by the
// request middleware and read-only afterwards.
type Current struct {
	RequestID string
	ClientIP  string
	Method    string
	Path      string
	Started   time.Time
}

type currentKey struct{}

func (c *Current) Elapsed() time.Duration {
	return time.Since(c.Started)
}

func SetCurrent(ctx context.Context, current *Current) context.Context {
	return context.WithValue(ctx, currentKey{}, current)
}

// GetCurrent returns the Current stored in ctx, or nil outside a request.
func GetCurrent(ctx context.Context) *Current {
	current, _ := ctx.Value(currentKey{}).(*Current)
	return current
}

func RequestID(ctx context.Context) string {
	if current := GetCurrent(ctx); current != nil {
		return current.RequestID
	}

	return ""
}
