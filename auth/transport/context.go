package transport

import "context"

type (
	contextKey string
)

const (
	ContextRetriedKey contextKey = "authRetried"
)

// WithRetried marks requests made with ctx as already retried, so a 401 is returned without refreshing
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextRetriedKey, true)
}

func isRetried(ctx context.Context) bool {
	if value := ctx.Value(ContextRetriedKey); value != nil {
		retried, _ := value.(bool)
		return retried
	}
	return false
}
