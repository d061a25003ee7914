package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBurst is the burst size used when callers pass zero.
const DefaultBurst = 5

// Limited wraps a Client with a request rate limit. Interpretation calls
// are bursty (one per walk, but walks can fan out), and hosted backends
// meter by requests per minute.
type Limited struct {
	inner   Client
	limiter *rate.Limiter
}

// NewLimited allows requestsPerMinute sustained calls with the given
// burst. Zero or negative values fall back to 30 rpm, burst DefaultBurst.
func NewLimited(inner Client, requestsPerMinute int, burst int) *Limited {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &Limited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Generate implements the Client interface. It blocks until the limiter
// admits the call or the context is done.
func (l *Limited) Generate(ctx context.Context, system, prompt string, params GenerationParams) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.inner.Generate(ctx, system, prompt, params)
}
