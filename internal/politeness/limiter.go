// Package politeness paces outbound requests to a remote database so that
// only one polite request is made at a time.
package politeness

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFactor is the politeness factor when none is configured.
const DefaultFactor = 1.0

// Limiter is a fixed serial pacing gate. Every Wait blocks for at least
// BaseDelay*Factor, including the very first call and a call after a long
// idle stretch. It is not a token bucket: the burst is one and a token that
// refilled while idle is discarded before waiting.
type Limiter struct {
	baseDelay time.Duration
	factor    float64
	limiter   *rate.Limiter
}

// New creates a limiter. factor must be positive; >1 is slower and safer,
// <1 faster and riskier.
func New(baseDelay time.Duration, factor float64) (*Limiter, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("politeness factor must be > 0, got %v", factor)
	}
	if baseDelay < 0 {
		return nil, fmt.Errorf("base delay must be >= 0, got %v", baseDelay)
	}

	l := &Limiter{baseDelay: baseDelay, factor: factor}

	delay := l.Delay()
	if delay <= 0 {
		l.limiter = rate.NewLimiter(rate.Inf, 1)
		return l, nil
	}

	l.limiter = rate.NewLimiter(rate.Every(delay), 1)
	l.limiter.Allow()
	return l, nil
}

// Delay returns the effective idle time between two requests.
func (l *Limiter) Delay() time.Duration {
	return time.Duration(float64(l.baseDelay) * l.factor)
}

// Factor returns the configured politeness factor.
func (l *Limiter) Factor() float64 {
	return l.factor
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.limiter.Allow()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
