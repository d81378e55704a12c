package billing

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/receiptbox/internal/common"
)

// Limiter gates OCR scans per user. A nil *Limiter allows everything.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter allows perMinute scans on average with bursts up to burst.
func NewLimiter(perMinute float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(perMinute / 60),
		defaultBurst: burst,
	}
}

// Allow returns common.ErrRateLimited when the user has no tokens left.
func (l *Limiter) Allow(userID string) error {
	if l == nil {
		return nil
	}
	if !l.getLimiter(userID).Allow() {
		return common.ErrRateLimited
	}
	return nil
}

// Wait blocks until the user may scan or ctx ends.
func (l *Limiter) Wait(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	return l.getLimiter(userID).Wait(ctx)
}

func (l *Limiter) getLimiter(userID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[userID]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[userID]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[userID] = limiter
	return limiter
}
