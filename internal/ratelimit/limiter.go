// Package ratelimit implements an in-process fixed-window request counter
// keyed by caller identity.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const AnonymousKey = "anonymous"

type Config struct {
	RequestsPerWindow int
	WindowSize        time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 120,
		WindowSize:        time.Minute,
	}
}

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// ResetUnix is ResetAt in whole seconds since epoch, rounded up.
func (r Result) ResetUnix() int64 {
	return ceilDiv(r.ResetAt.UnixMilli(), 1000)
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (r Result) RetryAfterSeconds() int64 {
	return ceilDiv(r.RetryAfter.Milliseconds(), 1000)
}

type bucket struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter(cfg Config, logger *zap.Logger) *Limiter {
	return &Limiter{
		cfg:     cfg,
		logger:  logger.Named("ratelimit"),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock replaces the time source. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow counts the request against key. The request is counted before the
// quota check, so a rejected request still uses up a slot.
func (l *Limiter) Allow(key string) Result {
	if key == "" {
		key = AnonymousKey
	}
	now := l.now()

	l.mu.Lock()
	b, found := l.buckets[key]
	if !found || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.cfg.WindowSize)}
		l.buckets[key] = b
	}
	b.count++
	count, resetAt := b.count, b.resetAt
	l.mu.Unlock()

	res := Result{
		Allowed:   count <= l.cfg.RequestsPerWindow,
		Limit:     l.cfg.RequestsPerWindow,
		Remaining: max(0, l.cfg.RequestsPerWindow-count),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
	}
	return res
}

// Sweep drops buckets whose window has already expired and returns how many
// were removed. A dropped bucket would have been reset on its next use anyway.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				l.logger.Debug("swept expired buckets", zap.Int("removed", n))
			}
		}
	}
}

func ceilDiv(a, b int64) int64 {
	return int64(math.Ceil(float64(a) / float64(b)))
}
