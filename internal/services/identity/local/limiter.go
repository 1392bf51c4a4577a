package local

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// attemptLimiter keeps one token bucket per key in a bounded LRU, so idle
// keys are forgotten once the cache fills up.
type attemptLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newAttemptLimiter(size int, limit rate.Limit, burst int, now func() time.Time) (*attemptLimiter, error) {
	buckets, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("attempt limiter cache: %w", err)
	}
	return &attemptLimiter{
		buckets: buckets,
		limit:   limit,
		burst:   burst,
		now:     now,
	}, nil
}

func (l *attemptLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var bucket *rate.Limiter
	if cached, ok := l.buckets.Get(key); ok {
		bucket = cached.(*rate.Limiter)
	} else {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, bucket)
	}
	return bucket.AllowN(l.now(), 1)
}
