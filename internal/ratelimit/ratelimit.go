package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter paces outbound article fetches per target host so that a run
// over many entries from one source does not hammer that site. Hosts get
// their own token bucket lazily; an unknown or empty host shares the ""
// bucket.
type HostLimiter struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	hosts map[string]*rate.Limiter
}

// New creates a limiter allowing rps requests per second per host.
func New(rps float64, burst int) *HostLimiter {
	if rps <= 0 {
		rps = 5 // matches the historical 200ms pause between items
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
		hosts: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host's bucket allows another request or the context
// is cancelled.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	return l.limiterFor(host).Wait(ctx)
}

// Allow reports whether a request to host may proceed without waiting.
func (l *HostLimiter) Allow(host string) bool {
	return l.limiterFor(host).Allow()
}

func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.hosts[host] = lim
	}
	return lim
}
