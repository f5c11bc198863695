package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter spaces requests to the same host by at least the configured
// delay. A zero delay disables it.
type hostLimiter struct {
	delay time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newHostLimiter(delay time.Duration) *hostLimiter {
	return &hostLimiter{delay: delay, limiters: make(map[string]*rate.Limiter)}
}

func (h *hostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(h.delay), 1)
		h.limiters[host] = l
	}
	return l
}

func (h *hostLimiter) wait(ctx context.Context, host string) error {
	if h.delay <= 0 {
		return nil
	}
	return h.limiter(host).Wait(ctx)
}

// raise widens the spacing for host when robots.txt asks for more than the
// configured delay.
func (h *hostLimiter) raise(host string, delay time.Duration) {
	if delay <= h.delay || h.delay <= 0 {
		return
	}
	l := h.limiter(host)
	if l.Limit() > rate.Every(delay) {
		l.SetLimit(rate.Every(delay))
	}
}
