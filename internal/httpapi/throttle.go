package httpapi

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ThrottleConfig configures the per-IP burst throttle on votes.
// It is independent of the ledger TTL and only guards against request floods.
type ThrottleConfig struct {
	// RPS is the sustained request rate per IP. Zero disables throttling.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// IdleExpiry drops a limiter not used for this long.
	IdleExpiry time.Duration
}

// DefaultThrottleConfig returns 1 request/s with a burst of 5.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		RPS:        1,
		Burst:      5,
		IdleExpiry: 10 * time.Minute,
	}
}

// Throttle keeps one token bucket per client IP.
type Throttle struct {
	config   ThrottleConfig
	mu       sync.Mutex
	limiters *cache.Cache
}

// NewThrottle creates a Throttle.
func NewThrottle(config ThrottleConfig) *Throttle {
	if config.IdleExpiry <= 0 {
		config.IdleExpiry = 10 * time.Minute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Throttle{
		config:   config,
		limiters: cache.New(config.IdleExpiry, 2*config.IdleExpiry),
	}
}

// Allow reports whether ip may make another request now.
func (t *Throttle) Allow(ip string) bool {
	if t == nil || t.config.RPS <= 0 {
		return true
	}
	return t.limiter(ip).Allow()
}

func (t *Throttle) limiter(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.limiters.Get(ip); ok {
		l := v.(*rate.Limiter)
		// Touch to extend the idle expiry.
		t.limiters.SetDefault(ip, l)
		return l
	}
	l := rate.NewLimiter(rate.Limit(t.config.RPS), t.config.Burst)
	t.limiters.SetDefault(ip, l)
	return l
}

// Len returns the number of tracked IPs.
func (t *Throttle) Len() int {
	return t.limiters.ItemCount()
}
