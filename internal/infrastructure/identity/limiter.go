package identity

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type phoneLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// startLimiter is a per-phone token-bucket limiter on verification starts,
// with automatic stale-entry cleanup. It keeps rapid double-submits from
// reaching the provider, which throttles (and may temporarily block) numbers
// that request too many codes.
type startLimiter struct {
	mu       sync.Mutex
	limiters map[string]*phoneLimiter
	r        rate.Limit
	burst    int
}

func newStartLimiter(r rate.Limit, burst int) *startLimiter {
	sl := &startLimiter{
		limiters: make(map[string]*phoneLimiter),
		r:        r,
		burst:    burst,
	}
	go sl.cleanup()
	return sl
}

// allow reports whether one more verification start is permitted for phone.
func (sl *startLimiter) allow(phone string) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if v, ok := sl.limiters[phone]; ok {
		v.lastSeen = time.Now()
		return v.limiter.Allow()
	}
	l := rate.NewLimiter(sl.r, sl.burst)
	sl.limiters[phone] = &phoneLimiter{limiter: l, lastSeen: time.Now()}
	return l.Allow()
}

// cleanup removes stale entries every 5 minutes.
func (sl *startLimiter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		sl.mu.Lock()
		for phone, v := range sl.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(sl.limiters, phone)
			}
		}
		sl.mu.Unlock()
	}
}
