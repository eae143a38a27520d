package httpapi

import (
	"sync"
	"time"
)

const rateWindow = time.Minute

// RateLimiter applies a per-IP sliding-window limit.
type RateLimiter struct {
	mu              sync.Mutex
	requests        map[string][]time.Time
	maxPerWindow    int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a limiter allowing maxPerMinute requests per IP.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		requests:        make(map[string][]time.Time),
		maxPerWindow:    maxPerMinute,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go rl.runCleanup()

	return rl
}

// CheckLimit reports whether a request from ip is allowed, and records
// it if so.
func (rl *RateLimiter) CheckLimit(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := pruneOld(rl.requests[ip], now)

	if len(recent) >= rl.maxPerWindow {
		rl.requests[ip] = recent
		return false
	}

	rl.requests[ip] = append(recent, now)
	return true
}

// GetRetryAfter returns seconds until the oldest recorded request
// leaves the window.
func (rl *RateLimiter) GetRetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.requests[ip]
	if len(recent) == 0 {
		return 0
	}

	remaining := rateWindow - time.Since(recent[0])
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

func (rl *RateLimiter) runCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, times := range rl.requests {
		recent := pruneOld(times, now)
		if len(recent) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = recent
		}
	}
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func pruneOld(times []time.Time, now time.Time) []time.Time {
	recent := times[:0]
	for _, t := range times {
		if now.Sub(t) < rateWindow {
			recent = append(recent, t)
		}
	}
	return recent
}
