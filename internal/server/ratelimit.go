package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter allows a fixed number of requests per client in each one
// minute window.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	clients           map[string]*clientWindow
	now               func() time.Time
}

type clientWindow struct {
	start    time.Time
	requests int
}

// NewRateLimiter creates a limiter. A non-positive limit disables it.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		clients:           make(map[string]*clientWindow),
		now:               time.Now,
	}
}

// CheckRateLimit records a request from clientID, or returns a
// *RateLimitError when the client has used up its window.
func (rl *RateLimiter) CheckRateLimit(clientID string) error {
	if rl.requestsPerMinute <= 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictExpired(now)

	win, ok := rl.clients[clientID]
	if !ok {
		win = &clientWindow{start: now}
		rl.clients[clientID] = win
	}
	if win.requests >= rl.requestsPerMinute {
		return &RateLimitError{
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(win.start),
		}
	}
	win.requests++
	return nil
}

// evictExpired drops windows older than a minute, so the map only holds
// clients seen recently.
func (rl *RateLimiter) evictExpired(now time.Time) {
	for id, win := range rl.clients {
		if now.Sub(win.start) >= time.Minute {
			delete(rl.clients, id)
		}
	}
}

// Requests returns how many requests clientID made in its current window.
func (rl *RateLimiter) Requests(clientID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if win, ok := rl.clients[clientID]; ok && rl.now().Sub(win.start) < time.Minute {
		return win.requests
	}
	return 0
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d per minute, retry after: %v)", e.Limit, e.RetryAfter)
}
