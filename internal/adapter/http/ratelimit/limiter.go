// Package ratelimit throttles clients that keep failing authentication.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	failures     int
	lastFailure  time.Time
	blocks       int
	blockedUntil time.Time
}

// FailureLimiter blocks a client once it has failed more than maxFailures
// times within window. Each further block for the same client lasts longer,
// following backoff.
type FailureLimiter struct {
	mu          sync.Mutex
	clients     map[string]*record
	maxFailures int
	window      time.Duration
	backoff     *Backoff
	now         func() time.Time
}

func NewFailureLimiter(maxFailures int, window time.Duration, backoff *Backoff) *FailureLimiter {
	return &FailureLimiter{
		clients:     make(map[string]*record),
		maxFailures: maxFailures,
		window:      window,
		backoff:     backoff,
		now:         time.Now,
	}
}

// Allow reports whether clientID may try to authenticate, and if not, for
// how long it stays blocked.
func (l *FailureLimiter) Allow(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.clients[clientID]
	if !ok {
		return true, 0
	}
	now := l.now()
	if now.Before(rec.blockedUntil) {
		return false, rec.blockedUntil.Sub(now)
	}
	return true, 0
}

// Fail records a failed attempt. It returns the block duration when this
// failure tipped the client over the limit, zero otherwise.
func (l *FailureLimiter) Fail(clientID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.clients[clientID]
	if !ok {
		rec = &record{}
		l.clients[clientID] = rec
	}

	if now.Sub(rec.lastFailure) > l.window {
		rec.failures = 0
	}
	rec.failures++
	rec.lastFailure = now

	if rec.failures <= l.maxFailures {
		return 0
	}

	rec.blocks++
	rec.failures = 0
	block := l.backoff.Duration(rec.blocks)
	rec.blockedUntil = now.Add(block)
	return block
}

// Reset forgets a client after a successful attempt.
func (l *FailureLimiter) Reset(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}

// Prune drops clients that are neither blocked nor recently failing.
func (l *FailureLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, rec := range l.clients {
		idle := now.Sub(rec.lastFailure) > l.window+l.backoff.Max
		if idle && !now.Before(rec.blockedUntil) {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

// Run prunes every interval until ctx is done.
func (l *FailureLimiter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Prune()
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *FailureLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
