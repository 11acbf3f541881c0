package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/install-pinned/pinfleet/internal/clock"
)

// rateLimitTracker remembers the X-RateLimit-* state of the last
// response and blocks new requests while the budget is exhausted.
type rateLimitTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool
	clock     clock.Clock
}

func newRateLimitTracker(clk clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clk}
}

func (tracker *rateLimitTracker) update(header http.Header) {
	remainingStr := header.Get("X-RateLimit-Remaining")
	resetStr := header.Get("X-RateLimit-Reset")
	if remainingStr == "" || resetStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.remaining = remaining
	tracker.reset = time.Unix(resetUnix, 0)
	tracker.known = true
}

// wait blocks until the reset time if the budget is known to be spent.
func (tracker *rateLimitTracker) wait(ctx context.Context) error {
	tracker.mu.Lock()
	if !tracker.known || tracker.remaining > 0 {
		tracker.mu.Unlock()
		return nil
	}
	sleep := tracker.reset.Sub(tracker.clock.Now())
	tracker.mu.Unlock()

	if sleep <= 0 {
		return nil
	}
	select {
	case <-tracker.clock.After(sleep):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfter prefers Retry-After (secondary limits) and falls back to
// X-RateLimit-Reset. Zero means no backoff information.
func (tracker *rateLimitTracker) retryAfter(header http.Header) time.Duration {
	if retryStr := header.Get("Retry-After"); retryStr != "" {
		if seconds, err := strconv.Atoi(retryStr); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	if resetStr := header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			if d := time.Unix(resetUnix, 0).Sub(tracker.clock.Now()); d > 0 {
				return d
			}
		}
	}
	return 0
}
