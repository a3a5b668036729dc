// Package ratelimit implements the fixed-window request budgets applied to
// dispatches. Budgets are counted in memory per key; the window length is
// shared across keys and each key carries its own limit.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one budget check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int

	// Reset is when the current window ends.
	Reset time.Time

	// RetryAfter is how long a denied caller must wait. Zero when allowed.
	RetryAfter time.Duration
}

type entry struct {
	count     int
	windowEnd time.Time
}

// Ledger counts requests per key over a fixed window. Safe for concurrent
// use. Expired entries linger until the next Allow on their key or a Sweep.
type Ledger struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*entry
}

// NewLedger creates a ledger with the given window length.
func NewLedger(window time.Duration) *Ledger {
	if window <= 0 {
		window = time.Minute
	}
	return &Ledger{
		window:  window,
		entries: make(map[string]*entry),
	}
}

// Window returns the ledger's window length.
func (l *Ledger) Window() time.Duration {
	return l.window
}

// Allow checks key against limit and, when within budget, consumes one
// request. Denied requests consume nothing. A limit <= 0 always allows.
func (l *Ledger) Allow(key string, limit int) Decision {
	now := time.Now()

	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: -1, Reset: now.Add(l.window)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !e.windowEnd.After(now) {
		e = &entry{windowEnd: now.Add(l.window)}
		l.entries[key] = e
	}

	if e.count >= limit {
		retry := time.Until(e.windowEnd)
		if retry < 0 {
			retry = 0
		}
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			Reset:      e.windowEnd,
			RetryAfter: retry,
		}
	}

	e.count++
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - e.count,
		Reset:     e.windowEnd,
	}
}

// Usage returns the current count and window end for key without consuming
// budget. A key with no live window reports zero.
func (l *Ledger) Usage(key string) (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !e.windowEnd.After(time.Now()) {
		return 0, time.Time{}
	}
	return e.count, e.windowEnd
}

// Len returns the number of tracked keys, live or expired.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops entries whose window has ended and reports how many were
// removed. Called periodically so abandoned mappings do not accumulate.
func (l *Ledger) Sweep() int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if !e.windowEnd.After(now) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
