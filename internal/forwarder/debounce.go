// Package forwarder reacts to content and interaction write events and
// propagates them to the ranking backend.
package forwarder

import (
	"sync"
	"time"
)

// DefaultDebounceWindow coalesces bursts of edits to the same record.
const DefaultDebounceWindow = 600 * time.Millisecond

// evictThreshold is the map size past which stale entries are swept.
const evictThreshold = 4096

// Debouncer tracks the last-seen write time per record id. It is a
// best-effort, process-local optimization: it reduces duplicate downstream
// traffic from rapid edit bursts but does not eliminate it — concurrent
// instances or cold starts can each push the same fingerprint, which the
// skip check and the backend's own fingerprint dedup absorb.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time

	now func() time.Time
}

// NewDebouncer creates a Debouncer with the given coalescing window.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window:   window,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Window returns the coalescing window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// ShouldDelay records a sighting of key and reports whether a write for the
// same key already arrived within the window.
func (d *Debouncer) ShouldDelay(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSeen[key]; ok && now.Sub(last) < d.window {
		return true
	}

	if len(d.lastSeen) >= evictThreshold {
		d.evictLocked(now)
	}
	d.lastSeen[key] = now
	return false
}

// evictLocked drops entries older than the window. Callers hold d.mu.
func (d *Debouncer) evictLocked(now time.Time) {
	for key, seen := range d.lastSeen {
		if now.Sub(seen) >= d.window {
			delete(d.lastSeen, key)
		}
	}
}
