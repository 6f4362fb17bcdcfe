package history

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/akfire/dispatch-relay/pkg/call"
	"github.com/akfire/dispatch-relay/pkg/directions"
)

// DefaultLimit is the call history capacity used when none is configured.
const DefaultLimit = 20

// Entry is the ledger record for one call number. Call data is replaced in
// place when an update for the same call number arrives; the entry's position
// in the eviction queue never changes.
type Entry struct {
	CallNumber string

	mu            sync.RWMutex
	call          call.Call
	receivedAt    time.Time
	directions    *directions.Result
	directionsLoc string // Location the cached directions were computed from
	fetching      bool   // A provider lookup for this entry is outstanding
	fetchingLoc   string // Location the outstanding lookup was issued for
}

// SetCall replaces the entry's call data
func (e *Entry) SetCall(c call.Call) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.call = c
}

// Call returns the entry's current call data
func (e *Entry) Call() call.Call {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.call
}

// ReceivedAt returns when the call number was first seen
func (e *Entry) ReceivedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.receivedAt
}

// AttachDirections memoizes a successful lookup and the location it was
// computed from. Last writer wins when lookups overlap.
func (e *Entry) AttachDirections(location string, r directions.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.directions = &r
	e.directionsLoc = location
}

// CachedDirections returns the memoized result for the given location, tagged
// cached. The second return is false when no result is attached or the call's
// location has changed since the result was computed.
func (e *Entry) CachedDirections(location string) (directions.Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.directions == nil || e.directionsLoc != location {
		return directions.Result{}, false
	}
	r := *e.directions
	r.Cached = true
	return r, true
}

// Directions returns the memoized result, if any
func (e *Entry) Directions() (directions.Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.directions == nil {
		return directions.Result{}, false
	}
	return *e.directions, true
}

// BeginFetch marks a provider lookup as outstanding for the given location.
// It returns false only when a lookup for the same location is already in
// flight: duplicate updates issue at most one concurrent lookup, while an
// update that moved the call still gets its own lookup (last writer wins on
// the attached result). The guard is best effort; it never loses a changed
// location.
func (e *Entry) BeginFetch(location string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fetching && e.fetchingLoc == location {
		return false
	}
	e.fetching = true
	e.fetchingLoc = location
	return true
}

// EndFetch clears the outstanding-lookup marker
func (e *Entry) EndFetch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetching = false
	e.fetchingLoc = ""
}

// History is a bounded, order-preserving ledger of recently received calls,
// deduplicated by call number. When inserting would exceed the limit the
// oldest entry by insertion order is evicted first.
type History struct {
	mu      sync.RWMutex
	limit   int
	entries []*Entry // Insertion order, oldest first
	index   map[string]*Entry
	clock   clockwork.Clock
}

// New creates a call history with the given capacity
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{
		limit: limit,
		index: make(map[string]*Entry),
		clock: clockwork.NewRealClock(),
	}
}

// WithClock injects a time source (used by tests to control entry aging)
func (h *History) WithClock(c clockwork.Clock) *History {
	h.clock = c
	return h
}

// FindOrCreate returns the entry for a call number, creating it if new. On
// creation at capacity the single oldest entry is evicted first. Updates to
// an existing call number do not affect eviction order.
func (h *History) FindOrCreate(callNumber string) (*Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.index[callNumber]; ok {
		return e, false
	}

	if len(h.entries) >= h.limit {
		oldest := h.entries[0]
		h.entries = h.entries[1:]
		delete(h.index, oldest.CallNumber)
	}

	e := &Entry{
		CallNumber: callNumber,
		receivedAt: h.clock.Now(),
	}
	h.entries = append(h.entries, e)
	h.index[callNumber] = e
	return e, true
}

// Get returns the entry for a call number, or nil
func (h *History) Get(callNumber string) *Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index[callNumber]
}

// ForArea returns the area's entries newest-first
func (h *History) ForArea(area string) []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Entry
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Call().Area == area {
			out = append(out, h.entries[i])
		}
	}
	return out
}

// ActiveForArea returns the area's entries younger than ttl, newest-first.
// Used for replay-on-connect so a fresh display picks up active calls.
func (h *History) ActiveForArea(area string, ttl time.Duration) []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.clock.Now()
	var out []*Entry
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if e.Call().Area != area {
			continue
		}
		if now.Sub(e.ReceivedAt()) < ttl {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns up to n entries newest-first, for the status surface
func (h *History) Recent(n int) []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]*Entry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

// Len returns the number of retained entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
