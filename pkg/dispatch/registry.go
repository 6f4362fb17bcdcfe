package dispatch

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/akfire/dispatch-relay/pkg/station"
)

// Session is one live display connection. The transport implements it; the
// router never sees sockets directly.
type Session interface {
	// RemoteAddress returns the peer's network address
	RemoteAddress() string
	// Emit sends one event to the display. The ack callback, if non-nil,
	// fires when the display acknowledges receipt.
	Emit(event string, payload interface{}, ack func()) error
	// Disconnect tears the connection down
	Disconnect()
}

// PostRecord tracks delivery of events about one call number to one display.
// Timestamps are recorded per event type, once each.
type PostRecord struct {
	CallNumber string
	SentAt     map[string]time.Time
	AckAt      map[string]time.Time
}

// Connection is one registered display: its session, the stations it
// represents, and a delivery ledger of what it has been shown.
type Connection struct {
	session  Session
	stations []*station.Station
	since    time.Time

	mu        sync.RWMutex
	posts     map[string]*PostRecord
	postOrder []string // Insertion order of call numbers, oldest first
}

func newConnection(s Session, stations []*station.Station, since time.Time) *Connection {
	return &Connection{
		session:  s,
		stations: stations,
		since:    since,
		posts:    make(map[string]*PostRecord),
	}
}

// Address returns the peer's network address
func (c *Connection) Address() string {
	return c.session.RemoteAddress()
}

// Stations returns the stations this display represents
func (c *Connection) Stations() []*station.Station {
	return c.stations
}

// StationIDs returns the ids of the represented stations
func (c *Connection) StationIDs() []string {
	ids := make([]string, len(c.stations))
	for i, st := range c.stations {
		ids[i] = st.ID
	}
	return ids
}

// Areas returns the distinct areas this display serves, in station order
func (c *Connection) Areas() []string {
	seen := make(map[string]bool)
	var areas []string
	for _, st := range c.stations {
		if !seen[st.Area] {
			seen[st.Area] = true
			areas = append(areas, st.Area)
		}
	}
	return areas
}

// ServesArea reports whether any represented station is in the given area
func (c *Connection) ServesArea(area string) bool {
	for _, st := range c.stations {
		if st.Area == area {
			return true
		}
	}
	return false
}

// Since returns when the display registered
func (c *Connection) Since() time.Time {
	return c.since
}

// RecordSent stamps the first delivery of an event type for a call number.
// Re-sends of the same event type for the same call keep the original stamp.
func (c *Connection) RecordSent(callNumber, event string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.posts[callNumber]
	if !ok {
		p = &PostRecord{
			CallNumber: callNumber,
			SentAt:     make(map[string]time.Time),
			AckAt:      make(map[string]time.Time),
		}
		c.posts[callNumber] = p
		c.postOrder = append(c.postOrder, callNumber)
	}
	if _, sent := p.SentAt[event]; !sent {
		p.SentAt[event] = at
	}
}

// RecordAck stamps the first acknowledgement of an event type for a call
// number. Acks for calls never sent to this display are ignored.
func (c *Connection) RecordAck(callNumber, event string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.posts[callNumber]
	if !ok {
		return
	}
	if _, acked := p.AckAt[event]; !acked {
		p.AckAt[event] = at
	}
}

// Posts returns up to n delivery records, newest call first. Returned records
// are copies.
func (c *Connection) Posts(n int) []PostRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n > len(c.postOrder) {
		n = len(c.postOrder)
	}
	out := make([]PostRecord, 0, n)
	for i := len(c.postOrder) - 1; i >= len(c.postOrder)-n; i-- {
		p := c.posts[c.postOrder[i]]
		cp := PostRecord{
			CallNumber: p.CallNumber,
			SentAt:     make(map[string]time.Time, len(p.SentAt)),
			AckAt:      make(map[string]time.Time, len(p.AckAt)),
		}
		for k, v := range p.SentAt {
			cp.SentAt[k] = v
		}
		for k, v := range p.AckAt {
			cp.AckAt[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Registry tracks registered displays, keyed by peer address. Reconnects from
// the same address replace the old entry; the last connection wins.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	clock clockwork.Clock
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		clock: clockwork.NewRealClock(),
	}
}

// WithClock injects a time source (used by tests)
func (r *Registry) WithClock(c clockwork.Clock) *Registry {
	r.clock = c
	return r
}

// Register records a display and the stations it represents. Any existing
// registration for the same address is replaced.
func (r *Registry) Register(s Session, stations []*station.Station) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn := newConnection(s, stations, r.clock.Now())
	r.conns[s.RemoteAddress()] = conn
	return conn
}

// Unregister removes a display's registration. The registration survives if a
// newer session has already taken the address.
func (r *Registry) Unregister(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := s.RemoteAddress()
	conn, ok := r.conns[addr]
	if !ok || conn.session != s {
		return false
	}
	delete(r.conns, addr)
	return true
}

// Get returns the registration for an address, or nil
func (r *Registry) Get(address string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[address]
}

// ForSession returns the registration owned by the given session, or nil
func (r *Registry) ForSession(s Session) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[s.RemoteAddress()]
	if !ok || conn.session != s {
		return nil
	}
	return conn
}

// ForArea returns every registered display serving the given area
func (r *Registry) ForArea(area string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Connection
	for _, conn := range r.conns {
		if conn.ServesArea(area) {
			out = append(out, conn)
		}
	}
	return out
}

// All returns a snapshot of every registration
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// Count returns the number of registered displays
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
