package metrics

import (
	"sync"
)

// Collector collects dispatch relay metrics
type Collector struct {
	mu sync.RWMutex

	// Display metrics
	totalDisplays  uint64
	activeDisplays map[string]bool // key: remote address

	// Call metrics
	callsReceived  uint64
	callsInvalid   uint64
	callsUnrouted  uint64
	callsBroadcast uint64

	// Post metrics
	postsSent uint64
	postsAck  uint64

	// Directions metrics
	directionsFetched  uint64
	directionsCached   uint64
	directionsRejected uint64
	directionsErrors   uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		activeDisplays: make(map[string]bool),
	}
}

// DisplayConnected records a display registration
func (c *Collector) DisplayConnected(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalDisplays++
	c.activeDisplays[address] = true
}

// DisplayDisconnected records a display going away
func (c *Collector) DisplayDisconnected(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.activeDisplays, address)
}

// CallReceived records an incoming call posting
func (c *Collector) CallReceived() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callsReceived++
}

// CallInvalid records a posting that failed validation
func (c *Collector) CallInvalid() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callsInvalid++
}

// CallUnrouted records a call for an area with no configured stations
func (c *Collector) CallUnrouted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callsUnrouted++
}

// CallBroadcast records a call fanned out to at least one display
func (c *Collector) CallBroadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callsBroadcast++
}

// PostSent records one event emitted to one display
func (c *Collector) PostSent() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.postsSent++
}

// PostAcked records a display acknowledgement
func (c *Collector) PostAcked() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.postsAck++
}

// DirectionsFetched records a successful provider lookup
func (c *Collector) DirectionsFetched() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directionsFetched++
}

// DirectionsCached records a lookup served from a call's memoized result
func (c *Collector) DirectionsCached() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directionsCached++
}

// DirectionsRejected records a route discarded by the distance ceiling
func (c *Collector) DirectionsRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directionsRejected++
}

// DirectionsError records a provider failure
func (c *Collector) DirectionsError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.directionsErrors++
}

// Reset resets active state (useful for testing)
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeDisplays = make(map[string]bool)
}

// Getters for metrics

// GetTotalDisplays returns total display registrations
func (c *Collector) GetTotalDisplays() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalDisplays
}

// GetActiveDisplays returns the number of currently registered displays
func (c *Collector) GetActiveDisplays() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeDisplays)
}

// GetCallsReceived returns total call postings received
func (c *Collector) GetCallsReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callsReceived
}

// GetCallsInvalid returns total invalid postings
func (c *Collector) GetCallsInvalid() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callsInvalid
}

// GetCallsUnrouted returns total calls with no configured area
func (c *Collector) GetCallsUnrouted() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callsUnrouted
}

// GetCallsBroadcast returns total calls fanned out to displays
func (c *Collector) GetCallsBroadcast() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callsBroadcast
}

// GetPostsSent returns total events emitted to displays
func (c *Collector) GetPostsSent() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.postsSent
}

// GetPostsAcked returns total display acknowledgements
func (c *Collector) GetPostsAcked() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.postsAck
}

// GetDirectionsFetched returns total successful provider lookups
func (c *Collector) GetDirectionsFetched() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.directionsFetched
}

// GetDirectionsCached returns total cache hits
func (c *Collector) GetDirectionsCached() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.directionsCached
}

// GetDirectionsRejected returns total routes discarded by the ceiling
func (c *Collector) GetDirectionsRejected() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.directionsRejected
}

// GetDirectionsErrors returns total provider failures
func (c *Collector) GetDirectionsErrors() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.directionsErrors
}
