package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/akfire/dispatch-relay/pkg/call"
	"github.com/akfire/dispatch-relay/pkg/directions"
	"github.com/akfire/dispatch-relay/pkg/history"
	"github.com/akfire/dispatch-relay/pkg/logger"
	"github.com/akfire/dispatch-relay/pkg/metrics"
	"github.com/akfire/dispatch-relay/pkg/station"
)

// Event names on the display wire
const (
	EventConfig     = "config"
	EventMessage    = "message"
	EventCall       = "call"
	EventCallsLog   = "callslog"
	EventDirections = "directions"
)

const defaultFetchTimeout = 10 * time.Second

// ConfigPayload is sent to a display right after registration
type ConfigPayload struct {
	Stations          []string `json:"stations"`
	Areas             []string `json:"areas"`
	DisplayTTLSeconds int      `json:"displayTtlSeconds"`
}

// MessagePayload is free text shown on a display's ticker
type MessagePayload struct {
	Text string `json:"text"`
}

// CallsLogPayload answers a callslog-query: one area's retained calls,
// newest first, with the area echoed so a display serving several areas can
// tell the lists apart.
type CallsLogPayload struct {
	Area  string      `json:"area"`
	Calls []call.Call `json:"calls"`
}

// Archiver persists calls for audit. Implementations must not be relied on
// for serving state; archived rows are never read back into the relay.
type Archiver interface {
	SaveCall(c call.Call) error
}

// RouterOptions wires a Router's collaborators
type RouterOptions struct {
	Directory *station.Directory
	History   *history.History
	Registry  *Registry
	Fetcher   *directions.Fetcher // nil disables directions
	Archive   Archiver            // nil disables archiving
	Metrics   *metrics.Collector
	Logger    *logger.Logger
	// DisplayTTL bounds how old a call may be and still replay to a
	// freshly connected display
	DisplayTTL   time.Duration
	FetchTimeout time.Duration
	Clock        clockwork.Clock
}

// Router connects the pieces: it classifies connecting displays, fans
// incoming calls out to the displays serving the call's area, and runs the
// directions side channel. Call broadcasts always go out before the
// directions lookup for the same call even starts.
type Router struct {
	directory    *station.Directory
	history      *history.History
	registry     *Registry
	fetcher      *directions.Fetcher
	archive      Archiver
	metrics      *metrics.Collector
	logger       *logger.Logger
	displayTTL   time.Duration
	fetchTimeout time.Duration
	clock        clockwork.Clock
}

// NewRouter creates a router
func NewRouter(opts RouterOptions) *Router {
	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewCollector()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &Router{
		directory:    opts.Directory,
		history:      opts.History,
		registry:     opts.Registry,
		fetcher:      opts.Fetcher,
		archive:      opts.Archive,
		metrics:      m,
		logger:       log.WithComponent("dispatch"),
		displayTTL:   opts.DisplayTTL,
		fetchTimeout: timeout,
		clock:        clock,
	}
}

// HandleConnection classifies a connecting display by its address. Unknown
// addresses get a rejection message and are disconnected. Known addresses are
// registered, welcomed, and caught up on the active calls for their areas.
func (r *Router) HandleConnection(s Session) {
	addr := s.RemoteAddress()

	stations := r.directory.ResolveByAddress(addr)
	if len(stations) == 0 {
		r.logger.Info("Rejecting unregistered display", logger.String("address", addr))
		s.Emit(EventMessage, MessagePayload{Text: "This display is not registered"}, nil)
		s.Disconnect()
		return
	}

	conn := r.registry.Register(s, stations)
	r.metrics.DisplayConnected(addr)

	r.logger.Info("Display registered",
		logger.String("address", addr),
		logger.String("stations", strings.Join(conn.StationIDs(), ",")),
		logger.String("areas", strings.Join(conn.Areas(), ",")))

	s.Emit(EventConfig, ConfigPayload{
		Stations:          conn.StationIDs(),
		Areas:             conn.Areas(),
		DisplayTTLSeconds: int(r.displayTTL / time.Second),
	}, nil)
	s.Emit(EventMessage, MessagePayload{
		Text: "Welcome " + strings.Join(conn.StationIDs(), ", "),
	}, nil)

	r.replay(conn)
}

// replay catches a fresh display up on the still-active calls for its areas,
// oldest first, then the memoized directions for those calls. Every call goes
// out before any directions.
func (r *Router) replay(conn *Connection) {
	var entries []*history.Entry
	for _, area := range conn.Areas() {
		active := r.history.ActiveForArea(area, r.displayTTL)
		for i := len(active) - 1; i >= 0; i-- {
			entries = append(entries, active[i])
		}
	}

	for _, e := range entries {
		r.emitTo(conn, e.Call().CallNumber, EventCall, e.Call())
	}
	for _, e := range entries {
		c := e.Call()
		if res, ok := e.CachedDirections(c.Location); ok {
			r.emitTo(conn, c.CallNumber, EventDirections, res)
		}
	}
}

// HandleDisconnect drops a display's registration when its session closes
func (r *Router) HandleDisconnect(s Session) {
	if r.registry.Unregister(s) {
		r.metrics.DisplayDisconnected(s.RemoteAddress())
		r.logger.Info("Display disconnected", logger.String("address", s.RemoteAddress()))
	}
}

// HandleCallsLogQuery sends a display the retained call log, one callslog
// event per area it serves, each list newest first.
func (r *Router) HandleCallsLogQuery(s Session) {
	conn := r.registry.ForSession(s)
	if conn == nil {
		return
	}

	for _, area := range conn.Areas() {
		calls := []call.Call{}
		for _, e := range r.history.ForArea(area) {
			calls = append(calls, e.Call())
		}

		if err := s.Emit(EventCallsLog, CallsLogPayload{Area: area, Calls: calls}, nil); err != nil {
			r.logger.Warn("Calls log send failed",
				logger.String("address", s.RemoteAddress()),
				logger.String("area", area),
				logger.Error(err))
			continue
		}
		r.metrics.PostSent()
	}
}

// HandleIncomingCall ingests one raw call posting. The returned status and
// body go back to the upstream poster verbatim. A call for an unconfigured
// area is answered 200 so the upstream does not retry, but nothing is
// recorded or broadcast for it.
func (r *Router) HandleIncomingCall(raw []byte) (int, string) {
	r.metrics.CallReceived()

	c := call.Parse(raw)
	if !c.Valid {
		r.metrics.CallInvalid()
		r.logger.Warn("Rejecting invalid call posting", logger.Int("bytes", len(raw)))
		return http.StatusBadRequest, "Invalid call payload"
	}

	stations := r.directory.InArea(c.Area)
	if len(stations) == 0 {
		r.metrics.CallUnrouted()
		r.logger.Info("No stations for area",
			logger.String("call_number", c.CallNumber),
			logger.String("area", c.Area))
		return http.StatusOK, fmt.Sprintf("No stations configured for area %s", c.Area)
	}

	entry, isNew := r.history.FindOrCreate(c.CallNumber)
	entry.SetCall(c)

	sent := r.broadcast(c.Area, c.CallNumber, EventCall, c)
	r.metrics.CallBroadcast()

	r.logger.Info("Call routed",
		logger.String("call_number", c.CallNumber),
		logger.String("area", c.Area),
		logger.String("type", c.CallType),
		logger.Bool("update", !isNew),
		logger.Int("displays", sent))

	if r.archive != nil {
		go func() {
			if err := r.archive.SaveCall(c); err != nil {
				r.logger.Error("Call archive failed",
					logger.String("call_number", c.CallNumber),
					logger.Error(err))
			}
		}()
	}

	// The poster's response never waits on the directions provider
	go r.resolveDirections(stations[0], entry, c)

	return http.StatusOK, "OK"
}

// resolveDirections attaches driving directions to a call and broadcasts
// them. A memoized result for the same location is rebroadcast without a
// provider round trip; otherwise at most one lookup per call is in flight.
func (r *Router) resolveDirections(origin *station.Station, entry *history.Entry, c call.Call) {
	if r.fetcher == nil || c.Location == "" {
		return
	}

	if res, ok := entry.CachedDirections(c.Location); ok {
		r.metrics.DirectionsCached()
		r.broadcast(c.Area, c.CallNumber, EventDirections, res)
		return
	}

	if !entry.BeginFetch(c.Location) {
		r.logger.Debug("Directions lookup already in flight",
			logger.String("call_number", c.CallNumber))
		return
	}
	defer entry.EndFetch()

	ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
	defer cancel()

	res, err := r.fetcher.Fetch(ctx, directions.Origin{Lat: origin.Lat, Lng: origin.Lng},
		c.CallNumber, c.Area, c.Location, c.DispatchCode)
	if err != nil {
		if errors.Is(err, directions.ErrRouteTooFar) {
			r.metrics.DirectionsRejected()
		} else {
			r.metrics.DirectionsError()
		}
		return
	}

	r.metrics.DirectionsFetched()
	entry.AttachDirections(c.Location, res)
	r.broadcast(c.Area, c.CallNumber, EventDirections, res)
}

// broadcast emits one event to every display serving an area, stamping the
// delivery ledger on each. Returns the number of displays reached.
func (r *Router) broadcast(area, callNumber, event string, payload interface{}) int {
	sent := 0
	for _, conn := range r.registry.ForArea(area) {
		if r.emitTo(conn, callNumber, event, payload) {
			sent++
		}
	}
	return sent
}

func (r *Router) emitTo(conn *Connection, callNumber, event string, payload interface{}) bool {
	conn.RecordSent(callNumber, event, r.clock.Now())
	err := conn.session.Emit(event, payload, func() {
		conn.RecordAck(callNumber, event, r.clock.Now())
		r.metrics.PostAcked()
	})
	if err != nil {
		r.logger.Warn("Event send failed",
			logger.String("address", conn.Address()),
			logger.String("event", event),
			logger.String("call_number", callNumber),
			logger.Error(err))
		return false
	}
	r.metrics.PostSent()
	return true
}
