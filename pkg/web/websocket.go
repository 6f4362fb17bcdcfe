package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akfire/dispatch-relay/pkg/dispatch"
	"github.com/akfire/dispatch-relay/pkg/logger"
)

// Inbound event names from displays
const (
	inboundAck        = "ack"
	inboundCallsLog   = "callslog-query"
	inboundDisconnect = "disconnect"
)

const (
	sessionSendBuffer   = 256
	sessionWriteTimeout = 10 * time.Second
)

// envelope frames every message on the display wire. Outbound messages carry
// an id the display echoes back in its ack.
type envelope struct {
	Event string      `json:"event"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

type inboundMessage struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
}

// wsSession adapts one websocket connection to the router's Session
// interface. Writes go through a buffered channel so a slow display never
// blocks a broadcast.
type wsSession struct {
	id     string
	addr   string
	conn   *websocket.Conn
	logger *logger.Logger

	mu      sync.Mutex
	send    chan []byte
	pending map[string]func() // message id -> ack callback
	closed  bool
}

func newWSSession(conn *websocket.Conn, addr string, log *logger.Logger) *wsSession {
	return &wsSession{
		id:      uuid.NewString(),
		addr:    addr,
		conn:    conn,
		logger:  log,
		send:    make(chan []byte, sessionSendBuffer),
		pending: make(map[string]func()),
	}
}

// RemoteAddress returns the peer's network address
func (s *wsSession) RemoteAddress() string {
	return s.addr
}

// Emit frames and queues one event for the display. The ack callback, if
// given, fires when the display echoes the message id back.
func (s *wsSession) Emit(event string, payload interface{}, ack func()) error {
	msgID := uuid.NewString()
	data, err := json.Marshal(envelope{Event: event, ID: msgID, Data: payload})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session closed")
	}
	select {
	case s.send <- data:
		if ack != nil {
			s.pending[msgID] = ack
		}
		return nil
	default:
		return errors.New("session send buffer full")
	}
}

// Disconnect tears the connection down. Queued messages still flush; the
// write loop closes the socket once the queue drains, which unblocks the
// read loop and runs the usual disconnect path.
func (s *wsSession) Disconnect() {
	s.close()
}

func (s *wsSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *wsSession) handleAck(msgID string) {
	s.mu.Lock()
	ack, ok := s.pending[msgID]
	if ok {
		delete(s.pending, msgID)
	}
	s.mu.Unlock()

	if ok {
		ack()
	}
}

// writeLoop drains the send channel onto the socket and owns the socket
// close: the connection shuts only after the queue is flushed or a write
// fails.
func (s *wsSession) writeLoop() {
	defer func() { _ = s.conn.Close() }()

	for msg := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.logger.Debug("Session write failed",
				logger.String("address", s.addr),
				logger.Error(err))
			s.close()
			for range s.send {
			}
			return
		}
	}
}

// readLoop dispatches inbound display messages to the router until the
// connection drops.
func (s *wsSession) readLoop(router *dispatch.Router) {
	defer func() {
		s.close()
		router.HandleDisconnect(s)
	}()

	s.conn.SetReadLimit(4096)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Debug("Ignoring malformed display message",
				logger.String("address", s.addr))
			continue
		}

		switch msg.Event {
		case inboundAck:
			s.handleAck(msg.ID)
		case inboundCallsLog:
			router.HandleCallsLogQuery(s)
		case inboundDisconnect:
			return
		default:
			s.logger.Debug("Ignoring unknown display event",
				logger.String("address", s.addr),
				logger.String("event", msg.Event))
		}
	}
}

// WebSocketHandler upgrades display connections and hands them to the router
type WebSocketHandler struct {
	router   *dispatch.Router
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the display websocket endpoint
func NewWebSocketHandler(router *dispatch.Router, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		router: router,
		logger: log.WithComponent("websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the session loops
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			logger.String("address", r.RemoteAddr),
			logger.Error(err))
		return
	}

	session := newWSSession(conn, r.RemoteAddr, h.logger)
	go session.writeLoop()

	h.router.HandleConnection(session)
	session.readLoop(h.router)
}
