// Package connmgr is the connection manager: it owns the
// session-to-connection mapping, WebSocket handles, heartbeats,
// grace-period reconnection, and the per-session outbox used for
// gap-free replay. It is the only package that touches a live
// *websocket.Conn.
package connmgr

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState is where a connection sits in the register/disconnect/grace
// lifecycle.
type ConnState int

const (
	StateActive ConnState = iota
	StateGracePeriod
)

// Transport is the subset of *websocket.Conn the manager needs, small
// enough to fake in tests without standing up a real socket.
type Transport interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

var _ Transport = (*websocket.Conn)(nil)

// Connection is one live transport: a registered WebSocket plus the
// session/room/host bookkeeping attached to it.
type Connection struct {
	ID            string
	SessionID     string
	RoomID        string
	Nickname      string
	IsHost        bool
	ConnectedAt   time.Time
	LastPing      time.Time
	LastPong      time.Time
	LastAckSeq    int64
	State         ConnState

	transport Transport
	writeMu   sync.Mutex
	stopHB    chan struct{}
}

// writeJSON serializes writes so concurrent goroutines (the heartbeat
// ticker and a room broadcast) never interleave frames on one socket,
// which gorilla's Conn explicitly forbids.
func (c *Connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteJSON(v)
}

// ReadJSON blocks until the next inbound frame decodes into v. Exported
// for the gateway's read pump; gorilla's Conn permits exactly one
// concurrent reader, which the pump satisfies by construction.
func (c *Connection) ReadJSON(v any) error {
	return c.transport.ReadJSON(v)
}

const (
	pingInterval = 10 * time.Second
	pingTimeout  = 20 * time.Second
	outboxCap    = 100
	outboxTTL    = time.Hour
	cursorTTL    = time.Hour
	connTTL      = 5 * time.Minute
	defaultGrace = 60 * time.Second
)
