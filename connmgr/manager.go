package connmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cabo-server/eventlog"
	"cabo-server/orchestrator"
)

// RoomEnqueuer is the one thing the connection manager needs from the
// room loop: a way to push a decoded player action onto a room's inbound
// queue. Satisfied by *orchestrator.Manager.
type RoomEnqueuer interface {
	Enqueue(ctx context.Context, roomID, sessionID string, in orchestrator.Intent) error
}

type Manager struct {
	client      *redis.Client
	rooms       RoomEnqueuer
	eventlog    *eventlog.Log
	gracePeriod time.Duration
	logger      *slog.Logger

	mu            sync.RWMutex
	connections   map[string]*Connection
	sessionToConn map[string]string
}

func NewManager(client *redis.Client, rooms RoomEnqueuer, log *eventlog.Log, gracePeriod time.Duration, logger *slog.Logger) *Manager {
	if gracePeriod <= 0 {
		gracePeriod = defaultGrace
	}
	return &Manager{
		client:        client,
		rooms:         rooms,
		eventlog:      log,
		gracePeriod:   gracePeriod,
		logger:        logger,
		connections:   make(map[string]*Connection),
		sessionToConn: make(map[string]string),
	}
}

// Register creates a new active connection for sessionID, closing
// whatever transport previously held that session's seat first (a
// session has at most one active connection).
func (m *Manager) Register(ctx context.Context, sessionID string, transport Transport, roomID, nickname string, isHost bool) (*Connection, error) {
	m.mu.Lock()
	if oldID, ok := m.sessionToConn[sessionID]; ok {
		if old := m.connections[oldID]; old != nil {
			m.closeLocked(old)
		}
	}

	conn := &Connection{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		RoomID:      roomID,
		Nickname:    nickname,
		IsHost:      isHost,
		ConnectedAt: timeNow(),
		LastPing:    timeNow(),
		LastPong:    timeNow(),
		State:       StateActive,
		transport:   transport,
		stopHB:      make(chan struct{}),
	}
	m.connections[conn.ID] = conn
	m.sessionToConn[sessionID] = conn.ID
	m.mu.Unlock()

	transport.SetPongHandler(conn.onPong)

	if err := m.client.SAdd(ctx, presenceKey(roomID), sessionID).Err(); err != nil {
		return nil, fmt.Errorf("connmgr: register %s: %w", sessionID, err)
	}
	if err := m.client.Set(ctx, connKey(sessionID), conn.ID, connTTL).Err(); err != nil {
		return nil, fmt.Errorf("connmgr: register %s: %w", sessionID, err)
	}

	go m.heartbeat(conn)
	return conn, nil
}

// Reconnect re-establishes a session after a disconnect, resuming from
// max(clientReportedLastSeq, the grace record's last_ack_seq) if a grace
// record exists, or treating the reconnect as fresh otherwise. It
// performs the register step itself and then synchronizes the client.
func (m *Manager) Reconnect(ctx context.Context, sessionID string, transport Transport, roomID, nickname string, isHost bool, clientReportedLastSeq int64) (*Connection, error) {
	resume := clientReportedLastSeq
	if rec, ok, err := m.loadGrace(ctx, sessionID); err == nil && ok {
		if rec.LastAckSeq > resume {
			resume = rec.LastAckSeq
		}
		roomID = rec.RoomID
		nickname = rec.Nickname
		isHost = rec.IsHost
		_ = m.client.Del(ctx, graceKey(sessionID)).Err()
	}

	conn, err := m.Register(ctx, sessionID, transport, roomID, nickname, isHost)
	if err != nil {
		return nil, err
	}
	conn.LastAckSeq = resume

	if err := m.Synchronize(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Disconnect tears down one connection. When enterGrace is set and the
// connection was active, a grace record preserves its room seat for
// gracePeriod so a timely reconnect resumes in place.
func (m *Manager) Disconnect(ctx context.Context, connID string, closeWS, enterGrace bool) error {
	m.mu.Lock()
	conn := m.connections[connID]
	if conn == nil {
		m.mu.Unlock()
		return nil
	}
	wasActive := conn.State == StateActive
	m.closeLocked(conn)
	if closeWS {
		_ = conn.transport.Close()
	}
	m.mu.Unlock()

	if enterGrace && wasActive {
		rec := graceRecord{
			RoomID:     conn.RoomID,
			Nickname:   conn.Nickname,
			IsHost:     conn.IsHost,
			LastAckSeq: conn.LastAckSeq,
			GraceEnd:   timeNow().Add(m.gracePeriod),
		}
		if err := m.saveGrace(ctx, conn.SessionID, rec); err != nil {
			return err
		}
		_ = m.DeliverToRoom(ctx, conn.RoomID, lobbyEnvelope("player_left", map[string]any{
			"session_id": conn.SessionID,
			"nickname":   conn.Nickname,
		}))
		time.AfterFunc(m.gracePeriod, func() {
			m.finalizeGraceExpiry(context.Background(), conn.SessionID, conn.RoomID)
		})
	} else {
		_ = m.client.SRem(ctx, presenceKey(conn.RoomID), conn.SessionID).Err()
	}
	return nil
}

// finalizeGraceExpiry is a no-op if the session reconnected (and thus
// deleted its own grace record) before the grace window elapsed.
func (m *Manager) finalizeGraceExpiry(ctx context.Context, sessionID, roomID string) {
	_, ok, err := m.loadGrace(ctx, sessionID)
	if err != nil || !ok {
		return
	}
	_ = m.client.Del(ctx, graceKey(sessionID)).Err()
	_ = m.client.SRem(ctx, presenceKey(roomID), sessionID).Err()
}

// closeLocked removes conn from both maps. Callers must hold m.mu.
func (m *Manager) closeLocked(conn *Connection) {
	close(conn.stopHB)
	delete(m.connections, conn.ID)
	if m.sessionToConn[conn.SessionID] == conn.ID {
		delete(m.sessionToConn, conn.SessionID)
	}
}

func (m *Manager) activeConnection(sessionID string) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sessionToConn[sessionID]
	if !ok {
		return nil
	}
	return m.connections[id]
}

func (m *Manager) roomSessions(ctx context.Context, roomID string) ([]string, error) {
	return m.client.SMembers(ctx, presenceKey(roomID)).Result()
}

var timeNow = time.Now
