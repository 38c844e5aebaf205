// Package orchestrator implements the room loop: the single-writer task
// per active room that drains inbound player intents, feeds the engine,
// and write-through persists the result. There is exactly one Room
// instance per active game, and exactly one goroutine ever touches that
// Room's *engine.State.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"cabo-server/engine"
	"cabo-server/eventlog"
	"cabo-server/gamestore"
)

func queueKey(room string) string { return "queue:game:" + room + ":messages" }

// Manager owns every live Room and is the thing the connection layer and
// the room/lobby layer hold a reference to.
type Manager struct {
	client   *redis.Client
	store    *gamestore.Store
	log      *eventlog.Log
	notifier Notifier
	activity ActivityTracker
	seq      SequenceSource
	timing   Timing
	logger   *slog.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewManager(client *redis.Client, store *gamestore.Store, log *eventlog.Log, notifier Notifier, activity ActivityTracker, timing Timing, logger *slog.Logger) *Manager {
	return &Manager{
		client:   client,
		store:    store,
		log:      log,
		notifier: notifier,
		activity: activity,
		timing:   timing,
		logger:   logger,
		rooms:    make(map[string]*Room),
	}
}

// StartGame deals a fresh game for roomID and launches its loop. Returns
// an error if a loop for this room is already running.
func (m *Manager) StartGame(ctx context.Context, roomID string, playerIDs, playerNames []string) error {
	m.mu.Lock()
	if _, exists := m.rooms[roomID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("orchestrator: room %s already has an active loop", roomID)
	}
	m.mu.Unlock()

	state := engine.NewGame(roomID, playerIDs, playerNames)
	room := newRoom(roomID, state, m)

	if err := room.persist(ctx); err != nil {
		return fmt.Errorf("orchestrator: start game %s: %w", roomID, err)
	}
	if _, err := m.log.Append(ctx, roomID, state.InitialEvent(int(m.timing.SetupTimeout.Seconds()))); err != nil {
		return fmt.Errorf("orchestrator: start game %s: %w", roomID, err)
	}

	m.register(room)
	room.armTimer(engine.TimerSetup, state.SetupTimerID)
	go room.run(ctx)
	return nil
}

// Resume reloads a room from the durable store (process-restart
// recovery) and launches its loop if the game isn't already over. Real
// timer expiry isn't persisted, so any outstanding timer is re-armed for
// its full duration rather than whatever was left before the restart —
// a deliberately simple choice since a restarted process has no way to
// know how much of the original window had already elapsed.
func (m *Manager) Resume(ctx context.Context, roomID string) error {
	state, err := m.store.Load(ctx, roomID)
	if err != nil {
		return fmt.Errorf("orchestrator: resume %s: %w", roomID, err)
	}
	if state.Phase == engine.PhaseEnded {
		return nil
	}

	m.mu.Lock()
	if _, exists := m.rooms[roomID]; exists {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	room := newRoom(roomID, state, m)
	m.register(room)
	for kind, id := range state.TimerIDs() {
		if id != "" {
			room.armTimer(kind, id)
		}
	}
	go room.run(ctx)
	return nil
}

func (m *Manager) register(r *Room) {
	m.mu.Lock()
	m.rooms[r.id] = r
	m.mu.Unlock()
}

func (m *Manager) unregister(roomID string) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
}

// Enqueue pushes a player's action onto the room's durable inbound queue
// and wakes its loop. Producers never block: RPUSH returns immediately
// and the wake signal is a non-blocking best-effort nudge (the loop also
// polls on its own, so a missed nudge only costs one poll interval).
func (m *Manager) Enqueue(ctx context.Context, roomID, sessionID string, in Intent) error {
	in.SessionID = sessionID
	if err := m.client.RPush(ctx, queueKey(roomID), encodeIntent(in)).Err(); err != nil {
		return fmt.Errorf("orchestrator: enqueue to %s: %w", roomID, err)
	}
	m.mu.Lock()
	room := m.rooms[roomID]
	m.mu.Unlock()
	if room != nil {
		room.wakeUp()
	}
	return nil
}

// Shutdown stops a room's loop without deleting its persisted state,
// used when the process is shutting down cleanly; in-flight writes are
// allowed to finish.
func (m *Manager) Shutdown(roomID string) {
	m.mu.Lock()
	room := m.rooms[roomID]
	m.mu.Unlock()
	if room != nil {
		room.stop()
	}
}

// SetSequenceSource wires the connection manager in after construction,
// since the two packages are built in opposite dependency order (the
// connection manager is constructed with this Manager as its
// RoomEnqueuer, and the Manager needs the connection manager's sequence
// counter).
func (m *Manager) SetSequenceSource(s SequenceSource) {
	m.seq = s
}

// SetNotifier wires the connection manager in after construction, for
// the same reason SetSequenceSource does: connmgr needs a Manager
// reference to enqueue actions, so it can't exist before this Manager
// does.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// IsActive reports whether roomID currently has a running loop in this
// process.
func (m *Manager) IsActive(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[roomID]
	return ok
}

// ActiveRooms returns the ids of every room this process currently runs
// a loop for.
func (m *Manager) ActiveRooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) logf(level slog.Level, room, msg string, args ...any) {
	if m.logger == nil {
		return
	}
	args = append([]any{"room", room}, args...)
	m.logger.Log(context.Background(), level, msg, args...)
}
