package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"cabo-server/eventlog"
)

// Manager owns one pump per actively broadcasting room.
type Manager struct {
	log    *eventlog.Log
	seq    SequenceAllocator
	out    Deliverer
	logger *slog.Logger

	mu    sync.Mutex
	pumps map[string]*pump
}

func NewManager(log *eventlog.Log, seq SequenceAllocator, out Deliverer, logger *slog.Logger) *Manager {
	return &Manager{log: log, seq: seq, out: out, logger: logger, pumps: make(map[string]*pump)}
}

// Start launches a pump for roomID, resuming from resumeFromStreamID
// (typically the room's latest checkpoint stream_position, or "" for a
// brand new room, which resumes from "$" — only events from here on).
func (m *Manager) Start(ctx context.Context, roomID, resumeFromStreamID string) {
	m.mu.Lock()
	if _, exists := m.pumps[roomID]; exists {
		m.mu.Unlock()
		return
	}
	p := &pump{roomID: roomID, log: m.log, seq: m.seq, out: m.out, logger: m.logger, done: make(chan struct{})}
	m.pumps[roomID] = p
	m.mu.Unlock()

	lastID := resumeFromStreamID
	if lastID == "" {
		lastID = "$"
	}
	go func() {
		defer m.stopAndForget(roomID)
		p.run(ctx, lastID)
	}()
}

func (m *Manager) stopAndForget(roomID string) {
	m.mu.Lock()
	delete(m.pumps, roomID)
	m.mu.Unlock()
}

// Stop halts roomID's pump, used when the room loop shuts down.
func (m *Manager) Stop(roomID string) {
	m.mu.Lock()
	p := m.pumps[roomID]
	m.mu.Unlock()
	if p != nil {
		p.stop.Do(func() { close(p.done) })
	}
}
