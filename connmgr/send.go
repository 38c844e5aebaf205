package connmgr

import (
	"context"
	"fmt"

	"cabo-server/broadcast"
)

// sequenced is implemented by any outbound message that carries its own
// sequence number (currently only broadcast.Envelope); such messages are
// also appended to the recipient's outbox for gap-free replay.
type sequenced interface {
	SequenceNumber() int64
}

// SendToSession delivers msg to sessionID's active connection if one
// exists. If the session has no active connection (disconnected or in
// grace), the send is dropped but, when msg carries a sequence number,
// still appended to the outbox so a later reconnect can replay it.
func (m *Manager) SendToSession(ctx context.Context, sessionID string, msg any) error {
	msg = forViewer(sessionID, msg)
	conn := m.activeConnection(sessionID)
	var seqErr error
	if seq, ok := msg.(sequenced); ok {
		seqErr = m.appendOutbox(ctx, sessionID, seq.SequenceNumber(), msg)
	}
	if conn == nil || conn.State != StateActive {
		return seqErr
	}
	if err := conn.writeJSON(msg); err != nil {
		return fmt.Errorf("connmgr: send to %s: %w", sessionID, err)
	}
	return seqErr
}

// DeliverToRoom fans a broadcast envelope out to every session present
// in roomID; SendToSession redacts it per recipient first. Implements
// broadcast.Deliverer.
func (m *Manager) DeliverToRoom(ctx context.Context, roomID string, env broadcast.Envelope) error {
	sessions, err := m.roomSessions(ctx, roomID)
	if err != nil {
		return fmt.Errorf("connmgr: deliver to room %s: %w", roomID, err)
	}
	var firstErr error
	for _, sessionID := range sessions {
		if err := m.SendToSession(ctx, sessionID, env); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BroadcastToRoom sends an arbitrary lobby message to every session
// present in roomID, optionally excluding one (e.g. the session that
// just triggered the update).
func (m *Manager) BroadcastToRoom(ctx context.Context, roomID string, msg any, exclude string) error {
	sessions, err := m.roomSessions(ctx, roomID)
	if err != nil {
		return fmt.Errorf("connmgr: broadcast to room %s: %w", roomID, err)
	}
	var firstErr error
	for _, sessionID := range sessions {
		if sessionID == exclude {
			continue
		}
		if err := m.SendToSession(ctx, sessionID, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendSequenced allocates the room's next sequence number, wraps data in
// a game_event-shaped envelope, and broadcasts it. Used for server-driven
// lobby events that still need gap-free per-receiver ordering.
func (m *Manager) SendSequenced(ctx context.Context, roomID, eventType string, data map[string]any, exclude string) error {
	n, err := m.NextSequence(ctx, roomID)
	if err != nil {
		return err
	}
	env := broadcast.Envelope{Type: "game_event", SeqNum: n, EventType: eventType, Data: data, Timestamp: timeNow()}
	return m.BroadcastToRoom(ctx, roomID, env, exclude)
}

// SendError delivers a targeted `error` lobby message to sessionID.
// Implements orchestrator.Notifier.
func (m *Manager) SendError(ctx context.Context, sessionID, code, message string) error {
	return m.SendToSession(ctx, sessionID, map[string]any{
		"type":    "error",
		"code":    code,
		"message": message,
	})
}

func lobbyEnvelope(msgType string, fields map[string]any) map[string]any {
	out := map[string]any{"type": msgType}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
