package connmgr

import (
	"context"
	"fmt"

	"cabo-server/eventlog"
	"cabo-server/orchestrator"
)

// Synchronize sends a newly (re)connected session the room's latest
// checkpoint, then in order every message with seq > conn.LastAckSeq,
// then a ready terminator, then advances the client's cursor to the
// sequence it now has.
func (m *Manager) Synchronize(ctx context.Context, conn *Connection) error {
	cp, ok, err := m.eventlog.LatestCheckpoint(ctx, conn.RoomID)
	if err != nil {
		return fmt.Errorf("connmgr: synchronize %s: %w", conn.SessionID, err)
	}
	if ok {
		redacted, err := orchestrator.RedactSnapshot(cp.CompleteState, conn.SessionID)
		if err != nil {
			return fmt.Errorf("connmgr: redact checkpoint for %s: %w", conn.SessionID, err)
		}
		cp.CompleteState = redacted
		if err := conn.writeJSON(checkpointEnvelope(cp)); err != nil {
			return fmt.Errorf("connmgr: send checkpoint to %s: %w", conn.SessionID, err)
		}
	}

	// Replay from the outbox. If it has rotated past LastAckSeq with a
	// gap, the client still has the full state from the checkpoint above
	// and simply misses whatever fine-grained events landed in between;
	// the next broadcast picks back up at the live sequence.
	entries, err := m.outboxAfter(ctx, conn.SessionID, conn.LastAckSeq)
	if err != nil {
		return fmt.Errorf("connmgr: synchronize %s: %w", conn.SessionID, err)
	}
	for _, entry := range entries {
		if err := conn.writeJSON(entry.Message); err != nil {
			return fmt.Errorf("connmgr: replay to %s: %w", conn.SessionID, err)
		}
	}

	current, err := m.CurrentSequence(ctx, conn.RoomID)
	if err != nil {
		return err
	}
	if current < conn.LastAckSeq {
		current = conn.LastAckSeq
	}

	if err := conn.writeJSON(map[string]any{"type": "ready", "current_seq": current}); err != nil {
		return fmt.Errorf("connmgr: send ready to %s: %w", conn.SessionID, err)
	}
	conn.LastAckSeq = current
	return m.saveCursor(ctx, conn.SessionID, current)
}

// Acknowledge advances sessionID's cursor; it never rewinds.
func (m *Manager) Acknowledge(ctx context.Context, sessionID string, seq int64) error {
	return m.saveCursor(ctx, sessionID, seq)
}

func checkpointEnvelope(cp eventlog.Checkpoint) map[string]any {
	return map[string]any{
		"type":                "game_checkpoint",
		"stream_position":     cp.StreamPosition,
		"sequence_num":        cp.SequenceNum,
		"phase":               cp.Phase,
		"complete_game_state": cp.CompleteState,
		"created_at":          cp.CreatedAt,
	}
}
