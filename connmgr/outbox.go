package connmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// graceRecord is the JSON payload behind grace:{session}: everything
// needed to restore a connection's identity when it reconnects within
// the grace window.
type graceRecord struct {
	RoomID     string    `json:"room_id"`
	Nickname   string    `json:"nickname"`
	IsHost     bool      `json:"is_host"`
	LastAckSeq int64     `json:"last_ack_seq"`
	GraceEnd   time.Time `json:"grace_end"`
}

func (m *Manager) saveGrace(ctx context.Context, sessionID string, rec graceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("connmgr: marshal grace record: %w", err)
	}
	if err := m.client.Set(ctx, graceKey(sessionID), payload, m.gracePeriod).Err(); err != nil {
		return fmt.Errorf("connmgr: save grace record for %s: %w", sessionID, err)
	}
	return nil
}

func (m *Manager) loadGrace(ctx context.Context, sessionID string) (graceRecord, bool, error) {
	raw, err := m.client.Get(ctx, graceKey(sessionID)).Result()
	if err == redis.Nil {
		return graceRecord{}, false, nil
	}
	if err != nil {
		return graceRecord{}, false, fmt.Errorf("connmgr: load grace record for %s: %w", sessionID, err)
	}
	var rec graceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return graceRecord{}, false, fmt.Errorf("connmgr: decode grace record for %s: %w", sessionID, err)
	}
	return rec, true, nil
}

// outboxEntry is one {seq, message} pair appended to a session's replay
// log.
type outboxEntry struct {
	Seq     int64 `json:"seq"`
	Message any   `json:"message"`
}

// appendOutbox records msg for replay if it carries a sequence number,
// capped to the last outboxCap entries via MAXLEN trimming.
func (m *Manager) appendOutbox(ctx context.Context, sessionID string, seq int64, msg any) error {
	entry := outboxEntry{Seq: seq, Message: msg}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("connmgr: marshal outbox entry: %w", err)
	}
	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: outboxKey(sessionID),
		MaxLen: outboxCap,
		Approx: true,
		Values: map[string]any{"payload": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("connmgr: append outbox for %s: %w", sessionID, err)
	}
	return m.client.Expire(ctx, outboxKey(sessionID), outboxTTL).Err()
}

// outboxAfter returns every retained outbox entry with seq > afterSeq,
// in order. If the outbox has rotated past afterSeq (the earliest entry
// already exceeds it with a gap), callers should fall back to the event
// stream via eventlog instead of trusting this as complete.
func (m *Manager) outboxAfter(ctx context.Context, sessionID string, afterSeq int64) ([]outboxEntry, error) {
	msgs, err := m.client.XRange(ctx, outboxKey(sessionID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("connmgr: read outbox for %s: %w", sessionID, err)
	}
	out := make([]outboxEntry, 0, len(msgs))
	for _, msg := range msgs {
		raw, _ := msg.Values["payload"].(string)
		var entry outboxEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if entry.Seq > afterSeq {
			out = append(out, entry)
		}
	}
	return out, nil
}

// saveCursor advances the session's acknowledged-sequence cursor. It
// never rewinds: acknowledge(session, seq) with a seq lower than the
// current cursor is a no-op.
func (m *Manager) saveCursor(ctx context.Context, sessionID string, seq int64) error {
	current, _ := m.client.Get(ctx, cursorKey(sessionID)).Int64()
	if seq <= current {
		return nil
	}
	return m.client.Set(ctx, cursorKey(sessionID), seq, cursorTTL).Err()
}

func (m *Manager) loadCursor(ctx context.Context, sessionID string) (int64, error) {
	n, err := m.client.Get(ctx, cursorKey(sessionID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("connmgr: load cursor for %s: %w", sessionID, err)
	}
	return n, nil
}

// NextSequence allocates the next room-scoped broadcast sequence number.
// Implements broadcast.SequenceAllocator.
func (m *Manager) NextSequence(ctx context.Context, roomID string) (int64, error) {
	n, err := m.client.Incr(ctx, seqKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("connmgr: allocate sequence for %s: %w", roomID, err)
	}
	return n, nil
}

// CurrentSequence returns the last sequence number handed out for room,
// without allocating a new one. Implements orchestrator.SequenceSource.
func (m *Manager) CurrentSequence(ctx context.Context, roomID string) (int64, error) {
	n, err := m.client.Get(ctx, seqKey(roomID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("connmgr: current sequence for %s: %w", roomID, err)
	}
	return n, nil
}
