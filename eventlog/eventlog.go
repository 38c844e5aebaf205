// Package eventlog implements the per-room event stream and the latest
// room-wide checkpoint: the two pieces of state the broadcast pump and
// process-restart recovery need beyond the raw snapshot in gamestore.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cabo-server/engine"
)

// streamCap is the approximate number of entries XADD retains per room
// stream; older entries roll off via MAXLEN ~ trimming, which is
// approximate by design (cheap, doesn't require an exact count each
// write).
const streamCap = 1000

const checkpointHistoryCap = 50

func streamKey(room string) string            { return "stream:game:" + room + ":events" }
func checkpointLatestKey(room string) string   { return "checkpoint:" + room + ":latest" }
func checkpointHistoryKey(room string) string  { return "checkpoint:" + room + ":history" }

// StoredEvent is the JSON payload carried by one stream entry. VisibleTo
// mirrors engine.Event.VisibleTo so a restricted event's access list
// survives the round trip through Redis; it travels with the stream
// entry rather than the outbound envelope because it is a server-only
// instruction to the delivery layer, never meant for the wire.
type StoredEvent struct {
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	VisibleTo []string       `json:"visible_to,omitempty"`
}

// StreamEntry pairs a decoded event with the stream-assigned id the
// broadcast pump needs to track its tail position.
type StreamEntry struct {
	ID    string
	Event StoredEvent
}

// Checkpoint is a point-in-time, fully reconstructable room snapshot tied
// to a stream position: replaying events strictly after StreamPosition
// against CompleteGameState reproduces the room's current state.
type Checkpoint struct {
	StreamPosition  string    `json:"stream_position"`
	SequenceNum     int64     `json:"sequence_num"`
	Phase           string    `json:"phase"`
	CompleteState   json.RawMessage `json:"complete_game_state"`
	CreatedAt       time.Time `json:"created_at"`
}

type Log struct {
	client *redis.Client
}

func New(client *redis.Client) *Log {
	return &Log{client: client}
}

// Append writes one engine event to the room's stream, trims it to
// roughly streamCap entries, and returns the id Redis assigned so the
// caller can track the tail position.
func (l *Log) Append(ctx context.Context, room string, ev engine.Event) (string, error) {
	payload, err := json.Marshal(StoredEvent{
		EventType: ev.Type,
		Data:      ev.Data,
		Timestamp: timeNow(),
		VisibleTo: ev.VisibleTo,
	})
	if err != nil {
		return "", fmt.Errorf("eventlog: marshal event: %w", err)
	}
	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(room),
		MaxLen: streamCap,
		Approx: true,
		Values: map[string]any{"payload": string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("eventlog: append %s: %w", room, err)
	}
	return id, nil
}

// ReadAfter reads every stream entry strictly after afterID. afterID "0"
// (or "") reads from the beginning, matching the checkpoint-plus-tail
// reconciliation contract: replaying everything after a checkpoint's
// stream_position reconstructs the room exactly.
func (l *Log) ReadAfter(ctx context.Context, room, afterID string) ([]StreamEntry, error) {
	if afterID == "" {
		afterID = "0"
	}
	res, err := l.client.XRange(ctx, streamKey(room), "("+afterID, "+").Result()
	if err != nil {
		return nil, fmt.Errorf("eventlog: read after %s in %s: %w", afterID, room, err)
	}
	return decodeEntries(res)
}

// Tail performs a blocking read for new entries strictly after lastID,
// used by the broadcast pump's long-poll loop. A zero block duration
// blocks indefinitely; callers should pass a context with a deadline or
// cancellation to allow clean shutdown.
func (l *Log) Tail(ctx context.Context, room, lastID string, block time.Duration) ([]StreamEntry, error) {
	if lastID == "" {
		lastID = "$"
	}
	res, err := l.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamKey(room), lastID},
		Block:   block,
		Count:   100,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: tail %s: %w", room, err)
	}
	for _, stream := range res {
		if stream.Stream == streamKey(room) {
			return decodeEntries(stream.Messages)
		}
	}
	return nil, nil
}

func decodeEntries(msgs []redis.XMessage) ([]StreamEntry, error) {
	out := make([]StreamEntry, 0, len(msgs))
	for _, m := range msgs {
		raw, _ := m.Values["payload"].(string)
		var ev StoredEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("eventlog: decode entry %s: %w", m.ID, err)
		}
		out = append(out, StreamEntry{ID: m.ID, Event: ev})
	}
	return out, nil
}

// SaveCheckpoint writes the latest checkpoint and pushes it onto the
// capped history list. Nothing in this package reads the history list
// back; LatestCheckpoint reads only the latest key.
func (l *Log) SaveCheckpoint(ctx context.Context, room string, cp Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("eventlog: marshal checkpoint: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.Set(ctx, checkpointLatestKey(room), payload, 24*time.Hour)
	pipe.LPush(ctx, checkpointHistoryKey(room), payload)
	pipe.LTrim(ctx, checkpointHistoryKey(room), 0, checkpointHistoryCap-1)
	pipe.Expire(ctx, checkpointHistoryKey(room), 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("eventlog: save checkpoint %s: %w", room, err)
	}
	return nil
}

// LatestCheckpoint returns the room's latest checkpoint, or ok=false if
// none has been written yet (a brand new room).
func (l *Log) LatestCheckpoint(ctx context.Context, room string) (Checkpoint, bool, error) {
	raw, err := l.client.Get(ctx, checkpointLatestKey(room)).Result()
	if err == redis.Nil {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("eventlog: latest checkpoint %s: %w", room, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("eventlog: decode checkpoint %s: %w", room, err)
	}
	return cp, true, nil
}

// timeNow is a thin indirection so tests could fake the clock without
// the rest of the package needing to thread a clock interface through
// every call; production always uses time.Now.
var timeNow = time.Now
