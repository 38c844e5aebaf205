// Package broadcast implements the broadcast pump: one task per room
// that tails the room's event stream, stamps each event with a
// room-scoped monotonically increasing sequence number, and hands it to
// the connection manager for per-receiver delivery.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cabo-server/eventlog"
)

// SequenceAllocator hands out the next room-scoped sequence number. It is
// implemented by the connection manager, which is also the only thing
// that needs the numbers to be gap-free and strictly increasing per
// receiver.
type SequenceAllocator interface {
	NextSequence(ctx context.Context, roomID string) (int64, error)
}

// Deliverer fans a tagged event out to every connection currently
// present in a room.
type Deliverer interface {
	DeliverToRoom(ctx context.Context, roomID string, envelope Envelope) error
}

// Envelope is the outbound `game_event` wire message. VisibleTo is never
// marshalled onto the wire itself; it instructs the connection manager
// which session ids may see Data's card fields unredacted.
type Envelope struct {
	Type      string         `json:"type"`
	SeqNum    int64          `json:"seq_num"`
	StreamID  string         `json:"stream_id"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	VisibleTo []string       `json:"-"`
}

// SequenceNumber lets the connection manager extract an envelope's
// sequence number without importing this package's concrete type in its
// generic outbox bookkeeping path.
func (e Envelope) SequenceNumber() int64 { return e.SeqNum }

const tailBlock = 2 * time.Second

type pump struct {
	roomID string
	log    *eventlog.Log
	seq    SequenceAllocator
	out    Deliverer
	logger *slog.Logger
	done   chan struct{}
	stop   sync.Once
}

func (p *pump) run(ctx context.Context, lastID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		default:
		}

		entries, err := p.log.Tail(ctx, p.roomID, lastID, tailBlock)
		if err != nil {
			if p.logger != nil {
				p.logger.Error("broadcast tail failed", "room", p.roomID, "err", err)
			}
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, entry := range entries {
			n, err := p.seq.NextSequence(ctx, p.roomID)
			if err != nil {
				if p.logger != nil {
					p.logger.Error("sequence allocation failed", "room", p.roomID, "err", err)
				}
				continue
			}
			env := Envelope{
				Type:      "game_event",
				SeqNum:    n,
				StreamID:  entry.ID,
				EventType: entry.Event.EventType,
				Data:      entry.Event.Data,
				Timestamp: entry.Event.Timestamp,
				VisibleTo: entry.Event.VisibleTo,
			}
			if err := p.out.DeliverToRoom(ctx, p.roomID, env); err != nil && p.logger != nil {
				p.logger.Error("broadcast delivery failed", "room", p.roomID, "err", err)
			}
			lastID = entry.ID
		}
	}
}
