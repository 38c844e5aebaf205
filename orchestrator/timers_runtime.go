package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"cabo-server/engine"
)

// armTimer (re)starts kind's real timer for id. Any previously running
// timer of the same kind is stopped first, so a superseding timer id
// never races its predecessor's callback.
func (r *Room) armTimer(kind engine.TimerKind, id string) {
	dur := r.mgr.timing.forKind(kind)
	if dur <= 0 {
		return
	}

	r.timersMu.Lock()
	defer r.timersMu.Unlock()

	if existing := r.timers[kind]; existing != nil {
		existing.Stop()
	}

	r.timers[kind] = time.AfterFunc(dur, func() {
		in := Intent{Type: kind.TimeoutMessageType(), TimeoutID: id}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.mgr.client.RPush(ctx, queueKey(r.id), encodeIntent(in)).Err(); err != nil {
			r.mgr.logf(slog.LevelError, r.id, "failed to deliver timeout", "kind", kind, "err", err)
			return
		}
		r.wakeUp()
	})
}

func (r *Room) cancelTimer(kind engine.TimerKind) {
	r.timersMu.Lock()
	defer r.timersMu.Unlock()
	if t := r.timers[kind]; t != nil {
		t.Stop()
		delete(r.timers, kind)
	}
}

func (r *Room) cancelAllTimers() {
	r.timersMu.Lock()
	defer r.timersMu.Unlock()
	for kind, t := range r.timers {
		t.Stop()
		delete(r.timers, kind)
	}
}

// diffTimers compares the engine's timer-id fields before and after one
// Step call and arms or cancels the real timers that changed. A field
// going from empty to non-empty (or to a different non-empty id) means
// the engine just entered or re-armed that phase's timed window; a field
// going to empty means the engine cleared it explicitly.
func (r *Room) diffTimers(before, after map[engine.TimerKind]string) {
	for kind, afterID := range after {
		beforeID := before[kind]
		if afterID == beforeID {
			continue
		}
		if afterID == "" {
			r.cancelTimer(kind)
			continue
		}
		r.armTimer(kind, afterID)
	}
}

// scheduleCleanup runs once the engine reaches ENDED: it appends a
// game_cleanup event to warn connected clients, waits out the cleanup
// grace period, then deletes the room's durable-store keys. It runs on
// the loop's own goroutine: run calls it and returns once it finishes,
// so the room stays registered (IsActive reports true) until the keys
// are deleted.
func (r *Room) scheduleCleanup(ctx context.Context) {
	playerIDs := make([]string, len(r.state.Players))
	for i, p := range r.state.Players {
		playerIDs[i] = p.ID
	}

	_, _ = r.mgr.log.Append(ctx, r.id, engine.Event{
		Type: "game_cleanup",
		Data: map[string]any{
			"seconds": int(r.mgr.timing.CleanupGrace.Seconds()),
		},
	})

	select {
	case <-time.After(r.mgr.timing.CleanupGrace):
	case <-ctx.Done():
		return
	}

	if err := r.mgr.store.Delete(context.Background(), r.id, playerIDs); err != nil {
		r.mgr.logf(slog.LevelError, r.id, "cleanup delete failed", "err", err)
	}
}
