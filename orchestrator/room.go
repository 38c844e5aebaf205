package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cabo-server/engine"
)

// Room is the single-writer loop for one active game. Only run (and the
// handlers it calls synchronously) ever touch state; everything else
// (Enqueue, armTimer from another goroutine's timer callback) only ever
// pushes onto the Redis queue or nudges wake, never reaches into state
// directly.
type Room struct {
	id      string
	state   *engine.State
	mgr     *Manager
	wake    chan struct{}
	done    chan struct{}
	stopped sync.Once

	timersMu sync.Mutex
	timers   map[engine.TimerKind]*time.Timer
}

func newRoom(id string, state *engine.State, mgr *Manager) *Room {
	return &Room{
		id:     id,
		state:  state,
		mgr:    mgr,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		timers: make(map[engine.TimerKind]*time.Timer),
	}
}

func (r *Room) wakeUp() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Room) stop() {
	r.stopped.Do(func() { close(r.done) })
}

// run is the room's single-writer loop: drain, step, persist, sleep. It
// returns when stop() is called, ctx is cancelled, or the game reaches
// ENDED (after scheduleCleanup has run).
func (r *Room) run(ctx context.Context) {
	defer r.mgr.unregister(r.id)
	defer r.cancelAllTimers()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		default:
		}

		processed, err := r.tick(ctx)
		if err != nil {
			r.mgr.logf(slog.LevelError, r.id, "room tick failed", "err", err)
		}

		if r.state.Phase == engine.PhaseEnded {
			r.scheduleCleanup(ctx)
			return
		}

		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-r.wake:
		case <-time.After(r.mgr.timing.PollInterval):
		}
	}
}

// tick drains every currently queued intent, feeds each (and every
// follow-up message it produces) through the engine, and persists the
// result whenever at least one intent was drained, even if the engine
// rejected every message. It reports whether any message
// was processed, which tells run whether to skip its idle sleep.
func (r *Room) tick(ctx context.Context) (bool, error) {
	key := queueKey(r.id)
	var pending []Intent

	for {
		raw, err := r.mgr.client.LPop(ctx, key).Result()
		if err != nil {
			break // redis.Nil (queue empty) or a transient error either end the drain
		}
		in, err := decodeIntent(raw)
		if err != nil {
			r.mgr.logf(slog.LevelWarn, r.id, "dropping malformed intent", "err", err)
			if in.SessionID != "" && r.mgr.notifier != nil {
				_ = r.mgr.notifier.SendError(ctx, in.SessionID, "bad_intent", "could not process your last action")
			}
			continue
		}
		pending = append(pending, in)
	}

	if len(pending) == 0 {
		return false, nil
	}

	var events []engine.Event
	checkpointRequested := false

	queue := make([]engine.Message, 0, len(pending))
	for _, in := range pending {
		queue = append(queue, in.toMessage())
	}

	for i := 0; i < len(queue); i++ {
		msg := queue[i]
		if _, ok := knownTypes[msg.Type]; !ok {
			r.mgr.logf(slog.LevelWarn, r.id, "dropping unknown message type", "msg_type", msg.Type)
			if msg.PlayerID != "" && r.mgr.notifier != nil {
				_ = r.mgr.notifier.SendError(ctx, msg.PlayerID, "bad_intent", "could not process your last action")
			}
			continue
		}

		before := r.state.TimerIDs()
		res, err := engine.Step(r.state, msg)
		if err != nil {
			var actionErr *engine.ActionError
			if errors.As(err, &actionErr) {
				if msg.PlayerID != "" && r.mgr.notifier != nil {
					_ = r.mgr.notifier.SendError(ctx, msg.PlayerID, actionErr.Code, actionErr.Message)
				}
				continue
			}
			r.mgr.logf(slog.LevelError, r.id, "engine step failed", "msg_type", msg.Type, "err", err)
			continue
		}

		events = append(events, res.Events...)
		queue = append(queue, res.Next...)
		if res.CheckpointRequested {
			checkpointRequested = true
		}

		r.diffTimers(before, r.state.TimerIDs())
	}

	if err := r.persist(ctx); err != nil {
		return true, err
	}

	var lastStreamID string
	for _, ev := range events {
		id, err := r.mgr.log.Append(ctx, r.id, ev)
		if err != nil {
			return true, err
		}
		lastStreamID = id
	}

	if checkpointRequested {
		if err := r.writeCheckpoint(ctx, lastStreamID); err != nil {
			return true, err
		}
	}

	if r.mgr.activity != nil {
		_ = r.mgr.activity.TouchRoomActivity(ctx, r.id)
	}

	return true, nil
}

func (r *Room) persist(ctx context.Context) error {
	return r.mgr.store.Save(ctx, r.id, r.state)
}

func (r *Room) writeCheckpoint(ctx context.Context, streamPosition string) error {
	if streamPosition == "" {
		cp, ok, err := r.mgr.log.LatestCheckpoint(ctx, r.id)
		if err == nil && ok {
			streamPosition = cp.StreamPosition
		}
	}
	snapshotJSON, err := json.Marshal(viewableSnapshot(r.state))
	if err != nil {
		return err
	}
	cp := checkpointFrom(r.state, streamPosition, snapshotJSON)
	if r.mgr.seq != nil {
		if n, err := r.mgr.seq.CurrentSequence(ctx, r.id); err == nil {
			cp.SequenceNum = n
		}
	}
	return r.mgr.log.SaveCheckpoint(ctx, r.id, cp)
}
