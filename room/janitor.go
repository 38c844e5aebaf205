package room

import (
	"context"
	"log/slog"
	"time"

	"cabo-server/namesvc"
)

// RoomStopper lets the janitor tear down a live orchestrator room
// (cancel timers, drop it from the in-memory registry) when its owning
// lobby is reaped. Implemented by *orchestrator.Manager.
type RoomStopper interface {
	Shutdown(roomID string)
}

// RedisCleaner removes a room's durable game-state keys. Implemented by
// *gamestore.Store.
type RedisCleaner interface {
	Delete(ctx context.Context, room string, playerIDs []string) error
}

// Janitor periodically reaps rooms whose name-service last_activity has
// gone stale, mirroring the original Python cleanup service: it deletes
// the room's durable Redis game state, shuts down any live orchestrator
// room, and marks the name-service row FINISHED.
type Janitor struct {
	store    *namesvc.Store
	stopper  RoomStopper
	cleaner  RedisCleaner
	idleFor  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(store *namesvc.Store, stopper RoomStopper, cleaner RedisCleaner, idleFor, interval time.Duration, logger *slog.Logger) *Janitor {
	if idleFor <= 0 {
		idleFor = 10 * time.Minute
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Janitor{store: store, stopper: stopper, cleaner: cleaner, idleFor: idleFor, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping on j.interval.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	idle, err := j.store.ListIdleRooms(ctx, j.idleFor)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("janitor: list idle rooms failed", "err", err)
		}
		return
	}
	for _, r := range idle {
		members, err := j.store.GetRoomMembership(ctx, r.RoomID)
		if err != nil {
			continue
		}
		ids := make([]string, len(members))
		for i, sess := range members {
			ids[i] = sess.UserID.String()
		}

		j.stopper.Shutdown(r.RoomID.String())
		if err := j.cleaner.Delete(ctx, r.RoomID.String(), ids); err != nil && j.logger != nil {
			j.logger.Error("janitor: redis cleanup failed", "room", r.RoomID, "err", err)
		}
		if err := j.store.SetRoomState(ctx, r.RoomID, namesvc.RoomFinished); err != nil && j.logger != nil {
			j.logger.Error("janitor: mark finished failed", "room", r.RoomID, "err", err)
		}
		if j.logger != nil {
			j.logger.Info("janitor: reaped idle room", "room", r.RoomCode, "idle_for", j.idleFor)
		}
	}
}
