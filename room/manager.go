// Package room is the lobby layer: it owns room creation, membership,
// and host migration, and is the thing that turns a "start game" request
// into an orchestrator.Manager.StartGame call. It sits above namesvc (who
// is where) and below nothing — the WebSocket gateway calls straight
// into it.
package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cabo-server/apperrors"
	"cabo-server/namesvc"
)

// GameStarter is the one thing room needs from the orchestrator.
type GameStarter interface {
	StartGame(ctx context.Context, roomID string, playerIDs, playerNames []string) error
}

// Broadcaster lets room push lobby-level updates (player_joined,
// player_left, room_update) without importing connmgr directly.
type Broadcaster interface {
	BroadcastToRoom(ctx context.Context, roomID string, msg any, exclude string) error
}

type Config struct {
	MinPlayers int
	MaxPlayers int
}

func DefaultConfig() Config { return Config{MinPlayers: 2, MaxPlayers: 6} }

type Manager struct {
	store   *namesvc.Store
	starter GameStarter
	bcast   Broadcaster
	cfg     Config
}

func NewManager(store *namesvc.Store, starter GameStarter, bcast Broadcaster, cfg Config) *Manager {
	if cfg.MinPlayers <= 0 {
		cfg.MinPlayers = 2
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 6
	}
	return &Manager{store: store, starter: starter, bcast: bcast, cfg: cfg}
}

// CreateRoom registers a session for nickname and opens a new room
// hosted by it.
func (m *Manager) CreateRoom(ctx context.Context, nickname string) (namesvc.Session, namesvc.Room, error) {
	sess, err := m.store.CreateSession(ctx, nickname)
	if err != nil {
		return namesvc.Session{}, namesvc.Room{}, err
	}

	var r namesvc.Room
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode()
		if err != nil {
			return namesvc.Session{}, namesvc.Room{}, err
		}
		r, err = m.store.CreateRoom(ctx, code, sess.UserID, m.cfg.MaxPlayers)
		if err == nil {
			break
		}
		if attempt == 4 {
			return namesvc.Session{}, namesvc.Room{}, fmt.Errorf("room: create room: exhausted code attempts: %w", err)
		}
	}
	if err := m.store.JoinRoom(ctx, sess.UserID, r.RoomID); err != nil {
		return namesvc.Session{}, namesvc.Room{}, err
	}
	return sess, r, nil
}

// JoinRoom registers a session for nickname and seats it in roomCode's
// room, rejecting if the room is full, already playing, or gone.
func (m *Manager) JoinRoom(ctx context.Context, roomCode, nickname string) (namesvc.Session, namesvc.Room, error) {
	r, err := m.store.RoomByCode(ctx, roomCode)
	if err != nil {
		if err == namesvc.ErrRoomNotFound {
			return namesvc.Session{}, namesvc.Room{}, apperrors.ErrRoomNotFound
		}
		return namesvc.Session{}, namesvc.Room{}, err
	}
	if r.State != namesvc.RoomWaiting {
		return namesvc.Session{}, namesvc.Room{}, apperrors.ErrGameAlreadyRunning
	}
	members, err := m.store.GetRoomMembership(ctx, r.RoomID)
	if err != nil {
		return namesvc.Session{}, namesvc.Room{}, err
	}
	if len(members) >= m.cfg.MaxPlayers {
		return namesvc.Session{}, namesvc.Room{}, apperrors.ErrRoomFull
	}

	sess, err := m.store.CreateSession(ctx, nickname)
	if err != nil {
		return namesvc.Session{}, namesvc.Room{}, err
	}
	if err := m.store.JoinRoom(ctx, sess.UserID, r.RoomID); err != nil {
		return namesvc.Session{}, namesvc.Room{}, err
	}

	_ = m.bcast.BroadcastToRoom(ctx, r.RoomID.String(), map[string]any{
		"type":       "player_joined",
		"session_id": sess.UserID.String(),
		"nickname":   sess.Nickname,
	}, sess.UserID.String())

	return sess, r, nil
}

// Leave handles a permanent departure (not a grace-period disconnect):
// it drops the membership row and, if the departing session was host,
// migrates the host seat to the longest-seated remaining member. An
// emptied room is marked FINISHED.
func (m *Manager) Leave(ctx context.Context, sessionID, roomID uuid.UUID) error {
	r, err := m.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := m.store.LeaveRoom(ctx, sessionID, roomID); err != nil {
		return err
	}

	remaining, err := m.store.GetRoomMembership(ctx, roomID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return m.store.SetRoomState(ctx, roomID, namesvc.RoomFinished)
	}

	if r.HostSessionID == sessionID {
		newHost := remaining[0] // GetRoomMembership orders by joined_at ASC: longest-seated first
		if err := m.store.SetHost(ctx, roomID, newHost.UserID); err != nil {
			return err
		}
		_ = m.bcast.BroadcastToRoom(ctx, roomID.String(), map[string]any{
			"type":       "room_update",
			"host_id":    newHost.UserID.String(),
			"reason":     "host_migrated",
		}, "")
	}

	_ = m.bcast.BroadcastToRoom(ctx, roomID.String(), map[string]any{
		"type":       "player_left",
		"session_id": sessionID.String(),
	}, "")
	return nil
}

// StartGame transitions the room to IN_GAME and hands its seating order
// to the orchestrator. It does not check which session is asking, and
// neither does its HTTP caller, gateway.LobbyAPI.StartGame: any request
// naming the room id starts the game.
func (m *Manager) StartGame(ctx context.Context, roomID uuid.UUID) error {
	r, err := m.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if r.State != namesvc.RoomWaiting {
		return apperrors.ErrGameAlreadyRunning
	}
	members, err := m.store.GetRoomMembership(ctx, roomID)
	if err != nil {
		return err
	}
	if len(members) < m.cfg.MinPlayers {
		return fmt.Errorf("room: start game: need at least %d players, have %d", m.cfg.MinPlayers, len(members))
	}

	ids := make([]string, len(members))
	names := make([]string, len(members))
	for i, sess := range members {
		ids[i] = sess.UserID.String()
		names[i] = sess.Nickname
	}

	if err := m.store.SetRoomState(ctx, roomID, namesvc.RoomInGame); err != nil {
		return err
	}
	return m.starter.StartGame(ctx, roomID.String(), ids, names)
}

func (m *Manager) roomByID(ctx context.Context, roomID uuid.UUID) (namesvc.Room, error) {
	return m.store.RoomByID(ctx, roomID)
}
