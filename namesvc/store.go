// Package namesvc is the name service: the Postgres side of the system,
// holding sessions, rooms, and membership. It never
// touches game state — that lives entirely in Redis, owned by
// gamestore/eventlog/orchestrator. namesvc answers "who is this
// session" and "what room is X in", and tracks per-room activity so an
// external janitor can reap idle rooms.
package namesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS user_sessions (
	user_id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	nickname      TEXT NOT NULL,
	token         UUID NOT NULL UNIQUE DEFAULT gen_random_uuid(),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at    TIMESTAMPTZ NOT NULL DEFAULT now() + interval '180 days',
	last_accessed TIMESTAMPTZ NOT NULL DEFAULT now(),
	is_active     BOOLEAN NOT NULL DEFAULT true
);
CREATE INDEX IF NOT EXISTS ix_user_sessions_token_active ON user_sessions(token, is_active);
CREATE INDEX IF NOT EXISTS ix_user_sessions_expires_at ON user_sessions(expires_at);

CREATE TABLE IF NOT EXISTS game_rooms (
	room_id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	room_code        TEXT NOT NULL UNIQUE,
	state            TEXT NOT NULL DEFAULT 'WAITING',
	host_session_id  UUID REFERENCES user_sessions(user_id),
	max_players      INT NOT NULL DEFAULT 6,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_activity    TIMESTAMPTZ NOT NULL DEFAULT now(),
	game_started_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS ix_game_rooms_last_activity ON game_rooms(last_activity);

CREATE TABLE IF NOT EXISTS user_to_room (
	id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id   UUID NOT NULL REFERENCES user_sessions(user_id),
	room_id   UUID NOT NULL REFERENCES game_rooms(room_id),
	joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, room_id)
);
`

// RoomState mirrors the lobby's coarse lifecycle, persisted alongside
// the room row so a restart can tell a waiting lobby from a finished one
// without asking Redis.
type RoomState string

const (
	RoomWaiting  RoomState = "WAITING"
	RoomInGame   RoomState = "IN_GAME"
	RoomFinished RoomState = "FINISHED"
)

type Session struct {
	UserID       uuid.UUID
	Nickname     string
	Token        uuid.UUID
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
	IsActive     bool
}

func (s Session) IsExpired() bool { return time.Now().After(s.ExpiresAt) }

// NeedsRefresh reports whether fewer than refreshThreshold remain before
// expiry.
func (s Session) NeedsRefresh(refreshThreshold time.Duration) bool {
	return s.ExpiresAt.Sub(time.Now()) < refreshThreshold
}

type Room struct {
	RoomID         uuid.UUID
	RoomCode       string
	State          RoomState
	HostSessionID  uuid.UUID
	MaxPlayers     int
	CreatedAt      time.Time
	LastActivity   time.Time
	GameStartedAt  *time.Time
}

// Store is the Postgres-backed half of the name service.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and ensures the schema exists. If databaseURL
// is empty, New returns (nil, nil): every Store method is nil-safe and
// then either does nothing (Close, TouchRoomActivity, ListIdleRooms) or
// returns a "not configured" error, so rooms cannot be created or joined.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("namesvc: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("namesvc: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("namesvc: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// CreateSession inserts a fresh, 180-day session for nickname.
func (s *Store) CreateSession(ctx context.Context, nickname string) (Session, error) {
	if s == nil || s.pool == nil {
		return Session{}, fmt.Errorf("namesvc: not configured")
	}
	var sess Session
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_sessions (nickname)
		VALUES ($1)
		RETURNING user_id, nickname, token, created_at, expires_at, last_accessed, is_active`,
		nickname,
	).Scan(&sess.UserID, &sess.Nickname, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastAccessed, &sess.IsActive)
	if err != nil {
		return Session{}, fmt.Errorf("namesvc: create session: %w", err)
	}
	return sess, nil
}

// SessionByToken looks up an active session by its bearer token, also
// bumping last_accessed.
func (s *Store) SessionByToken(ctx context.Context, token uuid.UUID) (Session, error) {
	if s == nil || s.pool == nil {
		return Session{}, fmt.Errorf("namesvc: not configured")
	}
	var sess Session
	err := s.pool.QueryRow(ctx, `
		UPDATE user_sessions SET last_accessed = now()
		WHERE token = $1 AND is_active = true
		RETURNING user_id, nickname, token, created_at, expires_at, last_accessed, is_active`,
		token,
	).Scan(&sess.UserID, &sess.Nickname, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastAccessed, &sess.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("namesvc: session by token: %w", err)
	}
	return sess, nil
}

// RefreshToken rotates userID's token and pushes expiry out by ttl.
func (s *Store) RefreshToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (Session, error) {
	if s == nil || s.pool == nil {
		return Session{}, fmt.Errorf("namesvc: not configured")
	}
	var sess Session
	err := s.pool.QueryRow(ctx, `
		UPDATE user_sessions
		SET token = gen_random_uuid(), expires_at = now() + make_interval(secs => $2), last_accessed = now()
		WHERE user_id = $1
		RETURNING user_id, nickname, token, created_at, expires_at, last_accessed, is_active`,
		userID, ttl.Seconds(),
	).Scan(&sess.UserID, &sess.Nickname, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastAccessed, &sess.IsActive)
	if err != nil {
		return Session{}, fmt.Errorf("namesvc: refresh token: %w", err)
	}
	return sess, nil
}

// CreateRoom inserts a new lobby with a pre-generated room code.
func (s *Store) CreateRoom(ctx context.Context, roomCode string, hostSessionID uuid.UUID, maxPlayers int) (Room, error) {
	if s == nil || s.pool == nil {
		return Room{}, fmt.Errorf("namesvc: not configured")
	}
	var r Room
	err := s.pool.QueryRow(ctx, `
		INSERT INTO game_rooms (room_code, host_session_id, max_players)
		VALUES ($1, $2, $3)
		RETURNING room_id, room_code, state, host_session_id, max_players, created_at, last_activity, game_started_at`,
		roomCode, hostSessionID, maxPlayers,
	).Scan(&r.RoomID, &r.RoomCode, &r.State, &r.HostSessionID, &r.MaxPlayers, &r.CreatedAt, &r.LastActivity, &r.GameStartedAt)
	if err != nil {
		return Room{}, fmt.Errorf("namesvc: create room: %w", err)
	}
	return r, nil
}

// RoomByCode looks up a room by its short join code.
func (s *Store) RoomByCode(ctx context.Context, roomCode string) (Room, error) {
	if s == nil || s.pool == nil {
		return Room{}, fmt.Errorf("namesvc: not configured")
	}
	var r Room
	err := s.pool.QueryRow(ctx, `
		SELECT room_id, room_code, state, host_session_id, max_players, created_at, last_activity, game_started_at
		FROM game_rooms WHERE room_code = $1`,
		roomCode,
	).Scan(&r.RoomID, &r.RoomCode, &r.State, &r.HostSessionID, &r.MaxPlayers, &r.CreatedAt, &r.LastActivity, &r.GameStartedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, fmt.Errorf("namesvc: room by code: %w", err)
	}
	return r, nil
}

// RoomByID looks up a room by its primary key.
func (s *Store) RoomByID(ctx context.Context, roomID uuid.UUID) (Room, error) {
	if s == nil || s.pool == nil {
		return Room{}, fmt.Errorf("namesvc: not configured")
	}
	var r Room
	err := s.pool.QueryRow(ctx, `
		SELECT room_id, room_code, state, host_session_id, max_players, created_at, last_activity, game_started_at
		FROM game_rooms WHERE room_id = $1`,
		roomID,
	).Scan(&r.RoomID, &r.RoomCode, &r.State, &r.HostSessionID, &r.MaxPlayers, &r.CreatedAt, &r.LastActivity, &r.GameStartedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, fmt.Errorf("namesvc: room by id: %w", err)
	}
	return r, nil
}

// JoinRoom records membership, idempotently (rejoining is a no-op).
func (s *Store) JoinRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("namesvc: not configured")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_to_room (user_id, room_id) VALUES ($1, $2)
		ON CONFLICT (user_id, room_id) DO NOTHING`,
		userID, roomID)
	if err != nil {
		return fmt.Errorf("namesvc: join room: %w", err)
	}
	return nil
}

// LeaveRoom removes a membership row. Called on permanent departure, not
// on a grace-period disconnect.
func (s *Store) LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("namesvc: not configured")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM user_to_room WHERE user_id = $1 AND room_id = $2`, userID, roomID)
	if err != nil {
		return fmt.Errorf("namesvc: leave room: %w", err)
	}
	return nil
}

// GetRoomMembership returns every session currently seated in roomID.
func (s *Store) GetRoomMembership(ctx context.Context, roomID uuid.UUID) ([]Session, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("namesvc: not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT us.user_id, us.nickname, us.token, us.created_at, us.expires_at, us.last_accessed, us.is_active
		FROM user_to_room utr
		JOIN user_sessions us ON us.user_id = utr.user_id
		WHERE utr.room_id = $1
		ORDER BY utr.joined_at ASC`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("namesvc: members: %w", err)
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.UserID, &sess.Nickname, &sess.Token, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastAccessed, &sess.IsActive); err != nil {
			return nil, fmt.Errorf("namesvc: scan member: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SetRoomState transitions a room's coarse lifecycle state, stamping
// game_started_at the first time it enters IN_GAME.
func (s *Store) SetRoomState(ctx context.Context, roomID uuid.UUID, state RoomState) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("namesvc: not configured")
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE game_rooms
		SET state = $2,
		    game_started_at = CASE WHEN $2 = 'IN_GAME' AND game_started_at IS NULL THEN now() ELSE game_started_at END,
		    last_activity = now()
		WHERE room_id = $1`,
		roomID, state)
	if err != nil {
		return fmt.Errorf("namesvc: set room state: %w", err)
	}
	return nil
}

// SetHost reassigns the host seat, used for host migration when the
// current host leaves permanently.
func (s *Store) SetHost(ctx context.Context, roomID, newHostID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("namesvc: not configured")
	}
	_, err := s.pool.Exec(ctx, `UPDATE game_rooms SET host_session_id = $2 WHERE room_id = $1`, roomID, newHostID)
	if err != nil {
		return fmt.Errorf("namesvc: set host: %w", err)
	}
	return nil
}

// TouchRoomActivity implements orchestrator.ActivityTracker: it stamps
// last_activity so the cleanup sweep never reaps a quietly-running game.
func (s *Store) TouchRoomActivity(ctx context.Context, roomID string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	id, err := uuid.Parse(roomID)
	if err != nil {
		return fmt.Errorf("namesvc: touch activity: bad room id %q: %w", roomID, err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE game_rooms SET last_activity = now() WHERE room_id = $1`, id)
	if err != nil {
		return fmt.Errorf("namesvc: touch activity: %w", err)
	}
	return nil
}

// ListIdleRooms returns every room whose last_activity predates the
// cutoff, for the cleanup sweep to close out.
func (s *Store) ListIdleRooms(ctx context.Context, idleFor time.Duration) ([]Room, error) {
	if s == nil || s.pool == nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT room_id, room_code, state, host_session_id, max_players, created_at, last_activity, game_started_at
		FROM game_rooms
		WHERE state != 'FINISHED' AND last_activity < now() - make_interval(secs => $1)`,
		idleFor.Seconds())
	if err != nil {
		return nil, fmt.Errorf("namesvc: idle rooms: %w", err)
	}
	defer rows.Close()
	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.RoomID, &r.RoomCode, &r.State, &r.HostSessionID, &r.MaxPlayers, &r.CreatedAt, &r.LastActivity, &r.GameStartedAt); err != nil {
			return nil, fmt.Errorf("namesvc: scan idle room: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
