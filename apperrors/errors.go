// Package apperrors collects sentinel errors shared across the room,
// gamestore, auth, and gateway packages. It exists on its own so
// those packages can return and compare errors without importing each
// other.
package apperrors

import "errors"

var (
	// ErrRoomNotFound is returned when a room code has no live room.
	ErrRoomNotFound = errors.New("apperrors: room not found")

	// ErrRoomFull is returned when a room already has its configured
	// maximum number of members.
	ErrRoomFull = errors.New("apperrors: room is full")

	// ErrGameAlreadyRunning is returned when a start-game request
	// arrives for a room that already has an active game.
	ErrGameAlreadyRunning = errors.New("apperrors: game already in progress")

	// ErrGameNotActive is returned when a player action arrives for a
	// room with no live game (not started, or already finished).
	ErrGameNotActive = errors.New("apperrors: no active game")

	// ErrNotAMember is returned when a session acts on a room it never
	// joined.
	ErrNotAMember = errors.New("apperrors: session is not a room member")

	// ErrInvalidToken is returned by the name service when a session
	// token fails validation.
	ErrInvalidToken = errors.New("apperrors: invalid or expired token")

	// ErrSnapshotCorrupt is returned by the durable store when a loaded
	// snapshot fails its heal step and cannot be reconstructed.
	ErrSnapshotCorrupt = errors.New("apperrors: snapshot failed invariant check")
)
