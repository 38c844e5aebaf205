package namesvc

import "errors"

var (
	ErrSessionNotFound = errors.New("namesvc: session not found")
	ErrRoomNotFound    = errors.New("namesvc: room not found")
)
