package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cabo-server/apperrors"
	"cabo-server/namesvc"
	"cabo-server/room"
)

// TokenIssuer is the subset of *auth.Issuer LobbyAPI needs to mint a
// session token once a room-management call succeeds.
type TokenIssuer interface {
	Issue(userID uuid.UUID, nickname string) (string, time.Time, error)
}

// LobbyAPI exposes the plain HTTP room-management surface (create, join,
// start) that a client calls before ever opening a WebSocket. Each
// successful call mints a session JWT the client then presents to
// Gateway.ServeHTTP.
type LobbyAPI struct {
	rooms  *room.Manager
	issuer TokenIssuer
}

func NewLobbyAPI(rooms *room.Manager, issuer TokenIssuer) *LobbyAPI {
	return &LobbyAPI{rooms: rooms, issuer: issuer}
}

type createRoomRequest struct {
	Nickname string `json:"nickname"`
}

type roomResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID uuid.UUID `json:"session_id"`
	RoomID    uuid.UUID `json:"room_id"`
	RoomCode  string    `json:"room_code"`
	IsHost    bool      `json:"is_host"`
}

func (a *LobbyAPI) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, rm, err := a.rooms.CreateRoom(r.Context(), req.Nickname)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeSession(w, sess, rm, true)
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
	RoomCode string `json:"room_code"`
}

func (a *LobbyAPI) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, rm, err := a.rooms.JoinRoom(r.Context(), req.RoomCode, req.Nickname)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	a.writeSession(w, sess, rm, false)
}

type startGameRequest struct {
	RoomID uuid.UUID `json:"room_id"`
}

func (a *LobbyAPI) StartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.rooms.StartGame(r.Context(), req.RoomID); err != nil {
		writeRoomError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *LobbyAPI) writeSession(w http.ResponseWriter, sess namesvc.Session, rm namesvc.Room, isHost bool) {
	token, expiresAt, err := a.issuer.Issue(sess.UserID, sess.Nickname)
	if err != nil {
		http.Error(w, "could not issue session token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(roomResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		SessionID: sess.UserID,
		RoomID:    rm.RoomID,
		RoomCode:  rm.RoomCode,
		IsHost:    isHost || rm.HostSessionID == sess.UserID,
	})
}

func writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrRoomNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperrors.ErrRoomFull), errors.Is(err, apperrors.ErrGameAlreadyRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
