// Package gateway is the WebSocket front door: it upgrades HTTP
// connections, authenticates the bearer token, resolves room
// membership, and registers the connection with connmgr before handing
// off to a per-connection read pump. Everything past that point is
// either a connmgr control message or a player action forwarded to the
// orchestrator's queue.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cabo-server/apperrors"
	"cabo-server/auth"
	"cabo-server/connmgr"
	"cabo-server/engine"
	"cabo-server/namesvc"
	"cabo-server/orchestrator"
)

// clientActionTypes are the only engine message types a client may
// submit directly; timeouts and follow-up transitions are system-only
// and only ever originate inside the orchestrator.
var clientActionTypes = map[engine.MessageType]struct{}{
	engine.MsgDrawCard:       {},
	engine.MsgPlayDrawnCard:  {},
	engine.MsgReplaceAndPlay: {},
	engine.MsgCallStack:      {},
	engine.MsgExecuteStack:   {},
	engine.MsgCallCabo:       {},
	engine.MsgViewOwnCard:    {},
	engine.MsgViewOpponent:   {},
	engine.MsgSwapCards:      {},
	engine.MsgKingViewCard:   {},
	engine.MsgKingSwapCards:  {},
	engine.MsgKingSkipSwap:   {},
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundEnvelope is the shape of every client-to-server frame.
type inboundEnvelope struct {
	Type           string `json:"type"`
	SeqNum         int64  `json:"seq_num"`
	Nickname       string `json:"nickname"`
	HandIndex      int    `json:"hand_index"`
	CardIndex      int    `json:"card_index"`
	TargetPlayerID string `json:"target_player_id"`
	TargetIndex    int    `json:"target_index"`
	OwnIndex       int    `json:"own_index"`
}

// Gateway wires connmgr + orchestrator + namesvc + auth together behind
// one HTTP handler.
type Gateway struct {
	issuer *auth.Issuer
	names  *namesvc.Store
	conns  *connmgr.Manager
	rooms  *orchestrator.Manager
	logger *slog.Logger
}

func New(issuer *auth.Issuer, names *namesvc.Store, conns *connmgr.Manager, rooms *orchestrator.Manager, logger *slog.Logger) *Gateway {
	return &Gateway{issuer: issuer, names: names, conns: conns, rooms: rooms, logger: logger}
}

// ServeHTTP handles GET /ws?token=...&room_code=...&last_seq=N.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := query.Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, nickname, err := g.issuer.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	roomCode := query.Get("room_code")
	rm, err := g.names.RoomByCode(r.Context(), roomCode)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if !g.isMember(r.Context(), rm.RoomID, userID) {
		http.Error(w, apperrors.ErrNotAMember.Error(), http.StatusForbidden)
		return
	}
	isHost := rm.HostSessionID == userID
	lastSeq := parseLastSeq(query)

	conn, err := g.upgradeAndRegister(r.Context(), w, r, userID, rm.RoomID, nickname, isHost, lastSeq)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("gateway: connect failed", "err", err)
		}
		return
	}

	go g.readPump(conn)
}

// isMember reports whether userID has joined roomID, per the name
// service's membership table. A room with no name service configured
// (namesvc.Store is nil-safe but can't authoritatively answer this)
// allows every authenticated caller through rather than locking
// everyone out of a server running without Postgres.
func (g *Gateway) isMember(ctx context.Context, roomID, userID uuid.UUID) bool {
	members, err := g.names.GetRoomMembership(ctx, roomID)
	if err != nil {
		return true
	}
	for _, sess := range members {
		if sess.UserID == userID {
			return true
		}
	}
	return false
}

func parseLastSeq(q url.Values) int64 {
	n, err := strconv.ParseInt(q.Get("last_seq"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (g *Gateway) upgradeAndRegister(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID, roomID uuid.UUID, nickname string, isHost bool, lastSeq int64) (*connmgr.Connection, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	sessionID := userID.String()
	roomIDStr := roomID.String()

	var conn *connmgr.Connection
	if lastSeq > 0 {
		conn, err = g.conns.Reconnect(ctx, sessionID, ws, roomIDStr, nickname, isHost, lastSeq)
	} else {
		conn, err = g.conns.Register(ctx, sessionID, ws, roomIDStr, nickname, isHost)
	}
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	return conn, nil
}

// readPump decodes every inbound frame for one connection. Control
// frames (ack_seq, ping, get_session_info, update_nickname) are handled
// directly; anything in clientActionTypes is forwarded to the room
// queue; anything else draws an error reply.
func (g *Gateway) readPump(conn *connmgr.Connection) {
	ctx := context.Background()
	for {
		var env inboundEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			_ = g.conns.Disconnect(ctx, conn.ID, false, true)
			return
		}

		switch env.Type {
		case "ping":
			_ = g.conns.SendToSession(ctx, conn.SessionID, map[string]any{"type": "pong"})
		case "ack_seq":
			_ = g.conns.Acknowledge(ctx, conn.SessionID, env.SeqNum)
		case "get_session_info":
			_ = g.conns.SendToSession(ctx, conn.SessionID, map[string]any{
				"type":       "session_info",
				"session_id": conn.SessionID,
				"room_id":    conn.RoomID,
				"nickname":   conn.Nickname,
				"is_host":    conn.IsHost,
			})
		case "update_nickname":
			conn.Nickname = env.Nickname
		default:
			mt := engine.MessageType(env.Type)
			if _, ok := clientActionTypes[mt]; !ok {
				_ = g.conns.SendError(ctx, conn.SessionID, "unknown_action", "unrecognized action type")
				continue
			}
			if !g.rooms.IsActive(conn.RoomID) {
				_ = g.conns.SendError(ctx, conn.SessionID, "no_active_game", apperrors.ErrGameNotActive.Error())
				continue
			}
			in := orchestrator.Intent{
				Type:           mt,
				HandIndex:      env.HandIndex,
				CardIndex:      env.CardIndex,
				TargetPlayerID: env.TargetPlayerID,
				TargetIndex:    env.TargetIndex,
				OwnIndex:       env.OwnIndex,
			}
			if err := g.rooms.Enqueue(ctx, conn.RoomID, conn.SessionID, in); err != nil {
				_ = g.conns.SendError(ctx, conn.SessionID, "enqueue_failed", err.Error())
			}
		}
	}
}
