package orchestrator

import (
	"encoding/json"
	"fmt"

	"cabo-server/engine"
)

// Intent is the inbound wire shape pushed onto a room's queue: either a
// player action forwarded by the connection manager, or a system timeout
// fired by this package's own timer bookkeeping. Fields beyond Type carry
// whatever that type's engine.Message needs; unused fields are ignored.
type Intent struct {
	Type           engine.MessageType `json:"type"`
	SessionID      string             `json:"session_id,omitempty"`
	HandIndex      int                `json:"hand_index,omitempty"`
	CardIndex      int                `json:"card_index,omitempty"`
	TargetPlayerID string             `json:"target_player_id,omitempty"`
	TargetIndex    int                `json:"target_index,omitempty"`
	OwnIndex       int                `json:"own_index,omitempty"`
	TimeoutID      string             `json:"timeout_id,omitempty"`
}

// knownTypes mirrors every message type the engine's own dispatch table
// recognizes. The orchestrator rejects anything else before it ever
// reaches Step, notifying the originating session and dropping it.
var knownTypes = map[engine.MessageType]struct{}{
	engine.MsgDrawCard:              {},
	engine.MsgPlayDrawnCard:         {},
	engine.MsgReplaceAndPlay:        {},
	engine.MsgCallStack:             {},
	engine.MsgExecuteStack:          {},
	engine.MsgCallCabo:              {},
	engine.MsgViewOwnCard:           {},
	engine.MsgViewOpponent:          {},
	engine.MsgSwapCards:             {},
	engine.MsgKingViewCard:          {},
	engine.MsgKingSwapCards:         {},
	engine.MsgKingSkipSwap:          {},
	engine.MsgSetupTimeout:          {},
	engine.MsgStackTimeout:          {},
	engine.MsgSpecialActionTimeout:  {},
	engine.MsgTurnTransitionTimeout: {},
	engine.MsgNextTurn:              {},
	engine.MsgEndGame:               {},
}

// decodeIntent parses raw into an Intent. On error it still returns
// whatever Intent it managed to decode (zero value for a JSON syntax
// error, otherwise the fields it read before finding an unknown type),
// so a caller that can't trust the intent can still notify the session
// that sent it.
func decodeIntent(raw string) (Intent, error) {
	var in Intent
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return Intent{}, fmt.Errorf("orchestrator: malformed intent: %w", err)
	}
	if _, ok := knownTypes[in.Type]; !ok {
		return in, fmt.Errorf("orchestrator: unknown intent type %q", in.Type)
	}
	return in, nil
}

// toMessage converts the wire intent to an engine message. The session id
// doubles as the player id throughout the system, so SessionID is
// threaded straight through to PlayerID.
func (in Intent) toMessage() engine.Message {
	return engine.Message{
		Type:           in.Type,
		PlayerID:       in.SessionID,
		HandIndex:      in.HandIndex,
		CardIndex:      in.CardIndex,
		TargetPlayerID: in.TargetPlayerID,
		TargetIndex:    in.TargetIndex,
		OwnIndex:       in.OwnIndex,
		TimeoutID:      in.TimeoutID,
	}
}

func encodeIntent(in Intent) string {
	b, err := json.Marshal(in)
	if err != nil {
		// Intent only ever contains plain strings and ints; a marshal
		// failure here means a programming error, not a runtime condition.
		panic(fmt.Sprintf("orchestrator: marshal intent: %v", err))
	}
	return string(b)
}
