package orchestrator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cabo-server/engine"
	"cabo-server/eventlog"
)

// snapshot is the JSON shape stored as a checkpoint's complete_game_state.
// It intentionally carries the full visibility map (not a per-viewer
// redacted view) because the connection manager does redaction itself at
// send time, per room-scoped checkpoint, against whichever viewer it's
// currently serving.
type snapshot struct {
	GameID             string              `json:"game_id"`
	Phase              string              `json:"phase"`
	Players            []playerSnapshot    `json:"players"`
	CurrentPlayerIndex int                 `json:"current_player_index"`
	DeckSize           int                 `json:"deck_size"`
	DiscardTop         string              `json:"discard_top,omitempty"`
	DrawnCard          string              `json:"drawn_card,omitempty"`
	PlayedCard         string              `json:"played_card,omitempty"`
	StackCaller        string              `json:"stack_caller,omitempty"`
	SpecialActionPlayer string             `json:"special_action_player,omitempty"`
	SpecialActionType  string              `json:"special_action_type,omitempty"`
	KingViewedCard     string              `json:"king_viewed_card,omitempty"`
	KingViewedPlayer   string              `json:"king_viewed_player,omitempty"`
	KingViewedIndex    int                 `json:"king_viewed_index,omitempty"`
	CaboCaller         string              `json:"cabo_caller,omitempty"`
	FinalRoundStarted  bool                `json:"final_round_started,omitempty"`
	Winner             string              `json:"winner,omitempty"`
	Visibility         map[string][]string `json:"visibility,omitempty"`
}

type playerSnapshot struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Hand          []string `json:"hand"`
	HasCalledCabo bool     `json:"has_called_cabo"`
}

func viewableSnapshot(s *engine.State) snapshot {
	out := snapshot{
		GameID:              s.GameID,
		Phase:               s.Phase.String(),
		CurrentPlayerIndex:  s.CurrentPlayerIndex,
		DeckSize:            s.Deck.Size(),
		StackCaller:         s.StackCaller,
		SpecialActionPlayer: s.SpecialActionPlayer,
		SpecialActionType:   string(s.SpecialActionType),
		KingViewedPlayer:    s.KingViewedPlayer,
		KingViewedIndex:     s.KingViewedIndex,
		CaboCaller:          s.CaboCaller,
		FinalRoundStarted:   s.FinalRoundStarted,
		Winner:              s.Winner,
	}
	if len(s.DiscardPile) > 0 {
		out.DiscardTop = s.DiscardPile[len(s.DiscardPile)-1].String()
	}
	if s.DrawnCard != nil {
		out.DrawnCard = s.DrawnCard.String()
	}
	if s.PlayedCard != nil {
		out.PlayedCard = s.PlayedCard.String()
	}
	if s.KingViewedCard != nil {
		out.KingViewedCard = s.KingViewedCard.String()
	}

	for _, p := range s.Players {
		hand := make([]string, len(p.Hand))
		for i, c := range p.Hand {
			hand[i] = c.String()
		}
		out.Players = append(out.Players, playerSnapshot{
			ID: p.ID, Name: p.Name, Hand: hand, HasCalledCabo: p.HasCalledCabo,
		})
	}

	vis := make(map[string][]string)
	for viewer, slots := range s.Visible {
		for key := range slots {
			vis[viewer] = append(vis[viewer], key.OwnerID+":"+strconv.Itoa(key.Index))
		}
	}
	if len(vis) > 0 {
		out.Visibility = vis
	}

	return out
}

// redactedSnapshot is the per-viewer shape a checkpoint's complete_game_state
// is reduced to before it reaches a session: every hand slot the viewer
// hasn't been granted visibility into comes across as "hidden" rather than
// the real card, and the visibility map itself — a server-only bookkeeping
// structure — never leaves this package.
type redactedSnapshot struct {
	GameID              string                  `json:"game_id"`
	Phase               string                  `json:"phase"`
	Players             []redactedPlayerSnapshot `json:"players"`
	CurrentPlayerIndex  int                     `json:"current_player_index"`
	DeckSize            int                     `json:"deck_size"`
	DiscardTop          string                  `json:"discard_top,omitempty"`
	DrawnCard           string                  `json:"drawn_card,omitempty"`
	PlayedCard          string                  `json:"played_card,omitempty"`
	StackCaller         string                  `json:"stack_caller,omitempty"`
	SpecialActionPlayer string                  `json:"special_action_player,omitempty"`
	SpecialActionType   string                  `json:"special_action_type,omitempty"`
	KingViewedCard      string                  `json:"king_viewed_card,omitempty"`
	KingViewedPlayer    string                  `json:"king_viewed_player,omitempty"`
	KingViewedIndex     int                     `json:"king_viewed_index,omitempty"`
	CaboCaller          string                  `json:"cabo_caller,omitempty"`
	FinalRoundStarted   bool                    `json:"final_round_started,omitempty"`
	Winner              string                  `json:"winner,omitempty"`
}

type redactedPlayerSnapshot struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Hand          []string `json:"hand"`
	HasCalledCabo bool     `json:"has_called_cabo"`
}

const hiddenCard = "hidden"

// RedactSnapshot reduces a checkpoint's raw complete_game_state to what
// viewerID is actually entitled to see, using the snapshot's own
// visibility map rather than reaching into any live engine.State — a
// checkpoint is already a point-in-time snapshot, so redacting it this
// way needs no access to the single-writer room loop.
func RedactSnapshot(raw json.RawMessage, viewerID string) (json.RawMessage, error) {
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("orchestrator: decode snapshot for redaction: %w", err)
	}

	visible := make(map[string]bool, len(snap.Visibility[viewerID]))
	for _, key := range snap.Visibility[viewerID] {
		visible[key] = true
	}

	var currentPlayerID string
	if snap.CurrentPlayerIndex >= 0 && snap.CurrentPlayerIndex < len(snap.Players) {
		currentPlayerID = snap.Players[snap.CurrentPlayerIndex].ID
	}

	out := redactedSnapshot{
		GameID:              snap.GameID,
		Phase:               snap.Phase,
		CurrentPlayerIndex:  snap.CurrentPlayerIndex,
		DeckSize:            snap.DeckSize,
		DiscardTop:          snap.DiscardTop,
		PlayedCard:          snap.PlayedCard,
		StackCaller:         snap.StackCaller,
		SpecialActionPlayer: snap.SpecialActionPlayer,
		SpecialActionType:   snap.SpecialActionType,
		KingViewedPlayer:    snap.KingViewedPlayer,
		KingViewedIndex:     snap.KingViewedIndex,
		CaboCaller:          snap.CaboCaller,
		FinalRoundStarted:   snap.FinalRoundStarted,
		Winner:              snap.Winner,
	}

	// The drawn card belongs to whoever is mid-turn; nobody else has seen
	// it yet. The king-viewed card belongs to whichever player spent their
	// special action looking at it.
	if snap.DrawnCard != "" && viewerID == currentPlayerID {
		out.DrawnCard = snap.DrawnCard
	}
	if snap.KingViewedCard != "" && viewerID == snap.SpecialActionPlayer {
		out.KingViewedCard = snap.KingViewedCard
	}

	for _, p := range snap.Players {
		hand := make([]string, len(p.Hand))
		for i := range p.Hand {
			key := p.ID + ":" + strconv.Itoa(i)
			if visible[key] {
				hand[i] = p.Hand[i]
			} else {
				hand[i] = hiddenCard
			}
		}
		out.Players = append(out.Players, redactedPlayerSnapshot{
			ID: p.ID, Name: p.Name, Hand: hand, HasCalledCabo: p.HasCalledCabo,
		})
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: marshal redacted snapshot: %w", err)
	}
	return payload, nil
}

func checkpointFrom(s *engine.State, streamPosition string, completeState []byte) eventlog.Checkpoint {
	return eventlog.Checkpoint{
		StreamPosition: streamPosition,
		Phase:          s.Phase.String(),
		CompleteState:  completeState,
		CreatedAt:      time.Now(),
	}
}
