package engine

import (
	"math/rand"

	"github.com/google/uuid"

	"cabo-server/cards"
)

// State is the entire mutable world of one game: seats, deck, discard
// pile, and every piece of phase bookkeeping. It is exactly what the
// durable game store persists and restores — there is no hidden state
// anywhere else in the engine.
type State struct {
	GameID string

	Phase              Phase
	Players            []*Player
	CurrentPlayerIndex int

	Deck        *cards.Deck
	DiscardPile []cards.Card

	DrawnCard  *cards.Card
	PlayedCard *cards.Card

	StackCaller   string
	StackTimerID  string

	SpecialActionPlayer  string
	SpecialActionType    SpecialActionKind
	SpecialActionTimerID string

	KingViewedCard   *cards.Card
	KingViewedPlayer string
	KingViewedIndex  int

	TurnTransitionTimerID string
	SetupTimerID          string

	CaboCaller        string
	FinalRoundStarted bool
	Winner            string

	Visible visibility
}

// NewGame deals a fresh hand to each seat, seeds the setup-phase
// visibility (each player can see their own first two cards), and returns
// the state ready for the orchestrator to arm the setup timer on.
func NewGame(gameID string, playerIDs, playerNames []string) *State {
	if len(playerIDs) != len(playerNames) {
		panic("engine: playerIDs and playerNames length mismatch")
	}

	s := &State{
		GameID:  gameID,
		Phase:   PhaseSetup,
		Deck:    cards.NewShuffledDeck(),
		Visible: newVisibility(),
	}

	for i, id := range playerIDs {
		s.Players = append(s.Players, newPlayer(id, playerNames[i]))
	}

	for _, p := range s.Players {
		for i := 0; i < 4; i++ {
			p.addCard(s.Deck.Draw())
		}
	}

	for _, p := range s.Players {
		s.Visible.reveal(p.ID, p.ID, 0)
		s.Visible.reveal(p.ID, p.ID, 1)
	}

	s.SetupTimerID = uuid.NewString()

	return s
}

// InitialEvent is the event the orchestrator should broadcast immediately
// after constructing a new game, once it has armed the setup timer.
func (s *State) InitialEvent(setupSeconds int) Event {
	return newEvent("game_started", map[string]any{
		"phase":              s.Phase.String(),
		"setup_time_seconds": setupSeconds,
	})
}

// IsCaboCalled reports whether the final round has started.
func (s *State) IsCaboCalled() bool {
	return s.CaboCaller != ""
}

func (s *State) currentPlayer() *Player {
	return s.Players[s.CurrentPlayerIndex]
}

func (s *State) playerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// tryDraw draws from the deck, returning the zero card and false if it's
// empty. A deck reaching zero is a dead end for the rest of the round,
// not a trigger to rebuild it from the discard pile.
func (s *State) tryDraw() (cards.Card, bool) {
	if s.Deck.Size() == 0 {
		return cards.Card{}, false
	}
	return s.Deck.Draw(), true
}

func (s *State) startingPlayerIndex() int {
	return rand.Intn(len(s.Players))
}

func cardPtr(c cards.Card) *cards.Card {
	return &c
}
