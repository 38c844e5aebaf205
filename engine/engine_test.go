package engine

import (
	"testing"

	"cabo-server/cards"
)

func newTestGame(t *testing.T) *State {
	t.Helper()
	s := NewGame("game-1", []string{"p0", "p1"}, []string{"Alice", "Bob"})
	s.CurrentPlayerIndex = 0
	return s
}

func TestDrawCardRejectsWrongTurn(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	_, err := Step(s, Message{Type: MsgDrawCard, PlayerID: "p1"})
	if !IsActionError(err) {
		t.Fatalf("expected ActionError, got %v", err)
	}
	if s.DrawnCard != nil {
		t.Fatal("state mutated on rejected action")
	}
}

func TestDrawThenPlayNonSpecialEntersTurnTransition(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	// Force a known, non-special top-of-deck card.
	s.Deck = cards.NewDeckFromCards([]cards.Card{cards.NewCard(cards.Five, cards.Spades)})

	res, err := Step(s, Message{Type: MsgDrawCard, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if s.DrawnCard == nil || s.DrawnCard.Rank != cards.Five {
		t.Fatalf("expected drawn Five, got %v", s.DrawnCard)
	}
	if len(res.Events) != 1 || res.Events[0].Type != "card_drawn" {
		t.Fatalf("unexpected events: %+v", res.Events)
	}

	res, err = Step(s, Message{Type: MsgPlayDrawnCard, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if s.Phase != PhaseTurnTransition {
		t.Fatalf("phase = %v, want turn_transition", s.Phase)
	}
	if s.TurnTransitionTimerID == "" {
		t.Fatal("expected a turn transition timer id to be set")
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected card_played + game_phase_changed, got %+v", res.Events)
	}
}

func TestPlaySevenEntersWaitingForSpecialAction(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.DrawnCard = &cards.Card{Rank: cards.Seven, Suit: cards.Clubs}

	_, err := Step(s, Message{Type: MsgPlayDrawnCard, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if s.Phase != PhaseWaitingForSpecialAction {
		t.Fatalf("phase = %v, want waiting_for_special_action", s.Phase)
	}
	if s.SpecialActionType != SpecialActionViewOwn {
		t.Fatalf("special action type = %v, want view_own", s.SpecialActionType)
	}
	if s.SpecialActionPlayer != "p0" {
		t.Fatalf("special action player = %q, want p0", s.SpecialActionPlayer)
	}
}

func TestPlayKingEntersKingViewPhase(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.DrawnCard = &cards.Card{Rank: cards.King, Suit: cards.Spades}

	_, err := Step(s, Message{Type: MsgPlayDrawnCard, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if s.Phase != PhaseKingViewPhase {
		t.Fatalf("phase = %v, want king_view_phase", s.Phase)
	}

	_, err = Step(s, Message{Type: MsgKingViewCard, PlayerID: "p0", TargetPlayerID: "p1", CardIndex: 0})
	if err != nil {
		t.Fatalf("king view: %v", err)
	}
	if s.Phase != PhaseKingSwapPhase {
		t.Fatalf("phase = %v, want king_swap_phase", s.Phase)
	}
	if !s.Visible.canSee("p0", "p1", 0) {
		t.Fatal("viewer should now see the viewed slot")
	}

	_, err = Step(s, Message{Type: MsgKingSkipSwap, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("king skip: %v", err)
	}
	if s.SpecialActionPlayer != "" {
		t.Fatal("special action state should be cleared")
	}
}

func TestStackSuccessSelfDiscardsAndAdvancesTurn(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.PlayedCard = &cards.Card{Rank: cards.Five, Suit: cards.Hearts}
	s.Players[1].Hand = []cards.Card{cards.NewCard(cards.Five, cards.Clubs)}

	_, err := Step(s, Message{Type: MsgCallStack, PlayerID: "p1"})
	if err != nil {
		t.Fatalf("call stack: %v", err)
	}
	if s.Phase != PhaseStackCalled {
		t.Fatalf("phase = %v, want stack_called", s.Phase)
	}

	res, err := Step(s, Message{Type: MsgExecuteStack, PlayerID: "p1", CardIndex: 0})
	if err != nil {
		t.Fatalf("execute stack: %v", err)
	}
	if len(s.Players[1].Hand) != 0 {
		t.Fatalf("hand should be empty after self-stack, got %v", s.Players[1].Hand)
	}
	if len(res.Next) != 1 || res.Next[0].Type != MsgNextTurn {
		t.Fatalf("expected a follow-up next_turn message, got %+v", res.Next)
	}
}

func TestStackFailurePenalizesCaller(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.PlayedCard = &cards.Card{Rank: cards.Five, Suit: cards.Hearts}
	s.Players[1].Hand = []cards.Card{cards.NewCard(cards.Nine, cards.Clubs)}
	s.Deck = cards.NewDeckFromCards([]cards.Card{cards.NewCard(cards.Two, cards.Diamonds)})

	if _, err := Step(s, Message{Type: MsgCallStack, PlayerID: "p1"}); err != nil {
		t.Fatalf("call stack: %v", err)
	}
	if _, err := Step(s, Message{Type: MsgExecuteStack, PlayerID: "p1", CardIndex: 0}); err != nil {
		t.Fatalf("execute stack: %v", err)
	}
	if len(s.Players[1].Hand) != 2 {
		t.Fatalf("expected penalty card added, hand = %v", s.Players[1].Hand)
	}
}

func TestCaboEndsGameOnReturnToCaller(t *testing.T) {
	s := NewGame("game-2", []string{"p0", "p1", "p2"}, []string{"A", "B", "C"})
	s.Phase = PhasePlaying
	s.CurrentPlayerIndex = 0

	if _, err := Step(s, Message{Type: MsgCallCabo, PlayerID: "p0"}); err != nil {
		t.Fatalf("call cabo: %v", err)
	}
	if !s.IsCaboCalled() {
		t.Fatal("expected cabo called")
	}

	// p1's turn, then p2's turn, then back to p0 (the caller) should end the game.
	if _, err := Step(s, Message{Type: MsgNextTurn}); err != nil {
		t.Fatalf("next turn: %v", err)
	}
	if s.Phase == PhaseEnded {
		t.Fatal("game ended too early")
	}
	if _, err := Step(s, Message{Type: MsgNextTurn}); err != nil {
		t.Fatalf("next turn: %v", err)
	}
	res, err := Step(s, Message{Type: MsgNextTurn})
	if err != nil {
		t.Fatalf("next turn: %v", err)
	}
	if len(res.Next) != 1 || res.Next[0].Type != MsgEndGame {
		t.Fatalf("expected end_game follow-up, got %+v", res.Next)
	}
	if _, err := Step(s, res.Next[0]); err != nil {
		t.Fatalf("end game: %v", err)
	}
	if s.Phase != PhaseEnded {
		t.Fatalf("phase = %v, want ended", s.Phase)
	}
	if s.Winner == "" {
		t.Fatal("expected a winner to be set")
	}
}

func TestStaleTimeoutIsIgnored(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.PlayedCard = &cards.Card{Rank: cards.Five, Suit: cards.Hearts}

	if _, err := Step(s, Message{Type: MsgCallStack, PlayerID: "p1"}); err != nil {
		t.Fatalf("call stack: %v", err)
	}
	staleID := "not-" + s.StackTimerID

	res, err := Step(s, Message{Type: MsgStackTimeout, TimeoutID: staleID})
	if err != nil {
		t.Fatalf("stale timeout should not error: %v", err)
	}
	if len(res.Events) != 0 || len(res.Next) != 0 {
		t.Fatalf("stale timeout should be a no-op, got %+v", res)
	}
	if s.Phase != PhaseStackCalled {
		t.Fatal("stale timeout must not have altered the phase")
	}
}

func TestBuildViewHidesOtherPlayersHands(t *testing.T) {
	s := newTestGame(t)
	view := s.BuildView("p0")
	for _, pv := range view.Players {
		if pv.PlayerID == "p1" && len(pv.VisibleCards) != 0 {
			t.Fatal("p0 should not see p1's cards without an explicit reveal")
		}
		if pv.PlayerID == "p0" && len(pv.VisibleCards) != 2 {
			t.Fatalf("p0 should see their own first two setup cards, got %d", len(pv.VisibleCards))
		}
	}
}

func TestDrawCardRejectsEmptyDeckWithoutReshuffling(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.Deck = cards.NewDeckFromCards(nil)
	s.DiscardPile = []cards.Card{cards.NewCard(cards.Three, cards.Hearts), cards.NewCard(cards.Four, cards.Clubs)}

	_, err := Step(s, Message{Type: MsgDrawCard, PlayerID: "p0"})
	if !IsActionError(err) {
		t.Fatalf("expected ActionError, got %v", err)
	}
	if s.Deck.Size() != 0 {
		t.Fatalf("deck size = %d, want 0 (no reshuffle from discard)", s.Deck.Size())
	}
	if len(s.DiscardPile) != 2 {
		t.Fatalf("discard pile should be untouched, got %v", s.DiscardPile)
	}
}

func TestViewOwnCardRejectsWrongSpecialActionType(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhaseWaitingForSpecialAction
	s.SpecialActionPlayer = "p0"
	s.SpecialActionType = SpecialActionViewOpponent

	_, err := Step(s, Message{Type: MsgViewOwnCard, PlayerID: "p0", CardIndex: 0})
	if !IsActionError(err) {
		t.Fatalf("expected ActionError, got %v", err)
	}
	if len(s.Visible.visibleSlots("p0")) != 2 {
		t.Fatal("rejected view_own must not grant visibility")
	}
}

func TestSwapCardsRejectsWrongSpecialActionType(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhaseWaitingForSpecialAction
	s.SpecialActionPlayer = "p0"
	s.SpecialActionType = SpecialActionViewOwn
	before := s.Players[1].Hand[0]

	_, err := Step(s, Message{Type: MsgSwapCards, PlayerID: "p0", OwnIndex: 0, TargetPlayerID: "p1", TargetIndex: 0})
	if !IsActionError(err) {
		t.Fatalf("expected ActionError, got %v", err)
	}
	if s.Players[1].Hand[0] != before {
		t.Fatal("rejected swap must not move any cards")
	}
}

func TestReplaceAndPlayRevealsTheReplacedSlotToItsOwner(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.DrawnCard = &cards.Card{Rank: cards.Five, Suit: cards.Spades}

	if _, err := Step(s, Message{Type: MsgReplaceAndPlay, PlayerID: "p0", HandIndex: 1}); err != nil {
		t.Fatalf("replace and play: %v", err)
	}
	if !s.Visible.canSee("p0", "p0", 1) {
		t.Fatal("p0 should now see the card they just placed at index 1")
	}
}

func TestCardDrawnEventIsPrivateToTheDrawer(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhasePlaying
	s.Deck = cards.NewDeckFromCards([]cards.Card{cards.NewCard(cards.Five, cards.Spades)})

	res, err := Step(s, Message{Type: MsgDrawCard, PlayerID: "p0"})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(res.Events[0].VisibleTo) != 1 || res.Events[0].VisibleTo[0] != "p0" {
		t.Fatalf("card_drawn VisibleTo = %v, want [p0]", res.Events[0].VisibleTo)
	}
}

func TestBlindSwapEventIsVisibleToNobody(t *testing.T) {
	s := newTestGame(t)
	s.Phase = PhaseWaitingForSpecialAction
	s.SpecialActionPlayer = "p0"
	s.SpecialActionType = SpecialActionSwapOpponent

	res, err := Step(s, Message{Type: MsgSwapCards, PlayerID: "p0", OwnIndex: 0, TargetPlayerID: "p1", TargetIndex: 0})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.Events[0].VisibleTo == nil || len(res.Events[0].VisibleTo) != 0 {
		t.Fatalf("cards_swapped VisibleTo = %v, want empty slice", res.Events[0].VisibleTo)
	}
}
