package engine

import (
	"github.com/google/uuid"

	"cabo-server/cards"
)

func (s *State) handleDrawCard(msg Message) (Result, error) {
	if s.Phase != PhasePlaying {
		return reject("wrong_phase", "game not in playing phase")
	}
	if s.currentPlayer().ID != msg.PlayerID {
		return reject("wrong_turn", "not your turn")
	}
	if s.DrawnCard != nil {
		return reject("already_drawn", "card already drawn this turn")
	}

	card, drew := s.tryDraw()
	if !drew {
		return reject("deck_empty", "deck is empty")
	}
	s.DrawnCard = cardPtr(card)

	return ok(newPrivateEvent("card_drawn", map[string]any{
		"player_id": msg.PlayerID,
		"card":      card.String(),
	}, msg.PlayerID))
}

// afterCardPlayed is the shared tail of play_drawn_card and
// replace_and_play: both discard a card and then either enter a special
// action phase (if the discarded card is special) or start the turn
// transition timer.
func (s *State) afterCardPlayed(played cards.Card, playerID string, baseEvent Event) (Result, error) {
	events := []Event{baseEvent}

	if !played.IsSpecial() {
		s.Phase = PhaseTurnTransition
		s.TurnTransitionTimerID = uuid.NewString()
		events = append(events, newEvent("game_phase_changed", map[string]any{
			"phase":          s.Phase.String(),
			"current_player": s.currentPlayer().ID,
		}))
		return ok(events...)
	}

	s.SpecialActionPlayer = playerID
	s.SpecialActionTimerID = uuid.NewString()

	if played.Rank == cards.King {
		s.Phase = PhaseKingViewPhase
		events = append(events, newEvent("game_phase_changed", map[string]any{
			"phase":          s.Phase.String(),
			"current_player": s.currentPlayer().ID,
		}))
		return ok(events...)
	}

	s.Phase = PhaseWaitingForSpecialAction
	s.SpecialActionType = specialActionKindFor(played)
	events = append(events, newEvent("game_phase_changed", map[string]any{
		"phase":               s.Phase.String(),
		"current_player":      s.currentPlayer().ID,
		"special_action_type": string(s.SpecialActionType),
	}))
	return ok(events...)
}

func specialActionKindFor(c cards.Card) SpecialActionKind {
	switch c.Kind() {
	case cards.SpecialViewOwn:
		return SpecialActionViewOwn
	case cards.SpecialViewOpponent:
		return SpecialActionViewOpponent
	case cards.SpecialBlindSwap:
		return SpecialActionSwapOpponent
	case cards.SpecialKing:
		return SpecialActionKingEffect
	default:
		return SpecialActionNone
	}
}

func (s *State) handlePlayDrawnCard(msg Message) (Result, error) {
	if s.DrawnCard == nil {
		return reject("no_drawn_card", "no card drawn")
	}
	if s.currentPlayer().ID != msg.PlayerID {
		return reject("wrong_turn", "not your turn")
	}

	card := *s.DrawnCard
	s.PlayedCard = cardPtr(card)
	s.DrawnCard = nil
	s.DiscardPile = append(s.DiscardPile, card)

	base := newEvent("card_played", map[string]any{
		"player_id":      msg.PlayerID,
		"card":           card.String(),
		"special_effect": card.IsSpecial(),
	})
	return s.afterCardPlayed(card, msg.PlayerID, base)
}

func (s *State) handleReplaceAndPlay(msg Message) (Result, error) {
	if s.DrawnCard == nil {
		return reject("no_drawn_card", "no card drawn")
	}
	player := s.currentPlayer()
	if player.ID != msg.PlayerID {
		return reject("wrong_turn", "not your turn")
	}
	if msg.HandIndex < 0 || msg.HandIndex >= len(player.Hand) {
		return reject("bad_index", "invalid hand index")
	}

	oldCard := player.replaceCard(msg.HandIndex, *s.DrawnCard)
	s.PlayedCard = cardPtr(oldCard)
	s.DrawnCard = nil
	s.DiscardPile = append(s.DiscardPile, oldCard)
	s.Visible.reveal(player.ID, player.ID, msg.HandIndex)

	base := newEvent("card_replaced_and_played", map[string]any{
		"player_id":      msg.PlayerID,
		"played_card":    oldCard.String(),
		"hand_index":     msg.HandIndex,
		"special_effect": oldCard.IsSpecial(),
	})
	return s.afterCardPlayed(oldCard, msg.PlayerID, base)
}
