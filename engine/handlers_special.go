package engine

import "github.com/google/uuid"

// afterSpecialAction is the shared transition that runs once a special
// action resolves (player completed it, or it timed out): if someone
// called Stack while the action was pending, Stack now gets its window;
// otherwise the turn moves into its normal transition delay.
func (s *State) afterSpecialAction() []Event {
	if s.StackCaller != "" {
		s.Phase = PhaseStackCalled
		s.StackTimerID = uuid.NewString()
		return nil
	}
	s.Phase = PhaseTurnTransition
	s.TurnTransitionTimerID = uuid.NewString()
	return []Event{newEvent("game_phase_changed", map[string]any{
		"phase":          s.Phase.String(),
		"current_player": s.currentPlayer().ID,
	})}
}

func (s *State) clearSpecialActionState() {
	s.SpecialActionPlayer = ""
	s.SpecialActionType = SpecialActionNone
	s.SpecialActionTimerID = ""
}

func (s *State) clearKingState() {
	s.KingViewedCard = nil
	s.KingViewedPlayer = ""
	s.KingViewedIndex = 0
}

func (s *State) handleViewOwnCard(msg Message) (Result, error) {
	if s.SpecialActionPlayer != msg.PlayerID {
		return reject("not_your_action", "not your special action")
	}
	if s.SpecialActionType != SpecialActionViewOwn {
		return reject("wrong_action", "not in view own phase")
	}
	if s.Phase != PhaseWaitingForSpecialAction {
		return reject("wrong_phase", "not in special action phase")
	}
	player := s.playerByID(msg.PlayerID)
	if player == nil {
		return reject("unknown_player", "player not found")
	}
	if msg.CardIndex < 0 || msg.CardIndex >= len(player.Hand) {
		return reject("bad_index", "invalid card index")
	}

	s.Visible.reveal(player.ID, player.ID, msg.CardIndex)
	viewedCard := player.Hand[msg.CardIndex]
	s.clearSpecialActionState()
	events := append([]Event{newPrivateEvent("card_viewed", map[string]any{
		"player": player.Name,
		"card":   viewedCard.String(),
	}, player.ID)}, s.afterSpecialAction()...)
	return ok(events...)
}

func (s *State) handleViewOpponentCard(msg Message) (Result, error) {
	if s.SpecialActionPlayer != msg.PlayerID {
		return reject("not_your_action", "not your special action")
	}
	if s.SpecialActionType != SpecialActionViewOpponent {
		return reject("wrong_action", "not in view opponent phase")
	}
	if s.Phase != PhaseWaitingForSpecialAction {
		return reject("wrong_phase", "not in special action phase")
	}
	if msg.TargetPlayerID == msg.PlayerID {
		return reject("bad_target", "cannot target yourself")
	}
	target := s.playerByID(msg.TargetPlayerID)
	if target == nil {
		return reject("unknown_player", "target player not found")
	}
	if msg.CardIndex < 0 || msg.CardIndex >= len(target.Hand) {
		return reject("bad_index", "invalid card index")
	}

	viewer := s.playerByID(msg.PlayerID)
	viewedCard := target.Hand[msg.CardIndex]
	s.Visible.reveal(msg.PlayerID, msg.TargetPlayerID, msg.CardIndex)
	s.clearSpecialActionState()
	events := append([]Event{newPrivateEvent("opponent_card_viewed", map[string]any{
		"viewer": viewer.Name,
		"target": target.Name,
		"card":   viewedCard.String(),
	}, msg.PlayerID)}, s.afterSpecialAction()...)
	return ok(events...)
}

func (s *State) handleSwapCards(msg Message) (Result, error) {
	if s.SpecialActionPlayer != msg.PlayerID {
		return reject("not_your_action", "not your special action")
	}
	if s.SpecialActionType != SpecialActionSwapOpponent {
		return reject("wrong_action", "not in swap opponent phase")
	}
	if s.Phase != PhaseWaitingForSpecialAction {
		return reject("wrong_phase", "not in special action phase")
	}
	if msg.TargetPlayerID == msg.PlayerID {
		return reject("bad_target", "cannot swap with yourself")
	}
	player := s.playerByID(msg.PlayerID)
	target := s.playerByID(msg.TargetPlayerID)
	if player == nil || target == nil {
		return reject("unknown_player", "player not found")
	}
	if msg.OwnIndex < 0 || msg.OwnIndex >= len(player.Hand) {
		return reject("bad_index", "invalid own card index")
	}
	if msg.TargetIndex < 0 || msg.TargetIndex >= len(target.Hand) {
		return reject("bad_index", "invalid target card index")
	}

	playerCard := player.Hand[msg.OwnIndex]
	targetCard := target.Hand[msg.TargetIndex]
	player.Hand[msg.OwnIndex] = targetCard
	target.Hand[msg.TargetIndex] = playerCard

	s.clearSpecialActionState()
	// A blind swap: neither player learns what they just traded away or
	// received, so the card fields go out to nobody.
	events := append([]Event{newPrivateEvent("cards_swapped", map[string]any{
		"player":      player.Name,
		"target":      target.Name,
		"player_card": playerCard.String(),
		"target_card": targetCard.String(),
	})}, s.afterSpecialAction()...)
	return ok(events...)
}

func (s *State) handleSpecialActionTimeout(msg Message) (Result, error) {
	if msg.TimeoutID != s.SpecialActionTimerID {
		return Result{}, nil
	}
	s.clearSpecialActionState()
	s.clearKingState()
	events := append([]Event{newEvent("special_action_timeout", nil)}, s.afterSpecialAction()...)
	return ok(events...)
}
