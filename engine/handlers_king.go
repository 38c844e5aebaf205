package engine

// handleKingViewCard is King's first stage: the player who played a King
// may look at any single card on the table (their own or an opponent's)
// before deciding whether to swap it into their own hand.
func (s *State) handleKingViewCard(msg Message) (Result, error) {
	if s.SpecialActionPlayer != msg.PlayerID {
		return reject("not_your_action", "not your special action")
	}
	if s.Phase != PhaseKingViewPhase {
		return reject("wrong_phase", "not in king view phase")
	}
	target := s.playerByID(msg.TargetPlayerID)
	if target == nil {
		return reject("unknown_player", "target player not found")
	}
	if msg.CardIndex < 0 || msg.CardIndex >= len(target.Hand) {
		return reject("bad_index", "invalid card index")
	}

	viewer := s.playerByID(msg.PlayerID)
	viewed := target.Hand[msg.CardIndex]
	s.KingViewedCard = cardPtr(viewed)
	s.KingViewedPlayer = msg.TargetPlayerID
	s.KingViewedIndex = msg.CardIndex
	s.Visible.reveal(msg.PlayerID, msg.TargetPlayerID, msg.CardIndex)
	s.Phase = PhaseKingSwapPhase

	return ok(newPrivateEvent("king_card_viewed", map[string]any{
		"viewer": viewer.Name,
		"target": target.Name,
		"card":   viewed.String(),
	}, msg.PlayerID))
}

// handleKingSwapCards is King's optional second stage: swap the viewed
// card into the King-player's hand at own_index. target_player_id and
// target_index must name the exact slot just viewed.
func (s *State) handleKingSwapCards(msg Message) (Result, error) {
	if s.SpecialActionPlayer != msg.PlayerID {
		return reject("not_your_action", "not your special action")
	}
	if s.Phase != PhaseKingSwapPhase {
		return reject("wrong_phase", "not in king swap phase")
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
	if msg.TargetPlayerID != s.KingViewedPlayer || msg.TargetIndex != s.KingViewedIndex {
		return reject("bad_target", "can only swap the card just viewed")
	}

	playerCard := player.Hand[msg.OwnIndex]
	targetCard := target.Hand[msg.TargetIndex]
	player.Hand[msg.OwnIndex] = targetCard
	target.Hand[msg.TargetIndex] = playerCard

	s.clearKingState()
	s.clearSpecialActionState()
	events := append([]Event{newPrivateEvent("king_cards_swapped", map[string]any{
		"player":      player.Name,
		"target":      target.Name,
		"player_card": playerCard.String(),
		"target_card": targetCard.String(),
	}, msg.PlayerID)}, s.afterSpecialAction()...)
	return ok(events...)
}

func (s *State) handleKingSkipSwap(msg Message) (Result, error) {
	if s.SpecialActionPlayer != msg.PlayerID {
		return reject("not_your_action", "not your special action")
	}
	if s.Phase != PhaseKingSwapPhase {
		return reject("wrong_phase", "not in king swap phase")
	}
	player := s.playerByID(msg.PlayerID)

	s.clearKingState()
	s.clearSpecialActionState()
	events := append([]Event{newEvent("king_swap_skipped", map[string]any{
		"player": player.Name,
	})}, s.afterSpecialAction()...)
	return ok(events...)
}
