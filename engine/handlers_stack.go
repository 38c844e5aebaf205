package engine

import "github.com/google/uuid"

// handleCallStack is Stack's first phase: any player may call it the
// instant a card hits the discard pile, racing to match its rank. Calling
// during a special-action or King phase only reserves the caller's spot —
// the phase doesn't change until the special action resolves.
func (s *State) handleCallStack(msg Message) (Result, error) {
	if s.PlayedCard == nil {
		return reject("nothing_to_stack", "no card to stack on")
	}
	if s.Phase == PhaseStackCalled || s.StackCaller != "" {
		return reject("already_called", "another player already called stack")
	}
	player := s.playerByID(msg.PlayerID)
	if player == nil {
		return reject("unknown_player", "player not found")
	}

	event := newEvent("stack_called", map[string]any{
		"caller":      player.Name,
		"caller_id":   msg.PlayerID,
		"target_card": s.PlayedCard.String(),
	})

	switch s.Phase {
	case PhaseWaitingForSpecialAction, PhaseKingViewPhase, PhaseKingSwapPhase:
		s.StackCaller = msg.PlayerID
		return ok(event)
	default:
		s.Phase = PhaseStackCalled
		s.StackCaller = msg.PlayerID
		s.StackTimerID = uuid.NewString()
		s.TurnTransitionTimerID = ""
		return ok(event)
	}
}

// handleExecuteStack is Stack's second phase: the caller nominates a card
// from their own hand and, if it matches, either discards it (self-stack)
// or hands it to an opponent (target_player_id set). A mismatch costs the
// caller a penalty draw.
func (s *State) handleExecuteStack(msg Message) (Result, error) {
	if s.StackCaller != msg.PlayerID {
		return reject("not_your_stack", "you did not call stack")
	}
	if s.Phase != PhaseStackCalled {
		return reject("wrong_phase", "not in stack phase")
	}
	player := s.playerByID(msg.PlayerID)
	if player == nil {
		return reject("unknown_player", "player not found")
	}
	if msg.CardIndex < 0 || msg.CardIndex >= len(player.Hand) {
		return reject("bad_index", "invalid card index")
	}
	var target *Player
	if msg.TargetPlayerID != "" {
		if target = s.playerByID(msg.TargetPlayerID); target == nil {
			return reject("unknown_player", "target player not found")
		}
	}

	stackCard := player.Hand[msg.CardIndex]
	playedCard := *s.PlayedCard
	s.clearStackState()

	next := []Message{{Type: MsgNextTurn}}

	if stackCard.Rank != playedCard.Rank {
		drew := false
		if card, okDraw := s.tryDraw(); okDraw {
			player.addCard(card)
			drew = true
		}
		return okNext(next, newEvent("stack_failed", map[string]any{
			"player":          player.Name,
			"attempted_card":  stackCard.String(),
			"penalty":         drew,
		}))
	}

	if msg.TargetPlayerID == "" {
		player.removeCard(msg.CardIndex)
		s.DiscardPile = append(s.DiscardPile, stackCard)
		return okNext(next, newEvent("stack_success", map[string]any{
			"type":            "self_stack",
			"player":          player.Name,
			"discarded_card":  stackCard.String(),
		}))
	}

	player.removeCard(msg.CardIndex)
	target.addCard(stackCard)
	return okNext(next, newEvent("stack_success", map[string]any{
		"type":        "opponent_stack",
		"player":      player.Name,
		"target":      target.Name,
		"given_card":  stackCard.String(),
	}))
}

func (s *State) handleStackTimeout(msg Message) (Result, error) {
	if msg.TimeoutID != s.StackTimerID {
		return Result{}, nil
	}
	if s.Phase != PhaseStackCalled {
		return Result{}, nil
	}

	caller := s.playerByID(s.StackCaller)
	name := "unknown"
	drew := false
	if caller != nil {
		name = caller.Name
		if card, okDraw := s.tryDraw(); okDraw {
			caller.addCard(card)
			drew = true
		}
	}
	s.clearStackState()

	return okNext([]Message{{Type: MsgNextTurn}}, newEvent("stack_timeout", map[string]any{
		"player":  name,
		"penalty": drew,
	}))
}

func (s *State) clearStackState() {
	s.StackCaller = ""
	s.StackTimerID = ""
	s.Phase = PhasePlaying
}
