package engine

func (s *State) handleCallCabo(msg Message) (Result, error) {
	if s.Phase != PhasePlaying && s.Phase != PhaseWaitingForSpecialAction {
		return reject("wrong_phase", "cannot call cabo in current phase")
	}
	if s.currentPlayer().ID != msg.PlayerID {
		return reject("wrong_turn", "not your turn")
	}
	if s.DrawnCard != nil {
		return reject("already_drawn", "cannot call cabo after drawing a card")
	}
	if s.IsCaboCalled() {
		return reject("already_called", "cabo already called")
	}

	player := s.currentPlayer()
	player.HasCalledCabo = true
	s.CaboCaller = msg.PlayerID
	s.FinalRoundStarted = true

	return okCheckpointNext([]Message{{Type: MsgNextTurn}}, newEvent("cabo_called", map[string]any{
		"player":    player.Name,
		"player_id": msg.PlayerID,
	}))
}

func (s *State) handleNextTurn(msg Message) (Result, error) {
	if s.IsCaboCalled() {
		nextIndex := (s.CurrentPlayerIndex + 1) % len(s.Players)
		callerIndex := s.indexOfPlayer(s.CaboCaller)
		if nextIndex == callerIndex {
			return okNext([]Message{{Type: MsgEndGame}})
		}
	}

	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
	s.Phase = PhasePlaying
	s.DrawnCard = nil
	s.PlayedCard = nil

	return okCheckpoint(newEvent("turn_changed", map[string]any{
		"current_player":      s.currentPlayer().ID,
		"current_player_name": s.currentPlayer().Name,
	}))
}

func (s *State) indexOfPlayer(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) handleEndGame(msg Message) (Result, error) {
	s.Phase = PhaseEnded

	type scored struct {
		id, name string
		score    int
	}
	scores := make([]scored, len(s.Players))
	for i, p := range s.Players {
		scores[i] = scored{id: p.ID, name: p.Name, score: p.Score()}
	}
	for i := 1; i < len(scores); i++ {
		for j := i; j > 0 && scores[j].score < scores[j-1].score; j-- {
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}

	s.Winner = scores[0].id

	finalScores := make([]map[string]any, len(scores))
	for i, sc := range scores {
		finalScores[i] = map[string]any{"player_id": sc.id, "name": sc.name, "score": sc.score}
	}

	return okCheckpoint(newEvent("game_ended", map[string]any{
		"winner_id":    scores[0].id,
		"winner_name":  scores[0].name,
		"final_scores": finalScores,
	}))
}

func (s *State) handleSetupTimeout(msg Message) (Result, error) {
	if msg.TimeoutID != s.SetupTimerID {
		return Result{}, nil
	}
	s.SetupTimerID = ""
	s.Visible.clear()
	s.CurrentPlayerIndex = s.startingPlayerIndex()
	s.Phase = PhasePlaying

	return okCheckpoint(newEvent("game_phase_changed", map[string]any{
		"phase":                s.Phase.String(),
		"current_player":       s.currentPlayer().ID,
		"current_player_name":  s.currentPlayer().Name,
	}))
}

func (s *State) handleTurnTransitionTimeout(msg Message) (Result, error) {
	if msg.TimeoutID != s.TurnTransitionTimerID {
		return Result{}, nil
	}
	s.TurnTransitionTimerID = ""
	s.Visible.clear()
	return okNext([]Message{{Type: MsgNextTurn}})
}
