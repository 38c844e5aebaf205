package engine

import "cabo-server/cards"

// PlayerView is what one player is allowed to know about one seat
// (possibly their own). VisibleCards is only populated on the viewer's
// own entry — the slots anyone's special actions have revealed to them,
// across every seat at the table, per VisKey.
type PlayerView struct {
	PlayerID      string
	Name          string
	HandSize      int
	HasCalledCabo bool
	VisibleCards  []VisibleCard
}

// VisibleCard names one slot a player currently knows the contents of.
type VisibleCard struct {
	OwnerID string
	Index   int
	Card    cards.Card
}

// SpecialActionView exposes who is mid special-action and which kind, so
// clients know whether to render the action's UI prompt.
type SpecialActionView struct {
	PlayerID string
	Kind     SpecialActionKind
}

// View is the state.go projection handed to one specific viewer: every
// hand is present only as a size, except the viewer's own revealed slots.
type View struct {
	GameID         string
	Phase          Phase
	CurrentPlayer  string
	Players        []PlayerView
	DeckSize       int
	DiscardTop     *cards.Card
	DrawnCard      *cards.Card // only set if viewer is the current player and holds a drawn card
	StackCaller    string
	CaboCaller     string
	Winner         string
	SpecialAction  *SpecialActionView
}

// BuildView renders state from the perspective of viewerID. It never
// exposes a card the viewer has no standing to know, which is the
// server-authority property the whole engine exists to enforce.
func (s *State) BuildView(viewerID string) View {
	v := View{
		GameID:        s.GameID,
		Phase:         s.Phase,
		CurrentPlayer: s.currentPlayer().ID,
		DeckSize:      s.Deck.Size(),
		StackCaller:   s.StackCaller,
		CaboCaller:    s.CaboCaller,
		Winner:        s.Winner,
	}

	if len(s.DiscardPile) > 0 {
		top := s.DiscardPile[len(s.DiscardPile)-1]
		v.DiscardTop = &top
	}

	if s.DrawnCard != nil && viewerID == s.currentPlayer().ID {
		v.DrawnCard = s.DrawnCard
	}

	if s.SpecialActionPlayer != "" {
		v.SpecialAction = &SpecialActionView{PlayerID: s.SpecialActionPlayer, Kind: s.SpecialActionType}
	}

	for _, p := range s.Players {
		pv := PlayerView{
			PlayerID:      p.ID,
			Name:          p.Name,
			HandSize:      len(p.Hand),
			HasCalledCabo: p.HasCalledCabo,
		}
		if p.ID == viewerID {
			for _, key := range s.Visible.visibleSlots(viewerID) {
				owner := s.playerByID(key.OwnerID)
				if owner == nil || key.Index < 0 || key.Index >= len(owner.Hand) {
					continue
				}
				pv.VisibleCards = append(pv.VisibleCards, VisibleCard{
					OwnerID: key.OwnerID,
					Index:   key.Index,
					Card:    owner.Hand[key.Index],
				})
			}
		}
		v.Players = append(v.Players, pv)
	}

	return v
}
