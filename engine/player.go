package engine

import "cabo-server/cards"

// Player is one seat at the table. Hand order is meaningful: special
// actions and Stack address cards by index, and a swap replaces a slot in
// place rather than moving cards around.
type Player struct {
	ID            string
	Name          string
	Hand          []cards.Card
	HasCalledCabo bool
}

func newPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name, Hand: make([]cards.Card, 0, 4)}
}

func (p *Player) addCard(c cards.Card) {
	p.Hand = append(p.Hand, c)
}

// replaceCard swaps in newCard at index and returns the card it displaced.
func (p *Player) replaceCard(index int, newCard cards.Card) cards.Card {
	old := p.Hand[index]
	p.Hand[index] = newCard
	return old
}

// removeCard deletes the card at index, as Stack does when a self-stack
// succeeds (the card leaves the hand for the discard pile).
func (p *Player) removeCard(index int) cards.Card {
	c := p.Hand[index]
	p.Hand = append(p.Hand[:index], p.Hand[index+1:]...)
	return c
}

// Score is the player's point total, used to determine the round winner
// once the game ends.
func (p *Player) Score() int {
	return cards.Score(p.Hand)
}
