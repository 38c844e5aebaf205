package cards

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Deck is a draw pile, stored end-to-first: Draw pops from the tail, the
// same orientation the durable store persists it in (a Redis list drawn
// with RPOP).
type Deck struct {
	cards []Card
}

// NewShuffledDeck builds the standard 52-card deck plus two jokers and
// shuffles it with a source seeded from the OS CSPRNG. The seed is never
// derived from any game input (player ids, room code, clock) so that two
// rooms created in the same instant still get independent shuffles.
func NewShuffledDeck() *Deck {
	d := &Deck{cards: buildFullDeck()}
	d.shuffle(newSeededRand())
	return d
}

// NewDeckFromCards wraps an already-ordered slice, used when restoring a
// deck from the durable store. The slice is taken as-is; no shuffle.
func NewDeckFromCards(cards []Card) *Deck {
	return &Deck{cards: cards}
}

func buildFullDeck() []Card {
	cards := make([]Card, 0, 54)
	for _, suit := range []Suit{Hearts, Diamonds, Clubs, Spades} {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	cards = append(cards, Joker(), Joker())
	return cards
}

func newSeededRand() *rand.Rand {
	var seedBytes [8]byte
	if _, err := crand.Read(seedBytes[:]); err != nil {
		panic(fmt.Sprintf("cards: could not seed RNG: %v", err))
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func (d *Deck) shuffle(r *rand.Rand) {
	r.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Size returns the number of cards remaining in the draw pile.
func (d *Deck) Size() int {
	return len(d.cards)
}

// Draw removes and returns the top card. Callers must check Size first;
// Draw panics on an empty deck.
func (d *Deck) Draw() Card {
	if len(d.cards) == 0 {
		panic("cards: draw from empty deck")
	}
	last := len(d.cards) - 1
	c := d.cards[last]
	d.cards = d.cards[:last]
	return c
}

// Cards exposes the current draw pile in persisted order, top card last.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
