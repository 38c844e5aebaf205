package gamestore

import (
	"reflect"
	"testing"

	"cabo-server/cards"
)

func TestCardWireRoundTrip(t *testing.T) {
	cases := []cards.Card{
		cards.Joker(),
		cards.NewCard(cards.Ace, cards.Spades),
		cards.NewCard(cards.King, cards.Hearts),
		cards.NewCard(cards.Ten, cards.Clubs),
	}
	for _, c := range cases {
		got, err := wireToCard(cardToWire(c))
		if err != nil {
			t.Fatalf("wireToCard(%q): %v", cardToWire(c), err)
		}
		if got != c {
			t.Errorf("round trip %v -> %q -> %v", c, cardToWire(c), got)
		}
	}
}

func TestWireToCardRejectsMalformed(t *testing.T) {
	if _, err := wireToCard("not-a-card"); err == nil {
		t.Error("expected error for malformed wire card")
	}
	if _, err := wireToCard("x:2"); err == nil {
		t.Error("expected error for non-numeric rank")
	}
}

func TestHandWireRoundTrip(t *testing.T) {
	hand := []cards.Card{
		cards.NewCard(cards.Seven, cards.Diamonds),
		cards.NewCard(cards.Queen, cards.Clubs),
		cards.Joker(),
	}
	got, err := wireToHand(handToWire(hand))
	if err != nil {
		t.Fatalf("wireToHand: %v", err)
	}
	if !reflect.DeepEqual(got, hand) {
		t.Errorf("hand round trip = %v, want %v", got, hand)
	}
}

func TestWireToHandEmptyString(t *testing.T) {
	got, err := wireToHand("")
	if err != nil {
		t.Fatalf("wireToHand(\"\"): %v", err)
	}
	if got != nil {
		t.Errorf("wireToHand(\"\") = %v, want nil", got)
	}
}

func TestPileWireRoundTrip(t *testing.T) {
	pile := []cards.Card{
		cards.NewCard(cards.Two, cards.Hearts),
		cards.NewCard(cards.Jack, cards.Spades),
	}
	got, err := wireToPile(pileToWire(pile))
	if err != nil {
		t.Fatalf("wireToPile: %v", err)
	}
	if !reflect.DeepEqual(got, pile) {
		t.Errorf("pile round trip = %v, want %v", got, pile)
	}
}
