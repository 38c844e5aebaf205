package gamestore

import (
	"fmt"
	"strconv"
	"strings"

	"cabo-server/cards"
)

// cardToWire renders a card as a compact, human-diffable string so a
// redis-cli inspection of a stuck room is actually readable: "JOKER" or
// "<rank>:<suit>" using the package's own integer encodings.
func cardToWire(c cards.Card) string {
	if c.IsJoker() {
		return "JOKER"
	}
	return fmt.Sprintf("%d:%d", int(c.Rank), int(c.Suit))
}

func wireToCard(s string) (cards.Card, error) {
	if s == "JOKER" {
		return cards.Joker(), nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return cards.Card{}, fmt.Errorf("gamestore: malformed card %q", s)
	}
	rank, err := strconv.Atoi(parts[0])
	if err != nil {
		return cards.Card{}, fmt.Errorf("gamestore: malformed card rank %q: %w", s, err)
	}
	suit, err := strconv.Atoi(parts[1])
	if err != nil {
		return cards.Card{}, fmt.Errorf("gamestore: malformed card suit %q: %w", s, err)
	}
	return cards.NewCard(cards.Rank(rank), cards.Suit(suit)), nil
}

// handToWire joins a hand into one hash-field value; hands are short (4-6
// cards typically) so a delimited string is simpler than a JSON array and
// just as easy to reshuffle-proof.
func handToWire(hand []cards.Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = cardToWire(c)
	}
	return strings.Join(parts, ",")
}

func wireToHand(s string) ([]cards.Card, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	hand := make([]cards.Card, len(parts))
	for i, p := range parts {
		c, err := wireToCard(p)
		if err != nil {
			return nil, err
		}
		hand[i] = c
	}
	return hand, nil
}

func pileToWire(pile []cards.Card) []string {
	out := make([]string, len(pile))
	for i, c := range pile {
		out[i] = cardToWire(c)
	}
	return out
}

func wireToPile(raw []string) ([]cards.Card, error) {
	pile := make([]cards.Card, len(raw))
	for i, s := range raw {
		c, err := wireToCard(s)
		if err != nil {
			return nil, err
		}
		pile[i] = c
	}
	return pile, nil
}

func optionalCardWire(c *cards.Card) string {
	if c == nil {
		return ""
	}
	return cardToWire(*c)
}

func wireToOptionalCard(s string) (*cards.Card, error) {
	if s == "" {
		return nil, nil
	}
	c, err := wireToCard(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func visKeyWire(ownerID string, index int) string {
	return ownerID + ":" + strconv.Itoa(index)
}

func parseVisKeyWire(s string) (owner string, index int, err error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("gamestore: malformed visibility entry %q", s)
	}
	idx, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("gamestore: malformed visibility index %q: %w", s, err)
	}
	return s[:i], idx, nil
}
