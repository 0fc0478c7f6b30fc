package poker

import "math/rand"

// Deck is an ordered set of the 52 unique cards. Cards are drawn from the
// front and never returned; a fresh shuffled deck is built for every hand.
type Deck struct {
	cards []Card
}

// NewDeck returns a full deck shuffled with the given source.
func NewDeck(rng *rand.Rand) *Deck {
	cards := make([]Card, 0, 52)
	for suit := 0; suit < 4; suit++ {
		for rank := 0; rank < 13; rank++ {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards}
}

// Draw removes and returns the top card. Drawing from an empty deck panics;
// a Hold'em hand can never exhaust 52 cards.
func (d *Deck) Draw() Card {
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
