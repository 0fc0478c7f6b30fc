// Package poker contains the playing card primitives and the hand evaluator.
package poker

import "fmt"

// Suits. The numeric values are part of the wire format.
const (
	Hearts = iota
	Diamonds
	Clubs
	Spades
)

// Ranks run from 0 (two) through 12 (ace).
const (
	Jack  = 9
	Queen = 10
	King  = 11
	Ace   = 12
)

// Card is an immutable playing card. Two cards with the same suit and rank
// are the same card; a deck never contains duplicates.
type Card struct {
	Suit int
	Rank int
}

// Code returns the zero-padded two-digit decimal wire encoding of the card.
func (c Card) Code() string {
	return fmt.Sprintf("%02d", c.Rank+c.Suit*13)
}

// CardFromCode reverses Code. The server only ever encodes cards; the inverse
// is kept so the codec stays symmetric for client tooling.
func CardFromCode(code int) (Card, error) {
	if code < 0 || code > 51 {
		return Card{}, fmt.Errorf("card code out of range: %d", code)
	}
	return Card{Suit: code / 13, Rank: code % 13}, nil
}

var rankNames = [13]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
var suitNames = [4]string{"h", "d", "c", "s"}

func (c Card) String() string {
	if c.Rank < 0 || c.Rank > 12 || c.Suit < 0 || c.Suit > 3 {
		return fmt.Sprintf("?%d/%d", c.Rank, c.Suit)
	}
	return rankNames[c.Rank] + suitNames[c.Suit]
}
