// Package game implements the per-table Texas Hold'em engine: seating,
// blinds, turn order, betting, side pots and showdown.
package game

import (
	"cardroom/internal/core/client"
	"cardroom/internal/poker"
)

// Messenger is the connection-facing side of a participant. The table only
// ever needs to address, flag and push bytes to a participant; the concrete
// implementation is *client.Client.
type Messenger interface {
	Name() string
	Send(data []byte) error
	Disconnected() bool
	MarkDisconnected()
	Status() client.Status
	SetStatus(client.Status)
	SetTableID(id string)
}

// Player is the per-table state of one seated or spectating participant. It
// is owned exclusively by the table that created it and only touched from
// that table's run loop.
type Player struct {
	conn Messenger

	// Cards are the player's hole cards: empty or two.
	Cards []poker.Card
	// Chips is the player's remaining stack.
	Chips int
	// TotalBet is the amount contributed to the pot this hand.
	TotalBet int
	// InSidePot is set once an all-in player's contribution has been capped
	// into a side pot.
	InSidePot bool
	// CurrentRound records the betting-round counter at which the player
	// last acted.
	CurrentRound int

	AllIn  bool
	Folded bool
	// WaitForBigBlind is set for players who join mid-rotation and must post
	// a catch-up big blind before playing.
	WaitForBigBlind bool

	// Chair is the seat index, or -1 while spectating.
	Chair int
}

func newPlayer(conn Messenger, chips int) *Player {
	p := &Player{conn: conn, Chips: chips, Chair: -1}
	p.reset()
	return p
}

// reset clears the per-hand state while keeping the stack and seat.
func (p *Player) reset() {
	p.Cards = nil
	p.TotalBet = 0
	p.InSidePot = false
	p.CurrentRound = 0
	p.AllIn = false
	p.Folded = false
}

func (p *Player) Name() string {
	return p.conn.Name()
}

// takeChips moves up to amount chips from the stack into the player's hand
// contribution, going all-in when the stack is short, and returns the amount
// actually taken.
func (p *Player) takeChips(amount int) int {
	took := amount
	if p.Chips <= amount {
		took = p.Chips
		p.Chips = 0
		p.AllIn = true
	} else {
		p.Chips -= amount
	}
	p.TotalBet += took
	return took
}

func (p *Player) sitIn() {
	p.conn.SetStatus(client.StatusPlaying)
}

func (p *Player) sitOut() {
	p.conn.SetStatus(client.StatusInGame)
}

// cardCodes returns the wire encoding of the player's hole cards.
func (p *Player) cardCodes() []string {
	codes := make([]string, 0, len(p.Cards))
	for _, c := range p.Cards {
		codes = append(codes, c.Code())
	}
	return codes
}
