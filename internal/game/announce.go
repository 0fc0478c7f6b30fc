package game

import (
	"math"
	"strconv"

	"cardroom/internal/wire"
)

func (t *Table) send(p *Player, data []byte) {
	if p.conn.Disconnected() {
		return
	}
	if err := p.conn.Send(data); err != nil {
		t.logger.Warnf("table %s: failed to send to %s: %v", t.ID, p.Name(), err)
		p.conn.MarkDisconnected()
		t.pendingLeaves = append(t.pendingLeaves, p)
	}
}

func (t *Table) sendGame(p *Player, event byte, fields ...string) {
	t.send(p, wire.GameMessage(event, fields...))
}

func (t *Table) broadcastGame(event byte, fields ...string) {
	data := wire.GameMessage(event, fields...)
	for _, p := range t.participants() {
		t.send(p, data)
	}
}

func (t *Table) broadcastGameExcept(skip *Player, event byte, fields ...string) {
	data := wire.GameMessage(event, fields...)
	for _, p := range t.participants() {
		if p != skip {
			t.send(p, data)
		}
	}
}

// announceChips reports the given players' stacks and hand contributions. A
// nil recipient broadcasts to the whole table.
func (t *Table) announceChips(to *Player, players []*Player) {
	if len(t.players) == 0 {
		return
	}

	chips := make([]string, 0, len(players)*2)
	inPot := make([]string, 0, len(players)*2)
	for _, p := range players {
		chips = append(chips, p.Name(), strconv.Itoa(p.Chips))
		inPot = append(inPot, p.Name(), strconv.Itoa(p.TotalBet))
	}

	if to == nil {
		t.broadcastGame(wire.GamePlayerChips, chips...)
		t.broadcastGame(wire.GamePlayerChipsInPot, inPot...)
	} else {
		t.sendGame(to, wire.GamePlayerChips, chips...)
		t.sendGame(to, wire.GamePlayerChipsInPot, inPot...)
	}
}

// announceChairs reports every seated player's chair.
func (t *Table) announceChairs(to *Player) {
	if len(t.players) == 0 {
		return
	}

	fields := make([]string, 0, len(t.players)*2)
	for _, p := range t.players {
		fields = append(fields, p.Name(), strconv.Itoa(p.Chair))
	}

	if to == nil {
		t.broadcastGame(wire.GamePlayerChair, fields...)
	} else {
		t.sendGame(to, wire.GamePlayerChair, fields...)
	}
}

// announceCardCounts reports how many hole cards the given players hold.
func (t *Table) announceCardCounts(to *Player, players []*Player) {
	if len(t.players) == 0 {
		return
	}

	fields := make([]string, 0, len(players)*2)
	for _, p := range players {
		fields = append(fields, p.Name(), strconv.Itoa(len(p.Cards)))
	}

	if to == nil {
		t.broadcastGame(wire.GamePlayerCardCount, fields...)
	} else {
		t.sendGame(to, wire.GamePlayerCardCount, fields...)
	}
}

// announceButtons reports the dealer, small blind and big blind chairs.
func (t *Table) announceButtons(to *Player) {
	fields := []string{
		strconv.Itoa(t.dealerChair),
		strconv.Itoa(t.smallBlindChair),
		strconv.Itoa(t.bigBlindChair),
	}

	if to == nil {
		t.broadcastGame(wire.GameButtonsChairs, fields...)
	} else {
		t.sendGame(to, wire.GameButtonsChairs, fields...)
	}
}

// announceTurn reports whose turn it is and the seconds left on their clock.
// Without force the notice only goes out when the turn clock is not running,
// so an expired clock keeps nagging while a live one stays quiet.
func (t *Table) announceTurn(force bool, to *Player) {
	if t.currentTurn == nil {
		return
	}
	if !force && t.foldTimer.running() {
		return
	}

	seconds := int(math.Round(t.foldTimer.remaining().Seconds()))
	fields := []string{t.currentTurn.Name(), strconv.Itoa(seconds)}

	if to == nil {
		t.broadcastGame(wire.GamePlayerTurn, fields...)
	} else {
		t.sendGame(to, wire.GamePlayerTurn, fields...)
	}
}
