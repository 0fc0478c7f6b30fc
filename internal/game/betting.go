package game

import (
	"strconv"

	"cardroom/internal/wire"
)

// roundStatus is the exhaustive outcome of checking a betting round's
// progress.
type roundStatus int

const (
	// roundContinue means at least one player still has to act.
	roundContinue roundStatus = iota
	// roundAllActed means every player able to act has matched the round.
	roundAllActed
	// roundShortHanded means fewer than two players are seated.
	roundShortHanded
)

func (t *Table) bettingRoundStatus() roundStatus {
	if len(t.players) < 2 {
		return roundShortHanded
	}
	for _, p := range t.players {
		if t.canActThisRound(p) {
			return roundContinue
		}
	}
	return roundAllActed
}

// canActThisRound reports whether the player still owes an action in the
// current betting round.
func (t *Table) canActThisRound(p *Player) bool {
	return !p.AllIn && !p.Folded && !p.WaitForBigBlind && p.CurrentRound < t.currentRound
}

// moveButtons advances the dealer, small blind and big blind assignments for
// the next hand.
func (t *Table) moveButtons() {
	switch {
	case t.dealerChair == -1:
		// The first player ever seated gets to be the dealer.
		t.dealer = t.players[0]
		if len(t.players) > 2 {
			t.smallBlind = t.players[1]
			t.bigBlind = t.players[2]
		} else {
			// Heads-up the dealer is also the small blind.
			t.smallBlind = t.players[0]
			t.bigBlind = t.players[1]
		}

	case len(t.players) > 2:
		if t.dealer != t.smallBlind {
			t.dealer = t.fallback(t.nextChairFrom(t.dealerChair, false))
			t.smallBlind = t.fallback(t.nextChairFrom(t.dealer.Chair, false))
			t.bigBlind = t.fallback(t.nextChairFrom(t.smallBlind.Chair, true))
		} else {
			// The table just grew out of heads-up play: the dealer stays put,
			// the old big blind becomes the small blind.
			t.smallBlind = t.fallback(t.nextChairFrom(t.dealerChair, false))
			t.bigBlind = t.fallback(t.nextChairFrom(t.smallBlind.Chair, true))
		}

	default:
		t.dealer = t.fallback(t.nextChairFrom(t.dealerChair, false))
		t.smallBlind = t.dealer
		t.bigBlind = t.fallback(t.nextChairFrom(t.smallBlind.Chair, true))
	}

	// The chairs are remembered separately so the rotation survives a button
	// holder leaving mid-hand.
	t.dealerChair = t.dealer.Chair
	t.smallBlindChair = t.smallBlind.Chair
	t.bigBlindChair = t.bigBlind.Chair

	t.logger.Debugf("table %s: dealer chair %d, small blind chair %d, big blind chair %d",
		t.ID, t.dealerChair, t.smallBlindChair, t.bigBlindChair)
}

func (t *Table) fallback(p *Player) *Player {
	if p != nil {
		return p
	}
	t.logger.Errorf("table %s: no candidate found while moving buttons", t.ID)
	return t.players[0]
}

// nextChairFrom finds the seated player following the given chair clockwise.
// When choosing a big blind the dealer's chair is skipped, and players still
// waiting to post a big blind are eligible; otherwise they are passed over.
func (t *Table) nextChairFrom(chair int, bigBlind bool) *Player {
	if chair < 0 {
		chair = 0
	}

	next := chair
	for x := 0; x < t.cfg.MaxPlayers; x++ {
		if next >= t.cfg.MaxPlayers-1 {
			next = 0
		} else {
			next++
		}

		if bigBlind && t.dealer != nil && next == t.dealer.Chair {
			// The dealer can never also be the big blind.
			continue
		}

		for _, p := range t.players {
			if p.Chair == next && p.Chair != chair && (bigBlind || !p.WaitForBigBlind) {
				return p
			}
		}
	}
	return nil
}

// nextPlayerFrom finds the player following the given one clockwise who can
// still act in the current round.
func (t *Table) nextPlayerFrom(player *Player, allowSame bool) *Player {
	if player == nil {
		return nil
	}

	next := player.Chair
	for x := 0; x < t.cfg.MaxPlayers; x++ {
		if next == t.cfg.MaxPlayers-1 {
			next = 0
		} else {
			next++
		}

		for _, p := range t.players {
			if p.Chair == next && (allowSame || p.Chair != player.Chair) && t.canActThisRound(p) {
				return p
			}
		}
	}
	return nil
}

// takeBlinds collects the small and big blinds, plus catch-up big blinds from
// every late entrant seated between the big blind and the dealer.
func (t *Table) takeBlinds() {
	t.pot += t.smallBlind.takeChips(t.smallBlindAmount)
	fields := []string{t.smallBlind.Name(), strconv.Itoa(t.smallBlindAmount)}

	chair := t.bigBlind.Chair
	for x := 0; x < t.cfg.MaxPlayers; x++ {
		for _, p := range t.players {
			if p.Chair == chair && (p.WaitForBigBlind || p == t.bigBlind) {
				p.WaitForBigBlind = false
				t.pot += p.takeChips(t.bigBlindAmount())
				t.logger.Debugf("table %s: big blind of %d taken from %s", t.ID, t.bigBlindAmount(), p.Name())
				fields = append(fields, p.Name(), strconv.Itoa(t.bigBlindAmount()))
			}
		}

		if chair == t.cfg.MaxPlayers-1 {
			chair = 0
		} else {
			chair++
		}
		if chair == t.dealer.Chair {
			break
		}
	}

	t.broadcastGame(wire.GameBlinds, fields...)
	t.roundMinBet = t.bigBlindAmount()
}

// nextRound opens the next betting round and hands the turn to the first
// eligible player.
func (t *Table) nextRound() {
	t.currentTurn = nil
	t.currentRound++
	t.handleTurn()
}

func (t *Table) nextTurn() {
	if t.currentTurn != nil {
		t.currentTurn = t.nextPlayerFrom(t.currentTurn, false)
	} else {
		t.currentTurn = t.nextPlayerFrom(t.bigBlind, true)
	}
}

// handleTurn settles whose turn it is after an action or a new round. When
// nobody else can respond to the current player there is nothing to decide:
// a short contribution still allows a call, anything else is auto-checked by
// locking the player in for the rest of the hand.
func (t *Table) handleTurn() {
	newTurn := false
	if t.currentTurn == nil || !t.canActThisRound(t.currentTurn) {
		t.nextTurn()
		newTurn = true
	}
	if t.currentTurn == nil {
		return
	}

	othersCanPlay := false
	for _, p := range t.players {
		if p != t.currentTurn && !p.AllIn && !p.Folded && !p.WaitForBigBlind {
			othersCanPlay = true
			break
		}
	}
	if !othersCanPlay && t.currentTurn.TotalBet >= t.roundMinBet {
		t.logger.Debugf("table %s: auto-checking for %s", t.ID, t.currentTurn.Name())
		t.currentTurn.AllIn = true
		t.currentTurn = nil
		return
	}

	if newTurn {
		t.foldTimer.start(0)
		t.announceTurn(true, nil)
		t.logger.Debugf("table %s: %s's turn", t.ID, t.currentTurn.Name())
	} else {
		t.announceTurn(false, nil)
	}
}

// handleBet resolves a check, call, bet, raise or fold from the acting player.
// Requests from anyone but the current turn holder are ignored.
func (t *Table) handleBet(p *Player, amount int, fold bool) {
	if t.currentTurn != p {
		return
	}

	event := wire.GameBet
	if fold {
		t.logger.Infof("table %s: %s folded", t.ID, p.Name())
		p.Folded = true
		event = wire.GameFold
	} else {
		if amount == 0 {
			if t.roundMinBet == p.TotalBet {
				t.logger.Infof("table %s: %s checks", t.ID, p.Name())
			} else {
				amount = t.roundMinBet - p.TotalBet
				t.logger.Infof("table %s: %s calls %d", t.ID, p.Name(), amount)
			}
		} else {
			// An explicit bet or raise reopens the action for everyone else.
			t.currentRound++
			minRaise := (t.roundMinBet - p.TotalBet) + t.bigBlindAmount()
			if amount < minRaise {
				// A bet below the minimum raise is only allowed as an all-in.
				amount = minRaise
				if p.Chips < amount {
					amount = p.Chips
				}
			}
			t.logger.Infof("table %s: %s bets %d", t.ID, p.Name(), amount)
		}

		t.pot += p.takeChips(amount)
		if t.roundMinBet < p.TotalBet {
			t.roundMinBet = p.TotalBet
		}
	}

	p.CurrentRound = t.currentRound
	t.broadcastGame(event, p.Name(), strconv.Itoa(amount))
	t.handleTurn()
}

// handleAutoFold folds the turn holder once their clock runs out.
func (t *Table) handleAutoFold() {
	if t.currentTurn != nil && !t.foldTimer.running() {
		t.logger.Infof("table %s: %s ran out of time", t.ID, t.currentTurn.Name())
		t.endGameForPlayer(t.currentTurn)
	}
}

// dealStreet puts the next community cards on the board and announces the
// whole board. After an all-in showdown the reveal of each street is spaced
// out by the street pause.
func (t *Table) dealStreet(count int) {
	if t.showedAllCards {
		t.waitTimer.start(0)
	}

	for x := 0; x < count; x++ {
		t.board = append(t.board, t.deck.Draw())
	}

	fields := make([]string, 0, len(t.board))
	for _, c := range t.board {
		fields = append(fields, c.Code())
	}
	t.broadcastGame(wire.GameDealTable, fields...)
}

// dealCardsToPlayers deals the given number of hole cards to every contender,
// one at a time around the table.
func (t *Table) dealCardsToPlayers(count int) {
	playing := t.contenders()
	for x := 0; x < count; x++ {
		for _, p := range playing {
			p.Cards = append(p.Cards, t.deck.Draw())
		}
	}

	for _, p := range playing {
		t.sendGame(p, wire.GameDealHand, p.cardCodes()...)
	}
	t.announceCardCounts(nil, t.players)
}

// showAllCards reveals every contender's hole cards to the rest of the table.
func (t *Table) showAllCards() {
	if t.showedAllCards {
		return
	}
	t.showedAllCards = true

	for _, p := range t.contenders() {
		if len(p.Cards) < 2 {
			continue
		}
		fields := append([]string{p.Name()}, p.cardCodes()...)
		t.broadcastGameExcept(p, wire.GamePlayerHand, fields...)
	}
}
