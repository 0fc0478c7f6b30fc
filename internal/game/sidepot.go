package game

import "sort"

// SidePot caps the winnings of a player who went all-in for less than the
// table's current bet. The pots partition the money on the table: each pot
// holds the slice of every player's contribution between the previous pot's
// bet level and its own.
type SidePot struct {
	// Number orders the pots as they were created, smallest bet level first.
	Number int
	// BetLevel is the all-in player's total contribution when the pot was cut.
	BetLevel int
	// Total is the amount in this pot.
	Total int
	// Eligible holds every player whose contribution reached BetLevel.
	Eligible []*Player
}

// eligibleFor reports whether p can win this pot.
func (s *SidePot) eligibleFor(p *Player) bool {
	for _, e := range s.Eligible {
		if e == p {
			return true
		}
	}
	return false
}

// calculateSidePots cuts a new side pot for every all-in player whose total
// contribution fell short of the round's bet. Called at the end of each
// betting round, once the bets are settled.
func (t *Table) calculateSidePots() {
	byBet := make([]*Player, len(t.players))
	copy(byBet, t.players)
	sort.SliceStable(byBet, func(i, j int) bool {
		return byBet[i].TotalBet < byBet[j].TotalBet
	})

	for _, p := range byBet {
		if p.AllIn && p.TotalBet < t.roundMinBet && !p.InSidePot {
			t.createSidePot(p.TotalBet)
		}
	}
}

func (t *Table) createSidePot(betLevel int) {
	prevLevel := 0
	if n := len(t.sidePots); n > 0 {
		prevLevel = t.sidePots[n-1].BetLevel
	}

	pot := &SidePot{Number: len(t.sidePots) + 1, BetLevel: betLevel}
	for _, p := range t.players {
		contribution := p.TotalBet
		if contribution > betLevel {
			contribution = betLevel
		}
		if contribution > prevLevel {
			pot.Total += contribution - prevLevel
		}
		if p.TotalBet >= betLevel {
			pot.Eligible = append(pot.Eligible, p)
		}
		if p.TotalBet == betLevel {
			p.InSidePot = true
		}
	}

	t.sidePots = append(t.sidePots, pot)
	t.logger.Debugf("table %s: side pot %d cut at %d chips, %d in pot",
		t.ID, pot.Number, pot.BetLevel, pot.Total)
}
