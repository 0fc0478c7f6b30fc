package poker

import (
	"fmt"
	"sort"
)

// Category ranks the nine hand classes. Lower values are stronger.
type Category int

const (
	StraightFlush Category = iota + 1
	FourOfAKind
	FullHouse
	Flush
	Straight
	ThreeOfAKind
	TwoPair
	Pair
	HighCard
)

var categoryNames = map[Category]string{
	StraightFlush: "straight flush",
	FourOfAKind:   "four of a kind",
	FullHouse:     "full house",
	Flush:         "flush",
	Straight:      "straight",
	ThreeOfAKind:  "three of a kind",
	TwoPair:       "two pair",
	Pair:          "pair",
	HighCard:      "high card",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// RankedHand is the result of evaluating a set of cards: the best category
// present and the five cards, strongest first, used to break ties between
// hands of the same category.
type RankedHand struct {
	Category Category
	Tiebreak []Card
}

// Evaluate finds the best five-card combination among the given cards. It
// accepts between two and seven cards; anything else is a validation error.
// The tiebreak sequence has exactly five cards whenever at least five were
// given.
func Evaluate(cards []Card) (RankedHand, error) {
	if len(cards) < 2 || len(cards) > 7 {
		return RankedHand{}, fmt.Errorf("a hand must consist of two to seven cards, given: %d", len(cards))
	}

	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	// Suit order between equal ranks is irrelevant to ranking.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank > sorted[j].Rank
	})

	flush := flushCards(sorted)
	straight := straightCards(sorted)

	if flush != nil {
		if sf := straightCards(flush); sf != nil {
			return RankedHand{Category: StraightFlush, Tiebreak: sf}, nil
		}
	}

	if quads := fourOfAKind(sorted); quads != nil {
		return RankedHand{Category: FourOfAKind, Tiebreak: quads}, nil
	}

	// The trio must be found before pairs so pair collection can exclude its
	// cards, and both before the full house check which needs them.
	trips := threeOfAKind(sorted)
	pairs := collectPairs(sorted, trips)

	if trips != nil && len(pairs) >= 2 {
		fullHouse := make([]Card, 0, 5)
		fullHouse = append(fullHouse, trips...)
		fullHouse = append(fullHouse, pairs[0], pairs[1])
		return RankedHand{Category: FullHouse, Tiebreak: fullHouse}, nil
	}

	if flush != nil {
		return RankedHand{Category: Flush, Tiebreak: flush[:5]}, nil
	}

	if straight != nil {
		return RankedHand{Category: Straight, Tiebreak: straight}, nil
	}

	if trips != nil {
		return RankedHand{Category: ThreeOfAKind, Tiebreak: fillKickers(sorted, trips)}, nil
	}

	if len(pairs) >= 4 {
		return RankedHand{Category: TwoPair, Tiebreak: fillKickers(sorted, pairs[:4])}, nil
	}

	if len(pairs) == 2 {
		return RankedHand{Category: Pair, Tiebreak: fillKickers(sorted, pairs)}, nil
	}

	return RankedHand{Category: HighCard, Tiebreak: fillKickers(sorted, nil)}, nil
}

// Compare orders two ranked hands: -1 if a wins, 1 if b wins, 0 for a tie
// (split pot). Categories decide first; equal categories compare the tiebreak
// cards position by position.
func Compare(a, b RankedHand) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}

	n := len(a.Tiebreak)
	if len(b.Tiebreak) < n {
		n = len(b.Tiebreak)
	}
	for i := 0; i < n; i++ {
		if a.Tiebreak[i].Rank > b.Tiebreak[i].Rank {
			return -1
		}
		if a.Tiebreak[i].Rank < b.Tiebreak[i].Rank {
			return 1
		}
	}
	return 0
}

// flushCards returns every card of the first suit holding at least five, in
// descending rank order, or nil. The result may exceed five cards.
func flushCards(sorted []Card) []Card {
	var bySuit [4][]Card
	for _, c := range sorted {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}
	for suit := 0; suit < 4; suit++ {
		if len(bySuit[suit]) >= 5 {
			return bySuit[suit]
		}
	}
	return nil
}

// straightCards finds five consecutively descending ranks among the cards, or
// nil. When an ace is present and no six dominates it, the wheel (A-2-3-4-5)
// is tried before the general scan, mirroring the evaluation order the rest
// of the ranking relies on; the wheel's tiebreak leads with the five so it
// loses to any higher straight.
func straightCards(sorted []Card) []Card {
	if len(sorted) < 5 {
		return nil
	}

	maxRank := sorted[0].Rank
	minRank := sorted[len(sorted)-1].Rank
	if maxRank-minRank < 4 {
		return nil
	}

	byRank := func(rank int) (Card, bool) {
		for _, c := range sorted {
			if c.Rank == rank {
				return c, true
			}
		}
		return Card{}, false
	}

	// A six extends the same low cards into a higher straight, so the wheel
	// only stands without one.
	if _, hasSix := byRank(4); maxRank == Ace && !hasSix {
		wheel := make([]Card, 0, 5)
		for _, rank := range []int{3, 2, 1, 0} { // 5, 4, 3, 2
			c, ok := byRank(rank)
			if !ok {
				wheel = nil
				break
			}
			wheel = append(wheel, c)
		}
		if wheel != nil {
			ace, _ := byRank(Ace)
			return append(wheel, ace)
		}
	}

	for start := maxRank; start >= minRank+4; start-- {
		run := make([]Card, 0, 5)
		for rank := start; rank > start-5; rank-- {
			c, ok := byRank(rank)
			if !ok {
				break
			}
			run = append(run, c)
		}
		if len(run) == 5 {
			return run
		}
	}
	return nil
}

// fourOfAKind returns the four cards of the highest quadrupled rank plus the
// best remaining kicker, or nil.
func fourOfAKind(sorted []Card) []Card {
	for i := 0; i+3 < len(sorted); i++ {
		if sorted[i].Rank == sorted[i+1].Rank &&
			sorted[i].Rank == sorted[i+2].Rank &&
			sorted[i].Rank == sorted[i+3].Rank {
			quads := []Card{sorted[i], sorted[i+1], sorted[i+2], sorted[i+3]}
			return fillKickers(sorted, quads)
		}
	}
	return nil
}

// threeOfAKind returns the first (highest) tripled rank's cards, or nil.
func threeOfAKind(sorted []Card) []Card {
	for i := 0; i+2 < len(sorted); i++ {
		if sorted[i].Rank == sorted[i+1].Rank && sorted[i].Rank == sorted[i+2].Rank {
			return []Card{sorted[i], sorted[i+1], sorted[i+2]}
		}
	}
	return nil
}

// collectPairs gathers rank-adjacent pairs in descending order, excluding
// cards claimed by the trio and capping at four cards; a third pair can never
// improve a hand.
func collectPairs(sorted []Card, trips []Card) []Card {
	var pairs []Card
	for i := 0; i+1 < len(sorted); i++ {
		if sorted[i].Rank != sorted[i+1].Rank {
			continue
		}
		if containsCard(trips, sorted[i]) || containsCard(trips, sorted[i+1]) {
			continue
		}
		if containsCard(pairs, sorted[i]) || containsCard(pairs, sorted[i+1]) {
			continue
		}
		if len(pairs) >= 4 {
			break
		}
		pairs = append(pairs, sorted[i], sorted[i+1])
		i++
	}
	return pairs
}

// fillKickers extends have with the highest cards not already used until the
// hand holds five cards or the input runs out.
func fillKickers(sorted []Card, have []Card) []Card {
	hand := make([]Card, 0, 5)
	hand = append(hand, have...)
	for _, c := range sorted {
		if len(hand) == 5 {
			break
		}
		if !containsCard(have, c) {
			hand = append(hand, c)
		}
	}
	return hand
}

func containsCard(cards []Card, c Card) bool {
	for _, o := range cards {
		if o == c {
			return true
		}
	}
	return false
}
