package game

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"cardroom/internal/core/client"
	"cardroom/internal/poker"
	"cardroom/internal/wire"
)

// State is the tag of the table's control loop.
type State int

const (
	// StateAwaitingPlayers means fewer than two players are seated.
	StateAwaitingPlayers State = iota
	// StateVerifyingChips resets hand state and weeds out broke players
	// between hands.
	StateVerifyingChips
	// StateDealing rotates the buttons, collects blinds and deals hole cards.
	StateDealing
	// StateBetting runs the four betting rounds.
	StateBetting
	// StateEndHandNormal resolves a showdown.
	StateEndHandNormal
	// StateEndHandPremature resolves a hand that ended with fewer than two
	// contenders left.
	StateEndHandPremature
	// StateClosed means the table has no participants left and its loop
	// should exit.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingPlayers:
		return "awaiting_players"
	case StateVerifyingChips:
		return "verifying_chips"
	case StateDealing:
		return "dealing"
	case StateBetting:
		return "betting"
	case StateEndHandNormal:
		return "end_hand"
	case StateEndHandPremature:
		return "end_hand_premature"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const maxChatMessageLength = 200

// Config carries the tunable rules of a table.
type Config struct {
	SmallBlind    int
	StartingChips int
	MaxPlayers    int
	// TurnTimeout is how long a player has to act before being auto-folded.
	TurnTimeout time.Duration
	// StreetPause delays consecutive community cards once betting is over.
	StreetPause time.Duration
	// ShowdownPause holds the table after payouts so clients can show results.
	ShowdownPause time.Duration
	// Tick is the control loop's polling interval.
	Tick time.Duration
}

func (c Config) withDefaults() Config {
	if c.SmallBlind <= 0 {
		c.SmallBlind = 10
	}
	if c.StartingChips <= 0 {
		c.StartingChips = 100
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 2
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 15 * time.Second
	}
	if c.StreetPause <= 0 {
		c.StreetPause = 2 * time.Second
	}
	if c.ShowdownPause <= 0 {
		c.ShowdownPause = 5 * time.Second
	}
	if c.Tick <= 0 {
		c.Tick = 50 * time.Millisecond
	}
	return c
}

// Recorder persists hand results. Implementations must be safe to call from
// the table goroutine; a nil Recorder disables recording.
type Recorder interface {
	RecordPayout(tableID, winner string, amount, potTotal int)
}

type actionKind int

const (
	actionJoin actionKind = iota
	actionGameData
	actionLeave
)

type action struct {
	kind actionKind
	conn Messenger
	data []byte
}

// Table runs one Texas Hold'em game. All game state is owned by the goroutine
// running Run; other goroutines interact with the table only through the
// action queue and the atomic participant counters.
type Table struct {
	ID  string
	cfg Config

	logger   *logrus.Logger
	recorder Recorder
	onEmpty  func(*Table)

	actions chan action
	rng     *rand.Rand

	seatedCount      int32
	participantCount int32

	state      State
	players    []*Player
	spectators []*Player

	// pendingLeaves collects participants whose sends failed mid-broadcast so
	// the seating lists are never mutated while being iterated.
	pendingLeaves []*Player

	deck  *poker.Deck
	board []poker.Card

	smallBlindAmount int
	dealerChair      int
	smallBlindChair  int
	bigBlindChair    int
	dealer           *Player
	smallBlind       *Player
	bigBlind         *Player

	sidePots    []*SidePot
	pot         int
	roundMinBet int

	currentTurn  *Player
	currentRound int

	showedAllCards bool
	handResolved   bool

	foldTimer *timer
	waitTimer *timer
}

// NewTable creates a table in the awaiting-players state. onEmpty is invoked
// from the table's own goroutine right before Run returns because the last
// participant left; it may be nil.
func NewTable(id string, cfg Config, logger *logrus.Logger, recorder Recorder, onEmpty func(*Table)) *Table {
	cfg = cfg.withDefaults()
	return &Table{
		ID:               id,
		cfg:              cfg,
		logger:           logger,
		recorder:         recorder,
		onEmpty:          onEmpty,
		actions:          make(chan action, 64),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		state:            StateAwaitingPlayers,
		smallBlindAmount: cfg.SmallBlind,
		dealerChair:      -1,
		smallBlindChair:  -1,
		bigBlindChair:    -1,
		foldTimer:        newTimer(cfg.TurnTimeout),
		waitTimer:        newTimer(cfg.StreetPause),
	}
}

// MaxPlayers returns the seat count of the table.
func (t *Table) MaxPlayers() int { return t.cfg.MaxPlayers }

// SeatedCount returns the number of seated players. Safe to call from any
// goroutine.
func (t *Table) SeatedCount() int {
	return int(atomic.LoadInt32(&t.seatedCount))
}

// ParticipantCount returns seated players plus spectators. Safe to call from
// any goroutine.
func (t *Table) ParticipantCount() int {
	return int(atomic.LoadInt32(&t.participantCount))
}

func (t *Table) syncCounts() {
	atomic.StoreInt32(&t.seatedCount, int32(len(t.players)))
	atomic.StoreInt32(&t.participantCount, int32(len(t.players)+len(t.spectators)))
}

// Join queues a connection to be added to the table as a spectator.
func (t *Table) Join(m Messenger) {
	t.enqueue(action{kind: actionJoin, conn: m})
}

// Deliver queues a game data payload from a connection. The payload is the
// game sub-type byte followed by its arguments.
func (t *Table) Deliver(m Messenger, payload []byte) {
	t.enqueue(action{kind: actionGameData, conn: m, data: payload})
}

// Leave queues removal of a disconnected or departing connection.
func (t *Table) Leave(m Messenger) {
	t.enqueue(action{kind: actionLeave, conn: m})
}

func (t *Table) enqueue(a action) {
	select {
	case t.actions <- a:
	default:
		t.logger.Warnf("table %s: action queue full, dropping action %d", t.ID, a.kind)
	}
}

// Run drives the table until it closes or the context is canceled. It must be
// called exactly once, on its own goroutine.
func (t *Table) Run(ctx context.Context) {
	t.logger.Infof("table %s: opened", t.ID)
	ticker := time.NewTicker(t.cfg.Tick)
	defer ticker.Stop()

	for t.state != StateClosed {
		select {
		case <-ctx.Done():
			t.logger.Infof("table %s: shutting down", t.ID)
			return
		case a := <-t.actions:
			t.apply(a)
		case <-ticker.C:
			t.tick()
		}
		t.flushLeaves()
	}

	t.logger.Infof("table %s: closed", t.ID)
	if t.onEmpty != nil {
		t.onEmpty(t)
	}
}

func (t *Table) apply(a action) {
	switch a.kind {
	case actionJoin:
		t.addParticipant(a.conn)
	case actionGameData:
		if p := t.findParticipant(a.conn); p != nil {
			t.handleGameData(p, a.data)
		}
	case actionLeave:
		t.handleLeave(a.conn)
	}
}

// tick advances the state machine one step. The states are checked in order,
// not exclusively, so a transition can cascade through several states within
// one tick the way a freshly started hand moves straight from chip checks to
// dealing to betting.
func (t *Table) tick() {
	if t.state == StateAwaitingPlayers {
		if len(t.players) > 1 {
			t.logger.Infof("table %s: enough players, starting", t.ID)
			t.state = StateVerifyingChips
		}
	}

	if t.state == StateVerifyingChips {
		t.resetPlayers()
		t.announceChips(nil, t.players)
		t.cleanTable()
		t.checkChips()

		if len(t.players) > 1 {
			t.state = StateDealing
		} else {
			t.state = StateAwaitingPlayers
			t.broadcastGame(wire.GameNotEnoughPlayers)
		}
	}

	if t.state == StateDealing {
		t.announceChairs(nil)
		t.deck = poker.NewDeck(t.rng)
		t.moveButtons()
		t.announceButtons(nil)
		t.takeBlinds()
		t.nextRound()
		t.dealCardsToPlayers(2)
		t.state = StateBetting
	}

	if t.state == StateBetting {
		t.bettingTick()
	}

	if t.state == StateEndHandNormal || t.state == StateEndHandPremature {
		t.endHandTick()
	}
}

func (t *Table) bettingTick() {
	t.handleAutoFold()

	if len(t.players) < 2 || len(t.contenders()) < 2 {
		t.state = StateEndHandPremature
		t.endHandTick()
		return
	}

	canPlay := t.anyoneCanAct()
	status := t.bettingRoundStatus()

	if canPlay {
		if status != roundAllActed {
			t.announceTurn(false, nil)
		}
	} else if !t.showedAllCards {
		t.showAllCards()
	}

	switch {
	case (!canPlay || status == roundAllActed) && !t.waitTimer.running():
		if len(t.board) < 5 {
			t.nextRound()
		}
		t.calculateSidePots()
		switch len(t.board) {
		case 0:
			t.dealStreet(3)
		case 3, 4:
			t.dealStreet(1)
		default:
			t.state = StateEndHandNormal
			t.endHandTick()
		}
	case status == roundShortHanded:
		t.state = StateEndHandPremature
		t.endHandTick()
	}
}

// endHandTick resolves the hand on its first call, then holds the table until
// the showdown pause elapses before starting the next hand.
func (t *Table) endHandTick() {
	if !t.handResolved {
		t.resolveHand(t.state == StateEndHandPremature)
		t.handResolved = true
		t.waitTimer.start(t.cfg.ShowdownPause)
		return
	}
	if !t.waitTimer.running() {
		t.handResolved = false
		t.state = StateVerifyingChips
	}
}

// resolveHand reveals hands, settles every pot and pays the winners.
func (t *Table) resolveHand(premature bool) {
	t.logger.Infof("table %s: hand ended (premature=%t), pot %d", t.ID, premature, t.pot)

	notHandled := append([]*Player(nil), t.contenders()...)

	if !premature {
		t.showAllCards()
	}
	t.broadcastGame(wire.GameHandEnded)

	for t.pot > 0 {
		winners := t.undefeated(notHandled)
		if len(winners) == 0 {
			t.logger.Warnf("table %s: %d chips left in pot with no one to pay", t.ID, t.pot)
			break
		}

		payout := t.pot
		var resolved *SidePot
		if len(t.sidePots) > 0 {
			// Pots resolve smallest bet level first; every remaining
			// contender is eligible for the lowest unresolved pot.
			resolved = t.sidePots[0]
			payout = resolved.Total
		}

		share := payout / len(winners)
		for _, w := range winners {
			w.Chips += share
			t.logger.Infof("table %s: %s wins %d", t.ID, w.Name(), share)
			t.broadcastGame(wire.GamePot, w.Name(), strconv.Itoa(share))
			if t.recorder != nil {
				t.recorder.RecordPayout(t.ID, w.Name(), share, payout)
			}
		}
		t.pot -= payout

		if resolved != nil {
			t.sidePots = t.sidePots[1:]
			kept := notHandled[:0]
			for _, p := range notHandled {
				// A player capped at this pot's level has nothing left to win.
				if p.TotalBet > resolved.BetLevel {
					kept = append(kept, p)
				}
			}
			notHandled = kept
		} else {
			break
		}
	}
}

// undefeated returns the players from the given set whose hand no other
// player in the set beats.
func (t *Table) undefeated(contenders []*Player) []*Player {
	winners := append([]*Player(nil), contenders...)

	ranked := make(map[*Player]poker.RankedHand, len(contenders))
	for _, p := range contenders {
		r, err := poker.Evaluate(append(append([]poker.Card(nil), p.Cards...), t.board...))
		if err != nil {
			t.logger.Errorf("table %s: evaluating %s's hand: %v", t.ID, p.Name(), err)
			continue
		}
		ranked[p] = r
	}

	for _, p1 := range contenders {
		for _, p2 := range contenders {
			if p1 == p2 {
				continue
			}
			r1, ok1 := ranked[p1]
			r2, ok2 := ranked[p2]
			if !ok1 || !ok2 {
				continue
			}
			if poker.Compare(r1, r2) > 0 {
				winners = removePlayer(winners, p1)
			}
		}
	}
	return winners
}

func removePlayer(players []*Player, p *Player) []*Player {
	for i, q := range players {
		if q == p {
			return append(players[:i], players[i+1:]...)
		}
	}
	return players
}

// cleanTable resets the per-hand state for the next deal.
func (t *Table) cleanTable() {
	t.board = nil
	t.smallBlindAmount = t.cfg.SmallBlind
	t.sidePots = nil
	t.pot = 0
	t.roundMinBet = 0
	t.currentTurn = nil
	t.currentRound = 0
	t.showedAllCards = false
}

func (t *Table) resetPlayers() {
	for _, p := range t.players {
		p.reset()
	}
}

// checkChips sits out every player who can no longer post a blind.
func (t *Table) checkChips() {
	seated := append([]*Player(nil), t.players...)
	for _, p := range seated {
		if p.Chips == 0 {
			t.endGameForPlayer(p)
		}
	}
}

func (t *Table) bigBlindAmount() int {
	return t.smallBlindAmount * 2
}

// contenders returns the seated players still competing for the pot.
func (t *Table) contenders() []*Player {
	var playing []*Player
	for _, p := range t.players {
		if !p.Folded && !p.WaitForBigBlind {
			playing = append(playing, p)
		}
	}
	return playing
}

// anyoneCanAct reports whether any seated player can still make a play.
func (t *Table) anyoneCanAct() bool {
	for _, p := range t.players {
		if !p.AllIn && !p.Folded && !p.WaitForBigBlind {
			return true
		}
	}
	return false
}

func (t *Table) participants() []*Player {
	all := make([]*Player, 0, len(t.players)+len(t.spectators))
	all = append(all, t.players...)
	return append(all, t.spectators...)
}

func (t *Table) findParticipant(m Messenger) *Player {
	for _, p := range t.participants() {
		if p.conn == m {
			return p
		}
	}
	return nil
}

// addParticipant seats a new connection as a spectator and sends it the full
// table snapshot.
func (t *Table) addParticipant(m Messenger) {
	if t.findParticipant(m) != nil {
		return
	}

	m.SetTableID(t.ID)
	m.SetStatus(client.StatusInGame)

	p := newPlayer(m, 0)
	t.spectators = append(t.spectators, p)
	t.syncCounts()
	t.logger.Infof("table %s: %s joined as spectator", t.ID, p.Name())

	t.announceChips(p, []*Player{p})
	t.announceChairs(p)
	t.announceChips(p, t.players)
	t.announceCardCounts(p, t.players)
	t.announceButtons(p)
	t.announceTurn(true, p)
}

func (t *Table) handleGameData(p *Player, payload []byte) {
	if len(payload) == 0 {
		return
	}
	sub, rest := payload[0], payload[1:]

	switch sub {
	case wire.GameReadyToStart:
		t.handleSitDown(p)
	case wire.GameBet:
		amount, err := strconv.Atoi(string(rest))
		if err != nil || amount < 0 {
			t.logger.Debugf("table %s: bad bet amount %q from %s", t.ID, rest, p.Name())
			return
		}
		t.handleBet(p, amount, false)
	case wire.GameFold:
		t.handleBet(p, 0, true)
	case wire.GameSitOut:
		t.endGameForPlayer(p)
	case wire.GameChat:
		t.handleChat(p, rest)
	default:
		t.logger.Debugf("table %s: unknown game sub-type %#02x from %s", t.ID, sub, p.Name())
	}
}

func (t *Table) handleSitDown(p *Player) {
	if len(t.players) >= t.cfg.MaxPlayers {
		t.sendGame(p, wire.GameTableFull)
		return
	}
	if p.conn.Status() == client.StatusPlaying {
		return
	}

	if p.Chips == 0 {
		p.Chips = t.cfg.StartingChips
	}
	t.addSittingPlayer(p)
}

func (t *Table) addSittingPlayer(p *Player) {
	t.spectators = removePlayer(t.spectators, p)

	p.Chair = t.freeChair()
	// Joining a running rotation means posting a catch-up big blind first.
	p.WaitForBigBlind = len(t.players) > 1
	t.players = append(t.players, p)
	p.sitIn()
	t.syncCounts()
	t.logger.Infof("table %s: %s sat down at chair %d with %d chips", t.ID, p.Name(), p.Chair, p.Chips)

	t.broadcastGame(wire.GamePlayerChair, p.Name(), strconv.Itoa(p.Chair))
	t.announceChips(nil, []*Player{p})
}

func (t *Table) freeChair() int {
	taken := make(map[int]bool, len(t.players))
	for _, p := range t.players {
		taken[p.Chair] = true
	}
	chair := 0
	for taken[chair] {
		chair++
	}
	return chair
}

func (t *Table) removeSittingPlayer(p *Player) {
	seated := false
	for _, q := range t.players {
		if q == p {
			seated = true
			break
		}
	}
	if !seated {
		return
	}

	p.sitOut()
	t.broadcastGame(wire.GameSitOut, p.Name())

	t.players = removePlayer(t.players, p)
	t.spectators = append(t.spectators, p)
	t.syncCounts()
}

// endGameForPlayer folds the player's hand if it is their turn and vacates
// their seat, keeping them at the table as a spectator.
func (t *Table) endGameForPlayer(p *Player) {
	if p.conn.Status() != client.StatusPlaying {
		return
	}
	if t.currentTurn == p {
		t.handleBet(p, 0, true)
	}
	t.removeSittingPlayer(p)
}

func (t *Table) handleLeave(m Messenger) {
	p := t.findParticipant(m)
	if p == nil {
		return
	}
	t.logger.Infof("table %s: %s left", t.ID, p.Name())

	t.endGameForPlayer(p)
	t.players = removePlayer(t.players, p)
	t.spectators = removePlayer(t.spectators, p)
	t.syncCounts()
	m.SetTableID("")

	t.broadcastGame(wire.GameDisconnect, p.Name())

	if len(t.players)+len(t.spectators) == 0 {
		t.state = StateClosed
	}
}

func (t *Table) flushLeaves() {
	for len(t.pendingLeaves) > 0 {
		p := t.pendingLeaves[0]
		t.pendingLeaves = t.pendingLeaves[1:]
		t.handleLeave(p.conn)
	}
}

func (t *Table) handleChat(p *Player, raw []byte) {
	if !utf8.Valid(raw) {
		t.logger.Debugf("table %s: dropping invalid chat message from %s", t.ID, p.Name())
		return
	}

	message := strings.ReplaceAll(string(raw), "\r", "")
	message = strings.ReplaceAll(message, "\n", " ")
	if runes := []rune(message); len(runes) > maxChatMessageLength {
		message = string(runes[:maxChatMessageLength])
	}

	t.broadcastGame(wire.GameChat, p.Name(), message)
}
