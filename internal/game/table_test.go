package game

import (
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardroom/internal/core/client"
	"cardroom/internal/poker"
	"cardroom/internal/wire"
)

// fakeConn is an in-memory Messenger capturing everything sent to it.
type fakeConn struct {
	name         string
	status       client.Status
	tableID      string
	disconnected bool
	failSends    bool
	sent         [][]byte
}

func (f *fakeConn) Name() string              { return f.name }
func (f *fakeConn) Disconnected() bool        { return f.disconnected }
func (f *fakeConn) MarkDisconnected()         { f.disconnected = true }
func (f *fakeConn) Status() client.Status     { return f.status }
func (f *fakeConn) SetStatus(s client.Status) { f.status = s }
func (f *fakeConn) SetTableID(id string)      { f.tableID = id }

func (f *fakeConn) Send(data []byte) error {
	if f.failSends {
		return io.ErrClosedPipe
	}
	f.sent = append(f.sent, data)
	return nil
}

// receivedEvent reports whether a game event with the given sub-type was sent
// to this connection.
func (f *fakeConn) receivedEvent(event byte) bool {
	for _, data := range f.sent {
		if len(data) >= 2 && data[0] == wire.TypeGameInfo && data[1] == event {
			return true
		}
	}
	return false
}

func newTestTable(cfg Config) *Table {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tbl := NewTable("test-table", cfg, logger, nil, nil)
	tbl.rng = rand.New(rand.NewSource(42))
	return tbl
}

func seatPlayer(t *testing.T, tbl *Table, name string) (*fakeConn, *Player) {
	t.Helper()
	conn := &fakeConn{name: name}
	tbl.addParticipant(conn)
	p := tbl.findParticipant(conn)
	require.NotNil(t, p)
	tbl.handleSitDown(p)
	require.Equal(t, client.StatusPlaying, conn.status)
	return conn, p
}

func TestHeadsUpHandStart(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	_, p2 := seatPlayer(t, tbl, "bob")

	// One tick cascades from awaiting players through chip checks and dealing
	// into the first betting round.
	tbl.tick()

	assert.Equal(t, StateBetting, tbl.state)
	assert.Equal(t, 30, tbl.pot)
	assert.Equal(t, 20, tbl.roundMinBet)

	// Heads-up the dealer posts the small blind.
	assert.Same(t, tbl.dealer, tbl.smallBlind)
	assert.Equal(t, 90, p1.Chips)
	assert.Equal(t, 80, p2.Chips)

	require.Len(t, p1.Cards, 2)
	require.Len(t, p2.Cards, 2)
	assert.Empty(t, tbl.board)

	// The dealer acts first before the flop.
	require.NotNil(t, tbl.currentTurn)
	assert.Same(t, p1, tbl.currentTurn)
}

func TestSitDownGivesBrokePlayerAStack(t *testing.T) {
	tbl := newTestTable(Config{StartingChips: 250})

	conn := &fakeConn{name: "carol"}
	tbl.addParticipant(conn)
	p := tbl.findParticipant(conn)
	require.NotNil(t, p)
	require.Equal(t, 0, p.Chips)

	tbl.handleSitDown(p)
	assert.Equal(t, 250, p.Chips)
	assert.Equal(t, 0, p.Chair)

	// Sitting back down after building a stack must not reset it.
	tbl.endGameForPlayer(p)
	p.Chips = 400
	tbl.handleSitDown(p)
	assert.Equal(t, 400, p.Chips)
}

func TestSitDownAtFullTable(t *testing.T) {
	tbl := newTestTable(Config{MaxPlayers: 2})
	seatPlayer(t, tbl, "alice")
	seatPlayer(t, tbl, "bob")

	conn := &fakeConn{name: "carol"}
	tbl.addParticipant(conn)
	p := tbl.findParticipant(conn)
	tbl.handleSitDown(p)

	assert.Equal(t, client.StatusInGame, conn.status)
	assert.True(t, conn.receivedEvent(wire.GameTableFull))
	assert.Len(t, tbl.players, 2)
}

func TestMoveButtonsVisitsEveryChair(t *testing.T) {
	tbl := newTestTable(Config{MaxPlayers: 3, StartingChips: 100})
	seatPlayer(t, tbl, "alice")
	seatPlayer(t, tbl, "bob")
	seatPlayer(t, tbl, "carol")
	for _, p := range tbl.players {
		p.WaitForBigBlind = false
	}

	dealerChairs := make(map[int]bool)
	for hand := 0; hand < 3; hand++ {
		tbl.moveButtons()
		dealerChairs[tbl.dealerChair] = true

		assert.NotEqual(t, tbl.dealerChair, tbl.bigBlindChair, "dealer can never be the big blind")
		assert.NotEqual(t, tbl.smallBlindChair, tbl.bigBlindChair)
	}

	assert.Len(t, dealerChairs, 3, "dealer button should visit every chair")
}

func TestCheckCallAdvancesToFlop(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	_, p2 := seatPlayer(t, tbl, "bob")
	tbl.tick()
	require.Equal(t, StateBetting, tbl.state)

	// Dealer calls the big blind, then the big blind checks.
	tbl.handleBet(p1, 0, false)
	assert.Equal(t, 40, tbl.pot)
	assert.Equal(t, 80, p1.Chips)
	require.Same(t, p2, tbl.currentTurn)
	tbl.handleBet(p2, 0, false)

	assert.Equal(t, roundAllActed, tbl.bettingRoundStatus())

	tbl.tick()
	assert.Equal(t, StateBetting, tbl.state)
	assert.Len(t, tbl.board, 3)
	assert.Equal(t, 40, tbl.pot)
	assert.Empty(t, tbl.sidePots)
}

func TestRaiseBelowMinimumIsLifted(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	seatPlayer(t, tbl, "bob")
	tbl.tick()

	// A 5-chip raise is below the minimum of call (10) plus big blind (20).
	tbl.handleBet(p1, 5, false)

	assert.Equal(t, 40, p1.TotalBet, "raise should be lifted to the minimum")
	assert.Equal(t, 40, tbl.roundMinBet)
	assert.Equal(t, 60, p1.Chips)
}

func TestSidePotPartitionsContributions(t *testing.T) {
	tbl := newTestTable(Config{MaxPlayers: 4})
	_, p1 := seatPlayer(t, tbl, "alice")
	_, p2 := seatPlayer(t, tbl, "bob")
	_, p3 := seatPlayer(t, tbl, "carol")
	_, p4 := seatPlayer(t, tbl, "dave")

	p1.Chips, p2.Chips, p3.Chips, p4.Chips = 20, 50, 100, 100
	for _, p := range tbl.players {
		p.WaitForBigBlind = false
	}

	tbl.pot += p1.takeChips(100)
	tbl.pot += p2.takeChips(100)
	tbl.pot += p3.takeChips(100)
	tbl.pot += p4.takeChips(100)
	tbl.roundMinBet = 100
	require.Equal(t, 270, tbl.pot)
	require.True(t, p1.AllIn)
	require.True(t, p2.AllIn)

	tbl.calculateSidePots()

	type potSummary struct {
		BetLevel int
		Total    int
		Eligible int
	}
	var pots []potSummary
	for _, sp := range tbl.sidePots {
		pots = append(pots, potSummary{sp.BetLevel, sp.Total, len(sp.Eligible)})
	}
	expected := []potSummary{
		{BetLevel: 20, Total: 80, Eligible: 4},
		{BetLevel: 50, Total: 90, Eligible: 3},
	}
	if diff := deep.Equal(expected, pots); diff != nil {
		t.Error(diff)
	}
	assert.False(t, tbl.sidePots[1].eligibleFor(p1))

	// The pots plus the uncapped remainder account for every chip bet.
	mainPot := tbl.pot - tbl.sidePots[0].Total - tbl.sidePots[1].Total
	assert.Equal(t, 270, tbl.sidePots[0].Total+tbl.sidePots[1].Total+mainPot)
	assert.Equal(t, 100, mainPot)
}

func TestResolveHandPaysBestHand(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	_, p2 := seatPlayer(t, tbl, "bob")
	for _, p := range tbl.players {
		p.WaitForBigBlind = false
	}

	p1.Cards = []poker.Card{
		{Suit: poker.Hearts, Rank: poker.Ace},
		{Suit: poker.Diamonds, Rank: poker.Ace},
	}
	p2.Cards = []poker.Card{
		{Suit: poker.Clubs, Rank: poker.King},
		{Suit: poker.Clubs, Rank: poker.Queen},
	}
	tbl.board = []poker.Card{
		{Suit: poker.Hearts, Rank: 0},
		{Suit: poker.Spades, Rank: 7},
		{Suit: poker.Diamonds, Rank: 3},
		{Suit: poker.Clubs, Rank: 6},
		{Suit: poker.Spades, Rank: 1},
	}

	p1.Chips, p2.Chips = 0, 0
	tbl.pot = 200

	tbl.resolveHand(false)

	assert.Equal(t, 200, p1.Chips, "pair of aces takes the pot")
	assert.Equal(t, 0, p2.Chips)
	assert.Equal(t, 0, tbl.pot)
}

func TestResolveHandSplitsTieWithFloor(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	_, p2 := seatPlayer(t, tbl, "bob")
	for _, p := range tbl.players {
		p.WaitForBigBlind = false
	}

	// The board plays for both; their hole cards never improve it.
	p1.Cards = []poker.Card{
		{Suit: poker.Clubs, Rank: 0},
		{Suit: poker.Clubs, Rank: 1},
	}
	p2.Cards = []poker.Card{
		{Suit: poker.Diamonds, Rank: 0},
		{Suit: poker.Diamonds, Rank: 1},
	}
	tbl.board = []poker.Card{
		{Suit: poker.Hearts, Rank: poker.Ace},
		{Suit: poker.Hearts, Rank: poker.King},
		{Suit: poker.Spades, Rank: poker.Queen},
		{Suit: poker.Spades, Rank: 9},
		{Suit: poker.Diamonds, Rank: 7},
	}

	p1.Chips, p2.Chips = 0, 0
	tbl.pot = 25

	tbl.resolveHand(false)

	// 25 chips split two ways floors to 12 each; the odd chip is not awarded.
	assert.Equal(t, 12, p1.Chips)
	assert.Equal(t, 12, p2.Chips)
}

func TestExpiredTurnClockAutoFolds(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	conn2, p2 := seatPlayer(t, tbl, "bob")
	tbl.tick()
	require.Same(t, p1, tbl.currentTurn)

	tbl.foldTimer.deadline = time.Now().Add(-time.Second)

	tbl.tick()

	assert.True(t, p1.Folded)
	assert.NotContains(t, tbl.players, p1, "auto-folded player is sat out")
	assert.Equal(t, StateEndHandPremature, tbl.state)
	assert.Equal(t, 110, p2.Chips, "remaining player collects the blinds")
	assert.True(t, conn2.receivedEvent(wire.GameHandEnded))
}

func TestSpectatorOnboardingSnapshot(t *testing.T) {
	tbl := newTestTable(Config{MaxPlayers: 3})
	seatPlayer(t, tbl, "alice")
	seatPlayer(t, tbl, "bob")
	tbl.tick()

	conn := &fakeConn{name: "watcher"}
	tbl.addParticipant(conn)

	assert.Equal(t, "test-table", conn.tableID)
	assert.Equal(t, client.StatusInGame, conn.status)
	assert.True(t, conn.receivedEvent(wire.GamePlayerChair))
	assert.True(t, conn.receivedEvent(wire.GamePlayerChips))
	assert.True(t, conn.receivedEvent(wire.GamePlayerCardCount))
	assert.True(t, conn.receivedEvent(wire.GameButtonsChairs))
	assert.True(t, conn.receivedEvent(wire.GamePlayerTurn))
}

func TestLeaveBroadcastsAndClosesEmptyTable(t *testing.T) {
	tbl := newTestTable(Config{})
	conn1, _ := seatPlayer(t, tbl, "alice")
	conn2, _ := seatPlayer(t, tbl, "bob")

	tbl.handleLeave(conn1)
	assert.Equal(t, 1, tbl.ParticipantCount())
	assert.True(t, conn2.receivedEvent(wire.GameDisconnect))
	assert.NotEqual(t, StateClosed, tbl.state)

	tbl.handleLeave(conn2)
	assert.Equal(t, 0, tbl.ParticipantCount())
	assert.Equal(t, StateClosed, tbl.state)
}

func TestFailedSendQueuesLeave(t *testing.T) {
	tbl := newTestTable(Config{})
	conn1, _ := seatPlayer(t, tbl, "alice")
	conn2, _ := seatPlayer(t, tbl, "bob")

	conn1.failSends = true
	tbl.broadcastGame(wire.GameNotEnoughPlayers)
	tbl.flushLeaves()

	assert.True(t, conn1.disconnected)
	assert.Equal(t, 1, tbl.ParticipantCount())
	assert.True(t, conn2.receivedEvent(wire.GameDisconnect))
}

func TestChatSanitization(t *testing.T) {
	tbl := newTestTable(Config{})
	_, p1 := seatPlayer(t, tbl, "alice")
	conn2, _ := seatPlayer(t, tbl, "bob")

	tbl.handleChat(p1, []byte("hi\r\nthere"))

	var got []byte
	for _, data := range conn2.sent {
		if len(data) >= 2 && data[0] == wire.TypeGameInfo && data[1] == wire.GameChat {
			got = data
		}
	}
	require.NotNil(t, got, "chat message should be broadcast")
	assert.NotContains(t, string(got[2:len(got)-len(wire.EOR)]), "\r")
	assert.NotContains(t, string(got[2:len(got)-len(wire.EOR)]), "\n")

	// Invalid UTF-8 is dropped entirely.
	before := len(conn2.sent)
	tbl.handleChat(p1, []byte{0xff, 0xfe})
	assert.Len(t, conn2.sent, before)
}
