// internal/game/room_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KRYZL19/memory5/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(players []*models.Player, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

func (mb *mockBroadcaster) lastEvent() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	ev := mb.events[len(mb.events)-1]
	return &ev
}

func (mb *mockBroadcaster) lastOfType(typ GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.events) - 1; i >= 0; i-- {
		if mb.events[i].Type == typ {
			ev := mb.events[i]
			return &ev
		}
	}
	return nil
}

func (mb *mockBroadcaster) count() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.events)
}

// setupStartedRoom builds a registered two-player room with a short reveal
// delay and a deterministic deck, started and ready to flip.
func setupStartedRoom(t *testing.T, pairCount int) (*Registry, *Room, *models.Player, *models.Player, *mockBroadcaster) {
	t.Helper()

	reg := NewRegistry()
	mb := &mockBroadcaster{}

	alice := newTestPlayer("alice")
	room, err := NewRoom(RoomConfig{
		ID:          "game",
		TurnTime:    30,
		PairCount:   pairCount,
		RevealDelay: 50 * time.Millisecond,
		Seed:        1,
	}, alice)
	require.NoError(t, err)
	room.BroadcastFn = mb.broadcastFn
	require.NoError(t, reg.Add(room))

	bob := newTestPlayer("bob")
	require.NoError(t, room.Join(bob))
	require.True(t, room.Started, "game starts when the second player joins")
	require.Equal(t, alice.ID, room.CurrentTurn, "creator moves first")

	mb.clear()
	return reg, room, alice, bob, mb
}

// rigDeck replaces the shuffled deck with a known layout so tests can
// address matching positions directly.
func rigDeck(room *Room, images ...string) {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	deck := make([]*models.Card, len(images))
	for i, img := range images {
		deck[i] = &models.Card{ID: i, Image: img}
	}
	room.Cards = deck
	room.PairCount = len(images) / 2
}

func TestGameStartDealsDeck(t *testing.T) {
	reg := NewRegistry()
	mb := &mockBroadcaster{}

	alice := newTestPlayer("alice")
	room, err := NewRoom(RoomConfig{ID: "deal", TurnTime: 30, PairCount: 4, Seed: 1}, alice)
	require.NoError(t, err)
	room.BroadcastFn = mb.broadcastFn
	require.NoError(t, reg.Add(room))

	require.NoError(t, room.Join(newTestPlayer("bob")))

	require.Len(t, room.Cards, 8, "deck size is twice the pair count")
	counts := map[string]int{}
	for _, c := range room.Cards {
		counts[c.Image]++
	}
	for img, n := range counts {
		assert.Equal(t, 2, n, "image %s must appear exactly twice", img)
	}

	start := mb.lastOfType(EventGameStart)
	require.NotNil(t, start)
	assert.Equal(t, "deal", start.RoomID)
	assert.Equal(t, alice.ID.String(), start.CurrentTurn)
	assert.Equal(t, 4, start.PairCount)
	assert.Equal(t, 30, start.TurnTime)
	assert.Len(t, start.Players, 2)
}

func TestFlipOutOfTurnRejected(t *testing.T) {
	_, room, _, bob, mb := setupStartedRoom(t, 2)

	err := room.Flip(bob.ID, 0)
	require.ErrorIs(t, err, ErrNotYourTurn)
	assert.False(t, room.Cards[0].IsFlipped, "a rejected flip leaves state unchanged")
	assert.Equal(t, 0, mb.count(), "a rejected flip broadcasts nothing")
}

func TestFlipNoOps(t *testing.T) {
	_, room, alice, _, mb := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	// Out of range: silently ignored.
	require.NoError(t, room.Flip(alice.ID, -1))
	require.NoError(t, room.Flip(alice.ID, 4))
	assert.Equal(t, 0, mb.count())

	// Already flipped: no state change, no broadcast.
	require.NoError(t, room.Flip(alice.ID, 0))
	updates := mb.count()
	require.NoError(t, room.Flip(alice.ID, 0))
	assert.Equal(t, updates, mb.count())
	assert.Equal(t, alice.ID, room.CurrentTurn)
}

func TestMatchScoresAndKeepsTurn(t *testing.T) {
	_, room, alice, _, mb := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	require.NoError(t, room.Flip(alice.ID, 0))
	require.NoError(t, room.Flip(alice.ID, 2))

	assert.True(t, room.Cards[0].IsMatched)
	assert.True(t, room.Cards[2].IsMatched)
	assert.Equal(t, 1, alice.Score)
	assert.Equal(t, alice.ID, room.CurrentTurn, "a match grants an extra turn")
	assert.False(t, room.Locked, "a match unlocks immediately")

	update := mb.lastOfType(EventGameUpdate)
	require.NotNil(t, update)
	assert.Equal(t, alice.ID.String(), update.CurrentTurn)
}

func TestMismatchHidesAfterDelayAndPassesTurn(t *testing.T) {
	_, room, alice, bob, _ := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	require.NoError(t, room.Flip(alice.ID, 0))
	require.NoError(t, room.Flip(alice.ID, 1))

	// Both cards stay face-up and the room is locked until the delay elapses.
	room.Mu.Lock()
	assert.True(t, room.Locked)
	assert.True(t, room.Cards[0].IsFlipped)
	assert.True(t, room.Cards[1].IsFlipped)
	assert.Equal(t, alice.ID, room.CurrentTurn)
	room.Mu.Unlock()

	// A third flip during the reveal window is silently swallowed.
	require.NoError(t, room.Flip(alice.ID, 3))
	assert.False(t, room.Cards[3].IsFlipped)

	// Not before the delay.
	time.Sleep(10 * time.Millisecond)
	room.Mu.Lock()
	assert.True(t, room.Cards[0].IsFlipped, "cards must stay shown for the full delay")
	room.Mu.Unlock()

	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return !room.Locked && !room.Cards[0].IsFlipped && !room.Cards[1].IsFlipped
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, bob.ID, room.CurrentTurn, "turn passes after a mismatch")
	assert.Equal(t, 0, alice.Score)
}

func TestFullGameWinnerAndTeardown(t *testing.T) {
	reg, room, alice, _, mb := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	require.NoError(t, room.Flip(alice.ID, 0))
	require.NoError(t, room.Flip(alice.ID, 2))
	assert.Equal(t, 1, alice.Score)
	assert.Equal(t, alice.ID, room.CurrentTurn)

	require.NoError(t, room.Flip(alice.ID, 1))
	require.NoError(t, room.Flip(alice.ID, 3))
	assert.Equal(t, 2, alice.Score)

	end := mb.lastOfType(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, "alice", end.Winner)
	assert.True(t, room.GameOver)

	_, ok := reg.Get("game")
	assert.False(t, ok, "a finished room is removed from the registry")
}

func TestGameEndReportsResultToCallback(t *testing.T) {
	_, room, alice, _, _ := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	var gotRoom, gotWinner string
	var gotScores map[string]int
	room.OnGameEnd = func(roomID, winner string, scores map[string]int) {
		gotRoom, gotWinner, gotScores = roomID, winner, scores
	}

	require.NoError(t, room.Flip(alice.ID, 0))
	require.NoError(t, room.Flip(alice.ID, 2))
	require.NoError(t, room.Flip(alice.ID, 1))
	require.NoError(t, room.Flip(alice.ID, 3))

	assert.Equal(t, "game", gotRoom)
	assert.Equal(t, "alice", gotWinner)
	assert.Equal(t, map[string]int{"alice": 2, "bob": 0}, gotScores)
}

func TestWinnerDrawSentinel(t *testing.T) {
	_, room, alice, bob, _ := setupStartedRoom(t, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()

	alice.Score, bob.Score = 1, 1
	assert.Equal(t, DrawSentinel, room.winnerLocked())

	alice.Score = 2
	assert.Equal(t, "alice", room.winnerLocked())

	bob.Score = 3
	assert.Equal(t, "bob", room.winnerLocked())
}

func TestRevealTimerNoOpsAfterRoomRemoved(t *testing.T) {
	reg, room, alice, _, mb := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	require.NoError(t, room.Flip(alice.ID, 0))
	require.NoError(t, room.Flip(alice.ID, 1))

	// Room torn down while the mismatch timer is pending.
	reg.Remove(room.ID)
	before := mb.count()

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, before, mb.count(), "the timer must not resurrect deleted state")
	assert.True(t, room.Cards[0].IsFlipped, "the stale room is left alone")
}

func TestChatRelay(t *testing.T) {
	_, room, _, _, mb := setupStartedRoom(t, 2)

	room.AddChat("alice", "gl hf")

	require.Len(t, room.Chat, 1)
	assert.Equal(t, "gl hf", room.Chat[0].Message)
	assert.NotEmpty(t, room.Chat[0].Time)

	ev := mb.lastOfType(EventNewChatMessage)
	require.NotNil(t, ev)
	assert.Equal(t, "alice", ev.Name)
	assert.Equal(t, "gl hf", ev.Message)
	assert.NotEmpty(t, ev.Time)
}

func TestRejoinAfterDisconnectDealsFreshGame(t *testing.T) {
	reg, room, alice, bob, mb := setupStartedRoom(t, 2)
	rigDeck(room, "A", "B", "A", "B")

	require.NoError(t, room.Flip(alice.ID, 0))
	require.NoError(t, room.Flip(alice.ID, 2))
	require.Equal(t, 1, alice.Score)

	room.HandleDisconnect(bob.ID, false)
	require.Len(t, room.Players, 1)
	mb.clear()

	carol := newTestPlayer("carol")
	require.NoError(t, room.Join(carol))

	require.True(t, room.Started)
	require.Len(t, room.Cards, 4)
	for _, c := range room.Cards {
		assert.False(t, c.IsFlipped)
		assert.False(t, c.IsMatched)
	}
	assert.Equal(t, 0, alice.Score, "a freshly dealt game must start at 0-0")
	assert.Equal(t, 0, carol.Score)
	assert.Equal(t, alice.ID, room.CurrentTurn, "seat 0 moves first in the new game")

	start := mb.lastOfType(EventGameStart)
	require.NotNil(t, start)

	_, ok := reg.Get("game")
	assert.True(t, ok)
}

func TestJoinerReceivesChatBacklog(t *testing.T) {
	reg := NewRegistry()
	mb := &mockBroadcaster{}

	room, err := NewRoom(RoomConfig{ID: "backlog", TurnTime: 30, PairCount: 2, Seed: 1}, newTestPlayer("alice"))
	require.NoError(t, err)
	room.BroadcastFn = mb.broadcastFn
	require.NoError(t, reg.Add(room))

	var private []GameEvent
	room.BroadcastToPlayerFn = func(p *models.Player, ev GameEvent) {
		private = append(private, ev)
	}

	room.AddChat("alice", "anyone there?")
	require.NoError(t, room.Join(newTestPlayer("bob")))

	require.Len(t, private, 1)
	assert.Equal(t, EventNewChatMessage, private[0].Type)
	assert.Equal(t, "anyone there?", private[0].Message)
}

func TestDisconnectForfeitsWhenPolicySet(t *testing.T) {
	reg, room, alice, _, mb := setupStartedRoom(t, 2)

	room.HandleDisconnect(alice.ID, true)

	end := mb.lastOfType(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, "bob", end.Winner, "the remaining player wins by forfeit")

	_, ok := reg.Get("game")
	assert.False(t, ok)
}

func TestDisconnectKeepsRoomWhenPolicyUnset(t *testing.T) {
	reg, room, alice, bob, mb := setupStartedRoom(t, 2)

	room.HandleDisconnect(alice.ID, false)

	left := mb.lastOfType(EventPlayerLeft)
	require.NotNil(t, left)
	require.Len(t, room.Players, 1)
	assert.Equal(t, bob.ID, room.CurrentTurn, "the turn falls to the remaining player")

	_, ok := reg.Get("game")
	assert.True(t, ok, "the room survives until its last member leaves")

	room.HandleDisconnect(bob.ID, false)
	_, ok = reg.Get("game")
	assert.False(t, ok)
}
