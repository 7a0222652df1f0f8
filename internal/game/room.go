// internal/game/room.go
package game

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KRYZL19/memory5/internal/cache"
	"github.com/KRYZL19/memory5/internal/models"
)

// BroadcastFunc sends an event to every player in the snapshot. It is
// invoked while the room lock is held, so implementations must not touch
// the room; they get everything they need as arguments and should write
// asynchronously.
type BroadcastFunc func(players []*models.Player, ev GameEvent)

// BroadcastToPlayerFunc sends an event to a single player, same contract.
type BroadcastToPlayerFunc func(p *models.Player, ev GameEvent)

// OnGameEndFunc is invoked after a finished room has been removed from
// the registry, e.g. to persist the result.
type OnGameEndFunc func(roomID, winner string, scores map[string]int)

// RoomConfig carries the creator-chosen settings for a new room.
type RoomConfig struct {
	ID           string
	TurnTime     int      // advisory turn timer in seconds, stored and broadcast only
	PairCount    int      // distinct images in play; deck size is twice this
	CustomImages []string // uploaded image refs, used before the standard pool

	RevealDelay    time.Duration // how long a mismatched pair stays face-up
	StandardImages []string      // pool used to fill up missing pairs
	Seed           int64         // non-zero for a deterministic deck (tests)
}

// Room holds the entire state for one game session. All mutations run
// under Mu; the Locked flag is the only thing that keeps a third flip out
// of the window in which a mismatched pair is still face-up.
type Room struct {
	ID           string
	Players      []*models.Player
	Cards        []*models.Card
	CurrentTurn  uuid.UUID
	Started      bool
	Locked       bool
	GameOver     bool
	TurnTime     int
	PairCount    int
	CustomImages []string
	Chat         []models.ChatMessage

	RevealDelay    time.Duration
	StandardImages []string

	BroadcastFn         BroadcastFunc
	BroadcastToPlayerFn BroadcastToPlayerFunc
	OnGameEnd           OnGameEndFunc

	Mu          sync.Mutex
	rng         *rand.Rand
	revealTimer *time.Timer
	actionIndex int
	store       *Registry
}

// NewRoom validates the config and builds a room with the creator in seat 0.
// The deck is not dealt until the second player joins.
func NewRoom(cfg RoomConfig, creator *models.Player) (*Room, error) {
	if cfg.ID == "" || creator == nil || creator.Name == "" || cfg.TurnTime <= 0 {
		return nil, ErrMissingFields
	}
	if cfg.PairCount == 0 {
		cfg.PairCount = 8
	}
	if cfg.StandardImages == nil {
		cfg.StandardImages = StandardPool(DefaultStandardPoolSize)
	}
	if cfg.RevealDelay <= 0 {
		cfg.RevealDelay = 2 * time.Second
	}
	if cfg.PairCount < 1 {
		return nil, ErrBadPairCount
	}
	if missing := cfg.PairCount - len(cfg.CustomImages); missing > len(cfg.StandardImages) {
		return nil, ErrBadPairCount
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Room{
		ID:             cfg.ID,
		Players:        []*models.Player{creator},
		Cards:          []*models.Card{},
		TurnTime:       cfg.TurnTime,
		PairCount:      cfg.PairCount,
		CustomImages:   cfg.CustomImages,
		RevealDelay:    cfg.RevealDelay,
		StandardImages: cfg.StandardImages,
		rng:            rand.New(rand.NewSource(seed)),
	}, nil
}

// Join seats a second player. Once both seats are taken the deck is dealt
// and the game starts as a side effect, with seat 0 moving first.
func (r *Room) Join(p *models.Player) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.GameOver {
		return ErrRoomNotFound
	}
	if len(r.Players) >= 2 {
		return ErrRoomFull
	}
	r.Players = append(r.Players, p)
	r.logAction(p.ID, "player_joined", map[string]interface{}{"name": p.Name})
	r.broadcastLocked(GameEvent{Type: EventPlayerJoined, Players: r.Players})

	// Catch the joiner up on chat sent while they were not in the room.
	if r.BroadcastToPlayerFn != nil {
		for _, msg := range r.Chat {
			r.BroadcastToPlayerFn(p, GameEvent{
				Type:    EventNewChatMessage,
				Name:    msg.Name,
				Message: msg.Message,
				Time:    msg.Time,
			})
		}
	}

	if len(r.Players) == 2 {
		r.startGameLocked()
	}
	return nil
}

// startGameLocked deals the deck and hands the first turn to the creator.
// Assumes the lock is held.
func (r *Room) startGameLocked() {
	images := SelectImages(r.StandardImages, r.CustomImages, r.PairCount, r.rng)
	r.Cards = BuildDeck(images, r.rng)
	// A seat can reopen mid-game under the survive-disconnect policy;
	// a fresh deal must not carry scores over from the previous game.
	for _, p := range r.Players {
		p.Score = 0
	}
	r.CurrentTurn = r.Players[0].ID
	r.Started = true
	r.Locked = false
	r.logAction(uuid.Nil, "game_start", map[string]interface{}{"pairCount": r.PairCount})
	r.broadcastLocked(GameEvent{
		Type:        EventGameStart,
		RoomID:      r.ID,
		Cards:       r.Cards,
		CurrentTurn: r.CurrentTurn.String(),
		Players:     r.Players,
		PairCount:   r.PairCount,
		TurnTime:    r.TurnTime,
	})
}

// Flip runs the whole flip protocol for one card.
//
// Silent no-ops (late or duplicate client actions): game not started, room
// locked, card id out of range, card already face-up or matched. The only
// error surfaced to the caller is ErrNotYourTurn.
func (r *Room) Flip(playerID uuid.UUID, cardID int) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.GameOver || !r.Started || r.Locked {
		return nil
	}
	if playerID != r.CurrentTurn {
		return ErrNotYourTurn
	}
	if cardID < 0 || cardID >= len(r.Cards) {
		return nil
	}
	card := r.Cards[cardID]
	if card.IsFlipped || card.IsMatched {
		return nil
	}

	card.IsFlipped = true
	r.logAction(playerID, "flip_card", map[string]interface{}{"cardId": cardID})
	r.broadcastLocked(r.gameUpdateLocked())

	flipped := r.flippedUnmatchedLocked()
	if len(flipped) != 2 {
		return nil
	}

	r.Locked = true
	if flipped[0].Image == flipped[1].Image {
		flipped[0].IsMatched = true
		flipped[1].IsMatched = true
		if p := r.playerByIDLocked(playerID); p != nil {
			p.Score++
		}
		// A match resolves immediately and the scorer keeps the turn.
		r.Locked = false
		r.logAction(playerID, "pair_matched", map[string]interface{}{
			"cards": []int{flipped[0].ID, flipped[1].ID},
			"image": flipped[0].Image,
		})
		r.broadcastLocked(r.gameUpdateLocked())
		if r.allMatchedLocked() {
			r.endGameLocked()
		}
		return nil
	}

	// Mismatch: both cards stay face-up for RevealDelay. Locked blocks
	// every further flip in this room until the timer fires.
	first, second := flipped[0].ID, flipped[1].ID
	r.broadcastLocked(r.gameUpdateLocked())
	r.revealTimer = time.AfterFunc(r.RevealDelay, func() {
		r.hideMismatch(first, second)
	})
	return nil
}

// hideMismatch is the reveal timer's reaction: flip the pair back, pass
// the turn and unlock. The room is re-fetched from the registry first so
// a timer outliving a torn-down room never resurrects deleted state.
func (r *Room) hideMismatch(first, second int) {
	if r.store != nil {
		if _, ok := r.store.Get(r.ID); !ok {
			return
		}
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.GameOver || !r.Locked {
		return
	}
	r.Cards[first].IsFlipped = false
	r.Cards[second].IsFlipped = false
	r.CurrentTurn = r.otherPlayerLocked(r.CurrentTurn)
	r.Locked = false
	r.revealTimer = nil
	r.logAction(uuid.Nil, "mismatch_hidden", map[string]interface{}{
		"cards": []int{first, second},
	})
	r.broadcastLocked(r.gameUpdateLocked())
}

// AddChat appends to the room's chat log and relays the message to both
// players. Chat is not part of the game state machine; arrival order is
// the only ordering guarantee.
func (r *Room) AddChat(name, message string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.GameOver {
		return
	}
	msg := models.ChatMessage{
		Name:    name,
		Message: message,
		Time:    time.Now().Format("15:04:05"),
	}
	r.Chat = append(r.Chat, msg)
	r.broadcastLocked(GameEvent{
		Type:    EventNewChatMessage,
		Name:    msg.Name,
		Message: msg.Message,
		Time:    msg.Time,
	})
}

// HandleDisconnect drops a player from the room. With endOnDisconnect the
// opponent of a started game wins by forfeit and the room is torn down;
// otherwise the room survives until its last member leaves.
func (r *Room) HandleDisconnect(playerID uuid.UUID, endOnDisconnect bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.GameOver {
		return
	}
	idx := -1
	for i, p := range r.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	r.Players[idx].Connected = false
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.logAction(playerID, "player_left", nil)

	if len(r.Players) == 0 {
		r.teardownLocked()
		return
	}

	if r.Started && endOnDisconnect {
		winner := r.Players[0].Name
		r.broadcastLocked(GameEvent{Type: EventGameEnd, Winner: winner})
		r.logAction(uuid.Nil, "game_forfeit", map[string]interface{}{"winner": winner})
		scores := r.scoresLocked()
		r.teardownLocked()
		if r.OnGameEnd != nil {
			r.OnGameEnd(r.ID, winner, scores)
		}
		return
	}

	// Room survives with one seat open again (or one player finishing alone).
	if r.Started && r.CurrentTurn == playerID {
		r.CurrentTurn = r.Players[0].ID
	}
	r.broadcastLocked(GameEvent{Type: EventPlayerLeft, Players: r.Players})
}

// endGameLocked reports the winner (or draw), removes the room from the
// registry and hands the result to OnGameEnd. Assumes the lock is held.
func (r *Room) endGameLocked() {
	winner := r.winnerLocked()
	r.broadcastLocked(GameEvent{Type: EventGameEnd, Winner: winner})
	r.logAction(uuid.Nil, "game_end", map[string]interface{}{"winner": winner})
	scores := r.scoresLocked()
	r.teardownLocked()
	if r.OnGameEnd != nil {
		r.OnGameEnd(r.ID, winner, scores)
	}
}

// teardownLocked marks the room finished, stops any pending reveal timer
// and removes the room from its registry. Assumes the lock is held.
func (r *Room) teardownLocked() {
	r.GameOver = true
	if r.revealTimer != nil {
		r.revealTimer.Stop()
		r.revealTimer = nil
	}
	if r.store != nil {
		r.store.Remove(r.ID)
	}
}

// winnerLocked compares final scores. Assumes the lock is held.
func (r *Room) winnerLocked() string {
	if len(r.Players) < 2 {
		if len(r.Players) == 1 {
			return r.Players[0].Name
		}
		return DrawSentinel
	}
	p1, p2 := r.Players[0], r.Players[1]
	switch {
	case p1.Score > p2.Score:
		return p1.Name
	case p2.Score > p1.Score:
		return p2.Name
	default:
		return DrawSentinel
	}
}

func (r *Room) scoresLocked() map[string]int {
	scores := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.Name] = p.Score
	}
	return scores
}

func (r *Room) gameUpdateLocked() GameEvent {
	return GameEvent{
		Type:        EventGameUpdate,
		Cards:       r.Cards,
		CurrentTurn: r.CurrentTurn.String(),
		Players:     r.Players,
		PairCount:   r.PairCount,
	}
}

func (r *Room) flippedUnmatchedLocked() []*models.Card {
	var flipped []*models.Card
	for _, c := range r.Cards {
		if c.IsFlipped && !c.IsMatched {
			flipped = append(flipped, c)
		}
	}
	return flipped
}

func (r *Room) allMatchedLocked() bool {
	for _, c := range r.Cards {
		if !c.IsMatched {
			return false
		}
	}
	return true
}

func (r *Room) playerByIDLocked(id uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) otherPlayerLocked(id uuid.UUID) uuid.UUID {
	for _, p := range r.Players {
		if p.ID != id {
			return p.ID
		}
	}
	return id
}

// broadcastLocked hands a player snapshot plus the event to the injected
// broadcaster. Assumes the lock is held; BroadcastFn must not re-enter the room.
func (r *Room) broadcastLocked(ev GameEvent) {
	if r.BroadcastFn == nil {
		return
	}
	players := make([]*models.Player, len(r.Players))
	copy(players, r.Players)
	r.BroadcastFn(players, ev)
}

// logAction pushes an action record onto the historian queue, if Redis is
// connected. Fire-and-forget; a lost record never affects the room.
func (r *Room) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		RoomID:      r.ID,
		ActionIndex: r.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func(rec cache.RoomActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoomAction(ctx, rec); err != nil {
			log.Printf("Error publishing action %d for room %s: %v", rec.ActionIndex, r.ID, err)
		}
	}(record)
}
