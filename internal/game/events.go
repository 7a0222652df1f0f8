// internal/game/events.go
package game

import "github.com/KRYZL19/memory5/internal/models"

// GameEventType is an enum-like type for events pushed to clients.
type GameEventType string

const (
	EventRoomCreated    GameEventType = "roomCreated"    // Private ack for the creator
	EventPlayerJoined   GameEventType = "playerJoined"   // Room-wide player list update
	EventGameStart      GameEventType = "gameStart"      // Full initial state once both seats are taken
	EventGameUpdate     GameEventType = "gameUpdate"     // State after every flip or mismatch reversal
	EventGameEnd        GameEventType = "gameEnd"        // Winner or draw, room is gone afterwards
	EventNewChatMessage GameEventType = "newChatMessage" // Chat relay
	EventJoinError      GameEventType = "joinError"      // Private create/join failure
	EventFlipError      GameEventType = "flipError"      // Private flip rejection
	EventPlayerLeft     GameEventType = "playerLeft"     // Opponent disconnected, room continues
)

// GameEvent is the single wire envelope for everything the server pushes.
// Fields are omitted when empty so each event type only carries its own payload.
type GameEvent struct {
	Type        GameEventType    `json:"type"`
	RoomID      string           `json:"roomId,omitempty"`
	Cards       []*models.Card   `json:"cards,omitempty"`
	CurrentTurn string           `json:"currentTurn,omitempty"`
	Players     []*models.Player `json:"players,omitempty"`
	PairCount   int              `json:"pairCount,omitempty"`
	TurnTime    int              `json:"turnTime,omitempty"`
	Winner      string           `json:"winner,omitempty"`
	Name        string           `json:"name,omitempty"`
	Message     string           `json:"message,omitempty"`
	Time        string           `json:"time,omitempty"`
}

// DrawSentinel is broadcast as the winner when both players finish with equal scores.
const DrawSentinel = "draw"
