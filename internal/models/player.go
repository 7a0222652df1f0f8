package models

import (
	"github.com/google/uuid"
)

// Player is one seat in a room. The ID is bound to the WebSocket
// connection that created it and is never reused across rooms. Out is the
// connection's outbound queue, drained in order by its write pump.
type Player struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Score     int         `json:"score"`
	Connected bool        `json:"-"`
	Out       chan []byte `json:"-"`
}

func NewPlayer(id uuid.UUID, name string, out chan []byte) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Score:     0,
		Connected: true,
		Out:       out,
	}
}
