// internal/game/errors.go
package game

import "errors"

// Room protocol errors. All of these are recovered locally and surfaced
// only to the offending caller as a joinError/flipError event; none of
// them affects the other player or the process.
var (
	ErrMissingFields   = errors.New("room id, player name and turn time are required")
	ErrBadPairCount    = errors.New("pair count exceeds the available image pool")
	ErrRoomIDTaken     = errors.New("room id is already taken")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomUnavailable = errors.New("room unavailable")
	ErrNotYourTurn     = errors.New("not your turn")
)
