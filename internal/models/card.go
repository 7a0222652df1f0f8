package models

// Card is one face in the deck. The ID is the card's positional index,
// 0-based and stable for the lifetime of the game. A matched card stays
// matched; it is never re-flipped or re-hidden.
type Card struct {
	ID        int    `json:"id"`
	Image     string `json:"image"`
	IsFlipped bool   `json:"isFlipped"`
	IsMatched bool   `json:"isMatched"`
}
