package models

// ChatMessage is a single entry in a room's append-only chat log.
type ChatMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Time    string `json:"time"`
}
