package models

import "github.com/google/uuid"

// ChatMessage is relayed to everyone and never stored server-side.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	Sender     string    `json:"sender"`
	SenderID   string    `json:"senderId"`
	SenderType Role      `json:"senderType"`
	Message    string    `json:"message"`
	Timestamp  int64     `json:"timestamp"` // unix milliseconds
}
