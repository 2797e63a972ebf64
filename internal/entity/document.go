package entity

import "github.com/google/uuid"

// Document is a raw document handed to the decoder.
type Document struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"` // original file name, used to pick a decoding strategy
	Data []byte    `json:"-"`
}
