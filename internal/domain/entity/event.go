package entity

import (
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/value"
)

type EventType string

const (
	EventDropCreated   EventType = "drop.created"
	EventShirtsMinted  EventType = "shirts.minted"
	EventShirtClaimed  EventType = "shirt.claimed"
	EventAuctionClosed EventType = "auction.closed"
)

// Event is published to the message bus and mirrored to operators.
type Event struct {
	Type    EventType     `json:"type"`
	DropID  uuid.UUID     `json:"drop_id"`
	ShirtID uuid.UUID     `json:"shirt_id"`
	Address value.Address `json:"address,omitempty"`
	Digest  string        `json:"digest,omitempty"`
	Count   int           `json:"count,omitempty"`
	Name    string        `json:"name,omitempty"`
	At      time.Time     `json:"at"`
}
