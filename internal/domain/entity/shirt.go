package entity

import (
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/value"
)

type Shirt struct {
	ID             uuid.UUID             `json:"id"`
	DropID         uuid.UUID             `json:"drop_id"`
	Serial         int                   `json:"serial"`
	ObjectID       value.ObjectID        `json:"object_id"`
	Minted         bool                  `json:"minted"`
	MintDigest     string                `json:"mint_digest"`
	ImageBlobID    string                `json:"image_blob_id"`
	MetadataBlobID string                `json:"metadata_blob_id"`
	Attributes     value.ShirtAttributes `json:"attributes"`
	Claim          *Claim                `json:"claim,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type Claim struct {
	Recipient value.Address `json:"recipient"`
	Digest    string        `json:"digest"`
	ClaimedAt time.Time     `json:"claimed_at"`
}

func (s *Shirt) IsClaimed() bool {
	return s.Claim != nil
}

// ShirtView is what the claim page renders.
type ShirtView struct {
	Shirt Shirt `json:"shirt"`
	Drop  *Drop `json:"drop,omitempty"`
	// FromAllowlist marks shirts known only from the allowlist file.
	FromAllowlist bool `json:"from_allowlist"`
}

type ClaimResult struct {
	ShirtID   uuid.UUID      `json:"shirt_id"`
	ObjectID  value.ObjectID `json:"object_id"`
	Recipient value.Address  `json:"recipient"`
	Digest    string         `json:"digest"`
}

type ClaimTokenRecord struct {
	Token     value.ClaimToken `json:"token"`
	DropID    uuid.UUID        `json:"drop_id"`
	ShirtID   uuid.UUID        `json:"shirt_id"`
	CreatedAt time.Time        `json:"created_at"`
}

type IssuedToken struct {
	ShirtID uuid.UUID        `json:"shirt_id"`
	Token   value.ClaimToken `json:"token"`
	URL     string           `json:"url"`
}
