package entity

import (
	"github.com/google/uuid"

	"shirtdrop/internal/domain/value"
)

// MintResult is returned even when a later batch fails, so the operator sees
// what reached the chain.
type MintResult struct {
	DropID    uuid.UUID `json:"drop_id"`
	Requested int       `json:"requested"`
	Minted    int       `json:"minted"`
	Batches   int       `json:"batches"`
	Digests   []string  `json:"digests"`
	Shirts    []Shirt   `json:"shirts"`
	Error     string    `json:"error,omitempty"`
}

type BackfillResult struct {
	Digest   string           `json:"digest"`
	Found    []value.ObjectID `json:"found"`
	Inserted int              `json:"inserted"`
}
