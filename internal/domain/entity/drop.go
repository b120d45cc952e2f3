package entity

import (
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/value"
)

type Drop struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ImageBlobID   string         `json:"image_blob_id"`
	TotalSupply   int            `json:"total_supply"`
	MintedCount   int            `json:"minted_count"`
	ChainObjectID value.ObjectID `json:"chain_object_id"`
	Auction       *Auction       `json:"auction,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Auction parameters of a drop. Slots are reservations, not shirts: the
// winners get priority when shirts are handed out.
type Auction struct {
	Slots     int           `json:"slots"`
	Deadline  time.Time     `json:"deadline"`
	Recipient value.Address `json:"recipient"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
}

func (d *Drop) Remaining() int {
	return max(d.TotalSupply-d.MintedCount, 0)
}

func (d *Drop) HasAuction() bool {
	return d.Auction != nil && d.Auction.Slots > 0
}

func (a *Auction) IsClosed() bool {
	return a.ClosedAt != nil
}

func (a *Auction) IsOpen(now time.Time) bool {
	return !a.IsClosed() && now.Before(a.Deadline)
}

type DropStats struct {
	DropID       uuid.UUID `json:"drop_id"`
	TotalSupply  int       `json:"total_supply"`
	Minted       int       `json:"minted"`
	Claimed      int       `json:"claimed"`
	TokensIssued int       `json:"tokens_issued"`
	Bids         int       `json:"bids"`
}
