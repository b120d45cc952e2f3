package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shirtdrop/internal/domain/value"
)

type Bid struct {
	DropID         uuid.UUID       `json:"drop_id"`
	Bidder         value.Address   `json:"bidder"`
	Amount         decimal.Decimal `json:"amount"`
	ChannelSession string          `json:"channel_session"`
	Rank           *int            `json:"rank,omitempty"`
	Status         value.BidStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Outranks orders bids: higher amount first, then the earlier bid.
func (b Bid) Outranks(other Bid) bool {
	if c := b.Amount.Cmp(other.Amount); c != 0 {
		return c > 0
	}

	return b.UpdatedAt.Before(other.UpdatedAt)
}

type AuctionResult struct {
	DropID   uuid.UUID `json:"drop_id"`
	Winners  []Bid     `json:"winners"`
	Losers   int       `json:"losers"`
	ClosedAt time.Time `json:"closed_at"`
}
