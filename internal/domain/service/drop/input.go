package drop

import (
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/value"
)

type AuctionInput struct {
	Slots     int
	Deadline  time.Time
	Recipient string
}

type CreateInput struct {
	Name        string
	Description string
	ImageBlobID string
	TotalSupply int
	Auction     *AuctionInput
}

// UpdateInput is a patch: nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	ImageBlobID *string
	Auction     *AuctionInput
}

type MintInput struct {
	Count          int
	ImageBlobID    string
	MetadataBlobID string
	Attributes     value.ShirtAttributes
}

type UpdateShirtInput struct {
	ImageBlobID    *string
	MetadataBlobID *string
	Attributes     *value.ShirtAttributes
}

type BackfillInput struct {
	DropID  uuid.UUID
	Digests []string
}
