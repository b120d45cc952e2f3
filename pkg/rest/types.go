// Package rest holds the JSON shapes of the public and admin HTTP API.
package rest

import "time"

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	// SupportID trace id of the failed request
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string

type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type Auction struct {
	Slots     int        `json:"slots"`
	Deadline  time.Time  `json:"deadline"`
	Recipient string     `json:"recipient"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

type Drop struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ImageBlobID   string    `json:"imageBlobId"`
	TotalSupply   int       `json:"totalSupply"`
	MintedCount   int       `json:"mintedCount"`
	ChainObjectID string    `json:"chainObjectId"`
	Auction       *Auction  `json:"auction,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type DropStats struct {
	DropID       string `json:"dropId"`
	TotalSupply  int    `json:"totalSupply"`
	Minted       int    `json:"minted"`
	Claimed      int    `json:"claimed"`
	TokensIssued int    `json:"tokensIssued"`
	Bids         int    `json:"bids"`
}

type ShirtAttributes struct {
	Size    string            `json:"size,omitempty"`
	Color   string            `json:"color,omitempty"`
	Edition string            `json:"edition,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

type Claim struct {
	Recipient string    `json:"recipient"`
	Digest    string    `json:"digest"`
	ClaimedAt time.Time `json:"claimedAt"`
}

type Shirt struct {
	ID             string          `json:"id"`
	DropID         string          `json:"dropId"`
	Serial         int             `json:"serial"`
	ObjectID       string          `json:"objectId"`
	Minted         bool            `json:"minted"`
	MintDigest     string          `json:"mintDigest,omitempty"`
	ImageBlobID    string          `json:"imageBlobId,omitempty"`
	MetadataBlobID string          `json:"metadataBlobId,omitempty"`
	Attributes     ShirtAttributes `json:"attributes"`
	Claimed        bool            `json:"claimed"`
	Claim          *Claim          `json:"claim,omitempty"`
}

type ShirtView struct {
	Shirt         Shirt `json:"shirt"`
	Drop          *Drop `json:"drop,omitempty"`
	FromAllowlist bool  `json:"fromAllowlist"`
}

type ClaimToken struct {
	Token   string `json:"token"`
	DropID  string `json:"dropId"`
	ShirtID string `json:"shirtId"`
}

type IssuedToken struct {
	ShirtID string `json:"shirtId"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

type ClaimRequest struct {
	ShirtID   string `json:"shirtId" validate:"required,uuid"`
	Recipient string `json:"recipient" validate:"required"`
}

type ClaimResult struct {
	ShirtID   string `json:"shirtId"`
	ObjectID  string `json:"objectId"`
	Recipient string `json:"recipient"`
	Digest    string `json:"digest"`
	// Warning is set when the transfer succeeded but was not recorded.
	Warning string `json:"warning,omitempty"`
}

type Bid struct {
	DropID         string    `json:"dropId"`
	Bidder         string    `json:"bidder"`
	Amount         string    `json:"amount"`
	ChannelSession string    `json:"channelSession,omitempty"`
	Rank           *int      `json:"rank,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type PlaceBidRequest struct {
	Bidder         string `json:"bidder"`
	Amount         string `json:"amount" validate:"required"`
	ChannelSession string `json:"channelSession" validate:"max=256"`
}

type AuctionResult struct {
	DropID   string    `json:"dropId"`
	Winners  []Bid     `json:"winners"`
	Losers   int       `json:"losers"`
	ClosedAt time.Time `json:"closedAt"`
}

type User struct {
	Address   string    `json:"address"`
	Provider  string    `json:"provider"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SignInRequest carries the provider's OpenID Connect id token and the
// address the client derived from it.
type SignInRequest struct {
	Address string `json:"address" validate:"required"`
	IDToken string `json:"idToken" validate:"required,max=8192"`
}

type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type FaucetRequest struct {
	Address string `json:"address" validate:"required"`
}

type AuctionParams struct {
	Slots     int       `json:"slots" validate:"required,gt=0"`
	Deadline  time.Time `json:"deadline" validate:"required"`
	Recipient string    `json:"recipient" validate:"required"`
}

type CreateDropRequest struct {
	Name        string         `json:"name" validate:"required,max=128"`
	Description string         `json:"description" validate:"max=4096"`
	ImageBlobID string         `json:"imageBlobId"`
	TotalSupply int            `json:"totalSupply" validate:"required"`
	Auction     *AuctionParams `json:"auction"`
}

type UpdateDropRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=128"`
	Description *string        `json:"description" validate:"omitempty,max=4096"`
	ImageBlobID *string        `json:"imageBlobId"`
	Auction     *AuctionParams `json:"auction"`
}

type MintRequest struct {
	Count          int             `json:"count" validate:"required,gt=0"`
	ImageBlobID    string          `json:"imageBlobId"`
	MetadataBlobID string          `json:"metadataBlobId"`
	Attributes     ShirtAttributes `json:"attributes"`
}

type MintResult struct {
	DropID    string   `json:"dropId"`
	Requested int      `json:"requested"`
	Minted    int      `json:"minted"`
	Batches   int      `json:"batches"`
	Digests   []string `json:"digests"`
	Shirts    []Shirt  `json:"shirts"`
	Error     string   `json:"error,omitempty"`
}

type UpdateShirtRequest struct {
	ImageBlobID    *string          `json:"imageBlobId"`
	MetadataBlobID *string          `json:"metadataBlobId"`
	Attributes     *ShirtAttributes `json:"attributes"`
}

type IssueTokensRequest struct {
	ShirtIDs []string `json:"shirtIds" validate:"omitempty,dive,uuid"`
}

type BackfillRequest struct {
	DropID  string   `json:"dropId" validate:"required,uuid"`
	Digests []string `json:"digests" validate:"required,min=1,max=100,dive,required"`
}

type Accepted struct {
	Status string `json:"status"`
}

type StoredBlob struct {
	BlobID string `json:"blobId"`
}
