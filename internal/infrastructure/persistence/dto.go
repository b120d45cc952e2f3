package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
)

type dropSchema struct {
	ID               uuid.UUID      `db:"id"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	ImageBlobID      string         `db:"image_blob_id"`
	TotalSupply      int            `db:"total_supply"`
	MintedCount      int            `db:"minted_count"`
	ChainObjectID    string         `db:"chain_object_id"`
	AuctionSlots     sql.NullInt64  `db:"auction_slots"`
	AuctionDeadline  sql.NullTime   `db:"auction_deadline"`
	AuctionRecipient sql.NullString `db:"auction_recipient"`
	AuctionClosedAt  sql.NullTime   `db:"auction_closed_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func fromDrop(d *entity.Drop) dropSchema {
	s := dropSchema{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		ImageBlobID:   d.ImageBlobID,
		TotalSupply:   d.TotalSupply,
		MintedCount:   d.MintedCount,
		ChainObjectID: d.ChainObjectID.String(),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}

	if d.Auction != nil {
		s.AuctionSlots = sql.NullInt64{Int64: int64(d.Auction.Slots), Valid: true}
		s.AuctionDeadline = sql.NullTime{Time: d.Auction.Deadline, Valid: true}
		s.AuctionRecipient = sql.NullString{String: d.Auction.Recipient.String(), Valid: true}

		if d.Auction.ClosedAt != nil {
			s.AuctionClosedAt = sql.NullTime{Time: *d.Auction.ClosedAt, Valid: true}
		}
	}

	return s
}

func (s *dropSchema) toDomain() entity.Drop {
	d := entity.Drop{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		ImageBlobID:   s.ImageBlobID,
		TotalSupply:   s.TotalSupply,
		MintedCount:   s.MintedCount,
		ChainObjectID: value.ObjectID(s.ChainObjectID),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}

	if s.AuctionSlots.Valid {
		d.Auction = &entity.Auction{
			Slots:     int(s.AuctionSlots.Int64),
			Deadline:  s.AuctionDeadline.Time,
			Recipient: value.Address(s.AuctionRecipient.String),
		}

		if s.AuctionClosedAt.Valid {
			closedAt := s.AuctionClosedAt.Time
			d.Auction.ClosedAt = &closedAt
		}
	}

	return d
}

type shirtSchema struct {
	ID             uuid.UUID      `db:"id"`
	DropID         uuid.UUID      `db:"drop_id"`
	Serial         int            `db:"serial"`
	ObjectID       string         `db:"object_id"`
	Minted         bool           `db:"minted"`
	MintDigest     string         `db:"mint_digest"`
	ImageBlobID    string         `db:"image_blob_id"`
	MetadataBlobID string         `db:"metadata_blob_id"`
	Attributes     []byte         `db:"attributes"`
	ClaimedBy      sql.NullString `db:"claimed_by"`
	ClaimDigest    sql.NullString `db:"claim_digest"`
	ClaimedAt      sql.NullTime   `db:"claimed_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func fromShirt(s *entity.Shirt) (shirtSchema, error) {
	attrs, err := jsoniter.Marshal(s.Attributes)
	if err != nil {
		return shirtSchema{}, fmt.Errorf("jsoniter.Marshal: %w", err)
	}

	schema := shirtSchema{
		ID:             s.ID,
		DropID:         s.DropID,
		Serial:         s.Serial,
		ObjectID:       s.ObjectID.String(),
		Minted:         s.Minted,
		MintDigest:     s.MintDigest,
		ImageBlobID:    s.ImageBlobID,
		MetadataBlobID: s.MetadataBlobID,
		Attributes:     attrs,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	if s.Claim != nil {
		schema.ClaimedBy = sql.NullString{String: s.Claim.Recipient.String(), Valid: true}
		schema.ClaimDigest = sql.NullString{String: s.Claim.Digest, Valid: true}
		schema.ClaimedAt = sql.NullTime{Time: s.Claim.ClaimedAt, Valid: true}
	}

	return schema, nil
}

func (s *shirtSchema) toDomain() (entity.Shirt, error) {
	var attrs value.ShirtAttributes
	if len(s.Attributes) > 0 {
		if err := jsoniter.Unmarshal(s.Attributes, &attrs); err != nil {
			return entity.Shirt{}, fmt.Errorf("shirt %s attributes: %w", s.ID, err)
		}
	}

	shirt := entity.Shirt{
		ID:             s.ID,
		DropID:         s.DropID,
		Serial:         s.Serial,
		ObjectID:       value.ObjectID(s.ObjectID),
		Minted:         s.Minted,
		MintDigest:     s.MintDigest,
		ImageBlobID:    s.ImageBlobID,
		MetadataBlobID: s.MetadataBlobID,
		Attributes:     attrs,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	if s.ClaimedBy.Valid {
		shirt.Claim = &entity.Claim{
			Recipient: value.Address(s.ClaimedBy.String),
			Digest:    s.ClaimDigest.String,
			ClaimedAt: s.ClaimedAt.Time,
		}
	}

	return shirt, nil
}

func shirtsToDomain(schemas []shirtSchema) ([]entity.Shirt, error) {
	shirts := make([]entity.Shirt, 0, len(schemas))

	for i := range schemas {
		shirt, err := schemas[i].toDomain()
		if err != nil {
			return nil, err
		}

		shirts = append(shirts, shirt)
	}

	return shirts, nil
}

type claimTokenSchema struct {
	Token     string    `db:"token"`
	DropID    uuid.UUID `db:"drop_id"`
	ShirtID   uuid.UUID `db:"shirt_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *claimTokenSchema) toDomain() entity.ClaimTokenRecord {
	return entity.ClaimTokenRecord{
		Token:     value.ClaimToken(s.Token),
		DropID:    s.DropID,
		ShirtID:   s.ShirtID,
		CreatedAt: s.CreatedAt,
	}
}

type bidSchema struct {
	DropID         uuid.UUID       `db:"drop_id"`
	Bidder         string          `db:"bidder"`
	Amount         decimal.Decimal `db:"amount"`
	ChannelSession string          `db:"channel_session"`
	Rank           sql.NullInt64   `db:"rank"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func fromBid(b *entity.Bid) bidSchema {
	s := bidSchema{
		DropID:         b.DropID,
		Bidder:         b.Bidder.String(),
		Amount:         b.Amount,
		ChannelSession: b.ChannelSession,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}

	if b.Rank != nil {
		s.Rank = sql.NullInt64{Int64: int64(*b.Rank), Valid: true}
	}

	return s
}

func (s *bidSchema) toDomain() entity.Bid {
	b := entity.Bid{
		DropID:         s.DropID,
		Bidder:         value.Address(s.Bidder),
		Amount:         s.Amount,
		ChannelSession: s.ChannelSession,
		Status:         value.BidStatus(s.Status),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	if s.Rank.Valid {
		rank := int(s.Rank.Int64)
		b.Rank = &rank
	}

	return b
}

func bidsToDomain(schemas []bidSchema) []entity.Bid {
	bids := make([]entity.Bid, 0, len(schemas))
	for i := range schemas {
		bids = append(bids, schemas[i].toDomain())
	}

	return bids
}

type userSchema struct {
	Address   string    `db:"address"`
	Provider  string    `db:"provider"`
	Subject   string    `db:"subject"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	AvatarURL string    `db:"avatar_url"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func fromUser(u *entity.User) userSchema {
	return userSchema{
		Address:   u.Address.String(),
		Provider:  u.Provider,
		Subject:   u.Subject,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *userSchema) toDomain() entity.User {
	return entity.User{
		Address:   value.Address(s.Address),
		Provider:  s.Provider,
		Subject:   s.Subject,
		Email:     s.Email,
		Name:      s.Name,
		AvatarURL: s.AvatarURL,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
