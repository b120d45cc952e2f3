package server

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/lox"
	"shirtdrop/pkg/rest"
)

func newRESTDrop(d entity.Drop) rest.Drop {
	out := rest.Drop{
		ID:            d.ID.String(),
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
		out.Auction = &rest.Auction{
			Slots:     d.Auction.Slots,
			Deadline:  d.Auction.Deadline,
			Recipient: d.Auction.Recipient.String(),
			ClosedAt:  d.Auction.ClosedAt,
		}
	}

	return out
}

func newRESTDrops(drops []entity.Drop) []rest.Drop {
	return lo.Map(drops, func(d entity.Drop, _ int) rest.Drop { return newRESTDrop(d) })
}

func newRESTStats(s entity.DropStats) rest.DropStats {
	return rest.DropStats{
		DropID:       s.DropID.String(),
		TotalSupply:  s.TotalSupply,
		Minted:       s.Minted,
		Claimed:      s.Claimed,
		TokensIssued: s.TokensIssued,
		Bids:         s.Bids,
	}
}

func newRESTAttributes(a value.ShirtAttributes) rest.ShirtAttributes {
	return rest.ShirtAttributes{
		Size:    a.Size,
		Color:   a.Color,
		Edition: a.Edition,
		Extra:   a.Extra,
	}
}

func newDomainAttributes(a rest.ShirtAttributes) value.ShirtAttributes {
	return value.ShirtAttributes{
		Size:    a.Size,
		Color:   a.Color,
		Edition: a.Edition,
		Extra:   a.Extra,
	}
}

func newRESTShirt(s entity.Shirt) rest.Shirt {
	out := rest.Shirt{
		ID:             s.ID.String(),
		DropID:         s.DropID.String(),
		Serial:         s.Serial,
		ObjectID:       s.ObjectID.String(),
		Minted:         s.Minted,
		MintDigest:     s.MintDigest,
		ImageBlobID:    s.ImageBlobID,
		MetadataBlobID: s.MetadataBlobID,
		Attributes:     newRESTAttributes(s.Attributes),
		Claimed:        s.IsClaimed(),
	}

	if s.Claim != nil {
		out.Claim = &rest.Claim{
			Recipient: s.Claim.Recipient.String(),
			Digest:    s.Claim.Digest,
			ClaimedAt: s.Claim.ClaimedAt,
		}
	}

	return out
}

func newRESTShirts(shirts []entity.Shirt) []rest.Shirt {
	return lo.Map(shirts, func(s entity.Shirt, _ int) rest.Shirt { return newRESTShirt(s) })
}

func newRESTShirtView(v entity.ShirtView) rest.ShirtView {
	out := rest.ShirtView{
		Shirt:         newRESTShirt(v.Shirt),
		FromAllowlist: v.FromAllowlist,
	}

	if v.Drop != nil {
		out.Drop = lo.ToPtr(newRESTDrop(*v.Drop))
	}

	return out
}

func newRESTBid(b entity.Bid) rest.Bid {
	return rest.Bid{
		DropID:         b.DropID.String(),
		Bidder:         b.Bidder.String(),
		Amount:         b.Amount.String(),
		ChannelSession: b.ChannelSession,
		Rank:           b.Rank,
		Status:         string(b.Status),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func newRESTBids(bids []entity.Bid) []rest.Bid {
	return lo.Map(bids, func(b entity.Bid, _ int) rest.Bid { return newRESTBid(b) })
}

func newRESTAuctionResult(r entity.AuctionResult) rest.AuctionResult {
	return rest.AuctionResult{
		DropID:   r.DropID.String(),
		Winners:  newRESTBids(r.Winners),
		Losers:   r.Losers,
		ClosedAt: r.ClosedAt,
	}
}

func newRESTUser(u entity.User) rest.User {
	return rest.User{
		Address:   u.Address.String(),
		Provider:  u.Provider,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

func newRESTSession(s entity.Session) rest.Session {
	return rest.Session{
		User:      newRESTUser(s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

func newRESTClaimResult(r entity.ClaimResult) rest.ClaimResult {
	return rest.ClaimResult{
		ShirtID:   r.ShirtID.String(),
		ObjectID:  r.ObjectID.String(),
		Recipient: r.Recipient.String(),
		Digest:    r.Digest,
	}
}

func newRESTClaimToken(r entity.ClaimTokenRecord) rest.ClaimToken {
	return rest.ClaimToken{
		Token:   r.Token.String(),
		DropID:  r.DropID.String(),
		ShirtID: r.ShirtID.String(),
	}
}

func newRESTIssuedTokens(tokens []entity.IssuedToken) []rest.IssuedToken {
	return lo.Map(tokens, func(t entity.IssuedToken, _ int) rest.IssuedToken {
		return rest.IssuedToken{
			ShirtID: t.ShirtID.String(),
			Token:   t.Token.String(),
			URL:     t.URL,
		}
	})
}

func newRESTMintResult(r entity.MintResult) rest.MintResult {
	return rest.MintResult{
		DropID:    r.DropID.String(),
		Requested: r.Requested,
		Minted:    r.Minted,
		Batches:   r.Batches,
		Digests:   r.Digests,
		Shirts:    newRESTShirts(r.Shirts),
		Error:     r.Error,
	}
}

func newDomainAuction(a *rest.AuctionParams) *drop.AuctionInput {
	if a == nil {
		return nil
	}

	return &drop.AuctionInput{
		Slots:     a.Slots,
		Deadline:  a.Deadline,
		Recipient: a.Recipient,
	}
}

func newDomainCreateDrop(r rest.CreateDropRequest) drop.CreateInput {
	return drop.CreateInput{
		Name:        r.Name,
		Description: r.Description,
		ImageBlobID: r.ImageBlobID,
		TotalSupply: r.TotalSupply,
		Auction:     newDomainAuction(r.Auction),
	}
}

func newDomainUpdateDrop(r rest.UpdateDropRequest) drop.UpdateInput {
	return drop.UpdateInput{
		Name:        r.Name,
		Description: r.Description,
		ImageBlobID: r.ImageBlobID,
		Auction:     newDomainAuction(r.Auction),
	}
}

func newDomainMint(r rest.MintRequest) drop.MintInput {
	return drop.MintInput{
		Count:          r.Count,
		ImageBlobID:    r.ImageBlobID,
		MetadataBlobID: r.MetadataBlobID,
		Attributes:     newDomainAttributes(r.Attributes),
	}
}

func newDomainUpdateShirt(r rest.UpdateShirtRequest) drop.UpdateShirtInput {
	in := drop.UpdateShirtInput{
		ImageBlobID:    r.ImageBlobID,
		MetadataBlobID: r.MetadataBlobID,
	}

	if r.Attributes != nil {
		in.Attributes = lo.ToPtr(newDomainAttributes(*r.Attributes))
	}

	return in
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	return lox.MapErr(raw, func(s string) (uuid.UUID, error) {
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, domain.InvalidArgument(errcodes.InvalidShirtID, fmt.Sprintf("invalid shirt id %q", s))
		}

		return id, nil
	})
}
