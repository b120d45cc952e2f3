package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/httpx/req"
	"shirtdrop/pkg/rest"
)

type dropReader interface {
	Get(ctx context.Context, id uuid.UUID) (entity.Drop, error)
	List(ctx context.Context, limit, offset int) ([]entity.Drop, error)
}

type auctionService interface {
	PlaceBid(ctx context.Context, in auction.PlaceBidInput) (entity.Bid, error)
	ListBids(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error)
	GetBid(ctx context.Context, dropID uuid.UUID, rawBidder string) (entity.Bid, error)
	Winners(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error)
}

// DropServer is the public, read-mostly side of drops and their auctions.
type DropServer struct {
	dropReader     dropReader
	auctionService auctionService
}

func NewDropServer(dropReader dropReader, auctionService auctionService) DropServer {
	return DropServer{
		dropReader:     dropReader,
		auctionService: auctionService,
	}
}

func (s DropServer) getV1Drops(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	paging, err := req.ReadPaging(r)
	if err != nil {
		return fmt.Errorf("req.ReadPaging: %w", err)
	}

	drops, err := s.dropReader.List(ctx, paging.Limit, paging.Offset)
	if err != nil {
		return fmt.Errorf("dropReader.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrops(drops))

	return nil
}

func (s DropServer) getV1Drop(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	drop, err := s.dropReader.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("dropReader.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrop(drop))

	return nil
}

func (s DropServer) getV1Bids(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	bids, err := s.auctionService.ListBids(ctx, id)
	if err != nil {
		return fmt.Errorf("auctionService.ListBids: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBids(bids))

	return nil
}

func (s DropServer) getV1Bid(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	bid, err := s.auctionService.GetBid(ctx, id, r.PathValue("address"))
	if err != nil {
		return fmt.Errorf("auctionService.GetBid: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBid(bid))

	return nil
}

func (s DropServer) getV1Winners(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	winners, err := s.auctionService.Winners(ctx, id)
	if err != nil {
		return fmt.Errorf("auctionService.Winners: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBids(winners))

	return nil
}

func (s DropServer) postV1Bid(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	address, err := sessionAddress(r)
	if err != nil {
		return err
	}

	var request rest.PlaceBidRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	bid, err := s.auctionService.PlaceBid(ctx, auction.PlaceBidInput{
		DropID:         id,
		Session:        address,
		Bidder:         request.Bidder,
		Amount:         request.Amount,
		ChannelSession: request.ChannelSession,
	})
	if err != nil {
		return fmt.Errorf("auctionService.PlaceBid: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBid(bid))

	return nil
}
