package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/httpx/req"
	"shirtdrop/pkg/rest"
)

type dropService interface {
	Create(ctx context.Context, in drop.CreateInput) (entity.Drop, error)
	Update(ctx context.Context, id uuid.UUID, in drop.UpdateInput) (entity.Drop, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Drop, error)
	List(ctx context.Context, limit, offset int) ([]entity.Drop, error)
	Stats(ctx context.Context, id uuid.UUID) (entity.DropStats, error)
	Mint(ctx context.Context, dropID uuid.UUID, in drop.MintInput) (entity.MintResult, error)
	ListShirts(ctx context.Context, dropID uuid.UUID, limit, offset int) ([]entity.Shirt, error)
	UpdateShirt(ctx context.Context, id uuid.UUID, in drop.UpdateShirtInput) (entity.Shirt, error)
	ListClaims(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error)
	IssueClaimTokens(ctx context.Context, dropID uuid.UUID, shirtIDs []uuid.UUID) ([]entity.IssuedToken, error)
	ScheduleBackfill(ctx context.Context, in drop.BackfillInput) error
}

type auctionCloser interface {
	Close(ctx context.Context, dropID uuid.UUID, trigger string) (entity.AuctionResult, error)
}

// AdminServer serves /api/admin, guarded by the operator address.
type AdminServer struct {
	dropService   dropService
	auctionCloser auctionCloser
}

func NewAdminServer(dropService dropService, auctionCloser auctionCloser) AdminServer {
	return AdminServer{
		dropService:   dropService,
		auctionCloser: auctionCloser,
	}
}

func (s AdminServer) postAdminDrop(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.CreateDropRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	created, err := s.dropService.Create(ctx, newDomainCreateDrop(request))
	if err != nil {
		return fmt.Errorf("dropService.Create: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTDrop(created))

	return nil
}

func (s AdminServer) getAdminDrops(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	paging, err := req.ReadPaging(r)
	if err != nil {
		return fmt.Errorf("req.ReadPaging: %w", err)
	}

	drops, err := s.dropService.List(ctx, paging.Limit, paging.Offset)
	if err != nil {
		return fmt.Errorf("dropService.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrops(drops))

	return nil
}

func (s AdminServer) getAdminDrop(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	found, err := s.dropService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("dropService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrop(found))

	return nil
}

func (s AdminServer) patchAdminDrop(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	var request rest.UpdateDropRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	updated, err := s.dropService.Update(ctx, id, newDomainUpdateDrop(request))
	if err != nil {
		return fmt.Errorf("dropService.Update: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrop(updated))

	return nil
}

// postAdminMint answers 200 with the partial result when at least one batch
// landed, so the operator sees what is already on chain.
func (s AdminServer) postAdminMint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	var request rest.MintRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.dropService.Mint(ctx, id, newDomainMint(request))
	if err != nil && result.Minted == 0 {
		return fmt.Errorf("dropService.Mint: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTMintResult(result))

	return nil
}

func (s AdminServer) getAdminShirts(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	paging, err := req.ReadPaging(r)
	if err != nil {
		return fmt.Errorf("req.ReadPaging: %w", err)
	}

	shirts, err := s.dropService.ListShirts(ctx, id, paging.Limit, paging.Offset)
	if err != nil {
		return fmt.Errorf("dropService.ListShirts: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTShirts(shirts))

	return nil
}

func (s AdminServer) getAdminClaims(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	shirts, err := s.dropService.ListClaims(ctx, id)
	if err != nil {
		return fmt.Errorf("dropService.ListClaims: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTShirts(shirts))

	return nil
}

func (s AdminServer) getAdminStats(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	stats, err := s.dropService.Stats(ctx, id)
	if err != nil {
		return fmt.Errorf("dropService.Stats: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTStats(stats))

	return nil
}

func (s AdminServer) postAdminClaimTokens(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	var request rest.IssueTokensRequest

	// an empty body issues tokens for every shirt without one
	if r.ContentLength != 0 {
		if err = req.Read(r, &request); err != nil {
			return fmt.Errorf("req.Read: %w", err)
		}
	}

	shirtIDs, err := parseUUIDs(request.ShirtIDs)
	if err != nil {
		return err
	}

	tokens, err := s.dropService.IssueClaimTokens(ctx, id, shirtIDs)
	if err != nil {
		return fmt.Errorf("dropService.IssueClaimTokens: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTIssuedTokens(tokens))

	return nil
}

func (s AdminServer) postAdminAuctionClose(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseDropID(r.PathValue("id"))
	if err != nil {
		return err
	}

	result, err := s.auctionCloser.Close(ctx, id, auction.TriggerAdmin)
	if err != nil {
		return fmt.Errorf("auctionCloser.Close: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTAuctionResult(result))

	return nil
}

func (s AdminServer) patchAdminShirt(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseShirtID(r.PathValue("id"))
	if err != nil {
		return err
	}

	var request rest.UpdateShirtRequest

	if err = req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	shirt, err := s.dropService.UpdateShirt(ctx, id, newDomainUpdateShirt(request))
	if err != nil {
		return fmt.Errorf("dropService.UpdateShirt: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTShirt(shirt))

	return nil
}

func (s AdminServer) postAdminBackfill(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.BackfillRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	id, err := parseDropID(request.DropID)
	if err != nil {
		return err
	}

	if err = s.dropService.ScheduleBackfill(ctx, drop.BackfillInput{DropID: id, Digests: request.Digests}); err != nil {
		return fmt.Errorf("dropService.ScheduleBackfill: %w", err)
	}

	reply.JSON(ctx, w, http.StatusAccepted, rest.Accepted{Status: "queued"})

	return nil
}
