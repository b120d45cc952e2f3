package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/httpx/req"
	"shirtdrop/pkg/rest"
)

type claimService interface {
	ResolveToken(ctx context.Context, raw string) (entity.ClaimTokenRecord, error)
	GetShirt(ctx context.Context, id uuid.UUID) (entity.ShirtView, error)
	Claim(ctx context.Context, shirtID uuid.UUID, rawRecipient string) (entity.ClaimResult, error)
}

type ClaimServer struct {
	claimService claimService
	frontendURL  string
}

func NewClaimServer(claimService claimService, frontendURL string) ClaimServer {
	return ClaimServer{
		claimService: claimService,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
	}
}

// getClaimRedirect is the URL written into the NFC tag.
func (s ClaimServer) getClaimRedirect(w http.ResponseWriter, r *http.Request) error {
	record, err := s.claimService.ResolveToken(r.Context(), r.PathValue("token"))
	if err != nil {
		return fmt.Errorf("claimService.ResolveToken: %w", err)
	}

	http.Redirect(w, r, s.frontendURL+"/claim/"+record.ShirtID.String(), http.StatusFound)

	return nil
}

func (s ClaimServer) getV1ClaimToken(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	record, err := s.claimService.ResolveToken(ctx, r.PathValue("token"))
	if err != nil {
		return fmt.Errorf("claimService.ResolveToken: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTClaimToken(record))

	return nil
}

func (s ClaimServer) getV1Shirt(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := parseShirtID(r.PathValue("id"))
	if err != nil {
		return err
	}

	view, err := s.claimService.GetShirt(ctx, id)
	if err != nil {
		return fmt.Errorf("claimService.GetShirt: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTShirtView(view))

	return nil
}

func (s ClaimServer) postV1Claim(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.ClaimRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	id, err := parseShirtID(request.ShirtID)
	if err != nil {
		return err
	}

	result, err := s.claimService.Claim(ctx, id, request.Recipient)
	if err != nil {
		// The transfer went through even if recording it failed.
		if result.Digest != "" {
			response := newRESTClaimResult(result)
			response.Warning = "claim not recorded"

			reply.JSON(ctx, w, http.StatusOK, response)

			return nil
		}

		return fmt.Errorf("claimService.Claim: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTClaimResult(result))

	return nil
}

func parseShirtID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.InvalidArgument(errcodes.InvalidShirtID, "invalid shirt id")
	}

	return id, nil
}

func parseDropID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.InvalidArgument(errcodes.InvalidDropID, "invalid drop id")
	}

	return id, nil
}
