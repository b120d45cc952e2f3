package drop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

func (s *Service) ListShirts(ctx context.Context, dropID uuid.UUID, limit, offset int) ([]entity.Shirt, error) {
	if _, err := s.drops.Get(ctx, dropID); err != nil {
		return nil, fmt.Errorf("drops.Get: %w", err)
	}

	shirts, err := s.shirts.List(ctx, dropID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("shirts.List: %w", err)
	}

	return shirts, nil
}

func (s *Service) UpdateShirt(ctx context.Context, id uuid.UUID, in UpdateShirtInput) (entity.Shirt, error) {
	shirt, err := s.shirts.Get(ctx, id)
	if err != nil {
		return entity.Shirt{}, fmt.Errorf("shirts.Get: %w", err)
	}

	if in.ImageBlobID != nil {
		shirt.ImageBlobID = *in.ImageBlobID
	}

	if in.MetadataBlobID != nil {
		shirt.MetadataBlobID = *in.MetadataBlobID
	}

	if in.Attributes != nil {
		shirt.Attributes = *in.Attributes
	}

	if err = s.shirts.Update(ctx, &shirt); err != nil {
		return entity.Shirt{}, fmt.Errorf("shirts.Update: %w", err)
	}

	return shirt, nil
}

// ListClaims returns claimed shirts, newest claim first.
func (s *Service) ListClaims(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error) {
	if _, err := s.drops.Get(ctx, dropID); err != nil {
		return nil, fmt.Errorf("drops.Get: %w", err)
	}

	shirts, err := s.shirts.ListClaimed(ctx, dropID)
	if err != nil {
		return nil, fmt.Errorf("shirts.ListClaimed: %w", err)
	}

	return shirts, nil
}

// IssueClaimTokens returns one token per shirt. With no ids it covers every
// minted shirt of the drop that has no token yet; shirts that already have a
// token get it back unchanged.
func (s *Service) IssueClaimTokens(ctx context.Context, dropID uuid.UUID, shirtIDs []uuid.UUID) ([]entity.IssuedToken, error) {
	if _, err := s.drops.Get(ctx, dropID); err != nil {
		return nil, fmt.Errorf("drops.Get: %w", err)
	}

	shirts, err := s.tokenTargets(ctx, dropID, shirtIDs)
	if err != nil {
		return nil, err
	}

	issued := make([]entity.IssuedToken, 0, len(shirts))

	for _, shirt := range shirts {
		token, err := s.tokenFor(ctx, shirt)
		if err != nil {
			return issued, fmt.Errorf("shirt %s: %w", shirt.ID, err)
		}

		issued = append(issued, entity.IssuedToken{
			ShirtID: shirt.ID,
			Token:   token,
			URL:     s.cfg.PublicBaseURL + "/c/" + token.String(),
		})
	}

	return issued, nil
}

func (s *Service) tokenTargets(ctx context.Context, dropID uuid.UUID, shirtIDs []uuid.UUID) ([]entity.Shirt, error) {
	if len(shirtIDs) == 0 {
		shirts, err := s.shirts.ListWithoutToken(ctx, dropID)
		if err != nil {
			return nil, fmt.Errorf("shirts.ListWithoutToken: %w", err)
		}

		return shirts, nil
	}

	shirts := make([]entity.Shirt, 0, len(shirtIDs))

	for _, id := range shirtIDs {
		shirt, err := s.shirts.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("shirts.Get: %w", err)
		}

		if shirt.DropID != dropID {
			return nil, domain.InvalidArgument(errcodes.InvalidShirtID, "shirt "+id.String()+" belongs to another drop")
		}

		if !shirt.Minted {
			return nil, domain.Conflict(errcodes.ShirtNotMinted, "shirt "+id.String()+" is not minted yet")
		}

		shirts = append(shirts, shirt)
	}

	return shirts, nil
}

func (s *Service) tokenFor(ctx context.Context, shirt entity.Shirt) (value.ClaimToken, error) {
	existing, err := s.tokens.GetByShirt(ctx, shirt.ID)
	if err == nil {
		return existing.Token, nil
	}

	if !domain.IsCode(err, errcodes.ClaimTokenNotFound) {
		return "", fmt.Errorf("tokens.GetByShirt: %w", err)
	}

	for range tokenAttempts {
		token, err := value.NewClaimToken()
		if err != nil {
			return "", fmt.Errorf("value.NewClaimToken: %w", err)
		}

		err = s.tokens.Create(ctx, &entity.ClaimTokenRecord{Token: token, DropID: shirt.DropID, ShirtID: shirt.ID})
		if err == nil {
			return token, nil
		}

		if !domain.IsCode(err, errcodes.ClaimTokenCollision) {
			return "", fmt.Errorf("tokens.Create: %w", err)
		}
	}

	return "", errors.New("claim token generation kept colliding")
}
