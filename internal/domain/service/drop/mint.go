package drop

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/internal/metrics"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/logx"
)

// Mint creates count shirt NFTs in batches. The chain's counters are the
// source of truth for how many shirts are left. A failing batch stops the
// loop; the result then describes what was minted before it alongside the
// error.
func (s *Service) Mint(ctx context.Context, dropID uuid.UUID, in MintInput) (entity.MintResult, error) {
	result := entity.MintResult{DropID: dropID, Requested: in.Count}

	if in.Count < 1 {
		return result, domain.InvalidArgument(errcodes.InvalidMintCount, "count must be positive")
	}

	drop, err := s.drops.Get(ctx, dropID)
	if err != nil {
		return result, fmt.Errorf("drops.Get: %w", err)
	}

	minted, total, err := s.contract.DropCounters(ctx, drop.ChainObjectID)
	if err != nil {
		return result, fmt.Errorf("contract.DropCounters: %w", err)
	}

	if remaining := total - minted; in.Count > remaining {
		return result, domain.Unprocessable(errcodes.SupplyExhausted,
			fmt.Sprintf("only %d of %d shirts left to mint", max(remaining, 0), total))
	}

	ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldDropID, dropID.String())))

	for left := in.Count; left > 0; {
		n := min(left, s.cfg.BatchSize)

		stored, digest, err := s.mintBatch(ctx, drop, n, in)
		result.Shirts = append(result.Shirts, stored...)
		result.Minted += len(stored)

		if digest != "" {
			result.Digests = append(result.Digests, digest)
		}

		if err != nil {
			result.Error = err.Error()
			s.publishMinted(ctx, result)

			return result, fmt.Errorf("batch %d: minted %d of %d: %w", result.Batches+1, result.Minted, in.Count, err)
		}

		result.Batches++
		left -= n
	}

	s.publishMinted(ctx, result)

	logger(ctx).Info("mint finished", slog.Int(logx.FieldCount, result.Minted), slog.Int("batches", result.Batches))

	return result, nil
}

func (s *Service) mintBatch(ctx context.Context, drop entity.Drop, n int, in MintInput) ([]entity.Shirt, string, error) {
	ids, digest, mintErr := s.contract.MintBatch(ctx, drop.ChainObjectID, n)
	if len(ids) == 0 {
		if mintErr == nil {
			mintErr = fmt.Errorf("mint batch %s created no shirts", digest)
		}

		return nil, digest, fmt.Errorf("contract.MintBatch: %w", mintErr)
	}

	stored, err := s.shirts.CreateMinted(ctx, drop.ID, newShirts(ids, digest, in))
	if err != nil {
		logger(ctx).Error("minted shirts not stored, backfill required",
			logx.Error(err),
			slog.String(logx.FieldDigest, digest),
		)

		return nil, digest, fmt.Errorf("shirts.CreateMinted: %w", err)
	}

	metrics.ShirtsMinted.Add(float64(len(stored)))

	if mintErr != nil {
		return stored, digest, fmt.Errorf("contract.MintBatch: %w", mintErr)
	}

	return stored, digest, nil
}

// Backfill recovers shirts created by past mint transactions that never made
// it into the store.
func (s *Service) Backfill(ctx context.Context, in BackfillInput) ([]entity.BackfillResult, error) {
	if len(in.Digests) == 0 {
		return nil, domain.InvalidArgument(errcodes.InvalidDigest, "at least one digest is required")
	}

	if _, err := s.drops.Get(ctx, in.DropID); err != nil {
		return nil, fmt.Errorf("drops.Get: %w", err)
	}

	results := make([]entity.BackfillResult, 0, len(in.Digests))

	for _, digest := range in.Digests {
		if digest == "" {
			return results, domain.InvalidArgument(errcodes.InvalidDigest, "empty digest")
		}

		ids, err := s.contract.ShirtsInTransaction(ctx, digest)
		if err != nil {
			return results, fmt.Errorf("contract.ShirtsInTransaction %s: %w", digest, err)
		}

		stored, err := s.shirts.CreateMinted(ctx, in.DropID, newShirts(ids, digest, MintInput{}))
		if err != nil {
			return results, fmt.Errorf("shirts.CreateMinted: %w", err)
		}

		results = append(results, entity.BackfillResult{Digest: digest, Found: ids, Inserted: len(stored)})

		logger(ctx).Info("backfill",
			slog.String(logx.FieldDigest, digest),
			slog.Int("found", len(ids)),
			slog.Int("inserted", len(stored)),
		)
	}

	return results, nil
}

// ScheduleBackfill validates the request and hands it to the task queue.
func (s *Service) ScheduleBackfill(ctx context.Context, in BackfillInput) error {
	if len(in.Digests) == 0 {
		return domain.InvalidArgument(errcodes.InvalidDigest, "at least one digest is required")
	}

	if _, err := s.drops.Get(ctx, in.DropID); err != nil {
		return fmt.Errorf("drops.Get: %w", err)
	}

	if err := s.scheduler.EnqueueBackfill(ctx, in); err != nil {
		return fmt.Errorf("scheduler.EnqueueBackfill: %w", err)
	}

	return nil
}

func (s *Service) publishMinted(ctx context.Context, result entity.MintResult) {
	if result.Minted == 0 {
		return
	}

	var digest string
	if len(result.Digests) > 0 {
		digest = result.Digests[len(result.Digests)-1]
	}

	s.events.Publish(ctx, entity.Event{
		Type:   entity.EventShirtsMinted,
		DropID: result.DropID,
		Count:  result.Minted,
		Digest: digest,
	})
}

func newShirts(ids []value.ObjectID, digest string, in MintInput) []entity.Shirt {
	shirts := make([]entity.Shirt, 0, len(ids))

	for _, id := range ids {
		shirts = append(shirts, entity.Shirt{
			ID:             uuid.New(),
			ObjectID:       id,
			Minted:         true,
			MintDigest:     digest,
			ImageBlobID:    in.ImageBlobID,
			MetadataBlobID: in.MetadataBlobID,
			Attributes:     in.Attributes,
		})
	}

	return shirts
}
