package claim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/internal/infrastructure/allowlist"
	"shirtdrop/internal/metrics"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	viewCacheTTL   = 30 * time.Second
	claimGuardTTL  = 24 * time.Hour
	cleanupPeriod  = 10 * time.Minute
	inflightPrefix = "inflight:"
	claimedPrefix  = "allowlist-claimed:"
)

type ShirtRepository interface {
	Get(ctx context.Context, id uuid.UUID) (entity.Shirt, error)
	GetByObjectID(ctx context.Context, id value.ObjectID) (entity.Shirt, error)
	CreateMinted(ctx context.Context, dropID uuid.UUID, shirts []entity.Shirt) ([]entity.Shirt, error)
	MarkClaimed(ctx context.Context, id uuid.UUID, claim entity.Claim) error
}

type DropRepository interface {
	Get(ctx context.Context, id uuid.UUID) (entity.Drop, error)
}

type TokenRepository interface {
	Get(ctx context.Context, token value.ClaimToken) (entity.ClaimTokenRecord, error)
}

type Transferer interface {
	TransferShirt(ctx context.Context, shirt value.ObjectID, recipient value.Address) (string, error)
}

type Allowlist interface {
	Lookup(shirtID uuid.UUID) (allowlist.Entry, bool)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event)
}

type Service struct {
	shirts    ShirtRepository
	drops     DropRepository
	tokens    TokenRepository
	chain     Transferer
	allowlist Allowlist
	events    EventPublisher
	cache     *cache.Cache
	now       func() time.Time
}

func NewService(
	shirts ShirtRepository,
	drops DropRepository,
	tokens TokenRepository,
	chain Transferer,
	allowlist Allowlist,
	events EventPublisher,
) *Service {
	return &Service{
		shirts:    shirts,
		drops:     drops,
		tokens:    tokens,
		chain:     chain,
		allowlist: allowlist,
		events:    events,
		cache:     cache.New(viewCacheTTL, cleanupPeriod),
		now:       time.Now,
	}
}

func (s *Service) ResolveToken(ctx context.Context, raw string) (entity.ClaimTokenRecord, error) {
	token, err := value.ParseClaimToken(raw)
	if err != nil {
		return entity.ClaimTokenRecord{}, domain.InvalidArgument(errcodes.InvalidClaimToken, err.Error())
	}

	record, err := s.tokens.Get(ctx, token)
	if err != nil {
		return entity.ClaimTokenRecord{}, fmt.Errorf("tokens.Get: %w", err)
	}

	return record, nil
}

// GetShirt looks the shirt up in the store first and in the allowlist second.
// Views are cached for a short time since the claim page polls them.
func (s *Service) GetShirt(ctx context.Context, id uuid.UUID) (entity.ShirtView, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		if view, ok := cached.(entity.ShirtView); ok {
			return view, nil
		}
	}

	view, err := s.loadView(ctx, id)
	if err != nil {
		return entity.ShirtView{}, err
	}

	s.cache.SetDefault(id.String(), view)

	return view, nil
}

// Claim transfers the shirt NFT to recipient and records the claim. There is
// no retry: a failed transfer leaves the shirt claimable.
func (s *Service) Claim(ctx context.Context, shirtID uuid.UUID, rawRecipient string) (result entity.ClaimResult, err error) {
	defer func() {
		metrics.Claims.WithLabelValues(claimOutcome(result, err)).Inc()
	}()

	recipient, err := value.ParseAddress(rawRecipient)
	if err != nil {
		return entity.ClaimResult{}, domain.InvalidArgument(errcodes.InvalidAddress, err.Error())
	}

	ctx = contextx.WithLogger(ctx, logger(ctx).With(
		slog.String(logx.FieldShirtID, shirtID.String()),
		slog.String(logx.FieldAddress, recipient.String()),
	))

	if err = s.cache.Add(inflightPrefix+shirtID.String(), true, time.Minute); err != nil {
		return entity.ClaimResult{}, domain.Conflict(errcodes.ShirtAlreadyClaimed, "claim already in progress")
	}
	defer s.cache.Delete(inflightPrefix + shirtID.String())

	target, err := s.claimTarget(ctx, shirtID)
	if err != nil {
		return entity.ClaimResult{}, err
	}

	digest, err := s.chain.TransferShirt(ctx, target.shirt.ObjectID, recipient)
	if err != nil {
		if target.fromAllowlist {
			s.cache.Delete(claimedPrefix + shirtID.String())
		}

		return entity.ClaimResult{}, fmt.Errorf("chain.TransferShirt: %w", err)
	}

	result = entity.ClaimResult{
		ShirtID:   shirtID,
		ObjectID:  target.shirt.ObjectID,
		Recipient: recipient,
		Digest:    digest,
	}

	logger(ctx).Info("shirt transferred", slog.String(logx.FieldDigest, digest))

	s.cache.Delete(shirtID.String())

	if err = s.record(ctx, target, entity.Claim{Recipient: recipient, Digest: digest, ClaimedAt: s.now().UTC()}); err != nil {
		// the transfer already happened; the caller gets the digest along
		// with the error
		logger(ctx).Error("claim not recorded", logx.Error(err), slog.String(logx.FieldDigest, digest))

		return result, fmt.Errorf("record claim %s: %w", digest, err)
	}

	s.events.Publish(ctx, entity.Event{
		Type:    entity.EventShirtClaimed,
		DropID:  target.shirt.DropID,
		ShirtID: shirtID,
		Address: recipient,
		Digest:  digest,
	})

	return result, nil
}

type claimTarget struct {
	shirt         entity.Shirt
	fromAllowlist bool
}

func (s *Service) claimTarget(ctx context.Context, shirtID uuid.UUID) (claimTarget, error) {
	shirt, err := s.shirts.Get(ctx, shirtID)

	switch {
	case err == nil:
		if !shirt.Minted || shirt.ObjectID.IsZero() {
			return claimTarget{}, domain.Conflict(errcodes.ShirtNotMinted, "shirt is not minted yet")
		}

		if shirt.IsClaimed() {
			return claimTarget{}, domain.Conflict(errcodes.ShirtAlreadyClaimed, "shirt already claimed")
		}

		return claimTarget{shirt: shirt}, nil
	case !domain.IsCode(err, errcodes.ShirtNotFound):
		return claimTarget{}, fmt.Errorf("shirts.Get: %w", err)
	}

	entry, ok := s.allowlist.Lookup(shirtID)
	if !ok {
		return claimTarget{}, domain.NotFound(errcodes.ShirtNotFound, "shirt not found")
	}

	if err = s.cache.Add(claimedPrefix+shirtID.String(), true, claimGuardTTL); err != nil {
		return claimTarget{}, domain.Conflict(errcodes.ShirtAlreadyClaimed, "shirt already claimed")
	}

	return claimTarget{shirt: allowlistShirt(entry), fromAllowlist: true}, nil
}

// record writes the claim. Allowlist shirts get a store row first when their
// drop is in the store; an object already stored under another id is marked
// on that row.
func (s *Service) record(ctx context.Context, target claimTarget, claim entity.Claim) error {
	id := target.shirt.ID

	if target.fromAllowlist {
		stored, ok, err := s.storeAllowlisted(ctx, target.shirt)
		if err != nil || !ok {
			return err
		}

		id = stored
	}

	if err := s.shirts.MarkClaimed(ctx, id, claim); err != nil {
		return fmt.Errorf("shirts.MarkClaimed: %w", err)
	}

	return nil
}

func (s *Service) storeAllowlisted(ctx context.Context, shirt entity.Shirt) (uuid.UUID, bool, error) {
	if shirt.DropID == uuid.Nil {
		return uuid.Nil, false, nil
	}

	if _, err := s.drops.Get(ctx, shirt.DropID); err != nil {
		if domain.IsCode(err, errcodes.DropNotFound) {
			logger(ctx).Info("allowlist drop is not stored, claim kept in memory",
				slog.String(logx.FieldDropID, shirt.DropID.String()))

			return uuid.Nil, false, nil
		}

		return uuid.Nil, false, fmt.Errorf("drops.Get: %w", err)
	}

	inserted, err := s.shirts.CreateMinted(ctx, shirt.DropID, []entity.Shirt{shirt})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("shirts.CreateMinted: %w", err)
	}

	if len(inserted) == 1 {
		return inserted[0].ID, true, nil
	}

	existing, err := s.shirts.GetByObjectID(ctx, shirt.ObjectID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("shirts.GetByObjectID: %w", err)
	}

	return existing.ID, true, nil
}

func (s *Service) loadView(ctx context.Context, id uuid.UUID) (entity.ShirtView, error) {
	shirt, err := s.shirts.Get(ctx, id)
	fromAllowlist := false

	if err != nil {
		if !domain.IsCode(err, errcodes.ShirtNotFound) {
			return entity.ShirtView{}, fmt.Errorf("shirts.Get: %w", err)
		}

		entry, ok := s.allowlist.Lookup(id)
		if !ok {
			return entity.ShirtView{}, err
		}

		shirt = allowlistShirt(entry)
		fromAllowlist = true

		if _, claimed := s.cache.Get(claimedPrefix + id.String()); claimed {
			shirt.Claim = &entity.Claim{}
		}
	}

	view := entity.ShirtView{Shirt: shirt, FromAllowlist: fromAllowlist}

	if shirt.DropID == uuid.Nil {
		return view, nil
	}

	drop, err := s.drops.Get(ctx, shirt.DropID)
	if err != nil {
		if !domain.IsCode(err, errcodes.DropNotFound) {
			return entity.ShirtView{}, fmt.Errorf("drops.Get: %w", err)
		}

		return view, nil
	}

	view.Drop = &drop

	return view, nil
}

func allowlistShirt(entry allowlist.Entry) entity.Shirt {
	return entity.Shirt{
		ID:         entry.ShirtID,
		DropID:     entry.DropID,
		ObjectID:   entry.ObjectID,
		Minted:     true,
		Attributes: entry.Attrs,
	}
}

// claimOutcome labels a claim for metrics. A transfer that succeeded on chain
// but failed to be recorded still carries its digest.
func claimOutcome(result entity.ClaimResult, err error) string {
	switch {
	case err == nil:
		return "ok"
	case result.Digest != "":
		return "unrecorded"
	case domain.IsCode(err, errcodes.ShirtAlreadyClaimed),
		domain.IsCode(err, errcodes.ShirtNotMinted),
		domain.IsCode(err, errcodes.ShirtNotFound),
		domain.IsCode(err, errcodes.InvalidAddress):
		return "rejected"
	default:
		return "error"
	}
}
