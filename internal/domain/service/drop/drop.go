package drop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	maxSupply        = 100_000
	maxNameLen       = 128
	tokenAttempts    = 5
	defaultBatchSize = 50
)

type Contract interface {
	CreateDrop(ctx context.Context, name string, totalSupply int) (value.ObjectID, string, error)
	MintBatch(ctx context.Context, drop value.ObjectID, n int) ([]value.ObjectID, string, error)
	DropCounters(ctx context.Context, drop value.ObjectID) (minted, total int, err error)
	ShirtsInTransaction(ctx context.Context, digest string) ([]value.ObjectID, error)
}

type DropRepository interface {
	Create(ctx context.Context, drop *entity.Drop) error
	Update(ctx context.Context, drop *entity.Drop) error
	Get(ctx context.Context, id uuid.UUID) (entity.Drop, error)
	List(ctx context.Context, limit, offset int) ([]entity.Drop, error)
	Stats(ctx context.Context, id uuid.UUID) (entity.DropStats, error)
}

type ShirtRepository interface {
	CreateMinted(ctx context.Context, dropID uuid.UUID, shirts []entity.Shirt) ([]entity.Shirt, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Shirt, error)
	List(ctx context.Context, dropID uuid.UUID, limit, offset int) ([]entity.Shirt, error)
	ListClaimed(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error)
	ListWithoutToken(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error)
	Update(ctx context.Context, shirt *entity.Shirt) error
}

type TokenRepository interface {
	Create(ctx context.Context, record *entity.ClaimTokenRecord) error
	GetByShirt(ctx context.Context, shirtID uuid.UUID) (entity.ClaimTokenRecord, error)
}

// Scheduler queues background work.
type Scheduler interface {
	ScheduleAuctionClose(ctx context.Context, dropID uuid.UUID, at time.Time) error
	EnqueueBackfill(ctx context.Context, in BackfillInput) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event)
}

type Config struct {
	BatchSize     int
	PublicBaseURL string
}

type Service struct {
	contract  Contract
	drops     DropRepository
	shirts    ShirtRepository
	tokens    TokenRepository
	scheduler Scheduler
	events    EventPublisher
	cfg       Config
	now       func() time.Time
}

func NewService(
	contract Contract,
	drops DropRepository,
	shirts ShirtRepository,
	tokens TokenRepository,
	scheduler Scheduler,
	events EventPublisher,
	cfg Config,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	return &Service{
		contract:  contract,
		drops:     drops,
		shirts:    shirts,
		tokens:    tokens,
		scheduler: scheduler,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (entity.Drop, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxNameLen {
		return entity.Drop{}, domain.InvalidArgument(errcodes.ValidationError, "name must be 1..128 characters")
	}

	if in.TotalSupply < 1 || in.TotalSupply > maxSupply {
		return entity.Drop{}, domain.InvalidArgument(errcodes.InvalidSupply, "total supply must be 1..100000")
	}

	auction, err := s.auction(in.Auction, in.TotalSupply)
	if err != nil {
		return entity.Drop{}, err
	}

	objectID, digest, err := s.contract.CreateDrop(ctx, name, in.TotalSupply)
	if err != nil {
		return entity.Drop{}, fmt.Errorf("contract.CreateDrop: %w", err)
	}

	drop := entity.Drop{
		ID:            uuid.New(),
		Name:          name,
		Description:   in.Description,
		ImageBlobID:   in.ImageBlobID,
		TotalSupply:   in.TotalSupply,
		ChainObjectID: objectID,
		Auction:       auction,
	}

	if err = s.drops.Create(ctx, &drop); err != nil {
		logger(ctx).Error("drop created on chain but not stored",
			logx.Error(err),
			slog.String(logx.FieldObjectID, objectID.String()),
			slog.String(logx.FieldDigest, digest),
		)

		return entity.Drop{}, fmt.Errorf("drops.Create: %w", err)
	}

	s.scheduleClose(ctx, drop)

	s.events.Publish(ctx, entity.Event{
		Type:   entity.EventDropCreated,
		DropID: drop.ID,
		Name:   drop.Name,
		Digest: digest,
	})

	return drop, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (entity.Drop, error) {
	drop, err := s.drops.Get(ctx, id)
	if err != nil {
		return entity.Drop{}, fmt.Errorf("drops.Get: %w", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLen {
			return entity.Drop{}, domain.InvalidArgument(errcodes.ValidationError, "name must be 1..128 characters")
		}

		drop.Name = name
	}

	if in.Description != nil {
		drop.Description = *in.Description
	}

	if in.ImageBlobID != nil {
		drop.ImageBlobID = *in.ImageBlobID
	}

	rescheduled := false

	if in.Auction != nil {
		if drop.Auction != nil && drop.Auction.IsClosed() {
			return entity.Drop{}, domain.Conflict(errcodes.AuctionClosed, "auction already closed")
		}

		auction, err := s.auction(in.Auction, drop.TotalSupply)
		if err != nil {
			return entity.Drop{}, err
		}

		drop.Auction = auction
		rescheduled = true
	}

	if err = s.drops.Update(ctx, &drop); err != nil {
		return entity.Drop{}, fmt.Errorf("drops.Update: %w", err)
	}

	if rescheduled {
		s.scheduleClose(ctx, drop)
	}

	return drop, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (entity.Drop, error) {
	drop, err := s.drops.Get(ctx, id)
	if err != nil {
		return entity.Drop{}, fmt.Errorf("drops.Get: %w", err)
	}

	return drop, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]entity.Drop, error) {
	drops, err := s.drops.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("drops.List: %w", err)
	}

	return drops, nil
}

func (s *Service) Stats(ctx context.Context, id uuid.UUID) (entity.DropStats, error) {
	stats, err := s.drops.Stats(ctx, id)
	if err != nil {
		return entity.DropStats{}, fmt.Errorf("drops.Stats: %w", err)
	}

	return stats, nil
}

func (s *Service) auction(in *AuctionInput, totalSupply int) (*entity.Auction, error) {
	if in == nil {
		return nil, nil //nolint:nilnil
	}

	if in.Slots < 1 || in.Slots > totalSupply {
		return nil, domain.InvalidArgument(errcodes.InvalidAuction, "auction slots must be 1..total supply")
	}

	if !in.Deadline.After(s.now()) {
		return nil, domain.InvalidArgument(errcodes.InvalidAuction, "auction deadline must be in the future")
	}

	recipient, err := value.ParseAddress(in.Recipient)
	if err != nil {
		return nil, domain.InvalidArgument(errcodes.InvalidAddress, "auction recipient: "+err.Error())
	}

	return &entity.Auction{
		Slots:     in.Slots,
		Deadline:  in.Deadline.UTC(),
		Recipient: recipient,
	}, nil
}

// scheduleClose is best effort: the auction watcher closes overdue auctions
// the scheduler missed.
func (s *Service) scheduleClose(ctx context.Context, drop entity.Drop) {
	if !drop.HasAuction() {
		return
	}

	if err := s.scheduler.ScheduleAuctionClose(ctx, drop.ID, drop.Auction.Deadline); err != nil {
		logger(ctx).Warn("auction close not scheduled",
			logx.Error(err),
			slog.String(logx.FieldDropID, drop.ID.String()),
		)
	}
}
