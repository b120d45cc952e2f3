package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain/entity"
)

type dropService interface {
	List(ctx context.Context, limit, offset int) ([]entity.Drop, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Drop, error)
	Stats(ctx context.Context, id uuid.UUID) (entity.DropStats, error)
}

type auctionService interface {
	Close(ctx context.Context, dropID uuid.UUID, trigger string) (entity.AuctionResult, error)
}

type auctionWatcher interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
	LastSweep() time.Time
}

type Handler struct {
	drops    dropService
	auctions auctionService
	watcher  auctionWatcher

	// watcherCtx outlives a single update, so a watcher started from chat
	// keeps running after the command returns.
	watcherCtx context.Context //nolint:containedctx
}

func New(ctx context.Context, drops dropService, auctions auctionService, watcher auctionWatcher) *Handler {
	return &Handler{
		drops:      drops,
		auctions:   auctions,
		watcher:    watcher,
		watcherCtx: ctx,
	}
}
