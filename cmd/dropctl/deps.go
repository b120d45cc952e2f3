package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"

	"shirtdrop/internal/application"
	"shirtdrop/internal/config"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/infrastructure/chain"
	"shirtdrop/internal/infrastructure/events"
	"shirtdrop/internal/infrastructure/persistence"
	"shirtdrop/internal/worker"
	"shirtdrop/pkg/application/connectors"
)

// deps opens connections on first use so commands that only need the
// database never dial redis or the chain.
type deps struct {
	cfg     config.Config
	pg      *connectors.Postgres
	db      *sqlx.DB
	asynq   *asynq.Client
	bus     *events.Bus
	closers []func()
}

func newDeps(cfg config.Config) *deps {
	return &deps{cfg: cfg, bus: events.NewBus(nil)}
}

func (d *deps) database(ctx context.Context) (*sqlx.DB, error) {
	if d.db != nil {
		return d.db, nil
	}

	d.pg = &connectors.Postgres{
		DSN:             d.cfg.Postgres.DSN,
		MaxOpenConns:    d.cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    d.cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: d.cfg.Postgres.ConnMaxLifetime,
	}
	d.db = d.pg.Client(ctx)
	d.closers = append(d.closers, func() { d.pg.Close(context.Background()) })

	if err := d.pg.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return d.db, nil
}

func (d *deps) contract() (*chain.Contract, error) {
	return application.NewContract(d.cfg.Chain)
}

func (d *deps) scheduler() *worker.Scheduler {
	if d.asynq == nil {
		d.asynq = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     d.cfg.Redis.Address,
			Username: d.cfg.Redis.Username,
			Password: d.cfg.Redis.Password,
			DB:       d.cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.asynq.Close() })
	}

	return worker.NewScheduler(d.asynq)
}

func (d *deps) dropService(ctx context.Context) (*drop.Service, error) {
	db, err := d.database(ctx)
	if err != nil {
		return nil, err
	}

	contract, err := d.contract()
	if err != nil {
		return nil, err
	}

	return drop.NewService(
		contract,
		persistence.NewDropRepository(db),
		persistence.NewShirtRepository(db),
		persistence.NewClaimTokenRepository(db),
		d.scheduler(),
		d.bus,
		drop.Config{
			BatchSize:     d.cfg.Chain.MintBatchSize,
			PublicBaseURL: d.cfg.App.PublicBaseURL,
		},
	), nil
}

func (d *deps) auctionService(ctx context.Context) (*auction.Service, error) {
	db, err := d.database(ctx)
	if err != nil {
		return nil, err
	}

	return auction.NewService(persistence.NewDropRepository(db), persistence.NewBidRepository(db), d.bus), nil
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
