package drop_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

type contractStub struct {
	minted, total int
	batches       []int
	failBatch     int
	created       map[string][]value.ObjectID
	next          int
}

func (c *contractStub) CreateDrop(context.Context, string, int) (value.ObjectID, string, error) {
	return "0x00000000000000000000000000000000000000000000000000000000000000d1", "CREATE", nil
}

func (c *contractStub) MintBatch(_ context.Context, _ value.ObjectID, n int) ([]value.ObjectID, string, error) {
	c.batches = append(c.batches, n)

	if len(c.batches) == c.failBatch {
		return nil, "", errors.New("gas exhausted")
	}

	ids := make([]value.ObjectID, 0, n)
	for range n {
		c.next++
		ids = append(ids, value.ObjectID(fmt.Sprintf("0x%064x", c.next)))
	}

	c.minted += n

	return ids, fmt.Sprintf("MINT%d", len(c.batches)), nil
}

func (c *contractStub) DropCounters(context.Context, value.ObjectID) (int, int, error) {
	return c.minted, c.total, nil
}

func (c *contractStub) ShirtsInTransaction(_ context.Context, digest string) ([]value.ObjectID, error) {
	ids, ok := c.created[digest]
	if !ok {
		return nil, errors.New("transaction not found")
	}

	return ids, nil
}

type dropRepoStub struct {
	drops map[uuid.UUID]entity.Drop
}

func (r *dropRepoStub) Create(_ context.Context, d *entity.Drop) error {
	r.drops[d.ID] = *d
	return nil
}

func (r *dropRepoStub) Update(_ context.Context, d *entity.Drop) error {
	r.drops[d.ID] = *d
	return nil
}

func (r *dropRepoStub) Get(_ context.Context, id uuid.UUID) (entity.Drop, error) {
	d, ok := r.drops[id]
	if !ok {
		return entity.Drop{}, domain.NotFound(errcodes.DropNotFound, "drop not found")
	}

	return d, nil
}

func (r *dropRepoStub) List(context.Context, int, int) ([]entity.Drop, error) {
	list := make([]entity.Drop, 0, len(r.drops))
	for _, d := range r.drops {
		list = append(list, d)
	}

	return list, nil
}

func (r *dropRepoStub) Stats(_ context.Context, id uuid.UUID) (entity.DropStats, error) {
	return entity.DropStats{DropID: id}, nil
}

type shirtRepoStub struct {
	shirts map[uuid.UUID]entity.Shirt
	byObj  map[value.ObjectID]bool
	tokens map[uuid.UUID]bool
}

func newShirtRepo() *shirtRepoStub {
	return &shirtRepoStub{
		shirts: map[uuid.UUID]entity.Shirt{},
		byObj:  map[value.ObjectID]bool{},
		tokens: map[uuid.UUID]bool{},
	}
}

func (r *shirtRepoStub) CreateMinted(_ context.Context, dropID uuid.UUID, shirts []entity.Shirt) ([]entity.Shirt, error) {
	var inserted []entity.Shirt

	for _, s := range shirts {
		if r.byObj[s.ObjectID] {
			continue
		}

		s.DropID = dropID
		s.Serial = len(r.shirts) + 1
		r.shirts[s.ID] = s
		r.byObj[s.ObjectID] = true
		inserted = append(inserted, s)
	}

	return inserted, nil
}

func (r *shirtRepoStub) Get(_ context.Context, id uuid.UUID) (entity.Shirt, error) {
	s, ok := r.shirts[id]
	if !ok {
		return entity.Shirt{}, domain.NotFound(errcodes.ShirtNotFound, "shirt not found")
	}

	return s, nil
}

func (r *shirtRepoStub) List(_ context.Context, dropID uuid.UUID, _, _ int) ([]entity.Shirt, error) {
	var list []entity.Shirt

	for _, s := range r.shirts {
		if s.DropID == dropID {
			list = append(list, s)
		}
	}

	return list, nil
}

func (r *shirtRepoStub) ListClaimed(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error) {
	all, _ := r.List(ctx, dropID, 0, 0)

	var claimed []entity.Shirt

	for _, s := range all {
		if s.IsClaimed() {
			claimed = append(claimed, s)
		}
	}

	return claimed, nil
}

func (r *shirtRepoStub) ListWithoutToken(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error) {
	all, _ := r.List(ctx, dropID, 0, 0)

	var without []entity.Shirt

	for _, s := range all {
		if !r.tokens[s.ID] {
			without = append(without, s)
		}
	}

	return without, nil
}

func (r *shirtRepoStub) Update(_ context.Context, s *entity.Shirt) error {
	r.shirts[s.ID] = *s
	return nil
}

type tokenRepoStub struct {
	shirts     *shirtRepoStub
	byShirt    map[uuid.UUID]entity.ClaimTokenRecord
	collisions int
}

func (r *tokenRepoStub) Create(_ context.Context, rec *entity.ClaimTokenRecord) error {
	if r.collisions > 0 {
		r.collisions--
		return domain.Conflict(errcodes.ClaimTokenCollision, "claim token already taken")
	}

	r.byShirt[rec.ShirtID] = *rec
	r.shirts.tokens[rec.ShirtID] = true

	return nil
}

func (r *tokenRepoStub) GetByShirt(_ context.Context, id uuid.UUID) (entity.ClaimTokenRecord, error) {
	rec, ok := r.byShirt[id]
	if !ok {
		return entity.ClaimTokenRecord{}, domain.NotFound(errcodes.ClaimTokenNotFound, "claim token not found")
	}

	return rec, nil
}

type schedulerStub struct {
	closes    map[uuid.UUID]time.Time
	backfills []drop.BackfillInput
}

func (s *schedulerStub) ScheduleAuctionClose(_ context.Context, id uuid.UUID, at time.Time) error {
	s.closes[id] = at
	return nil
}

func (s *schedulerStub) EnqueueBackfill(_ context.Context, in drop.BackfillInput) error {
	s.backfills = append(s.backfills, in)
	return nil
}

type eventsStub struct {
	published []entity.Event
}

func (e *eventsStub) Publish(_ context.Context, event entity.Event) {
	e.published = append(e.published, event)
}

type fixture struct {
	contract  *contractStub
	drops     *dropRepoStub
	shirts    *shirtRepoStub
	tokens    *tokenRepoStub
	scheduler *schedulerStub
	events    *eventsStub
	svc       *drop.Service
}

func newFixture(batchSize int) *fixture {
	shirts := newShirtRepo()

	f := &fixture{
		contract:  &contractStub{total: 100, created: map[string][]value.ObjectID{}},
		drops:     &dropRepoStub{drops: map[uuid.UUID]entity.Drop{}},
		shirts:    shirts,
		tokens:    &tokenRepoStub{shirts: shirts, byShirt: map[uuid.UUID]entity.ClaimTokenRecord{}},
		scheduler: &schedulerStub{closes: map[uuid.UUID]time.Time{}},
		events:    &eventsStub{},
	}

	f.svc = drop.NewService(f.contract, f.drops, f.shirts, f.tokens, f.scheduler, f.events, drop.Config{
		BatchSize:     batchSize,
		PublicBaseURL: "https://shirt.example/",
	})

	return f
}

func (f *fixture) seedDrop() entity.Drop {
	d := entity.Drop{
		ID:            uuid.New(),
		Name:          "Genesis",
		TotalSupply:   f.contract.total,
		ChainObjectID: "0x00000000000000000000000000000000000000000000000000000000000000d1",
	}
	f.drops.drops[d.ID] = d

	return d
}
