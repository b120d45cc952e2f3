package auction_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

const (
	alice = value.Address("0x00000000000000000000000000000000000000000000000000000000000000a1")
	bob   = value.Address("0x00000000000000000000000000000000000000000000000000000000000000b0")
	carol = value.Address("0x00000000000000000000000000000000000000000000000000000000000000c0")
)

type dropRepoStub struct {
	drops map[uuid.UUID]entity.Drop
}

func (r *dropRepoStub) Get(_ context.Context, id uuid.UUID) (entity.Drop, error) {
	d, ok := r.drops[id]
	if !ok {
		return entity.Drop{}, domain.NotFound(errcodes.DropNotFound, "drop not found")
	}

	return d, nil
}

func (r *dropRepoStub) ListOverdueAuctions(_ context.Context, now time.Time) ([]entity.Drop, error) {
	var overdue []entity.Drop

	for _, d := range r.drops {
		if d.HasAuction() && !d.Auction.IsClosed() && !now.Before(d.Auction.Deadline) {
			overdue = append(overdue, d)
		}
	}

	return overdue, nil
}

// bidRepoStub keeps bids in memory and mimics the store's close transaction.
type bidRepoStub struct {
	drops *dropRepoStub
	bids  map[uuid.UUID]map[value.Address]entity.Bid
	clock time.Time
}

func (r *bidRepoStub) Upsert(_ context.Context, bid *entity.Bid) (entity.Bid, error) {
	r.clock = r.clock.Add(time.Second)

	if r.bids[bid.DropID] == nil {
		r.bids[bid.DropID] = map[value.Address]entity.Bid{}
	}

	stored, ok := r.bids[bid.DropID][bid.Bidder]
	if !ok {
		stored.CreatedAt = r.clock
	}

	stored.DropID = bid.DropID
	stored.Bidder = bid.Bidder
	stored.Amount = bid.Amount
	stored.ChannelSession = bid.ChannelSession
	stored.Status = value.BidStatusPending
	stored.UpdatedAt = r.clock

	r.bids[bid.DropID][bid.Bidder] = stored

	return stored, nil
}

func (r *bidRepoStub) List(_ context.Context, dropID uuid.UUID) ([]entity.Bid, error) {
	list := make([]entity.Bid, 0, len(r.bids[dropID]))
	for _, b := range r.bids[dropID] {
		list = append(list, b)
	}

	return list, nil
}

func (r *bidRepoStub) Get(_ context.Context, dropID uuid.UUID, bidder value.Address) (entity.Bid, error) {
	b, ok := r.bids[dropID][bidder]
	if !ok {
		return entity.Bid{}, domain.NotFound(errcodes.BidNotFound, "bid not found")
	}

	return b, nil
}

func (r *bidRepoStub) Winners(_ context.Context, dropID uuid.UUID) ([]entity.Bid, error) {
	var winners []entity.Bid

	for _, b := range r.bids[dropID] {
		if b.Status == value.BidStatusWon {
			winners = append(winners, b)
		}
	}

	return winners, nil
}

func (r *bidRepoStub) CloseAuction(
	ctx context.Context,
	dropID uuid.UUID,
	closedAt time.Time,
	rank func(entity.Drop, []entity.Bid) []entity.Bid,
) ([]entity.Bid, error) {
	d, err := r.drops.Get(ctx, dropID)
	if err != nil {
		return nil, err
	}

	if d.Auction == nil {
		return nil, domain.Unprocessable(errcodes.AuctionNotConfigured, "drop has no auction")
	}

	if d.Auction.IsClosed() {
		return nil, domain.Conflict(errcodes.AuctionClosed, "auction already closed")
	}

	bids, _ := r.List(ctx, dropID)
	ranked := rank(d, bids)

	for _, b := range ranked {
		r.bids[dropID][b.Bidder] = b
	}

	d.Auction.ClosedAt = &closedAt
	r.drops.drops[dropID] = d

	return ranked, nil
}

type eventsStub struct {
	published []entity.Event
}

func (e *eventsStub) Publish(_ context.Context, event entity.Event) {
	e.published = append(e.published, event)
}

type fixture struct {
	drops  *dropRepoStub
	bids   *bidRepoStub
	events *eventsStub
	svc    *auction.Service
}

func newFixture() *fixture {
	drops := &dropRepoStub{drops: map[uuid.UUID]entity.Drop{}}

	f := &fixture{
		drops:  drops,
		bids:   &bidRepoStub{drops: drops, bids: map[uuid.UUID]map[value.Address]entity.Bid{}, clock: time.Now()},
		events: &eventsStub{},
	}
	f.svc = auction.NewService(drops, f.bids, f.events)

	return f
}

func (f *fixture) seed(slots int, deadline time.Time) uuid.UUID {
	id := uuid.New()

	d := entity.Drop{ID: id, TotalSupply: 10}
	if slots > 0 {
		d.Auction = &entity.Auction{Slots: slots, Deadline: deadline, Recipient: carol}
	}

	f.drops.drops[id] = d

	return id
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "1", want: "1"},
		{raw: "0.000001", want: "0.000001"},
		{raw: "12.500000000", want: "12.5"},
		{raw: " 3.25 ", want: "3.25"},
		{raw: "0.0000001", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rq := require.New(t)

			amount, err := auction.ParseAmount(tt.raw)
			if tt.wantErr {
				rq.True(domain.IsCode(err, errcodes.InvalidAmount))
				return
			}

			rq.NoError(err)
			rq.True(amount.Equal(decimal.RequireFromString(tt.want)))
		})
	}
}

func TestPlaceBid(t *testing.T) {
	f := newFixture()

	open := f.seed(2, time.Now().Add(time.Hour))
	expired := f.seed(2, time.Now().Add(-time.Minute))
	noAuction := f.seed(0, time.Time{})

	tests := []struct {
		name     string
		in       auction.PlaceBidInput
		wantCode string
	}{
		{name: "ok", in: auction.PlaceBidInput{DropID: open, Session: alice, Amount: "1.5"}},
		{
			name: "explicit bidder matches",
			in:   auction.PlaceBidInput{DropID: open, Session: alice, Bidder: "0xA1", Amount: "2"},
		},
		{
			name:     "bidder mismatch",
			in:       auction.PlaceBidInput{DropID: open, Session: alice, Bidder: bob.String(), Amount: "2"},
			wantCode: string(errcodes.BidderMismatch),
		},
		{
			name:     "bad amount",
			in:       auction.PlaceBidInput{DropID: open, Session: alice, Amount: "1.1234567"},
			wantCode: string(errcodes.InvalidAmount),
		},
		{
			name:     "deadline passed",
			in:       auction.PlaceBidInput{DropID: expired, Session: alice, Amount: "1"},
			wantCode: string(errcodes.AuctionDeadlinePassed),
		},
		{
			name:     "no auction",
			in:       auction.PlaceBidInput{DropID: noAuction, Session: alice, Amount: "1"},
			wantCode: string(errcodes.AuctionNotConfigured),
		},
		{
			name:     "unknown drop",
			in:       auction.PlaceBidInput{DropID: uuid.New(), Session: alice, Amount: "1"},
			wantCode: string(errcodes.DropNotFound),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := require.New(t)

			bid, err := f.svc.PlaceBid(context.Background(), tt.in)
			if tt.wantCode != "" {
				rq.Equal(tt.wantCode, string(codeOf(err)))
				return
			}

			rq.NoError(err)
			rq.Equal(alice, bid.Bidder)
			rq.Equal(value.BidStatusPending, bid.Status)
		})
	}
}

func TestCloseRanksBids(t *testing.T) {
	rq := require.New(t)
	f := newFixture()
	ctx := context.Background()

	id := f.seed(2, time.Now().Add(time.Hour))

	place := func(who value.Address, amount string) {
		_, err := f.svc.PlaceBid(ctx, auction.PlaceBidInput{DropID: id, Session: who, Amount: amount})
		rq.NoError(err)
	}

	place(alice, "5")
	place(bob, "3")
	place(carol, "3")
	place(alice, "1")

	result, err := f.svc.Close(ctx, id, auction.TriggerAdmin)
	rq.NoError(err)
	rq.Len(result.Winners, 2)
	rq.Equal(bob, result.Winners[0].Bidder)
	rq.Equal(carol, result.Winners[1].Bidder)
	rq.Equal(1, result.Losers)

	lost, err := f.svc.GetBid(ctx, id, alice.String())
	rq.NoError(err)
	rq.Equal(value.BidStatusLost, lost.Status)
	rq.Equal(3, *lost.Rank)

	_, err = f.svc.Close(ctx, id, auction.TriggerAdmin)
	rq.True(domain.IsCode(err, errcodes.AuctionClosed))

	_, err = f.svc.PlaceBid(ctx, auction.PlaceBidInput{DropID: id, Session: alice, Amount: "9"})
	rq.True(domain.IsCode(err, errcodes.AuctionClosed))

	rq.Len(f.events.published, 1)
	rq.Equal(2, f.events.published[0].Count)
}

func TestCloseIfDueAndOverdue(t *testing.T) {
	rq := require.New(t)
	f := newFixture()
	ctx := context.Background()

	future := f.seed(1, time.Now().Add(time.Hour))
	past := f.seed(1, time.Now().Add(-time.Hour))
	pastToo := f.seed(1, time.Now().Add(-time.Minute))

	closed, err := f.svc.CloseIfDue(ctx, future, auction.TriggerSchedule)
	rq.NoError(err)
	rq.False(closed)

	closed, err = f.svc.CloseIfDue(ctx, past, auction.TriggerSchedule)
	rq.NoError(err)
	rq.True(closed)

	closed, err = f.svc.CloseIfDue(ctx, past, auction.TriggerSchedule)
	rq.NoError(err)
	rq.False(closed)

	n, err := f.svc.CloseOverdue(ctx)
	rq.NoError(err)
	rq.Equal(1, n)
	rq.True(f.drops.drops[pastToo].Auction.IsClosed())
	rq.False(f.drops.drops[future].Auction.IsClosed())
}

func TestRank(t *testing.T) {
	now := time.Now()

	bids := []entity.Bid{
		{Bidder: alice, Amount: decimal.NewFromInt(1), UpdatedAt: now},
		{Bidder: bob, Amount: decimal.NewFromInt(2), UpdatedAt: now.Add(time.Second)},
		{Bidder: carol, Amount: decimal.NewFromInt(2), UpdatedAt: now},
	}

	ranked := auction.Rank(entity.Drop{Auction: &entity.Auction{Slots: 1}}, bids)

	require.Equal(t, []value.Address{carol, bob, alice}, []value.Address{ranked[0].Bidder, ranked[1].Bidder, ranked[2].Bidder})
	require.Equal(t, value.BidStatusWon, ranked[0].Status)
	require.Equal(t, value.BidStatusLost, ranked[1].Status)
	require.Equal(t, 3, *ranked[2].Rank)
	require.Nil(t, bids[0].Rank)
}
