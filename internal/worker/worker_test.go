package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type closerStub struct {
	sweeps atomic.Int32
	err    error
}

func (c *closerStub) CloseOverdue(context.Context) (int, error) {
	c.sweeps.Add(1)
	return 1, c.err
}

func TestAuctionWatcherLifecycle(t *testing.T) {
	rq := require.New(t)

	closer := &closerStub{}
	w := worker.NewAuctionWatcher(closer, 10*time.Millisecond)

	rq.NoError(w.Start(context.Background()))
	rq.ErrorIs(w.Start(context.Background()), worker.ErrAlreadyRunning)
	rq.True(w.IsRunning())

	rq.Eventually(func() bool { return closer.sweeps.Load() >= 2 }, time.Second, 5*time.Millisecond)
	rq.False(w.LastSweep().IsZero())

	w.Stop()
	rq.False(w.IsRunning())

	w.Stop()

	rq.NoError(w.Start(context.Background()))
	w.Stop()
}

func TestAuctionWatcherRunStopsWithContext(t *testing.T) {
	rq := require.New(t)

	closer := &closerStub{err: errors.New("db down")}
	w := worker.NewAuctionWatcher(closer, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	rq.Eventually(func() bool { return closer.sweeps.Load() == 1 }, time.Second, 5*time.Millisecond)
	rq.True(w.LastSweep().IsZero())

	cancel()

	select {
	case err := <-done:
		rq.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}

	rq.False(w.IsRunning())
}

type enqueuerStub struct {
	tasks []*asynq.Task
	err   error
}

func (e *enqueuerStub) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, e.err
}

func TestScheduler(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	client := &enqueuerStub{}
	scheduler := worker.NewScheduler(client)
	dropID := uuid.New()

	rq.NoError(scheduler.ScheduleAuctionClose(ctx, dropID, time.Now().Add(time.Hour)))
	rq.NoError(scheduler.EnqueueBackfill(ctx, drop.BackfillInput{DropID: dropID, Digests: []string{"D1"}}))

	rq.Len(client.tasks, 2)
	rq.Equal(worker.TaskAuctionClose, client.tasks[0].Type())
	rq.JSONEq(`{"drop_id":"`+dropID.String()+`"}`, string(client.tasks[0].Payload()))
	rq.Equal(worker.TaskBackfill, client.tasks[1].Type())

	client.err = asynq.ErrTaskIDConflict
	rq.NoError(scheduler.ScheduleAuctionClose(ctx, dropID, time.Now().Add(time.Hour)))

	client.err = errors.New("redis down")
	rq.Error(scheduler.ScheduleAuctionClose(ctx, dropID, time.Now().Add(time.Hour)))
}

type auctionStub struct {
	dropID  uuid.UUID
	trigger string
}

func (a *auctionStub) CloseIfDue(_ context.Context, dropID uuid.UUID, trigger string) (bool, error) {
	a.dropID = dropID
	a.trigger = trigger

	return true, nil
}

type backfillStub struct {
	in drop.BackfillInput
}

func (b *backfillStub) Backfill(_ context.Context, in drop.BackfillInput) ([]entity.BackfillResult, error) {
	b.in = in
	return nil, nil
}

func TestHandlers(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	auctions := &auctionStub{}
	backfills := &backfillStub{}
	handlers := worker.NewHandlers(auctions, backfills)
	rq.Len(handlers.Asynq(), 2)

	dropID := uuid.New()

	payload, err := jsoniter.Marshal(map[string]any{"drop_id": dropID})
	rq.NoError(err)

	rq.NoError(handlers.CloseAuction(ctx, asynq.NewTask(worker.TaskAuctionClose, payload)))
	rq.Equal(dropID, auctions.dropID)
	rq.Equal("schedule", auctions.trigger)

	payload, err = jsoniter.Marshal(map[string]any{"drop_id": dropID, "digests": []string{"A", "B"}})
	rq.NoError(err)

	rq.NoError(handlers.Backfill(ctx, asynq.NewTask(worker.TaskBackfill, payload)))
	rq.Equal([]string{"A", "B"}, backfills.in.Digests)

	err = handlers.Backfill(ctx, asynq.NewTask(worker.TaskBackfill, []byte("{")))
	rq.ErrorIs(err, asynq.SkipRetry)
}
