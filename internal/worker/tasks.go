package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/metrics"
	"shirtdrop/pkg/application/modules"
	"shirtdrop/pkg/logx"
)

const (
	TaskAuctionClose = "auction:close"
	TaskBackfill     = "drop:backfill"

	QueueDefault = "default"

	closeRetention = 24 * time.Hour
	maxRetry       = 5
)

type closePayload struct {
	DropID uuid.UUID `json:"drop_id"`
}

type backfillPayload struct {
	DropID  uuid.UUID `json:"drop_id"`
	Digests []string  `json:"digests"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler queues background work in Redis through asynq.
type Scheduler struct {
	client enqueuer
}

func NewScheduler(client enqueuer) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleAuctionClose queues the close at the deadline. The task id is tied
// to the drop and the deadline, so re-scheduling the same deadline is a no-op
// and a moved deadline gets its own task.
func (s *Scheduler) ScheduleAuctionClose(ctx context.Context, dropID uuid.UUID, at time.Time) error {
	payload, err := jsoniter.Marshal(closePayload{DropID: dropID})
	if err != nil {
		return fmt.Errorf("jsoniter.Marshal: %w", err)
	}

	_, err = s.client.EnqueueContext(ctx, asynq.NewTask(TaskAuctionClose, payload),
		asynq.ProcessAt(at),
		asynq.TaskID(fmt.Sprintf("%s:%s:%d", TaskAuctionClose, dropID, at.Unix())),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(closeRetention),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("client.EnqueueContext: %w", err)
	}

	return nil
}

func (s *Scheduler) EnqueueBackfill(ctx context.Context, in drop.BackfillInput) error {
	payload, err := jsoniter.Marshal(backfillPayload(in))
	if err != nil {
		return fmt.Errorf("jsoniter.Marshal: %w", err)
	}

	_, err = s.client.EnqueueContext(ctx, asynq.NewTask(TaskBackfill, payload),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
	)
	if err != nil {
		return fmt.Errorf("client.EnqueueContext: %w", err)
	}

	return nil
}

type auctionCloser interface {
	CloseIfDue(ctx context.Context, dropID uuid.UUID, trigger string) (bool, error)
}

type backfiller interface {
	Backfill(ctx context.Context, in drop.BackfillInput) ([]entity.BackfillResult, error)
}

type Handlers struct {
	auctions auctionCloser
	drops    backfiller
}

func NewHandlers(auctions auctionCloser, drops backfiller) *Handlers {
	return &Handlers{
		auctions: auctions,
		drops:    drops,
	}
}

func (h *Handlers) Asynq() []modules.AsynqHandler {
	return []modules.AsynqHandler{
		{Pattern: TaskAuctionClose, Handle: h.CloseAuction},
		{Pattern: TaskBackfill, Handle: h.Backfill},
	}
}

func (h *Handlers) CloseAuction(ctx context.Context, task *asynq.Task) (err error) {
	defer observe(TaskAuctionClose, &err)

	var payload closePayload
	if err = jsoniter.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	closed, err := h.auctions.CloseIfDue(ctx, payload.DropID, auction.TriggerSchedule)
	if err != nil {
		return fmt.Errorf("auctions.CloseIfDue: %w", err)
	}

	logger(ctx).Info("scheduled auction close",
		slog.String(logx.FieldDropID, payload.DropID.String()),
		slog.Bool("closed", closed),
	)

	return nil
}

func (h *Handlers) Backfill(ctx context.Context, task *asynq.Task) (err error) {
	defer observe(TaskBackfill, &err)

	var payload backfillPayload
	if err = jsoniter.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	if _, err = h.drops.Backfill(ctx, drop.BackfillInput(payload)); err != nil {
		return fmt.Errorf("drops.Backfill: %w", err)
	}

	return nil
}

func observe(task string, err *error) {
	metrics.Tasks.WithLabelValues(task, metrics.Result(*err)).Inc()
}
