package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shirtdrop/internal/metrics"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const taskWatcher = "auction:sweep"

var ErrAlreadyRunning = errors.New("auction watcher is already running")

type overdueCloser interface {
	CloseOverdue(ctx context.Context) (int, error)
}

// AuctionWatcher periodically closes auctions whose deadline passed. It backs
// up the scheduled close tasks, which are lost if Redis is flushed. Operators
// can pause and resume it from the bot.
type AuctionWatcher struct {
	closer   overdueCloser
	interval time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	isRunning  bool
	lastSweep  time.Time
	wg         sync.WaitGroup
}

func NewAuctionWatcher(closer overdueCloser, interval time.Duration) *AuctionWatcher {
	return &AuctionWatcher{
		closer:   closer,
		interval: interval,
	}
}

// Run starts the watcher and blocks until ctx is done.
func (w *AuctionWatcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	w.Stop()

	return nil
}

func (w *AuctionWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.isRunning = true

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			w.isRunning = false
			w.cancelFunc = nil
			w.mu.Unlock()
		}()

		w.loop(loopCtx)
	}()

	return nil
}

func (w *AuctionWatcher) Stop() {
	w.mu.Lock()

	if !w.isRunning {
		w.mu.Unlock()
		return
	}

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *AuctionWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.isRunning
}

// LastSweep is zero until the first sweep finishes.
func (w *AuctionWatcher) LastSweep() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lastSweep
}

func (w *AuctionWatcher) loop(ctx context.Context) {
	logger(ctx).Info("auction watcher started", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweep(ctx)

		select {
		case <-ctx.Done():
			logger(ctx).Info("auction watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *AuctionWatcher) sweep(ctx context.Context) {
	closed, err := w.closer.CloseOverdue(ctx)
	metrics.Tasks.WithLabelValues(taskWatcher, metrics.Result(err)).Inc()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger(ctx).Error("auction sweep failed", logx.Error(err))
		}

		return
	}

	w.mu.Lock()
	w.lastSweep = time.Now()
	w.mu.Unlock()

	if closed > 0 {
		logger(ctx).Info("overdue auctions closed", slog.Int(logx.FieldCount, closed))
	}
}
