package modules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
)

type AsynqQueues map[string]int

type AsynqHandler struct {
	Pattern string
	Handle  func(context.Context, *asynq.Task) error
}

type AsynqServer struct {
	RedisUsername string
	RedisPassword string
	RedisAddress  string
	RedisDB       int
	Concurrency   int
}

func (s AsynqServer) Run(
	ctx context.Context,
	g *errgroup.Group,
	queues AsynqQueues,
	handlers ...AsynqHandler,
) {
	redisConnection := asynq.RedisClientOpt{
		Addr:     s.RedisAddress,
		Username: s.RedisUsername,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	}

	worker := asynq.NewServer(redisConnection, asynq.Config{
		BaseContext: func() context.Context { return ctx },
		Queues:      queues,
		Concurrency: s.Concurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger(ctx).Error("asynq task failed", slog.String(logx.FieldTask, task.Type()), logx.Error(err))
		}),
	})

	mux := asynq.NewServeMux()

	for _, h := range handlers {
		mux.HandleFunc(h.Pattern, h.Handle)
	}

	mux.Use(func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(taskCtx context.Context, task *asynq.Task) error {
			taskCtx = contextx.WithLogger(taskCtx, logger(ctx).With(slog.String(logx.FieldTask, task.Type())))

			return next.ProcessTask(taskCtx, task)
		})
	})

	g.Go(func() error {
		logger(ctx).Info("asynq server started", slog.String("redis-address", s.RedisAddress), slog.Int("redis-db", s.RedisDB))

		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("asynqServer.Start: %w", err)
		}

		<-ctx.Done()

		worker.Shutdown()

		logger(ctx).Info("asynq server stopped", slog.String("redis-address", s.RedisAddress), slog.Int("redis-db", s.RedisDB))

		return nil
	})
}
