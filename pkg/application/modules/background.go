package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

type runner interface {
	Run(ctx context.Context) error
}

// Background runs a long-lived loop (auction watcher, operator bot) until the
// context is cancelled.
type Background struct {
	Name string
}

func (b Background) Run(ctx context.Context, g *errgroup.Group, r runner) {
	g.Go(func() error {
		logger(ctx).Info("background module started", slog.String("module", b.Name))

		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s.Run: %w", b.Name, err)
		}

		logger(ctx).Info("background module stopped", slog.String("module", b.Name))

		return nil
	})
}
