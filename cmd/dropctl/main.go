// Command dropctl runs one-off operator tasks against the shirtdrop database
// and chain: schema migration, mint backfill, claim token issue and auction
// close.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"shirtdrop/internal/config"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config.Load", logx.Error(err))
		os.Exit(1)
	}

	log := logx.NewLogger(os.Stderr, cfg.App.Env, cfg.App.Level())
	ctx = contextx.WithLogger(ctx, log)

	d := newDeps(cfg)
	err = newRootCmd(d).ExecuteContext(ctx)

	d.close()

	if err != nil {
		log.Error("dropctl", logx.Error(err))
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}
