package application

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"

	"shirtdrop/internal/config"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/service/claim"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/internal/domain/service/user"
	"shirtdrop/internal/domain/value"
	"shirtdrop/internal/infrastructure/allowlist"
	"shirtdrop/internal/infrastructure/blob"
	"shirtdrop/internal/infrastructure/chain"
	"shirtdrop/internal/infrastructure/channel"
	"shirtdrop/internal/infrastructure/events"
	"shirtdrop/internal/infrastructure/notifier"
	"shirtdrop/internal/infrastructure/oidc"
	"shirtdrop/internal/infrastructure/persistence"
	"shirtdrop/internal/metrics"
	"shirtdrop/internal/server"
	"shirtdrop/internal/transport/bot"
	"shirtdrop/internal/transport/bot/handler"
	"shirtdrop/internal/worker"
	"shirtdrop/pkg/application/connectors"
	"shirtdrop/pkg/application/modules"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/httpx"
	"shirtdrop/pkg/logx"
	"shirtdrop/pkg/middlewarex"
	"shirtdrop/pkg/probe"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	eventBuffer       = 64
	asynqConcurrency  = 10
	readHeaderTimeout = 5 * time.Second
)

type runFunc func(ctx context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Run wires the service and blocks until ctx is cancelled or a module fails.
func Run(ctx context.Context, cfg config.Config) error { //nolint:funlen
	adminAddress, err := value.ParseAddress(cfg.Admin.Address)
	if err != nil {
		return fmt.Errorf("ADMIN_ADDRESS: %w", err)
	}

	trustedProxies, err := middlewarex.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("HTTP_TRUSTED_PROXIES: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	closeCtx := context.WithoutCancel(ctx)

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(closeCtx)

	rdb := &connectors.Redis{
		Username:       cfg.Redis.Username,
		Password:       cfg.Redis.Password,
		Address:        cfg.Redis.Address,
		DatabaseNumber: cfg.Redis.DB,
		PoolSize:       cfg.Redis.PoolSize,
	}
	redisClient := rdb.Client(ctx)
	defer rdb.Close(closeCtx)

	dropRepo := persistence.NewDropRepository(db)
	shirtRepo := persistence.NewShirtRepository(db)
	tokenRepo := persistence.NewClaimTokenRepository(db)
	bidRepo := persistence.NewBidRepository(db)
	userRepo := persistence.NewUserRepository(db)

	masker := logx.NewSensitiveDataMasker()
	httpOptions := []httpx.Option{
		httpx.WithLogFieldMaxLen(cfg.HTTP.LogFieldMaxLen),
		httpx.WithSensitiveDataMasker(masker),
	}

	contract, err := NewContract(cfg.Chain, httpOptions...)
	if err != nil {
		return err
	}

	logger(ctx).Info("sponsor key loaded", slog.String(logx.FieldAddress, contract.Sponsor().String()))

	shirtAllowlist, err := allowlist.Load(cfg.App.AllowlistPath)
	if err != nil {
		return fmt.Errorf("allowlist.Load: %w", err)
	}

	logger(ctx).Info("allowlist loaded", slog.Int(logx.FieldCount, shirtAllowlist.Len()))

	bus := events.NewBus(nil)

	if cfg.Events.AMQPURL != "" {
		rabbit := &connectors.RabbitMQ{URL: cfg.Events.AMQPURL, Exchange: cfg.Events.Exchange}
		defer rabbit.Close(closeCtx)

		bus = events.NewBus(events.NewAMQPPublisher(rabbit, cfg.Events.Exchange))
	}

	var notifications <-chan entity.Event
	if cfg.Bot.Token != "" && cfg.Bot.ChatID != 0 {
		notifications = bus.Subscribe(eventBuffer)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	scheduler := worker.NewScheduler(asynqClient)

	claimService := claim.NewService(shirtRepo, dropRepo, tokenRepo, contract, shirtAllowlist, bus)
	dropService := drop.NewService(contract, dropRepo, shirtRepo, tokenRepo, scheduler, bus, drop.Config{
		BatchSize:     cfg.Chain.MintBatchSize,
		PublicBaseURL: cfg.App.PublicBaseURL,
	})
	auctionService := auction.NewService(dropRepo, bidRepo, bus)
	verifier := oidc.NewVerifier([]oidc.Provider{
		oidc.Google(cfg.Session.GoogleClientIDs),
		oidc.Twitch(cfg.Session.TwitchClientIDs),
	}, httpOptions...)
	userService := user.NewService(userRepo, verifier, cfg.Session.Secret, cfg.Session.TTL)

	watcher := worker.NewAuctionWatcher(auctionService, cfg.Auction.SweepInterval)
	handlers := worker.NewHandlers(auctionService, dropService)

	srv := server.NewServer(
		server.Config{
			Version:        cfg.App.Version,
			AdminAddress:   adminAddress,
			FrontendURL:    cfg.App.FrontendURL,
			CORSOrigins:    cfg.HTTP.CORSOrigins,
			LogFieldMaxLen: cfg.HTTP.LogFieldMaxLen,
			ClaimLimit:     cfg.RateLimit.ClaimPerWindow,
			FaucetLimit:    cfg.RateLimit.FaucetPerWindow,
			LimitWindow:    cfg.RateLimit.Window,
		},
		middlewarex.NewRedisCounter(redisClient),
		userService,
		server.NewClaimServer(claimService, cfg.App.FrontendURL),
		server.NewDropServer(dropService, auctionService),
		server.NewUserServer(userService),
		server.NewProxyServer(
			blob.NewClient(blob.Config{
				AggregatorURL: cfg.Storage.AggregatorURL,
				PublisherURL:  cfg.Storage.PublisherURL,
				PublisherKey:  cfg.Storage.PublisherKey,
				Epochs:        cfg.Storage.Epochs,
			}, httpOptions...),
			channel.NewClient(channel.Config{
				FaucetURL: cfg.Channel.FaucetURL,
				ProverURL: cfg.Channel.ProverURL,
				ProverKey: cfg.Channel.ProverKey,
			}, httpOptions...),
		),
		server.NewAdminServer(dropService, auctionService),
	)

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.RealIP(trustedProxies),
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.RequestLogging(masker, cfg.HTTP.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, cfg.HTTP.LogFieldMaxLen),
	)
	srv.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	modules.HTTPServer{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}.Run(ctx, g, httpServer)

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.HTTP.ProbeAddress,
		Checks: map[string]probe.Checker{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		},
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.HTTP.MetricsAddress,
		Gatherer:      metrics.Registry,
	}.Run(ctx, g)

	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   asynqConcurrency,
	}.Run(ctx, g, modules.AsynqQueues{worker.QueueDefault: 1}, handlers.Asynq()...)

	modules.Background{Name: "auction-watcher"}.Run(ctx, g, watcher)

	if cfg.Bot.Token != "" {
		if err = runBot(ctx, g, cfg.Bot, notifications, dropService, auctionService, watcher); err != nil {
			return err
		}
	}

	err = g.Wait()

	bus.Close()

	if err != nil {
		return fmt.Errorf("g.Wait: %w", err)
	}

	return nil
}

// NewContract builds the sponsor-signed client of the Move package.
func NewContract(cfg config.Chain, opts ...httpx.Option) (*chain.Contract, error) {
	signer, err := chain.NewSigner(cfg.SponsorSecret())
	if err != nil {
		return nil, fmt.Errorf("chain.NewSigner: %w", err)
	}

	return chain.NewContract(
		chain.NewClient(cfg.RPCURL, opts...),
		signer,
		chain.Config{
			PackageID:  cfg.PackageID,
			AdminCapID: cfg.AdminCapID,
			GasBudget:  cfg.GasBudget,
		},
	), nil
}

func runBot(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.Bot,
	notifications <-chan entity.Event,
	dropService *drop.Service,
	auctionService *auction.Service,
	watcher *worker.AuctionWatcher,
) error {
	tgBot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return fmt.Errorf("telego.NewBot: %w", err)
	}

	if notifications != nil {
		tgNotifier := notifier.NewTelegramNotifier(tgBot, cfg.ChatID)

		modules.Background{Name: "notifier"}.Run(ctx, g, runFunc(func(ctx context.Context) error {
			return tgNotifier.Run(ctx, notifications)
		}))
	}

	if cfg.AdminID != 0 {
		operatorBot := bot.New(tgBot, handler.New(ctx, dropService, auctionService, watcher), cfg.AdminID)

		modules.Background{Name: "operator-bot"}.Run(ctx, g, operatorBot)
	}

	return nil
}
