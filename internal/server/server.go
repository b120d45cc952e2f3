package server

import (
	"context"
	"time"

	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Config struct {
	Version      string
	AdminAddress value.Address
	// FrontendURL is where /c/{token} redirects to.
	FrontendURL string
	CORSOrigins []string

	LogFieldMaxLen int

	ClaimLimit  int64
	FaucetLimit int64
	LimitWindow time.Duration
}

type rateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type authenticator interface {
	Authenticate(token string) (value.Address, error)
}

// Server объединяет специфичные HTTP сервера, отвечающие за обработку
// конкретных сущностей.
type Server struct {
	ClaimServer
	DropServer
	UserServer
	ProxyServer
	AdminServer

	cfg     Config
	limiter rateCounter
	auth    authenticator
}

func NewServer(
	cfg Config,
	limiter rateCounter,
	auth authenticator,
	claimServer ClaimServer,
	dropServer DropServer,
	userServer UserServer,
	proxyServer ProxyServer,
	adminServer AdminServer,
) Server {
	return Server{
		ClaimServer: claimServer,
		DropServer:  dropServer,
		UserServer:  userServer,
		ProxyServer: proxyServer,
		AdminServer: adminServer,
		cfg:         cfg,
		limiter:     limiter,
		auth:        auth,
	}
}
