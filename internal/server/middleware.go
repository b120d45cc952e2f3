package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/logx"
)

const (
	headerAdminAddress = "X-Admin-Address"
	corsMaxAge         = 600
)

// allowOrigins answers CORS requests from the listed origins, "*" meaning any.
// Without origins no CORS headers are written.
func allowOrigins(origins []string) func(next http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", headerAdminAddress, "X-Trace-Id"},
		ExposedHeaders: []string{"X-Trace-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         corsMaxAge,
	})
}

// adminOnly lets through requests whose X-Admin-Address equals the operator
// address after normalisation.
func adminOnly(admin value.Address) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			address, err := value.ParseAddress(r.Header.Get(headerAdminAddress))
			if err != nil || admin.IsZero() || address != admin {
				reply.Error(ctx, w, domain.Forbidden(errcodes.AdminAddressInvalid, "admin address required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// session requires a bearer session token and puts its address into the
// request context.
func session(auth authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				reply.Error(ctx, w, domain.Unauthorized(errcodes.SessionTokenInvalid, "session token required"))
				return
			}

			address, err := auth.Authenticate(strings.TrimSpace(token))
			if err != nil {
				reply.Error(ctx, w, err)
				return
			}

			ctx = contextx.WithAddress(ctx, contextx.Address(address))
			ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldAddress, address.String())))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionAddress(r *http.Request) (value.Address, error) {
	address, err := contextx.AddressFromContext(r.Context())
	if err != nil {
		return "", domain.Unauthorized(errcodes.SessionTokenInvalid, "session token required")
	}

	return value.Address(address), nil
}
