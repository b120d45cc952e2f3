package middlewarex

import (
	"log/slog"
	"net/http"

	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		traceID, err := contextx.TraceIDFromContext(ctx)
		if err != nil {
			logger(ctx).Error("contextx.TraceIDFromContext", logx.Error(err))
		}

		ctx = contextx.WithLogger(
			ctx,
			logger(ctx).With(
				logx.Stringer(logx.FieldTraceID, traceID),
				slog.String(logx.FieldURL, r.URL.Path),
				slog.String(logx.FieldHTTPMethod, r.Method),
				slog.String(logx.FieldIP, ClientIP(r)),
			),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
