package reply

import (
	"context"
	"log/slog"
	"net/http"

	"git.appkode.ru/pub/go/failure"
	jsoniter "github.com/json-iterator/go"

	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SupportID string `json:"supportId"`
}

func (e *errorResponse) WithDefaultCode(code failure.ErrorCode) {
	if e.Code == "" {
		e.Code = code.String()
	}
}

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func OK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func Created(w http.ResponseWriter) {
	w.WriteHeader(http.StatusCreated)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func JSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger(ctx).Error("json.Encode", logx.Error(err))
	}
}

// RawJSON writes an upstream JSON body as is.
func RawJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		logger(ctx).Error("w.Write", logx.Error(err))
	}
}

// TooManyRequests is written by the rate limiter, which runs outside of the
// handler error path.
func TooManyRequests(ctx context.Context, w http.ResponseWriter, retryAfter string) {
	w.Header().Set("Retry-After", retryAfter)

	JSON(ctx, w, http.StatusTooManyRequests, errorResponse{
		Code:      errcodes.TooManyRequests.String(),
		Message:   "rate limit exceeded",
		SupportID: supportID(ctx),
	})
}

func Error(ctx context.Context, w http.ResponseWriter, err error) {
	response := errorResponse{
		Code:      failure.Code(err).String(),
		Message:   failure.Description(err),
		SupportID: supportID(ctx),
	}

	status := http.StatusInternalServerError

	switch {
	case failure.IsInvalidArgumentError(err):
		response.WithDefaultCode(errcodes.ValidationError)
		status = http.StatusBadRequest
	case failure.IsNotFoundError(err):
		response.WithDefaultCode(errcodes.NotFound)
		status = http.StatusNotFound
	case failure.IsUnauthorizedError(err):
		response.WithDefaultCode(errcodes.SessionTokenInvalid)
		status = http.StatusUnauthorized
	case failure.IsForbiddenError(err):
		response.WithDefaultCode(errcodes.Forbidden)
		status = http.StatusForbidden
	case failure.IsConflictError(err):
		status = http.StatusConflict
	case failure.IsUnprocessableEntityError(err):
		status = http.StatusUnprocessableEntity
	default:
		response.WithDefaultCode(errcodes.InternalServerError)
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	logger(ctx).Log(ctx, level, "error", logx.Error(err), slog.Int(logx.FieldResponseStatus, status))

	JSON(ctx, w, status, response)
}

func supportID(ctx context.Context) string {
	traceID, err := contextx.TraceIDFromContext(ctx)
	if err != nil {
		return "unsupported"
	}

	return traceID.String()
}
