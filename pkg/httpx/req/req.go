package req

import (
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"shirtdrop/pkg/errcodes"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	maxBodyBytes = 1 << 20
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary         //nolint:gochecknoglobals // skip
	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // skip
)

func Read(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		return failure.NewInvalidArgumentError(
			fmt.Errorf("json.Decode: %w", err).Error(),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription("Invalid JSON"),
		)
	}

	if err := validate.StructCtx(r.Context(), dest); err != nil {
		return failure.NewInvalidArgumentError(
			"validation error",
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription(err.Error()),
		)
	}

	return nil
}

type Paging struct {
	Limit  int
	Offset int
}

// ReadPaging parses ?limit=&offset= with defaults.
func ReadPaging(r *http.Request) (Paging, error) {
	paging := Paging{Limit: defaultLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxLimit {
			return Paging{}, invalidPaging("limit must be between 1 and 500")
		}

		paging.Limit = limit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Paging{}, invalidPaging("offset must be a non-negative integer")
		}

		paging.Offset = offset
	}

	return paging, nil
}

func invalidPaging(description string) error {
	return failure.NewInvalidArgumentError(
		"invalid paging",
		failure.WithCode(errcodes.InvalidPaging),
		failure.WithDescription(description),
	)
}
