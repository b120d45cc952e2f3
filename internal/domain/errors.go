package domain

import (
	"git.appkode.ru/pub/go/failure"
)

// The helpers below attach both a code and a user facing description, so
// reply.Error can render them without further mapping.

func NotFound(code failure.ErrorCode, message string) error {
	return failure.NewNotFoundError(message, failure.WithCode(code), failure.WithDescription(message))
}

func InvalidArgument(code failure.ErrorCode, message string) error {
	return failure.NewInvalidArgumentError(message, failure.WithCode(code), failure.WithDescription(message))
}

func Conflict(code failure.ErrorCode, message string) error {
	return failure.NewConflictError(message, failure.WithCode(code), failure.WithDescription(message))
}

func Forbidden(code failure.ErrorCode, message string) error {
	return failure.NewForbiddenError(message, failure.WithCode(code), failure.WithDescription(message))
}

func Unauthorized(code failure.ErrorCode, message string) error {
	return failure.NewUnauthorizedError(message, failure.WithCode(code), failure.WithDescription(message))
}

func Unprocessable(code failure.ErrorCode, message string) error {
	return failure.NewUnprocessableEntityError(message, failure.WithCode(code), failure.WithDescription(message))
}

// IsCode reports whether err carries the given failure code.
func IsCode(err error, code failure.ErrorCode) bool {
	return err != nil && failure.Code(err) == code
}
