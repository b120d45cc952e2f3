package user_test

import "git.appkode.ru/pub/go/failure"

func failureCode(code string) failure.ErrorCode {
	return failure.ErrorCode(code)
}
