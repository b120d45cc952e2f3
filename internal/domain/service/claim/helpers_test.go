package claim_test

import "git.appkode.ru/pub/go/failure"

func codeOf(err error) failure.ErrorCode {
	if err == nil {
		return ""
	}

	return failure.Code(err)
}
