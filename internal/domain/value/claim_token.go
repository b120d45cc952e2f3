package value

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	ClaimTokenLength   = 8
	claimTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var ErrInvalidClaimToken = errors.New("claim token must be 8 base62 characters")

// ClaimToken is the short code printed into the NFC tag URL.
type ClaimToken string

func NewClaimToken() (ClaimToken, error) {
	buf := make([]byte, ClaimTokenLength)
	limit := big.NewInt(int64(len(claimTokenAlphabet)))

	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err //nolint:wrapcheck
		}

		buf[i] = claimTokenAlphabet[n.Int64()]
	}

	return ClaimToken(buf), nil
}

func ParseClaimToken(raw string) (ClaimToken, error) {
	if len(raw) != ClaimTokenLength {
		return "", ErrInvalidClaimToken
	}

	for i := range len(raw) {
		if !isBase62(raw[i]) {
			return "", ErrInvalidClaimToken
		}
	}

	return ClaimToken(raw), nil
}

func (t ClaimToken) String() string {
	return string(t)
}

func isBase62(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
