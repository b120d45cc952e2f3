package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"shirtdrop/internal/domain/value"
)

func TestNewClaimToken(t *testing.T) {
	rq := require.New(t)

	seen := make(map[value.ClaimToken]struct{})

	for range 200 {
		token, err := value.NewClaimToken()
		rq.NoError(err)
		rq.Len(token.String(), value.ClaimTokenLength)

		parsed, err := value.ParseClaimToken(token.String())
		rq.NoError(err)
		rq.Equal(token, parsed)

		seen[token] = struct{}{}
	}

	rq.Greater(len(seen), 195)
}

func TestParseClaimToken(t *testing.T) {
	rq := require.New(t)

	_, err := value.ParseClaimToken("Ab3dE9xZ")
	rq.NoError(err)

	for _, bad := range []string{"", "short", "Ab3dE9xZ1", "Ab3d-9xZ", "Ab3dÉ9x"} {
		_, err = value.ParseClaimToken(bad)
		rq.ErrorIs(err, value.ErrInvalidClaimToken, bad)
	}
}
