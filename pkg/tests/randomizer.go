package tests

import (
	"encoding/hex"
	"math/rand"
	"time"
)

type Randomizer struct {
	Float64 func() float64
	Bool    func() bool
	Bytes   func(n int) []byte
}

func NewRandomizer() Randomizer {
	random := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // for tests

	return Randomizer{
		Float64: random.Float64,
		Bool:    func() bool { return random.Intn(2) == 0 }, //nolint:mnd // skip
		Bytes: func(n int) []byte {
			b := make([]byte, n)
			_, _ = random.Read(b)

			return b
		},
	}
}

// RandomHex returns 2*n lowercase hex characters.
func RandomHex(n int) string {
	return hex.EncodeToString(NewRandomizer().Bytes(n))
}

// RandomAddress returns a well formed 0x-prefixed 32-byte address.
func RandomAddress() string {
	return "0x" + RandomHex(32) //nolint:mnd // address length
}
