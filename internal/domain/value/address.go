package value

import (
	"encoding/hex"
	"errors"
	"strings"
)

const addressHexLen = 64

var ErrInvalidAddress = errors.New("address must be 0x followed by up to 64 hex characters")

// Address is a normalised chain address: 0x + 64 lowercase hex characters.
// Object ids share the same format.
type Address string

func ParseAddress(raw string) (Address, error) {
	s := strings.ToLower(strings.TrimSpace(raw))

	hexPart, ok := strings.CutPrefix(s, "0x")
	if !ok || hexPart == "" || len(hexPart) > addressHexLen {
		return "", ErrInvalidAddress
	}

	if len(hexPart)%2 == 1 {
		hexPart = "0" + hexPart
	}

	if _, err := hex.DecodeString(hexPart); err != nil {
		return "", ErrInvalidAddress
	}

	return Address("0x" + strings.Repeat("0", addressHexLen-len(hexPart)) + hexPart), nil
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsZero() bool {
	return a == ""
}

// Short renders 0x1234…abcd for operator messages.
func (a Address) Short() string {
	if len(a) < 12 {
		return string(a)
	}

	return string(a[:6]) + "…" + string(a[len(a)-4:])
}

type ObjectID = Address

func ParseObjectID(raw string) (ObjectID, error) {
	return ParseAddress(raw)
}
