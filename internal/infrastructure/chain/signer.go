package chain

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"shirtdrop/internal/domain/value"
)

const flagEd25519 byte = 0x00

// intent scope TransactionData, version V0, app id Sui.
var transactionIntent = []byte{0, 0, 0} //nolint:gochecknoglobals

var ErrInvalidKey = errors.New("sponsor key must be base64 keystore entry or 32-byte hex seed")

// Signer holds the custodial sponsor key that pays gas and owns minted shirts
// until they are claimed.
type Signer struct {
	private ed25519.PrivateKey
	address value.Address
}

// NewSigner accepts a keystore entry (base64 of flag || seed) or a hex seed.
func NewSigner(secret string) (*Signer, error) {
	seed, err := decodeSeed(strings.TrimSpace(secret))
	if err != nil {
		return nil, err
	}

	private := ed25519.NewKeyFromSeed(seed)
	public, _ := private.Public().(ed25519.PublicKey)

	return &Signer{
		private: private,
		address: addressOf(public),
	}, nil
}

func (s *Signer) Address() value.Address {
	return s.address
}

func (s *Signer) PublicKey() ed25519.PublicKey {
	public, _ := s.private.Public().(ed25519.PublicKey)
	return public
}

// SignTransaction returns the serialized signature expected by
// sui_executeTransactionBlock: flag || signature || public key, base64.
func (s *Signer) SignTransaction(txBytes []byte) string {
	digest := TransactionDigest(txBytes)
	signature := ed25519.Sign(s.private, digest[:])

	serialized := make([]byte, 0, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	serialized = append(serialized, flagEd25519)
	serialized = append(serialized, signature...)
	serialized = append(serialized, s.PublicKey()...)

	return base64.StdEncoding.EncodeToString(serialized)
}

// TransactionDigest is the message that gets signed: blake2b-256 over the
// intent prefix and the BCS transaction bytes.
func TransactionDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)

	return blake2b.Sum256(msg)
}

func addressOf(public ed25519.PublicKey) value.Address {
	buf := make([]byte, 0, 1+len(public))
	buf = append(buf, flagEd25519)
	buf = append(buf, public...)

	sum := blake2b.Sum256(buf)

	return value.Address("0x" + hex.EncodeToString(sum[:]))
}

func decodeSeed(secret string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == ed25519.SeedSize+1 {
		if raw[0] != flagEd25519 {
			return nil, fmt.Errorf("unsupported key scheme flag %#x: %w", raw[0], ErrInvalidKey)
		}

		return raw[1:], nil
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(secret, "0x"))
	if err != nil || len(raw) != ed25519.SeedSize {
		return nil, ErrInvalidKey
	}

	return raw, nil
}
