package contextx

import (
	"context"
	"fmt"
)

// Address is the chain address of the signed-in user.
type Address string

type contextKeyAddress struct{}

func (a Address) String() string {
	return string(a)
}

func WithAddress(ctx context.Context, address Address) context.Context {
	return context.WithValue(ctx, contextKeyAddress{}, address)
}

func AddressFromContext(ctx context.Context) (Address, error) {
	address, ok := ctx.Value(contextKeyAddress{}).(Address)
	if !ok || address == "" {
		return "", fmt.Errorf("address: %w", ErrNoValue)
	}

	return address, nil
}
