package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/logx"
	"shirtdrop/pkg/lox"
)

const (
	moduleDrop  = "drop"
	moduleShirt = "shirt"

	typeDrop  = "::drop::Drop"
	typeShirt = "::shirt::Shirt"
)

var ErrUnexpectedEffects = errors.New("transaction effects do not contain expected objects")

type Config struct {
	PackageID  string
	AdminCapID string
	GasBudget  uint64
}

// Contract wraps the shirt drop Move package. Every call is built by the
// node, signed with the sponsor key and executed in one round.
type Contract struct {
	client *Client
	signer *Signer
	cfg    Config
}

func NewContract(client *Client, signer *Signer, cfg Config) *Contract {
	return &Contract{
		client: client,
		signer: signer,
		cfg:    cfg,
	}
}

func (c *Contract) Sponsor() value.Address {
	return c.signer.Address()
}

func (c *Contract) CreateDrop(ctx context.Context, name string, totalSupply int) (value.ObjectID, string, error) {
	resp, err := c.execute(ctx, moduleDrop, "create_drop", []any{
		c.cfg.AdminCapID,
		name,
		strconv.Itoa(totalSupply),
	})
	if err != nil {
		return "", "", err
	}

	created := resp.Created(typeDrop)
	if len(created) != 1 {
		return "", resp.Digest, fmt.Errorf("create_drop %s: %w", resp.Digest, ErrUnexpectedEffects)
	}

	id, err := value.ParseObjectID(created[0])
	if err != nil {
		return "", resp.Digest, fmt.Errorf("value.ParseObjectID: %w", err)
	}

	return id, resp.Digest, nil
}

// MintBatch mints n shirts into the sponsor's custody and returns their
// object ids in creation order.
func (c *Contract) MintBatch(ctx context.Context, drop value.ObjectID, n int) ([]value.ObjectID, string, error) {
	resp, err := c.execute(ctx, moduleDrop, "mint_batch", []any{
		c.cfg.AdminCapID,
		drop.String(),
		strconv.Itoa(n),
	})
	if err != nil {
		return nil, "", err
	}

	ids, err := CreatedShirts(resp)
	if err != nil {
		return nil, resp.Digest, err
	}

	if len(ids) != n {
		return ids, resp.Digest, fmt.Errorf("mint_batch %s: created %d of %d: %w",
			resp.Digest, len(ids), n, ErrUnexpectedEffects)
	}

	return ids, resp.Digest, nil
}

func (c *Contract) TransferShirt(ctx context.Context, shirt value.ObjectID, recipient value.Address) (string, error) {
	resp, err := c.execute(ctx, moduleShirt, "transfer_shirt", []any{
		c.cfg.AdminCapID,
		shirt.String(),
		recipient.String(),
	})
	if err != nil {
		return "", err
	}

	return resp.Digest, nil
}

// DropCounters reads minted and total_supply from the shared Drop object.
func (c *Contract) DropCounters(ctx context.Context, drop value.ObjectID) (minted, total int, err error) {
	obj, err := c.client.GetObject(ctx, drop)
	if err != nil {
		return 0, 0, err
	}

	if obj.Content == nil {
		return 0, 0, fmt.Errorf("drop %s has no content: %w", drop, ErrUnexpectedEffects)
	}

	m, okMinted := obj.Content.Uint("minted")
	t, okTotal := obj.Content.Uint("total_supply")

	if !okMinted || !okTotal {
		return 0, 0, fmt.Errorf("drop %s counters missing: %w", drop, ErrUnexpectedEffects)
	}

	return int(m), int(t), nil
}

// ShirtsInTransaction is used by backfill to recover shirts created by a
// past mint transaction.
func (c *Contract) ShirtsInTransaction(ctx context.Context, digest string) ([]value.ObjectID, error) {
	resp, err := c.client.GetTransaction(ctx, digest)
	if err != nil {
		return nil, err
	}

	return CreatedShirts(resp)
}

func CreatedShirts(resp TransactionResponse) ([]value.ObjectID, error) {
	ids, err := lox.MapErr(resp.Created(typeShirt), value.ParseObjectID)
	if err != nil {
		return nil, fmt.Errorf("value.ParseObjectID: %w", err)
	}

	return ids, nil
}

func (c *Contract) execute(ctx context.Context, module, function string, args []any) (TransactionResponse, error) {
	tx, err := c.client.MoveCall(ctx, c.signer.Address(), c.cfg.PackageID, module, function, args, c.cfg.GasBudget)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("%s::%s build: %w", module, function, err)
	}

	raw, err := base64.StdEncoding.DecodeString(tx.TxBytes)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("%s::%s decode txBytes: %w", module, function, err)
	}

	resp, err := c.client.Execute(ctx, tx.TxBytes, c.signer.SignTransaction(raw))
	if err != nil {
		return resp, fmt.Errorf("%s::%s execute: %w", module, function, err)
	}

	contextx.LoggerFromContextOrDefault(ctx).InfoContext(ctx, "transaction executed",
		slog.String("call", module+"::"+function),
		slog.String(logx.FieldDigest, resp.Digest),
	)

	return resp, nil
}
