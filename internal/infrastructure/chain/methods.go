package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

var ErrObjectNotFound = errors.New("object not found")

// MoveCall asks the node to build an unsigned transaction calling
// package::module::function with the given arguments. Gas coins are picked by
// the node from the signer's balance.
func (c *Client) MoveCall(
	ctx context.Context,
	signer value.Address,
	packageID, module, function string,
	args []any,
	gasBudget uint64,
) (TransactionBytes, error) {
	var tx TransactionBytes

	err := c.call(ctx, "unsafe_moveCall", []any{
		signer.String(),
		packageID,
		module,
		function,
		[]string{},
		args,
		nil,
		strconv.FormatUint(gasBudget, 10),
		nil,
	}, &tx)
	if err != nil {
		return TransactionBytes{}, err
	}

	if tx.TxBytes == "" {
		return TransactionBytes{}, fmt.Errorf("unsafe_moveCall: empty txBytes")
	}

	return tx, nil
}

// Execute submits a signed transaction and waits for local execution.
// A transaction that executed but aborted is reported as ChainTxFailed.
func (c *Client) Execute(ctx context.Context, txBytes, signature string) (TransactionResponse, error) {
	var resp TransactionResponse

	err := c.call(ctx, "sui_executeTransactionBlock", []any{
		txBytes,
		[]string{signature},
		map[string]bool{
			"showEffects":       true,
			"showObjectChanges": true,
		},
		"WaitForLocalExecution",
	}, &resp)
	if err != nil {
		return TransactionResponse{}, err
	}

	if !resp.Succeeded() {
		reason := "no effects"
		if resp.Effects != nil {
			reason = resp.Effects.Status.Error
		}

		return resp, fmt.Errorf("transaction %s: %w", resp.Digest,
			domain.Unprocessable(errcodes.ChainTxFailed, "transaction failed on chain: "+reason))
	}

	return resp, nil
}

func (c *Client) GetObject(ctx context.Context, id value.ObjectID) (ObjectData, error) {
	var resp ObjectResponse

	err := c.call(ctx, "sui_getObject", []any{
		id.String(),
		map[string]bool{
			"showContent": true,
			"showType":    true,
		},
	}, &resp)
	if err != nil {
		return ObjectData{}, err
	}

	if resp.Data == nil {
		return ObjectData{}, fmt.Errorf("sui_getObject %s: %w", id, ErrObjectNotFound)
	}

	return *resp.Data, nil
}

func (c *Client) GetTransaction(ctx context.Context, digest string) (TransactionResponse, error) {
	var resp TransactionResponse

	err := c.call(ctx, "sui_getTransactionBlock", []any{
		digest,
		map[string]bool{
			"showEffects":       true,
			"showObjectChanges": true,
		},
	}, &resp)
	if err != nil {
		return TransactionResponse{}, err
	}

	return resp, nil
}
