package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// SendTransaction sends req through the active connector. A set req.ChainID
// must match the active chain; From defaults to the connected account.
func SendTransaction(ctx context.Context, c *client.Client, req connectors.TransactionRequest) (common.Hash, error) {
	conn, s, err := activeConnector(c)
	if err != nil {
		return common.Hash{}, observe(c, "send_transaction", err)
	}
	if err := checkChain(s, req.ChainID); err != nil {
		return common.Hash{}, observe(c, "send_transaction", err)
	}
	if req.From == (common.Address{}) {
		req.From = s.Account
	}
	req.ChainID = s.ChainID

	hash, err := conn.SendTransaction(ctx, req)
	if err != nil {
		return common.Hash{}, observe(c, "send_transaction", errors.Normalize(err))
	}
	return hash, observe(c, "send_transaction", nil)
}

// WaitParams configures WaitForTransaction.
type WaitParams struct {
	Hash          common.Hash
	ChainID       int64
	Confirmations uint64        // defaults to 1
	Timeout       time.Duration // zero waits until ctx ends
}

// ErrTransactionReverted is returned when the mined receipt has status 0.
var ErrTransactionReverted = errors.New("transaction reverted")

// WaitForTransaction polls for the receipt of p.Hash until it has the
// requested number of confirmations.
func WaitForTransaction(ctx context.Context, c *client.Client, p WaitParams) (*types.Receipt, error) {
	if p.Confirmations == 0 {
		p.Confirmations = 1
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	pc, _, err := publicClient(c, p.ChainID)
	if err != nil {
		return nil, err
	}

	interval := c.PollingInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		receipt, err := pc.TransactionReceipt(ctx, p.Hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%s: %w", p.Hash.Hex(), ErrTransactionReverted)
			}
			if p.Confirmations <= 1 {
				return receipt, nil
			}
			head, err := pc.BlockNumber(ctx)
			if err != nil && ctx.Err() == nil {
				return nil, errors.Normalize(err)
			}
			if err == nil && receipt.BlockNumber != nil && head+1 >= receipt.BlockNumber.Uint64()+p.Confirmations {
				return receipt, nil
			}
		case err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil:
			return nil, errors.Normalize(err)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Normalize(ctx.Err())
		case <-ticker.C:
		}
	}
}
