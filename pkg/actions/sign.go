package actions

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// SignMessage signs message with the active account (EIP-191).
func SignMessage(ctx context.Context, c *client.Client, message []byte) (hexutil.Bytes, error) {
	conn, _, err := activeConnector(c)
	if err != nil {
		return nil, observe(c, "sign_message", err)
	}
	sig, err := conn.SignMessage(ctx, message)
	if err != nil {
		return nil, observe(c, "sign_message", errors.Normalize(err))
	}
	return sig, observe(c, "sign_message", nil)
}

// SignTypedData signs EIP-712 data. A domain chain id different from the
// active chain is a ChainMismatch.
func SignTypedData(ctx context.Context, c *client.Client, data apitypes.TypedData) (hexutil.Bytes, error) {
	conn, s, err := activeConnector(c)
	if err != nil {
		return nil, observe(c, "sign_typed_data", err)
	}
	if id := data.Domain.ChainId; id != nil {
		if err := checkChain(s, (*big.Int)(id).Int64()); err != nil {
			return nil, observe(c, "sign_typed_data", err)
		}
	}
	sig, err := conn.SignTypedData(ctx, data)
	if err != nil {
		return nil, observe(c, "sign_typed_data", errors.Normalize(err))
	}
	return sig, observe(c, "sign_typed_data", nil)
}
