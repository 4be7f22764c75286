package hooks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/DeBrosOfficial/walletkit/pkg/actions"
	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
)

// ConnectArgs selects the connector to activate. Connector wins over
// ConnectorID.
type ConnectArgs struct {
	Connector   connectors.Connector
	ConnectorID string
	ChainID     int64
}

// NewConnect returns the connect action hook.
func NewConnect(ctx context.Context, opts ...MutationOption) (*Mutation[ConnectArgs, connectors.ConnectResult], error) {
	return newMutation(ctx, "connect",
		func(ctx context.Context, c *client.Client, args ConnectArgs) (connectors.ConnectResult, error) {
			conn := args.Connector
			if conn == nil {
				var err error
				if conn, err = c.Connector(args.ConnectorID); err != nil {
					return connectors.ConnectResult{}, err
				}
			}
			res, err := c.Connect(ctx, conn, args.ChainID)
			c.Metrics().ObserveAction("connect", err)
			return res, err
		}, opts)
}

// NewDisconnect returns the disconnect action hook.
func NewDisconnect(ctx context.Context, opts ...MutationOption) (*Mutation[struct{}, struct{}], error) {
	return newMutation(ctx, "disconnect",
		func(ctx context.Context, c *client.Client, _ struct{}) (struct{}, error) {
			err := c.Disconnect(ctx)
			c.Metrics().ObserveAction("disconnect", err)
			return struct{}{}, err
		}, opts)
}

// NewSendTransaction returns the send-transaction action hook.
func NewSendTransaction(ctx context.Context, opts ...MutationOption) (*Mutation[connectors.TransactionRequest, common.Hash], error) {
	return newMutation(ctx, "sendTransaction", actions.SendTransaction, opts)
}

// NewSignMessage returns the sign-message action hook.
func NewSignMessage(ctx context.Context, opts ...MutationOption) (*Mutation[[]byte, hexutil.Bytes], error) {
	return newMutation(ctx, "signMessage", actions.SignMessage, opts)
}

// NewSignTypedData returns the EIP-712 signing action hook.
func NewSignTypedData(ctx context.Context, opts ...MutationOption) (*Mutation[apitypes.TypedData, hexutil.Bytes], error) {
	return newMutation(ctx, "signTypedData", actions.SignTypedData, opts)
}

// NewSwitchNetwork returns the switch-network action hook.
func NewSwitchNetwork(ctx context.Context, opts ...MutationOption) (*Mutation[int64, chains.Chain], error) {
	return newMutation(ctx, "switchNetwork", actions.SwitchNetwork, opts)
}

// NewWriteContract returns the contract-write action hook.
func NewWriteContract(ctx context.Context, opts ...MutationOption) (*Mutation[actions.WriteContractParams, common.Hash], error) {
	return newMutation(ctx, "writeContract", actions.WriteContract, opts)
}
