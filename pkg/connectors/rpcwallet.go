package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
)

// RPCDialFunc opens the JSON-RPC connection to a wallet.
type RPCDialFunc func(ctx context.Context, url string) (*rpc.Client, error)

// RPCWalletOptions configures an RPCWalletConnector.
type RPCWalletOptions struct {
	ID     string // defaults to "rpc"
	Name   string // defaults to "JSON-RPC Wallet"
	Chains []chains.Chain
	Dial   RPCDialFunc // defaults to rpc.DialContext
	Logger *logging.ColoredLogger
}

// RPCWalletConnector delegates accounts, signing and broadcasting to an
// external wallet speaking EIP-1193 methods over JSON-RPC (e.g. a signer
// daemon or a development node with unlocked accounts).
type RPCWalletConnector struct {
	emitter

	id     string
	name   string
	url    string
	chains []chains.Chain
	dial   RPCDialFunc
	logger *logging.ColoredLogger

	mu     sync.Mutex
	client *rpc.Client
}

// NewRPCWalletConnector returns a connector for the wallet endpoint at url.
func NewRPCWalletConnector(url string, opts RPCWalletOptions) *RPCWalletConnector {
	if opts.ID == "" {
		opts.ID = "rpc"
	}
	if opts.Name == "" {
		opts.Name = "JSON-RPC Wallet"
	}
	if opts.Dial == nil {
		opts.Dial = rpc.DialContext
	}
	if len(opts.Chains) == 0 {
		opts.Chains = []chains.Chain{chains.Mainnet}
	}
	logger := logging.OrNop(opts.Logger)
	return &RPCWalletConnector{
		emitter: emitter{id: opts.ID, logger: logger},
		id:      opts.ID,
		name:    opts.Name,
		url:     url,
		chains:  opts.Chains,
		dial:    opts.Dial,
		logger:  logger,
	}
}

func (w *RPCWalletConnector) ID() string             { return w.id }
func (w *RPCWalletConnector) Name() string           { return w.name }
func (w *RPCWalletConnector) Ready() bool            { return w.url != "" }
func (w *RPCWalletConnector) Chains() []chains.Chain { return w.chains }

func (w *RPCWalletConnector) conn(ctx context.Context) (*rpc.Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		return w.client, nil
	}
	if w.url == "" {
		return nil, errors.NewConnectorNotFoundError(w.id)
	}
	c, err := w.dial(ctx, w.url)
	if err != nil {
		return nil, errors.NewResourceUnavailableError(fmt.Errorf("dial wallet %s: %w", w.url, err))
	}
	w.client = c
	return c, nil
}

func (w *RPCWalletConnector) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	c, err := w.conn(ctx)
	if err != nil {
		return err
	}
	if err := c.CallContext(ctx, result, method, args...); err != nil {
		w.logger.ComponentDebug(logging.ComponentConnector, "Wallet call failed",
			zap.String("connector", w.id), zap.String("method", method), zap.Error(err))
		return errors.Normalize(err)
	}
	return nil
}

func (w *RPCWalletConnector) accounts(ctx context.Context, method string) ([]common.Address, error) {
	var accts []common.Address
	if err := w.call(ctx, &accts, method); err != nil {
		return nil, err
	}
	return accts, nil
}

func (w *RPCWalletConnector) Connect(ctx context.Context, opts ConnectOptions) (ConnectResult, error) {
	accts, err := w.accounts(ctx, "eth_requestAccounts")
	if err != nil {
		return ConnectResult{}, err
	}
	if len(accts) == 0 {
		return ConnectResult{}, errors.NewProviderRPCError(errors.RPCCodeUnauthorized, "wallet returned no accounts", nil)
	}
	chainID, err := w.ChainID(ctx)
	if err != nil {
		return ConnectResult{}, err
	}
	if opts.ChainID != 0 && opts.ChainID != chainID {
		if _, err := w.SwitchChain(ctx, opts.ChainID); err != nil {
			return ConnectResult{}, err
		}
		chainID = opts.ChainID
	}
	w.logger.ComponentInfo(logging.ComponentConnector, "Connected",
		zap.String("connector", w.id), zap.String("account", accts[0].Hex()), zap.Int64("chain_id", chainID))
	return ConnectResult{Account: accts[0], ChainID: chainID}, nil
}

func (w *RPCWalletConnector) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
	return nil
}

func (w *RPCWalletConnector) Account(ctx context.Context) (common.Address, error) {
	accts, err := w.accounts(ctx, "eth_accounts")
	if err != nil {
		return common.Address{}, err
	}
	if len(accts) == 0 {
		return common.Address{}, errors.NewConnectorNotFoundError(w.id)
	}
	return accts[0], nil
}

func (w *RPCWalletConnector) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Uint64
	if err := w.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return int64(id), nil
}

func (w *RPCWalletConnector) IsAuthorized(ctx context.Context) bool {
	accts, err := w.accounts(ctx, "eth_accounts")
	return err == nil && len(accts) > 0
}

func (w *RPCWalletConnector) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	account, err := w.Account(ctx)
	if err != nil {
		return nil, err
	}
	var sig hexutil.Bytes
	if err := w.call(ctx, &sig, "personal_sign", hexutil.Bytes(message), account); err != nil {
		return nil, err
	}
	return sig, nil
}

func (w *RPCWalletConnector) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	account, err := w.Account(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.NewValidationError("typedData", err.Error(), nil)
	}
	var sig hexutil.Bytes
	if err := w.call(ctx, &sig, "eth_signTypedData_v4", account, string(payload)); err != nil {
		return nil, err
	}
	return sig, nil
}

// rpcTransaction is the eth_sendTransaction parameter object.
type rpcTransaction struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

func (w *RPCWalletConnector) SendTransaction(ctx context.Context, req TransactionRequest) (common.Hash, error) {
	from := req.From
	if from == (common.Address{}) {
		account, err := w.Account(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		from = account
	}
	tx := rpcTransaction{
		From:                 from,
		To:                   req.To,
		Value:                (*hexutil.Big)(req.Value),
		Data:                 req.Data,
		GasPrice:             (*hexutil.Big)(req.GasPrice),
		MaxFeePerGas:         (*hexutil.Big)(req.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(req.MaxPriorityFeePerGas),
	}
	if req.Gas != 0 {
		gas := hexutil.Uint64(req.Gas)
		tx.Gas = &gas
	}
	if req.Nonce != nil {
		nonce := hexutil.Uint64(*req.Nonce)
		tx.Nonce = &nonce
	}
	if req.ChainID != 0 {
		tx.ChainID = (*hexutil.Big)(new(big.Int).SetInt64(req.ChainID))
	}

	var hash common.Hash
	if err := w.call(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

type switchChainParam struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

// SwitchChain asks the wallet to change chains. A wallet answering 4902
// does not know the chain.
func (w *RPCWalletConnector) SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error) {
	chain, ok := chains.Find(w.chains, chainID)
	if !ok {
		return chains.Chain{}, errors.NewChainNotConfiguredError(chainID, w.id)
	}
	err := w.call(ctx, nil, "wallet_switchEthereumChain", switchChainParam{ChainID: hexutil.Uint64(chainID)})
	if err != nil {
		var pe *errors.ProviderRPCError
		if errors.As(err, &pe) && pe.RPCCode == errors.RPCCodeUnrecognizedChain {
			return chains.Chain{}, errors.NewChainNotConfiguredError(chainID, w.id)
		}
		return chains.Chain{}, err
	}
	w.emit(Event{Type: EventChange, ChainID: chainID})
	return chain, nil
}
