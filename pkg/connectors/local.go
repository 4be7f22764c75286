package connectors

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
)

// LocalOptions configures a LocalConnector.
type LocalOptions struct {
	ID      string // defaults to "local"
	Name    string // defaults to "Local Account"
	Chains  []chains.Chain
	Clients ClientSource // required for SendTransaction
	Logger  *logging.ColoredLogger
}

// LocalConnector signs with an in-process ECDSA key.
type LocalConnector struct {
	emitter

	id      string
	name    string
	key     *ecdsa.PrivateKey
	address common.Address
	chains  []chains.Chain
	clients ClientSource
	logger  *logging.ColoredLogger

	mu        sync.RWMutex
	connected bool
	chainID   int64
}

// NewLocalConnector returns a connector for key.
func NewLocalConnector(key *ecdsa.PrivateKey, opts LocalOptions) *LocalConnector {
	if opts.ID == "" {
		opts.ID = "local"
	}
	if opts.Name == "" {
		opts.Name = "Local Account"
	}
	if len(opts.Chains) == 0 {
		opts.Chains = []chains.Chain{chains.Mainnet}
	}
	logger := logging.OrNop(opts.Logger)
	c := &LocalConnector{
		emitter: emitter{id: opts.ID, logger: logger},
		id:      opts.ID,
		name:    opts.Name,
		key:     key,
		chains:  opts.Chains,
		clients: opts.Clients,
		logger:  logger,
		chainID: opts.Chains[0].ID,
	}
	if key != nil {
		c.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c
}

func (c *LocalConnector) ID() string             { return c.id }
func (c *LocalConnector) Name() string           { return c.name }
func (c *LocalConnector) Chains() []chains.Chain { return c.chains }

func (c *LocalConnector) signer() (*ecdsa.PrivateKey, common.Address) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key, c.address
}

func (c *LocalConnector) Ready() bool {
	key, _ := c.signer()
	return key != nil
}

// Address returns the account of the loaded key.
func (c *LocalConnector) Address() common.Address {
	_, addr := c.signer()
	return addr
}

func (c *LocalConnector) Connect(ctx context.Context, opts ConnectOptions) (ConnectResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return ConnectResult{}, errors.NewConnectorNotFoundError(c.id)
	}
	if opts.ChainID != 0 {
		if _, ok := chains.Find(c.chains, opts.ChainID); !ok {
			return ConnectResult{}, errors.NewChainNotConfiguredError(opts.ChainID, c.id)
		}
		c.chainID = opts.ChainID
	}
	c.connected = true
	c.logger.ComponentInfo(logging.ComponentConnector, "Connected",
		zap.String("connector", c.id), zap.String("account", c.address.Hex()), zap.Int64("chain_id", c.chainID))
	return ConnectResult{Account: c.address, ChainID: c.chainID}, nil
}

func (c *LocalConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()
	if wasConnected {
		c.logger.ComponentInfo(logging.ComponentConnector, "Disconnected", zap.String("connector", c.id))
	}
	return nil
}

func (c *LocalConnector) Account(ctx context.Context) (common.Address, error) {
	key, addr := c.signer()
	if key == nil {
		return common.Address{}, errors.NewConnectorNotFoundError(c.id)
	}
	return addr, nil
}

func (c *LocalConnector) ChainID(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chainID, nil
}

// IsAuthorized is true whenever a key is loaded.
func (c *LocalConnector) IsAuthorized(ctx context.Context) bool {
	return c.Ready()
}

func (c *LocalConnector) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SignMessage produces an EIP-191 personal_sign signature with V in {27, 28}.
func (c *LocalConnector) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !c.isConnected() {
		return nil, errors.NewConnectorNotFoundError(c.id)
	}
	return c.signHash(accounts.TextHash(message))
}

// SignTypedData produces an EIP-712 signature with V in {27, 28}.
func (c *LocalConnector) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if !c.isConnected() {
		return nil, errors.NewConnectorNotFoundError(c.id)
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, errors.NewValidationError("typedData", err.Error(), nil)
	}
	return c.signHash(hash)
}

func (c *LocalConnector) signHash(hash []byte) ([]byte, error) {
	key, _ := c.signer()
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, errors.NewInternalError("sign", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SendTransaction fills missing fields from the active chain, signs with the
// London signer and broadcasts through the chain's public client.
func (c *LocalConnector) SendTransaction(ctx context.Context, req TransactionRequest) (common.Hash, error) {
	if !c.isConnected() {
		return common.Hash{}, errors.NewConnectorNotFoundError(c.id)
	}
	chainID, _ := c.ChainID(ctx)
	if req.ChainID != 0 && req.ChainID != chainID {
		return common.Hash{}, errors.NewChainMismatchError(chainID, req.ChainID)
	}
	if c.clients == nil {
		return common.Hash{}, errors.NewProviderNotFoundError()
	}
	pc, err := c.clients.PublicClient(chainID)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := c.buildTransaction(ctx, pc, chainID, req)
	if err != nil {
		return common.Hash{}, errors.Normalize(err)
	}
	key, _ := c.signer()
	signed, err := types.SignTx(tx, types.NewLondonSigner(big.NewInt(chainID)), key)
	if err != nil {
		return common.Hash{}, errors.NewInternalError("sign transaction", err)
	}
	if err := pc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Normalize(err)
	}
	c.logger.ComponentInfo(logging.ComponentConnector, "Transaction sent",
		zap.String("connector", c.id), zap.String("hash", signed.Hash().Hex()), zap.Int64("chain_id", chainID))
	return signed.Hash(), nil
}

func (c *LocalConnector) buildTransaction(ctx context.Context, pc chains.PublicClient, chainID int64, req TransactionRequest) (*types.Transaction, error) {
	_, from := c.signer()
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		n, err := pc.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, err
		}
		nonce = n
	}

	gas := req.Gas
	if gas == 0 {
		g, err := pc.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    req.To,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return nil, err
		}
		gas = g
	}

	if req.GasPrice != nil {
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: req.GasPrice,
			Gas:      gas,
			To:       req.To,
			Value:    value,
			Data:     req.Data,
		}), nil
	}

	tip := req.MaxPriorityFeePerGas
	if tip == nil {
		t, err := pc.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, err
		}
		tip = t
	}
	feeCap := req.MaxFeePerGas
	if feeCap == nil {
		head, err := pc.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		baseFee := head.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
		feeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        req.To,
		Value:     value,
		Data:      req.Data,
	}), nil
}

// SwitchChain changes the active chain to one of the connector's chains.
func (c *LocalConnector) SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error) {
	chain, ok := chains.Find(c.chains, chainID)
	if !ok {
		return chains.Chain{}, errors.NewChainNotConfiguredError(chainID, c.id)
	}
	c.mu.Lock()
	changed := c.chainID != chainID
	c.chainID = chainID
	c.mu.Unlock()
	if changed {
		c.emit(Event{Type: EventChange, ChainID: chainID})
	}
	return chain, nil
}

// SetAccountKey replaces the signing key and announces the new account, as a
// wallet does when the user picks another account.
func (c *LocalConnector) SetAccountKey(key *ecdsa.PrivateKey) {
	addr := crypto.PubkeyToAddress(key.PublicKey)
	c.mu.Lock()
	c.key = key
	c.address = addr
	c.mu.Unlock()
	c.emit(Event{Type: EventChange, Account: &addr})
}
