package chains

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// PublicClient is the read/broadcast surface of a chain node. It is the
// subset of ethclient.Client walletkit needs, plus raw JSON-RPC batching.
type PublicClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	BatchCall(ctx context.Context, batch []rpc.BatchElem) error
	Close()
}

// rpcPublicClient dials its endpoint lazily on first use and keeps the
// connection for the lifetime of the client.
type rpcPublicClient struct {
	url string

	mu  sync.Mutex
	raw *rpc.Client
	eth *ethclient.Client
}

// NewPublicClient returns a PublicClient for url. No connection is made until
// the first call.
func NewPublicClient(url string) PublicClient {
	return &rpcPublicClient{url: url}
}

func (c *rpcPublicClient) conn(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		return c.eth, nil
	}
	raw, err := rpc.DialContext(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.raw = raw
	c.eth = ethclient.NewClient(raw)
	return c.eth, nil
}

func (c *rpcPublicClient) ChainID(ctx context.Context) (*big.Int, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.ChainID(ctx)
}

func (c *rpcPublicClient) BlockNumber(ctx context.Context) (uint64, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return 0, err
	}
	return eth.BlockNumber(ctx)
}

func (c *rpcPublicClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.BalanceAt(ctx, account, blockNumber)
}

func (c *rpcPublicClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.CallContract(ctx, msg, blockNumber)
}

func (c *rpcPublicClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.HeaderByNumber(ctx, number)
}

func (c *rpcPublicClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.SuggestGasPrice(ctx)
}

func (c *rpcPublicClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.SuggestGasTipCap(ctx)
}

func (c *rpcPublicClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.TransactionReceipt(ctx, txHash)
}

func (c *rpcPublicClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return 0, err
	}
	return eth.PendingNonceAt(ctx, account)
}

func (c *rpcPublicClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return 0, err
	}
	return eth.EstimateGas(ctx, msg)
}

func (c *rpcPublicClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	eth, err := c.conn(ctx)
	if err != nil {
		return err
	}
	return eth.SendTransaction(ctx, tx)
}

func (c *rpcPublicClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	eth, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	return eth.SubscribeNewHead(ctx, ch)
}

func (c *rpcPublicClient) BatchCall(ctx context.Context, batch []rpc.BatchElem) error {
	if _, err := c.conn(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	raw := c.raw
	c.mu.Unlock()
	if raw == nil {
		return rpc.ErrClientQuit
	}
	return raw.BatchCallContext(ctx, batch)
}

func (c *rpcPublicClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
		c.raw = nil
	}
}
