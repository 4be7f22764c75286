// Package chainstest provides an in-memory chains.PublicClient for tests.
package chainstest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
)

// ErrNotFound mirrors ethereum.NotFound for missing receipts.
var ErrNotFound = ethereum.NotFound

var _ chains.PublicClient = (*Client)(nil)

// Client is a scriptable fake node. The zero value is not usable; use New.
type Client struct {
	mu sync.Mutex

	chainID  *big.Int
	block    uint64
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	nonces   map[common.Address]uint64

	GasPrice *big.Int
	TipCap   *big.Int
	BaseFee  *big.Int

	// CallFn answers eth_call. Nil returns empty data.
	CallFn func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	// BalanceFn overrides BalanceAt when set; useful to block or reorder responses.
	BalanceFn func(ctx context.Context, account common.Address) (*big.Int, error)
	// BatchFn answers BatchCall. Nil fills every element's Error.
	BatchFn func(ctx context.Context, batch []rpc.BatchElem) error
	// Err, when set, is returned by every method.
	Err error

	Sent  []*types.Transaction
	calls map[string]int
}

// New returns a fake node for chainID at block 1.
func New(chainID int64) *Client {
	return &Client{
		chainID:  big.NewInt(chainID),
		block:    1,
		balances: make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
		nonces:   make(map[common.Address]uint64),
		GasPrice: big.NewInt(20_000_000_000),
		TipCap:   big.NewInt(1_000_000_000),
		BaseFee:  big.NewInt(10_000_000_000),
		calls:    make(map[string]int),
	}
}

// Dialer returns a chains.DialFunc that always yields c.
func (c *Client) Dialer() chains.DialFunc {
	return func(string) chains.PublicClient { return c }
}

func (c *Client) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Err
}

// Calls returns how many times method was invoked.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (c *Client) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// SetBlock sets the current block number.
func (c *Client) SetBlock(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = n
}

// SetBalance sets the balance of account.
func (c *Client) SetBalance(account common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = new(big.Int).Set(wei)
}

// SetReceipt registers a mined receipt.
func (c *Client) SetReceipt(r *types.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[r.TxHash] = r
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.record("ChainID"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.chainID), nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.record("BlockNumber"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block, nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if err := c.record("BalanceAt"); err != nil {
		return nil, err
	}
	if c.BalanceFn != nil {
		return c.BalanceFn(ctx, account)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.record("CallContract"); err != nil {
		return nil, err
	}
	if c.CallFn != nil {
		return c.CallFn(ctx, msg)
	}
	return nil, nil
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.record("HeaderByNumber"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(c.block), BaseFee: c.BaseFee}, nil
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.record("SuggestGasPrice"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.GasPrice), nil
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if err := c.record("SuggestGasTipCap"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.TipCap), nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := c.record("TransactionReceipt"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := c.record("PendingNonceAt"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := c.record("EstimateGas"); err != nil {
		return 0, err
	}
	if len(msg.Data) == 0 {
		return 21000, nil
	}
	return 100000, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.record("SendTransaction"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, tx)
	return nil
}

func (c *Client) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	_ = c.record("SubscribeNewHead")
	return nil, rpc.ErrNotificationsUnsupported
}

func (c *Client) BatchCall(ctx context.Context, batch []rpc.BatchElem) error {
	if err := c.record("BatchCall"); err != nil {
		return err
	}
	if c.BatchFn != nil {
		return c.BatchFn(ctx, batch)
	}
	for i := range batch {
		batch[i].Error = errors.New("batch not scripted")
	}
	return nil
}

func (c *Client) Close() {}
