// Package connectors implements wallet integration strategies. A Connector
// yields accounts and signatures; the client activates at most one at a time.
package connectors

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/logging"
	"go.uber.org/zap"
)

// Connector is a wallet integration strategy.
type Connector interface {
	ID() string
	Name() string
	// Ready reports whether the wallet backing the connector is reachable
	// without user interaction (e.g. a key is loaded, an endpoint configured).
	Ready() bool
	Chains() []chains.Chain

	Connect(ctx context.Context, opts ConnectOptions) (ConnectResult, error)
	Disconnect(ctx context.Context) error
	Account(ctx context.Context) (common.Address, error)
	ChainID(ctx context.Context) (int64, error)
	// IsAuthorized reports whether Connect would succeed without a prompt.
	IsAuthorized(ctx context.Context) bool

	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
	SendTransaction(ctx context.Context, req TransactionRequest) (common.Hash, error)

	// Events delivers account, chain and disconnect notifications raised by
	// the wallet itself.
	Events() <-chan Event
}

// ChainSwitcher is implemented by connectors that can change the wallet's
// active chain programmatically.
type ChainSwitcher interface {
	SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error)
}

// ClientSource yields the public client used to broadcast transactions.
// *chains.Configured satisfies it.
type ClientSource interface {
	PublicClient(chainID int64) (chains.PublicClient, error)
}

// ConnectOptions configures Connect.
type ConnectOptions struct {
	// ChainID requests a chain. Zero keeps the wallet's current chain.
	ChainID int64
}

// ConnectResult is the state after a successful Connect.
type ConnectResult struct {
	Account common.Address `json:"account"`
	ChainID int64          `json:"chainId"`
}

// TransactionRequest describes a transaction to sign and broadcast. Unset
// fields are filled from the chain.
type TransactionRequest struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Value                *big.Int        `json:"value,omitempty"`
	Data                 []byte          `json:"data,omitempty"`
	Gas                  uint64          `json:"gas,omitempty"`
	GasPrice             *big.Int        `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int        `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int        `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                *uint64         `json:"nonce,omitempty"`
	ChainID              int64           `json:"chainId,omitempty"`
}

// EventType discriminates Event.
type EventType int

const (
	EventChange EventType = iota + 1
	EventDisconnect
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventChange:
		return "change"
	case EventDisconnect:
		return "disconnect"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a wallet-originated notification. For EventChange, a nil Account
// or zero ChainID means that field did not change.
type Event struct {
	Type    EventType
	Account *common.Address
	ChainID int64
	Err     error
}

const eventBuffer = 32

// emitter fans wallet events into a buffered channel. When the consumer falls
// behind, new events are dropped and logged.
type emitter struct {
	id     string
	logger *logging.ColoredLogger

	once sync.Once
	ch   chan Event
}

func (e *emitter) events() chan Event {
	e.once.Do(func() { e.ch = make(chan Event, eventBuffer) })
	return e.ch
}

func (e *emitter) Events() <-chan Event {
	return e.events()
}

func (e *emitter) emit(ev Event) {
	select {
	case e.events() <- ev:
	default:
		logging.OrNop(e.logger).ComponentWarn(logging.ComponentConnector, "Dropping connector event",
			zap.String("connector", e.id), zap.Stringer("type", ev.Type))
	}
}
