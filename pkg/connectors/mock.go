package connectors

import (
	"context"
	"crypto/ecdsa"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// MockFlags script the failures a MockConnector simulates.
type MockFlags struct {
	FailConnect     bool // Connect fails with a user rejection
	FailSwitchChain bool // SwitchChain fails with a user rejection
	NoSwitchChain   bool // SwitchChain is reported as unsupported
	RejectSignature bool // signing and sending fail with a user rejection
	Unauthorized    bool // IsAuthorized reports false
}

// MockConnector is a LocalConnector whose wallet behaviour can be scripted.
type MockConnector struct {
	*LocalConnector
	flags atomic.Pointer[MockFlags]
}

// NewMockConnector returns a mock connector with ID "mock" unless opts says
// otherwise.
func NewMockConnector(key *ecdsa.PrivateKey, flags MockFlags, opts LocalOptions) *MockConnector {
	if opts.ID == "" {
		opts.ID = "mock"
	}
	if opts.Name == "" {
		opts.Name = "Mock"
	}
	m := &MockConnector{LocalConnector: NewLocalConnector(key, opts)}
	m.SetFlags(flags)
	return m
}

// SetFlags replaces the scripted behaviour.
func (m *MockConnector) SetFlags(flags MockFlags) {
	m.flags.Store(&flags)
}

func (m *MockConnector) Flags() MockFlags {
	return *m.flags.Load()
}

func rejected() error {
	return errors.NewUserRejectedRequestError(
		errors.NewProviderRPCError(errors.RPCCodeUserRejected, "user rejected the request", nil))
}

func (m *MockConnector) Connect(ctx context.Context, opts ConnectOptions) (ConnectResult, error) {
	if m.Flags().FailConnect {
		return ConnectResult{}, rejected()
	}
	return m.LocalConnector.Connect(ctx, opts)
}

func (m *MockConnector) IsAuthorized(ctx context.Context) bool {
	return !m.Flags().Unauthorized && m.LocalConnector.IsAuthorized(ctx)
}

func (m *MockConnector) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if m.Flags().RejectSignature {
		return nil, rejected()
	}
	return m.LocalConnector.SignMessage(ctx, message)
}

func (m *MockConnector) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	if m.Flags().RejectSignature {
		return nil, rejected()
	}
	return m.LocalConnector.SignTypedData(ctx, data)
}

func (m *MockConnector) SendTransaction(ctx context.Context, req TransactionRequest) (common.Hash, error) {
	if m.Flags().RejectSignature {
		return common.Hash{}, rejected()
	}
	return m.LocalConnector.SendTransaction(ctx, req)
}

func (m *MockConnector) SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error) {
	flags := m.Flags()
	if flags.NoSwitchChain {
		return chains.Chain{}, errors.NewSwitchChainNotSupportedError(m.ID())
	}
	if flags.FailSwitchChain {
		return chains.Chain{}, rejected()
	}
	return m.LocalConnector.SwitchChain(ctx, chainID)
}

// SimulateDisconnect behaves as if the user disconnected from the wallet UI.
func (m *MockConnector) SimulateDisconnect() {
	_ = m.LocalConnector.Disconnect(context.Background())
	m.emit(Event{Type: EventDisconnect})
}

// SimulateError pushes a wallet error event.
func (m *MockConnector) SimulateError(err error) {
	m.emit(Event{Type: EventError, Err: err})
}
