package connectors

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

func TestMockConnectorFlags(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		flags MockFlags
		run   func(m *MockConnector) error
		kind  errors.Kind
	}{
		{
			name:  "connect rejected",
			flags: MockFlags{FailConnect: true},
			run: func(m *MockConnector) error {
				_, err := m.Connect(ctx, ConnectOptions{})
				return err
			},
			kind: errors.KindUserRejectedRequest,
		},
		{
			name:  "signature rejected",
			flags: MockFlags{RejectSignature: true},
			run: func(m *MockConnector) error {
				_, err := m.SignMessage(ctx, []byte("x"))
				return err
			},
			kind: errors.KindUserRejectedRequest,
		},
		{
			name:  "switch chain rejected",
			flags: MockFlags{FailSwitchChain: true},
			run: func(m *MockConnector) error {
				_, err := m.SwitchChain(ctx, chains.Sepolia.ID)
				return err
			},
			kind: errors.KindUserRejectedRequest,
		},
		{
			name:  "switch chain unsupported",
			flags: MockFlags{NoSwitchChain: true},
			run: func(m *MockConnector) error {
				_, err := m.SwitchChain(ctx, chains.Sepolia.ID)
				return err
			},
			kind: errors.KindSwitchChainNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := crypto.GenerateKey()
			require.NoError(t, err)
			m := NewMockConnector(key, tt.flags, LocalOptions{Chains: []chains.Chain{chains.Mainnet, chains.Sepolia}})
			err = tt.run(m)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}
}

func TestMockConnectorRejectionCarriesRPCCode(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m := NewMockConnector(key, MockFlags{FailConnect: true}, LocalOptions{})

	_, err = m.Connect(context.Background(), ConnectOptions{})
	var pe *errors.ProviderRPCError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, errors.RPCCodeUserRejected, pe.RPCCode)
}

func TestMockConnectorSimulateDisconnect(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m := NewMockConnector(key, MockFlags{}, LocalOptions{})
	_, err = m.Connect(context.Background(), ConnectOptions{})
	require.NoError(t, err)

	m.SimulateDisconnect()
	ev := <-m.Events()
	assert.Equal(t, EventDisconnect, ev.Type)

	_, err = m.SignMessage(context.Background(), []byte("x"))
	assert.True(t, errors.IsKind(err, errors.KindConnectorNotFound))
}

func TestMockConnectorUnauthorized(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m := NewMockConnector(key, MockFlags{Unauthorized: true}, LocalOptions{})
	assert.False(t, m.IsAuthorized(context.Background()))

	m.SetFlags(MockFlags{})
	assert.True(t, m.IsAuthorized(context.Background()))
}

func TestKeystoreConnector(t *testing.T) {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	key := &keystore.Key{Id: uuid.New(), Address: crypto.PubkeyToAddress(pk.PublicKey), PrivateKey: pk}
	keyJSON, err := keystore.EncryptKey(key, "secret", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	c, err := NewKeystoreConnector(keyJSON, "secret", LocalOptions{})
	require.NoError(t, err)
	assert.Equal(t, "keystore", c.ID())
	assert.Equal(t, key.Address, c.Address())

	_, err = NewKeystoreConnector(keyJSON, "wrong", LocalOptions{})
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "passphrase", ve.Field)
}
