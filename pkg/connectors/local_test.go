package connectors

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/chains/chainstest"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return k
}

func recoverSigner(t *testing.T, hash, sig []byte) common.Address {
	t.Helper()
	require.Len(t, sig, 65)
	s := append([]byte(nil), sig...)
	s[64] -= 27
	pub, err := crypto.SigToPub(hash, s)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub)
}

func configured(t *testing.T, fake *chainstest.Client, list ...chains.Chain) *chains.Configured {
	t.Helper()
	cfg, err := chains.ConfigureChains(list, []chains.ProviderFunc{chains.PublicProvider()},
		chains.WithDialer(fake.Dialer()))
	require.NoError(t, err)
	return cfg
}

func TestLocalConnectorConnect(t *testing.T) {
	ctx := context.Background()
	key := newKey(t)
	c := NewLocalConnector(key, LocalOptions{Chains: []chains.Chain{chains.Mainnet, chains.Sepolia}})

	assert.Equal(t, "local", c.ID())
	assert.True(t, c.Ready())
	assert.True(t, c.IsAuthorized(ctx))

	res, err := c.Connect(ctx, ConnectOptions{ChainID: chains.Sepolia.ID})
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), res.Account)
	assert.Equal(t, chains.Sepolia.ID, res.ChainID)

	_, err = c.Connect(ctx, ConnectOptions{ChainID: 10})
	assert.True(t, errors.IsKind(err, errors.KindChainNotConfigured))
}

func TestLocalConnectorSignMessage(t *testing.T) {
	ctx := context.Background()
	key := newKey(t)
	c := NewLocalConnector(key, LocalOptions{})

	_, err := c.SignMessage(ctx, []byte("hello"))
	assert.True(t, errors.IsKind(err, errors.KindConnectorNotFound), "signing requires a connection")

	_, err = c.Connect(ctx, ConnectOptions{})
	require.NoError(t, err)

	msg := []byte("hello walletkit")
	sig, err := c.SignMessage(ctx, msg)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig[64])
	assert.Equal(t, c.Address(), recoverSigner(t, accounts.TextHash(msg), sig))
}

func TestLocalConnectorSignTypedData(t *testing.T) {
	ctx := context.Background()
	c := NewLocalConnector(newKey(t), LocalOptions{})
	_, err := c.Connect(ctx, ConnectOptions{})
	require.NoError(t, err)

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Mail": {
				{Name: "contents", Type: "string"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:    "walletkit",
			ChainId: math.NewHexOrDecimal256(1),
		},
		Message: apitypes.TypedDataMessage{"contents": "hi"},
	}

	sig, err := c.SignTypedData(ctx, td)
	require.NoError(t, err)
	hash, _, err := apitypes.TypedDataAndHash(td)
	require.NoError(t, err)
	assert.Equal(t, c.Address(), recoverSigner(t, hash, sig))

	td.PrimaryType = "Missing"
	_, err = c.SignTypedData(ctx, td)
	assert.Error(t, err)
}

func TestLocalConnectorSendTransaction(t *testing.T) {
	ctx := context.Background()
	fake := chainstest.New(chains.Foundry.ID)
	cfg := configured(t, fake, chains.Foundry)
	key := newKey(t)
	c := NewLocalConnector(key, LocalOptions{Chains: []chains.Chain{chains.Foundry}, Clients: cfg})
	_, err := c.Connect(ctx, ConnectOptions{})
	require.NoError(t, err)

	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	hash, err := c.SendTransaction(ctx, TransactionRequest{To: &to, Value: big.NewInt(1000)})
	require.NoError(t, err)

	require.Len(t, fake.Sent, 1)
	tx := fake.Sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(21000), tx.Gas())
	// 2 * base fee + tip
	assert.Equal(t, big.NewInt(21_000_000_000), tx.GasFeeCap())

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(chains.Foundry.ID)), tx)
	require.NoError(t, err)
	assert.Equal(t, c.Address(), sender)

	_, err = c.SendTransaction(ctx, TransactionRequest{To: &to, ChainID: 1})
	assert.True(t, errors.IsKind(err, errors.KindChainMismatch))
}

func TestLocalConnectorLegacyTransaction(t *testing.T) {
	ctx := context.Background()
	fake := chainstest.New(chains.Foundry.ID)
	c := NewLocalConnector(newKey(t), LocalOptions{
		Chains:  []chains.Chain{chains.Foundry},
		Clients: configured(t, fake, chains.Foundry),
	})
	_, err := c.Connect(ctx, ConnectOptions{})
	require.NoError(t, err)

	nonce := uint64(7)
	to := common.HexToAddress("0x01")
	_, err = c.SendTransaction(ctx, TransactionRequest{To: &to, GasPrice: big.NewInt(5), Gas: 50000, Nonce: &nonce})
	require.NoError(t, err)
	require.Len(t, fake.Sent, 1)
	assert.Equal(t, uint8(types.LegacyTxType), fake.Sent[0].Type())
	assert.Equal(t, nonce, fake.Sent[0].Nonce())
	assert.Zero(t, fake.Calls("PendingNonceAt"))
	assert.Zero(t, fake.Calls("EstimateGas"))
}

func TestLocalConnectorSwitchChainEmitsChange(t *testing.T) {
	ctx := context.Background()
	c := NewLocalConnector(newKey(t), LocalOptions{Chains: []chains.Chain{chains.Mainnet, chains.Optimism}})

	chain, err := c.SwitchChain(ctx, chains.Optimism.ID)
	require.NoError(t, err)
	assert.Equal(t, "Optimism", chain.Name)

	select {
	case ev := <-c.Events():
		assert.Equal(t, EventChange, ev.Type)
		assert.Equal(t, chains.Optimism.ID, ev.ChainID)
		assert.Nil(t, ev.Account)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}

	_, err = c.SwitchChain(ctx, 999)
	assert.True(t, errors.IsKind(err, errors.KindChainNotConfigured))
}

func TestLocalConnectorAccountChange(t *testing.T) {
	c := NewLocalConnector(newKey(t), LocalOptions{})
	next := newKey(t)
	c.SetAccountKey(next)

	ev := <-c.Events()
	require.NotNil(t, ev.Account)
	assert.Equal(t, crypto.PubkeyToAddress(next.PublicKey), *ev.Account)
	assert.Equal(t, *ev.Account, c.Address())
}

func TestEmitterDropsWhenFull(t *testing.T) {
	e := &emitter{id: "test"}
	for i := 0; i < eventBuffer+5; i++ {
		e.emit(Event{Type: EventChange, ChainID: int64(i)})
	}
	assert.Len(t, e.events(), eventBuffer)
	assert.Equal(t, int64(0), (<-e.Events()).ChainID)
}
