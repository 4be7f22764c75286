package actions

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/chains/chainstest"
	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
)

var testChains = []chains.Chain{chains.Mainnet, chains.Sepolia}

type fixture struct {
	client *client.Client
	fake   *chainstest.Client
	conn   *connectors.MockConnector
}

func newFixture(t *testing.T, ens client.ENSResolver) *fixture {
	t.Helper()
	fake := chainstest.New(1)
	configured, err := chains.ConfigureChains(testChains, []chains.ProviderFunc{chains.PublicProvider()},
		chains.WithDialer(fake.Dialer()), chains.WithPollingInterval(5*time.Millisecond))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	conn := connectors.NewMockConnector(key, connectors.MockFlags{},
		connectors.LocalOptions{ID: "mock", Chains: testChains, Clients: configured})

	c, err := client.New(&client.Config{
		Connectors: []connectors.Connector{conn},
		Chains:     configured,
		ENS:        ens,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return &fixture{client: c, fake: fake, conn: conn}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	_, err := f.client.Connect(context.Background(), f.conn, 0)
	require.NoError(t, err)
}

// erc20Node answers batched eth_call requests for a fake token. Missing
// functions return empty data.
func erc20Node(t *testing.T, outputs map[string][]any) func(context.Context, []rpc.BatchElem) error {
	return func(_ context.Context, batch []rpc.BatchElem) error {
		for i := range batch {
			args, ok := batch[i].Args[0].(callArgs)
			require.True(t, ok)
			method, err := ERC20ABI.MethodById(args.Data[:4])
			require.NoError(t, err)

			out := batch[i].Result.(*hexutil.Bytes)
			values, ok := outputs[method.Name]
			if !ok {
				*out = hexutil.Bytes{}
				continue
			}
			packed, err := method.Outputs.Pack(values...)
			require.NoError(t, err)
			*out = packed
		}
		return nil
	}
}
