// Package actions implements the one-shot operations hooks are built on.
// Every function takes the Client explicitly and returns typed errors from
// pkg/errors.
package actions

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// Account is the connected account as seen by GetAccount.
type Account struct {
	Address     common.Address `json:"address"`
	Connector   string         `json:"connector,omitempty"`
	Status      string         `json:"status"`
	IsConnected bool           `json:"isConnected"`
}

// Network describes the active chain and the configured ones.
type Network struct {
	Chain       *chains.Chain  `json:"chain,omitempty"`
	Unsupported bool           `json:"unsupported"`
	Chains      []chains.Chain `json:"chains"`
}

// GetAccount returns the current account. It never fails.
func GetAccount(c *client.Client) Account {
	s := c.State()
	return Account{
		Address:     s.Account,
		Connector:   s.Connector,
		Status:      s.Status.String(),
		IsConnected: s.IsConnected(),
	}
}

// GetNetwork returns the active chain. Chain is nil when disconnected;
// Unsupported is set when the wallet sits on a chain the client was not
// configured with.
func GetNetwork(c *client.Client) Network {
	s := c.State()
	n := Network{Chains: c.Chains()}
	if !s.IsConnected() {
		return n
	}
	if chain, ok := c.Chain(s.ChainID); ok {
		n.Chain = &chain
		return n
	}
	n.Chain = &chains.Chain{ID: s.ChainID, Name: "Unknown"}
	n.Unsupported = true
	return n
}

// activeConnector returns the connected connector or ConnectorNotFound.
func activeConnector(c *client.Client) (connectors.Connector, client.State, error) {
	s := c.State()
	conn := c.ActiveConnector()
	if conn == nil || !s.IsConnected() {
		return nil, s, errors.NewConnectorNotFoundError("")
	}
	return conn, s, nil
}

// checkChain fails with ChainMismatch when want is set and differs from the
// active chain.
func checkChain(s client.State, want int64) error {
	if want != 0 && want != s.ChainID {
		return errors.NewChainMismatchError(s.ChainID, want)
	}
	return nil
}

// publicClient resolves the RPC client, mapping a missing endpoint to the
// taxonomy.
func publicClient(c *client.Client, chainID int64) (chains.PublicClient, int64, error) {
	if chainID == 0 {
		chainID = c.State().ChainID
	}
	pc, err := c.PublicClient(chainID)
	if err != nil {
		return nil, chainID, err
	}
	return pc, chainID, nil
}

func observe(c *client.Client, action string, err error) error {
	c.Metrics().ObserveAction(action, err)
	return err
}

// FetchBlockNumber returns the latest block number of chainID (zero means
// the active chain).
func FetchBlockNumber(ctx context.Context, c *client.Client, chainID int64) (uint64, error) {
	pc, _, err := publicClient(c, chainID)
	if err != nil {
		return 0, err
	}
	n, err := pc.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Normalize(err)
	}
	return n, nil
}

// SwitchNetwork asks the active connector to change chains.
func SwitchNetwork(ctx context.Context, c *client.Client, chainID int64) (chains.Chain, error) {
	chain, err := c.SwitchChain(ctx, chainID)
	return chain, observe(c, "switch_network", err)
}
