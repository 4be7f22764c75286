package actions

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

const ensContract = "ensUniversalResolver"

// ensResolver returns the configured resolver and the chain to ask. Without
// a resolver the chain is reported as not supporting ENS.
func ensResolver(c *client.Client, chainID int64) (client.ENSResolver, int64, error) {
	if chainID == 0 {
		chainID = c.State().ChainID
	}
	if _, ok := c.Chain(chainID); !ok {
		return nil, chainID, errors.NewChainNotConfiguredError(chainID, "")
	}
	r := c.ENS()
	if r == nil {
		return nil, chainID, errors.NewChainDoesNotSupportContractError(chainID, ensContract)
	}
	return r, chainID, nil
}

// FetchEnsName reverse-resolves address.
func FetchEnsName(ctx context.Context, c *client.Client, address common.Address, chainID int64) (string, error) {
	r, chainID, err := ensResolver(c, chainID)
	if err != nil {
		return "", err
	}
	name, err := r.Name(ctx, chainID, address)
	return name, errors.Normalize(err)
}

// FetchEnsAddress resolves name to an address.
func FetchEnsAddress(ctx context.Context, c *client.Client, name string, chainID int64) (common.Address, error) {
	r, chainID, err := ensResolver(c, chainID)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := r.Address(ctx, chainID, name)
	return addr, errors.Normalize(err)
}

// FetchEnsAvatar returns the avatar URI of name.
func FetchEnsAvatar(ctx context.Context, c *client.Client, name string, chainID int64) (string, error) {
	r, chainID, err := ensResolver(c, chainID)
	if err != nil {
		return "", err
	}
	avatar, err := r.Avatar(ctx, chainID, name)
	return avatar, errors.Normalize(err)
}

// FetchEnsResolver returns the resolver contract of name.
func FetchEnsResolver(ctx context.Context, c *client.Client, name string, chainID int64) (common.Address, error) {
	r, chainID, err := ensResolver(c, chainID)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := r.Resolver(ctx, chainID, name)
	return addr, errors.Normalize(err)
}
