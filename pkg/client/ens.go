package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ENSResolver answers ENS lookups. walletkit ships no resolution logic; an
// application supplies one (e.g. backed by an indexer or a contract binding).
type ENSResolver interface {
	Name(ctx context.Context, chainID int64, address common.Address) (string, error)
	Address(ctx context.Context, chainID int64, name string) (common.Address, error)
	Avatar(ctx context.Context, chainID int64, name string) (string, error)
	Resolver(ctx context.Context, chainID int64, name string) (common.Address, error)
}
