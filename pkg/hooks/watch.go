package hooks

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DeBrosOfficial/walletkit/pkg/actions"
	"github.com/DeBrosOfficial/walletkit/pkg/client"
)

// AccountArgs configures WatchAccount.
type AccountArgs struct {
	QueryOptions
}

// WatchAccount follows the connected account.
func WatchAccount(ctx context.Context, args AccountArgs) (*Subscription[AccountArgs, actions.Account], error) {
	return subscribe(ctx, fetchSpec[AccountArgs, actions.Account]{
		name: "account",
		fetch: func(_ context.Context, c *client.Client, _ AccountArgs) (actions.Account, error) {
			return actions.GetAccount(c), nil
		},
		onState: true,
		noCache: true,
	}, args)
}

// NetworkArgs configures WatchNetwork.
type NetworkArgs struct {
	QueryOptions
}

// WatchNetwork follows the active chain.
func WatchNetwork(ctx context.Context, args NetworkArgs) (*Subscription[NetworkArgs, actions.Network], error) {
	return subscribe(ctx, fetchSpec[NetworkArgs, actions.Network]{
		name: "network",
		fetch: func(_ context.Context, c *client.Client, _ NetworkArgs) (actions.Network, error) {
			return actions.GetNetwork(c), nil
		},
		onState: true,
		noCache: true,
	}, args)
}

// BalanceArgs configures WatchBalance.
type BalanceArgs struct {
	actions.BalanceParams
	QueryOptions
}

// WatchBalance reads a native or token balance. It stays idle until an
// address is given.
func WatchBalance(ctx context.Context, args BalanceArgs) (*Subscription[BalanceArgs, actions.Balance], error) {
	return subscribe(ctx, fetchSpec[BalanceArgs, actions.Balance]{
		name: "balance",
		fetch: func(ctx context.Context, c *client.Client, p BalanceArgs) (actions.Balance, error) {
			return actions.FetchBalance(ctx, c, p.BalanceParams)
		},
		ready:   func(p BalanceArgs) bool { return p.Address != (common.Address{}) },
		chainID: func(p BalanceArgs) int64 { return p.ChainID },
	}, args)
}

// ContractReadArgs configures WatchContractRead.
type ContractReadArgs struct {
	Call actions.ContractCall
	QueryOptions
}

func (a ContractReadArgs) fingerprint() []string { return []string{a.Call.Signature()} }

// WatchContractRead reads one contract function.
func WatchContractRead(ctx context.Context, args ContractReadArgs) (*Subscription[ContractReadArgs, []any], error) {
	return subscribe(ctx, fetchSpec[ContractReadArgs, []any]{
		name: "contractRead",
		fetch: func(ctx context.Context, c *client.Client, p ContractReadArgs) ([]any, error) {
			return actions.ReadContract(ctx, c, p.Call)
		},
		ready: func(p ContractReadArgs) bool {
			return p.Call.Address != (common.Address{}) && p.Call.FunctionName != ""
		},
		chainID: func(p ContractReadArgs) int64 { return p.Call.ChainID },
		noCache: true,
	}, args)
}

// ContractReadsArgs configures WatchContractReads.
type ContractReadsArgs struct {
	Calls        []actions.ContractCall
	AllowFailure bool
	ChainID      int64 // chain whose blocks drive Watch
	QueryOptions
}

func (a ContractReadsArgs) fingerprint() []string {
	out := make([]string, len(a.Calls))
	for i, call := range a.Calls {
		out[i] = call.Signature()
	}
	return out
}

// WatchContractReads reads several contract functions in one batch.
func WatchContractReads(ctx context.Context, args ContractReadsArgs) (*Subscription[ContractReadsArgs, []actions.ContractResult], error) {
	return subscribe(ctx, fetchSpec[ContractReadsArgs, []actions.ContractResult]{
		name: "contractReads",
		fetch: func(ctx context.Context, c *client.Client, p ContractReadsArgs) ([]actions.ContractResult, error) {
			return actions.ReadContracts(ctx, c, p.Calls, actions.ReadContractsOptions{AllowFailure: p.AllowFailure})
		},
		ready:   func(p ContractReadsArgs) bool { return len(p.Calls) > 0 },
		chainID: func(p ContractReadsArgs) int64 { return p.ChainID },
		noCache: true,
	}, args)
}

// TokenArgs configures WatchToken.
type TokenArgs struct {
	actions.TokenParams
	QueryOptions
}

// WatchToken reads ERC-20 metadata.
func WatchToken(ctx context.Context, args TokenArgs) (*Subscription[TokenArgs, actions.Token], error) {
	return subscribe(ctx, fetchSpec[TokenArgs, actions.Token]{
		name: "token",
		fetch: func(ctx context.Context, c *client.Client, p TokenArgs) (actions.Token, error) {
			return actions.FetchToken(ctx, c, p.TokenParams)
		},
		ready:   func(p TokenArgs) bool { return p.Address != (common.Address{}) },
		chainID: func(p TokenArgs) int64 { return p.ChainID },
	}, args)
}

// FeeDataArgs configures WatchFeeData.
type FeeDataArgs struct {
	actions.FeeDataParams
	QueryOptions
}

// WatchFeeData reads gas pricing.
func WatchFeeData(ctx context.Context, args FeeDataArgs) (*Subscription[FeeDataArgs, actions.FeeData], error) {
	return subscribe(ctx, fetchSpec[FeeDataArgs, actions.FeeData]{
		name: "feeData",
		fetch: func(ctx context.Context, c *client.Client, p FeeDataArgs) (actions.FeeData, error) {
			return actions.FetchFeeData(ctx, c, p.FeeDataParams)
		},
		chainID: func(p FeeDataArgs) int64 { return p.ChainID },
	}, args)
}

// EnsNameArgs configures WatchEnsName.
type EnsNameArgs struct {
	Address common.Address
	ChainID int64
	QueryOptions
}

// WatchEnsName reverse-resolves an address.
func WatchEnsName(ctx context.Context, args EnsNameArgs) (*Subscription[EnsNameArgs, string], error) {
	return subscribe(ctx, fetchSpec[EnsNameArgs, string]{
		name: "ensName",
		fetch: func(ctx context.Context, c *client.Client, p EnsNameArgs) (string, error) {
			return actions.FetchEnsName(ctx, c, p.Address, p.ChainID)
		},
		ready:   func(p EnsNameArgs) bool { return p.Address != (common.Address{}) },
		chainID: func(p EnsNameArgs) int64 { return p.ChainID },
	}, args)
}

// EnsArgs configures the name-keyed ENS hooks.
type EnsArgs struct {
	Name    string
	ChainID int64
	QueryOptions
}

func ensReady(p EnsArgs) bool  { return p.Name != "" }
func ensChain(p EnsArgs) int64 { return p.ChainID }

// WatchEnsAddress resolves a name.
func WatchEnsAddress(ctx context.Context, args EnsArgs) (*Subscription[EnsArgs, common.Address], error) {
	return subscribe(ctx, fetchSpec[EnsArgs, common.Address]{
		name: "ensAddress",
		fetch: func(ctx context.Context, c *client.Client, p EnsArgs) (common.Address, error) {
			return actions.FetchEnsAddress(ctx, c, p.Name, p.ChainID)
		},
		ready:   ensReady,
		chainID: ensChain,
	}, args)
}

// WatchEnsAvatar reads a name's avatar record.
func WatchEnsAvatar(ctx context.Context, args EnsArgs) (*Subscription[EnsArgs, string], error) {
	return subscribe(ctx, fetchSpec[EnsArgs, string]{
		name: "ensAvatar",
		fetch: func(ctx context.Context, c *client.Client, p EnsArgs) (string, error) {
			return actions.FetchEnsAvatar(ctx, c, p.Name, p.ChainID)
		},
		ready:   ensReady,
		chainID: ensChain,
	}, args)
}

// WatchEnsResolver reads a name's resolver.
func WatchEnsResolver(ctx context.Context, args EnsArgs) (*Subscription[EnsArgs, common.Address], error) {
	return subscribe(ctx, fetchSpec[EnsArgs, common.Address]{
		name: "ensResolver",
		fetch: func(ctx context.Context, c *client.Client, p EnsArgs) (common.Address, error) {
			return actions.FetchEnsResolver(ctx, c, p.Name, p.ChainID)
		},
		ready:   ensReady,
		chainID: ensChain,
	}, args)
}

// BlockNumberArgs configures WatchBlockNumber.
type BlockNumberArgs struct {
	ChainID int64
	QueryOptions
}

// WatchBlockNumber reads the latest block number; with Watch set it follows
// new blocks.
func WatchBlockNumber(ctx context.Context, args BlockNumberArgs) (*Subscription[BlockNumberArgs, uint64], error) {
	return subscribe(ctx, fetchSpec[BlockNumberArgs, uint64]{
		name: "blockNumber",
		fetch: func(ctx context.Context, c *client.Client, p BlockNumberArgs) (uint64, error) {
			return actions.FetchBlockNumber(ctx, c, p.ChainID)
		},
		chainID: func(p BlockNumberArgs) int64 { return p.ChainID },
		noCache: true,
	}, args)
}

// TransactionArgs configures WatchTransaction.
type TransactionArgs struct {
	Hash          common.Hash
	ChainID       int64
	Confirmations uint64
	Timeout       time.Duration
	QueryOptions
}

// WatchTransaction waits for a transaction to be mined. It stays idle until
// a hash is given.
func WatchTransaction(ctx context.Context, args TransactionArgs) (*Subscription[TransactionArgs, *types.Receipt], error) {
	return subscribe(ctx, fetchSpec[TransactionArgs, *types.Receipt]{
		name: "waitForTransaction",
		fetch: func(ctx context.Context, c *client.Client, p TransactionArgs) (*types.Receipt, error) {
			return actions.WaitForTransaction(ctx, c, actions.WaitParams{
				Hash:          p.Hash,
				ChainID:       p.ChainID,
				Confirmations: p.Confirmations,
				Timeout:       p.Timeout,
			})
		},
		ready:   func(p TransactionArgs) bool { return p.Hash != (common.Hash{}) },
		chainID: func(p TransactionArgs) int64 { return p.ChainID },
		noCache: true,
	}, args)
}
