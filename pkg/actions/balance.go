package actions

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// BalanceParams selects a native or ERC-20 balance.
type BalanceParams struct {
	Address     common.Address
	ChainID     int64           // zero means the active chain
	Token       *common.Address // nil reads the native currency
	FormatUnits string          // unit name or decimals; the asset's decimals when empty
}

// Balance is an amount with the metadata needed to display it.
type Balance struct {
	Decimals  uint8    `json:"decimals"`
	Formatted string   `json:"formatted"`
	Symbol    string   `json:"symbol"`
	Value     *big.Int `json:"value"`
}

// FetchBalance reads the balance of p.Address.
func FetchBalance(ctx context.Context, c *client.Client, p BalanceParams) (Balance, error) {
	if p.Token != nil {
		return fetchTokenBalance(ctx, c, p)
	}

	pc, chainID, err := publicClient(c, p.ChainID)
	if err != nil {
		return Balance{}, err
	}
	value, err := pc.BalanceAt(ctx, p.Address, nil)
	if err != nil {
		return Balance{}, errors.Normalize(err)
	}

	chain, _ := c.Chain(chainID)
	b := Balance{
		Decimals: chain.NativeCurrency.Decimals,
		Symbol:   chain.NativeCurrency.Symbol,
		Value:    value,
	}
	return b, b.format(p.FormatUnits)
}

func fetchTokenBalance(ctx context.Context, c *client.Client, p BalanceParams) (Balance, error) {
	token := *p.Token
	calls := []ContractCall{
		{Address: token, ABI: ERC20ABI, FunctionName: "balanceOf", Args: []any{p.Address}, ChainID: p.ChainID},
		{Address: token, ABI: ERC20ABI, FunctionName: "decimals", ChainID: p.ChainID},
		{Address: token, ABI: ERC20ABI, FunctionName: "symbol", ChainID: p.ChainID},
	}
	res, err := ReadContracts(ctx, c, calls, ReadContractsOptions{})
	if err != nil {
		return Balance{}, err
	}

	value, ok := single[*big.Int](res[0])
	if !ok {
		return Balance{}, errors.NewContractResultDecodeError(token.Hex(), "balanceOf", nil)
	}
	decimals, ok := single[uint8](res[1])
	if !ok {
		return Balance{}, errors.NewContractResultDecodeError(token.Hex(), "decimals", nil)
	}
	symbol, ok := single[string](res[2])
	if !ok {
		return Balance{}, errors.NewContractResultDecodeError(token.Hex(), "symbol", nil)
	}

	b := Balance{Decimals: decimals, Symbol: symbol, Value: value}
	return b, b.format(p.FormatUnits)
}

func (b *Balance) format(unit string) error {
	decimals := int(b.Decimals)
	if unit != "" {
		d, err := UnitDecimals(unit)
		if err != nil {
			return errors.NewValidationError("formatUnits", err.Error(), unit)
		}
		decimals = d
	}
	b.Formatted = FormatUnits(b.Value, decimals)
	return nil
}
