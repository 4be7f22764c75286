package actions

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

const erc20JSON = `[
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ERC20ABI is the subset of the ERC-20 interface walletkit reads.
var ERC20ABI = mustParseABI(erc20JSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TotalSupply is a token supply in raw and formatted form.
type TotalSupply struct {
	Formatted string   `json:"formatted"`
	Value     *big.Int `json:"value"`
}

// Token is ERC-20 metadata.
type Token struct {
	Address     common.Address `json:"address"`
	Decimals    uint8          `json:"decimals"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	TotalSupply TotalSupply    `json:"totalSupply"`
}

// TokenParams selects a token.
type TokenParams struct {
	Address     common.Address
	ChainID     int64
	FormatUnits string // unit for TotalSupply.Formatted; token decimals when empty
}

// FetchToken reads name, symbol, decimals and totalSupply in one batch.
func FetchToken(ctx context.Context, c *client.Client, p TokenParams) (Token, error) {
	calls := make([]ContractCall, 0, 4)
	for _, fn := range []string{"name", "symbol", "decimals", "totalSupply"} {
		calls = append(calls, ContractCall{Address: p.Address, ABI: ERC20ABI, FunctionName: fn, ChainID: p.ChainID})
	}
	res, err := ReadContracts(ctx, c, calls, ReadContractsOptions{})
	if err != nil {
		return Token{}, err
	}

	tok := Token{Address: p.Address}
	var ok [4]bool
	tok.Name, ok[0] = single[string](res[0])
	tok.Symbol, ok[1] = single[string](res[1])
	tok.Decimals, ok[2] = single[uint8](res[2])
	supply, okSupply := single[*big.Int](res[3])
	ok[3] = okSupply
	for i, good := range ok {
		if !good {
			return Token{}, errors.NewContractResultDecodeError(p.Address.Hex(), calls[i].FunctionName, nil)
		}
	}

	decimals := int(tok.Decimals)
	if p.FormatUnits != "" {
		if decimals, err = UnitDecimals(p.FormatUnits); err != nil {
			return Token{}, errors.NewValidationError("formatUnits", err.Error(), p.FormatUnits)
		}
	}
	tok.TotalSupply = TotalSupply{Value: supply, Formatted: FormatUnits(supply, decimals)}
	return tok, nil
}

// single extracts the only output of a call as T.
func single[T any](r ContractResult) (T, bool) {
	var zero T
	if r.Error != nil || len(r.Result) != 1 {
		return zero, false
	}
	v, ok := r.Result[0].(T)
	return v, ok
}
