package actions

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// ContractCall identifies one read of a contract function.
type ContractCall struct {
	Address      common.Address `json:"address"`
	ABI          abi.ABI        `json:"-"`
	FunctionName string         `json:"functionName"`
	Args         []any          `json:"args,omitempty"`
	ChainID      int64          `json:"chainId,omitempty"`     // zero means the active chain
	BlockNumber  *big.Int       `json:"blockNumber,omitempty"` // nil means latest
}

// ContractResult is one entry of ReadContracts.
type ContractResult struct {
	Result []any
	Error  error
}

// ReadContractsOptions tunes ReadContracts.
type ReadContractsOptions struct {
	// AllowFailure keeps going when one call fails and reports the error in
	// its ContractResult instead of failing the batch.
	AllowFailure bool
}

type callArgs struct {
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

func blockArg(n *big.Int) string {
	if n == nil {
		return "latest"
	}
	return hexutil.EncodeBig(n)
}

// Signature describes the ABI entry the call is encoded and decoded with,
// as name(inputs)(outputs). It is empty when the ABI lacks FunctionName.
func (call ContractCall) Signature() string {
	m, ok := call.ABI.Methods[call.FunctionName]
	if !ok {
		return ""
	}
	outputs := make([]string, len(m.Outputs))
	for i, o := range m.Outputs {
		outputs[i] = o.Type.String()
	}
	return m.Sig + "(" + strings.Join(outputs, ",") + ")"
}

func (call ContractCall) pack() ([]byte, error) {
	data, err := call.ABI.Pack(call.FunctionName, call.Args...)
	if err != nil {
		return nil, errors.NewValidationError("args", err.Error(), call.FunctionName)
	}
	return data, nil
}

func (call ContractCall) unpack(out []byte) ([]any, error) {
	if len(out) == 0 {
		return nil, errors.NewContractResultDecodeError(call.Address.Hex(), call.FunctionName, nil)
	}
	values, err := call.ABI.Unpack(call.FunctionName, out)
	if err != nil {
		return nil, errors.NewContractResultDecodeError(call.Address.Hex(), call.FunctionName, err)
	}
	return values, nil
}

// ReadContract performs eth_call and decodes the outputs of the function.
// An empty result ("0x") is a ContractResultDecode error.
func ReadContract(ctx context.Context, c *client.Client, call ContractCall) ([]any, error) {
	data, err := call.pack()
	if err != nil {
		return nil, err
	}
	pc, _, err := publicClient(c, call.ChainID)
	if err != nil {
		return nil, err
	}
	to := call.Address
	out, err := pc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, call.BlockNumber)
	if err != nil {
		return nil, errors.Normalize(err)
	}
	return call.unpack(out)
}

// ReadContracts sends every call in one JSON-RPC batch per chain and returns
// results in call order.
func ReadContracts(ctx context.Context, c *client.Client, calls []ContractCall, opts ReadContractsOptions) ([]ContractResult, error) {
	results := make([]ContractResult, len(calls))
	byChain := make(map[int64][]int)
	var order []int64

	for i, call := range calls {
		chainID := call.ChainID
		if chainID == 0 {
			chainID = c.State().ChainID
		}
		if _, ok := byChain[chainID]; !ok {
			order = append(order, chainID)
		}
		byChain[chainID] = append(byChain[chainID], i)
	}

	for _, chainID := range order {
		idx := byChain[chainID]
		pc, _, err := publicClient(c, chainID)
		if err != nil {
			return nil, err
		}

		batch := make([]rpc.BatchElem, 0, len(idx))
		outs := make([]hexutil.Bytes, len(idx))
		packed := make([]int, 0, len(idx))
		for j, i := range idx {
			data, err := calls[i].pack()
			if err != nil {
				if !opts.AllowFailure {
					return nil, err
				}
				results[i].Error = err
				continue
			}
			to := calls[i].Address
			batch = append(batch, rpc.BatchElem{
				Method: "eth_call",
				Args:   []any{callArgs{To: &to, Data: data}, blockArg(calls[i].BlockNumber)},
				Result: &outs[j],
			})
			packed = append(packed, j)
		}
		if len(batch) == 0 {
			continue
		}
		if err := pc.BatchCall(ctx, batch); err != nil {
			return nil, errors.Normalize(err)
		}

		for k, j := range packed {
			i := idx[j]
			var err error
			if batch[k].Error != nil {
				err = errors.Normalize(batch[k].Error)
			} else {
				results[i].Result, err = calls[i].unpack(outs[j])
			}
			if err != nil {
				if !opts.AllowFailure {
					return nil, err
				}
				results[i].Error = err
			}
		}
	}
	return results, nil
}

// WriteContractParams describes a state-changing contract call.
type WriteContractParams struct {
	Address      common.Address `json:"address"`
	ABI          abi.ABI        `json:"-"`
	FunctionName string         `json:"functionName"`
	Args         []any          `json:"args,omitempty"`
	ChainID      int64          `json:"chainId,omitempty"` // when set, must match the active chain
	Value        *big.Int       `json:"value,omitempty"`
	Gas          uint64         `json:"gas,omitempty"`
}

// WriteContract encodes the call and sends it through the active connector.
func WriteContract(ctx context.Context, c *client.Client, p WriteContractParams) (common.Hash, error) {
	conn, s, err := activeConnector(c)
	if err != nil {
		return common.Hash{}, observe(c, "write_contract", err)
	}
	if err := checkChain(s, p.ChainID); err != nil {
		return common.Hash{}, observe(c, "write_contract", err)
	}
	data, err := p.ABI.Pack(p.FunctionName, p.Args...)
	if err != nil {
		return common.Hash{}, observe(c, "write_contract",
			errors.NewValidationError("args", err.Error(), p.FunctionName))
	}
	to := p.Address
	hash, err := conn.SendTransaction(ctx, connectors.TransactionRequest{
		From:    s.Account,
		To:      &to,
		Value:   p.Value,
		Data:    data,
		Gas:     p.Gas,
		ChainID: s.ChainID,
	})
	if err != nil {
		return common.Hash{}, observe(c, "write_contract", errors.Normalize(err))
	}
	return hash, observe(c, "write_contract", nil)
}
