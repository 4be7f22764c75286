package actions

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int
		want     string
	}{
		{"zero", "0", 18, "0"},
		{"one ether", "1000000000000000000", 18, "1"},
		{"fraction", "1500000000000000000", 18, "1.5"},
		{"small", "1", 18, "0.000000000000000001"},
		{"negative", "-2500000", 6, "-2.5"},
		{"wei", "12345", 0, "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := new(big.Int).SetString(tt.value, 10)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatUnits(n, tt.decimals))

			back, err := ParseUnits(tt.want, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, 0, back.Cmp(n))
		})
	}

	_, err := ParseUnits("1.0000001", 6)
	assert.Error(t, err)
}

func TestUnitDecimals(t *testing.T) {
	for unit, want := range map[string]int{"wei": 0, "gwei": 9, "ether": 18, "6": 6} {
		got, err := UnitDecimals(unit)
		require.NoError(t, err, unit)
		assert.Equal(t, want, got, unit)
	}
	_, err := UnitDecimals("finney")
	assert.Error(t, err)
}

func TestGetAccountAndNetwork(t *testing.T) {
	f := newFixture(t, nil)
	acc := GetAccount(f.client)
	assert.False(t, acc.IsConnected)
	assert.Nil(t, GetNetwork(f.client).Chain)

	f.connect(t)
	acc = GetAccount(f.client)
	assert.True(t, acc.IsConnected)
	assert.Equal(t, f.conn.Address(), acc.Address)
	assert.Equal(t, "mock", acc.Connector)

	net := GetNetwork(f.client)
	require.NotNil(t, net.Chain)
	assert.Equal(t, chains.Mainnet.ID, net.Chain.ID)
	assert.False(t, net.Unsupported)
	assert.Len(t, net.Chains, 2)
}

func TestFetchBalanceNative(t *testing.T) {
	f := newFixture(t, nil)
	addr := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	f.fake.SetBalance(addr, big.NewInt(1_500_000_000_000_000_000))

	b, err := FetchBalance(context.Background(), f.client, BalanceParams{Address: addr})
	require.NoError(t, err)
	assert.Equal(t, "1.5", b.Formatted)
	assert.Equal(t, "ETH", b.Symbol)
	assert.Equal(t, uint8(18), b.Decimals)

	b, err = FetchBalance(context.Background(), f.client, BalanceParams{Address: addr, FormatUnits: UnitGwei})
	require.NoError(t, err)
	assert.Equal(t, "1500000000", b.Formatted)

	_, err = FetchBalance(context.Background(), f.client, BalanceParams{Address: addr, ChainID: 10})
	assert.Equal(t, errors.KindChainNotConfigured, errors.KindOf(err))
}

func TestFetchBalanceToken(t *testing.T) {
	f := newFixture(t, nil)
	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	f.fake.BatchFn = erc20Node(t, map[string][]any{
		"balanceOf": {big.NewInt(2_500_000)},
		"decimals":  {uint8(6)},
		"symbol":    {"USDC"},
	})

	b, err := FetchBalance(context.Background(), f.client, BalanceParams{
		Address: common.HexToAddress("0x01"),
		Token:   &token,
	})
	require.NoError(t, err)
	assert.Equal(t, "2.5", b.Formatted)
	assert.Equal(t, "USDC", b.Symbol)
	assert.Equal(t, 1, f.fake.Calls("BatchCall"))
}

func TestFetchToken(t *testing.T) {
	f := newFixture(t, nil)
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	supply, _ := new(big.Int).SetString("5000000000000000000000000", 10)
	f.fake.BatchFn = erc20Node(t, map[string][]any{
		"name":        {"Dai Stablecoin"},
		"symbol":      {"DAI"},
		"decimals":    {uint8(18)},
		"totalSupply": {supply},
	})

	tok, err := FetchToken(context.Background(), f.client, TokenParams{Address: token})
	require.NoError(t, err)
	assert.Equal(t, "Dai Stablecoin", tok.Name)
	assert.Equal(t, "DAI", tok.Symbol)
	assert.Equal(t, "5000000", tok.TotalSupply.Formatted)

	f.fake.BatchFn = erc20Node(t, map[string][]any{"name": {"x"}})
	_, err = FetchToken(context.Background(), f.client, TokenParams{Address: token})
	assert.Equal(t, errors.KindContractResultDecode, errors.KindOf(err))
}

func TestReadContractEmptyResult(t *testing.T) {
	f := newFixture(t, nil)
	_, err := ReadContract(context.Background(), f.client, ContractCall{
		Address:      common.HexToAddress("0x01"),
		ABI:          ERC20ABI,
		FunctionName: "totalSupply",
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindContractResultDecode, errors.KindOf(err))
	assert.Contains(t, err.Error(), "returned no data")
}

func TestReadContract(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.CallFn = func(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
		return ERC20ABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(42))
	}
	out, err := ReadContract(context.Background(), f.client, ContractCall{
		Address:      common.HexToAddress("0x01"),
		ABI:          ERC20ABI,
		FunctionName: "balanceOf",
		Args:         []any{common.HexToAddress("0x02")},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(42), out[0].(*big.Int).Int64())

	_, err = ReadContract(context.Background(), f.client, ContractCall{
		Address:      common.HexToAddress("0x01"),
		ABI:          ERC20ABI,
		FunctionName: "balanceOf",
	})
	assert.Error(t, err, "missing argument")
}

func TestReadContractsAllowFailure(t *testing.T) {
	f := newFixture(t, nil)
	token := common.HexToAddress("0x01")
	f.fake.BatchFn = erc20Node(t, map[string][]any{"symbol": {"TKN"}})
	calls := []ContractCall{
		{Address: token, ABI: ERC20ABI, FunctionName: "symbol"},
		{Address: token, ABI: ERC20ABI, FunctionName: "decimals"},
	}

	_, err := ReadContracts(context.Background(), f.client, calls, ReadContractsOptions{})
	assert.Equal(t, errors.KindContractResultDecode, errors.KindOf(err))

	res, err := ReadContracts(context.Background(), f.client, calls, ReadContractsOptions{AllowFailure: true})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.NoError(t, res[0].Error)
	assert.Equal(t, []any{"TKN"}, res[0].Result)
	assert.Equal(t, errors.KindContractResultDecode, errors.KindOf(res[1].Error))
}

func TestFetchFeeData(t *testing.T) {
	f := newFixture(t, nil)
	fd, err := FetchFeeData(context.Background(), f.client, FeeDataParams{})
	require.NoError(t, err)
	assert.Equal(t, "20", fd.Formatted.GasPrice)
	assert.Equal(t, "21", fd.Formatted.MaxFeePerGas)
	assert.Equal(t, "1", fd.Formatted.MaxPriorityFeePerGas)
	assert.Equal(t, int64(10_000_000_000), fd.LastBaseFeePerGas.Int64())

	f.fake.BaseFee = nil
	fd, err = FetchFeeData(context.Background(), f.client, FeeDataParams{FormatUnits: UnitWei})
	require.NoError(t, err)
	assert.Nil(t, fd.MaxFeePerGas)
	assert.Equal(t, "20000000000", fd.Formatted.GasPrice)
}

func TestFetchBlockNumber(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.SetBlock(99)
	n, err := FetchBlockNumber(context.Background(), f.client, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), n)
}

type stubENS struct{}

func (stubENS) Name(context.Context, int64, common.Address) (string, error) { return "vitalik.eth", nil }
func (stubENS) Address(context.Context, int64, string) (common.Address, error) {
	return common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"), nil
}
func (stubENS) Avatar(context.Context, int64, string) (string, error) { return "ipfs://avatar", nil }
func (stubENS) Resolver(context.Context, int64, string) (common.Address, error) {
	return common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41"), nil
}

func TestFetchEns(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil)
	_, err := FetchEnsName(ctx, f.client, common.Address{}, 0)
	assert.Equal(t, errors.KindChainDoesNotSupportContract, errors.KindOf(err))
	_, err = FetchEnsAddress(ctx, f.client, "vitalik.eth", 0)
	assert.Equal(t, errors.KindChainDoesNotSupportContract, errors.KindOf(err))

	f = newFixture(t, stubENS{})
	name, err := FetchEnsName(ctx, f.client, common.Address{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", name)
	addr, err := FetchEnsAddress(ctx, f.client, name, 0)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"), addr)
	avatar, err := FetchEnsAvatar(ctx, f.client, name, 0)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://avatar", avatar)
	_, err = FetchEnsResolver(ctx, f.client, name, 0)
	require.NoError(t, err)
}

func TestSendTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	to := common.HexToAddress("0x02")

	_, err := SendTransaction(ctx, f.client, connectors.TransactionRequest{To: &to})
	assert.Equal(t, errors.KindConnectorNotFound, errors.KindOf(err))

	f.connect(t)
	_, err = SendTransaction(ctx, f.client, connectors.TransactionRequest{To: &to, ChainID: chains.Sepolia.ID})
	assert.Equal(t, errors.KindChainMismatch, errors.KindOf(err))

	hash, err := SendTransaction(ctx, f.client, connectors.TransactionRequest{To: &to, Value: big.NewInt(1)})
	require.NoError(t, err)
	require.Len(t, f.fake.Sent, 1)
	assert.Equal(t, f.fake.Sent[0].Hash(), hash)
}

func TestWriteContract(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.connect(t)
	params := WriteContractParams{
		Address:      common.HexToAddress("0x01"),
		ABI:          ERC20ABI,
		FunctionName: "transfer",
		Args:         []any{common.HexToAddress("0x02"), big.NewInt(5)},
	}

	params.ChainID = chains.Sepolia.ID
	_, err := WriteContract(ctx, f.client, params)
	assert.Equal(t, errors.KindChainMismatch, errors.KindOf(err))

	params.ChainID = chains.Mainnet.ID
	_, err = WriteContract(ctx, f.client, params)
	require.NoError(t, err)
	require.Len(t, f.fake.Sent, 1)
	assert.Equal(t, ERC20ABI.Methods["transfer"].ID, f.fake.Sent[0].Data()[:4])
}

func TestSignTypedDataChainMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.connect(t)

	data := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {{Name: "name", Type: "string"}, {Name: "chainId", Type: "uint256"}},
			"Mail":         {{Name: "contents", Type: "string"}},
		},
		PrimaryType: "Mail",
		Domain:      apitypes.TypedDataDomain{Name: "walletkit", ChainId: math.NewHexOrDecimal256(chains.Sepolia.ID)},
		Message:     apitypes.TypedDataMessage{"contents": "hello"},
	}
	_, err := SignTypedData(ctx, f.client, data)
	assert.Equal(t, errors.KindChainMismatch, errors.KindOf(err))

	data.Domain.ChainId = math.NewHexOrDecimal256(chains.Mainnet.ID)
	sig, err := SignTypedData(ctx, f.client, data)
	require.NoError(t, err)
	assert.Len(t, sig, 65)
}

func TestSignMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := SignMessage(ctx, f.client, []byte("hi"))
	assert.Equal(t, errors.KindConnectorNotFound, errors.KindOf(err))

	f.connect(t)
	f.conn.SetFlags(connectors.MockFlags{RejectSignature: true})
	_, err = SignMessage(ctx, f.client, []byte("hi"))
	assert.Equal(t, errors.KindUserRejectedRequest, errors.KindOf(err))
}

func TestSwitchNetwork(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	chain, err := SwitchNetwork(context.Background(), f.client, chains.Sepolia.ID)
	require.NoError(t, err)
	assert.Equal(t, chains.Sepolia.ID, chain.ID)
}

func TestWaitForTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	hash := common.HexToHash("0xabc")

	f.fake.SetBlock(10)
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.fake.SetReceipt(&types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)})
		time.Sleep(20 * time.Millisecond)
		f.fake.SetBlock(12)
	}()

	r, err := WaitForTransaction(ctx, f.client, WaitParams{Hash: hash, Confirmations: 3, Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, hash, r.TxHash)

	reverted := common.HexToHash("0xdef")
	f.fake.SetReceipt(&types.Receipt{TxHash: reverted, Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(12)})
	_, err = WaitForTransaction(ctx, f.client, WaitParams{Hash: reverted})
	assert.ErrorIs(t, err, ErrTransactionReverted)

	_, err = WaitForTransaction(ctx, f.client, WaitParams{Hash: common.HexToHash("0x404"), Timeout: 30 * time.Millisecond})
	assert.Error(t, err)
}
