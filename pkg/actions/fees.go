package actions

import (
	"context"
	"math/big"

	"github.com/DeBrosOfficial/walletkit/pkg/client"
	"github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// FeeData holds current gas pricing. EIP-1559 fields are nil on chains
// without a base fee.
type FeeData struct {
	GasPrice             *big.Int     `json:"gasPrice"`
	LastBaseFeePerGas    *big.Int     `json:"lastBaseFeePerGas,omitempty"`
	MaxFeePerGas         *big.Int     `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int     `json:"maxPriorityFeePerGas,omitempty"`
	Formatted            FormattedFee `json:"formatted"`
}

// FormattedFee mirrors FeeData as decimal strings in the requested unit.
type FormattedFee struct {
	GasPrice             string `json:"gasPrice"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// FeeDataParams selects the chain and display unit (gwei by default).
type FeeDataParams struct {
	ChainID     int64
	FormatUnits string
}

// FetchFeeData reads the gas price and, when the latest block has a base
// fee, derives maxFeePerGas as 2*baseFee + tip.
func FetchFeeData(ctx context.Context, c *client.Client, p FeeDataParams) (FeeData, error) {
	unit := p.FormatUnits
	if unit == "" {
		unit = UnitGwei
	}
	decimals, err := UnitDecimals(unit)
	if err != nil {
		return FeeData{}, errors.NewValidationError("formatUnits", err.Error(), unit)
	}

	pc, _, err := publicClient(c, p.ChainID)
	if err != nil {
		return FeeData{}, err
	}
	head, err := pc.HeaderByNumber(ctx, nil)
	if err != nil {
		return FeeData{}, errors.Normalize(err)
	}
	gasPrice, err := pc.SuggestGasPrice(ctx)
	if err != nil {
		return FeeData{}, errors.Normalize(err)
	}

	fd := FeeData{GasPrice: gasPrice}
	if head.BaseFee != nil {
		tip, err := pc.SuggestGasTipCap(ctx)
		if err != nil {
			return FeeData{}, errors.Normalize(err)
		}
		fd.LastBaseFeePerGas = new(big.Int).Set(head.BaseFee)
		fd.MaxPriorityFeePerGas = tip
		fd.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
	}

	fd.Formatted.GasPrice = FormatUnits(fd.GasPrice, decimals)
	if fd.MaxFeePerGas != nil {
		fd.Formatted.MaxFeePerGas = FormatUnits(fd.MaxFeePerGas, decimals)
		fd.Formatted.MaxPriorityFeePerGas = FormatUnits(fd.MaxPriorityFeePerGas, decimals)
	}
	return fd, nil
}
