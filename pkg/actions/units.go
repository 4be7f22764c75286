package actions

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Unit names accepted by FormatUnits in addition to a decimal count.
const (
	UnitWei   = "wei"
	UnitGwei  = "gwei"
	UnitEther = "ether"
)

// UnitDecimals resolves a unit name or a decimal count to decimals.
func UnitDecimals(unit string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case UnitWei:
		return 0, nil
	case UnitGwei:
		return 9, nil
	case UnitEther:
		return 18, nil
	}
	n, err := strconv.Atoi(unit)
	if err != nil || n < 0 || n > 77 {
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
	return n, nil
}

// FormatUnits renders n divided by 10^decimals without trailing zeros.
func FormatUnits(n *big.Int, decimals int) string {
	if n == nil || n.Sign() == 0 {
		return "0"
	}
	if decimals <= 0 {
		return n.String()
	}

	sign := ""
	x := new(big.Int).Set(n)
	if x.Sign() < 0 {
		sign = "-"
		x.Abs(x)
	}

	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, frac := new(big.Int).QuoRem(x, denom, new(big.Int))
	if frac.Sign() == 0 {
		return sign + intPart.String()
	}
	fracStr := frac.Text(10)
	if len(fracStr) < decimals {
		fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr
	}
	return sign + intPart.String() + "." + strings.TrimRight(fracStr, "0")
}

// ParseUnits is the inverse of FormatUnits. Extra fractional digits are an
// error rather than silently truncated.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("%q has more than %d decimals", s, decimals)
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))
	n, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}
