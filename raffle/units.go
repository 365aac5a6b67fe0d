package raffle

import (
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the number of decimals between wei and ether.
const EtherDecimals = 18

// FormatEther renders a decimal wei amount in ether, always keeping at least
// one fractional digit: "1000000000000000000" -> "1.0", "1" ->
// "0.000000000000000001".
func FormatEther(wei string) (string, error) {
	return FormatUnits(wei, EtherDecimals)
}

// FormatUnits renders a decimal integer amount with the given number of
// decimals, trimming trailing fractional zeros down to a single digit.
func FormatUnits(amount string, decimals int) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return "", fmt.Errorf("invalid integer amount %q", amount)
	}
	if decimals < 0 {
		return "", fmt.Errorf("invalid decimals %d", decimals)
	}

	neg := v.Sign() < 0
	v.Abs(v)

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, base, new(big.Int))

	fracStr := ""
	if decimals > 0 {
		digits := frac.String()
		fracStr = strings.Repeat("0", decimals-len(digits)) + digits
		fracStr = strings.TrimRight(fracStr, "0")
	}
	if fracStr == "" {
		fracStr = "0"
	}

	out := whole.String() + "." + fracStr
	if neg {
		out = "-" + out
	}
	return out, nil
}

// ParseWei parses a decimal wei amount.
func ParseWei(wei string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(wei), 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount %q", wei)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative wei amount %q", wei)
	}
	return v, nil
}
