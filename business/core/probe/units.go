package probe

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// weiPerEther is the conversion rate between wei and ether.
var weiPerEther = new(big.Int).SetUint64(params.Ether)

// ParseEther converts a decimal ether amount like "0.01" into wei. The
// amount must be exactly representable, ether only carries 18 decimals.
func ParseEther(amount string) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", amount)
	}

	wei := new(big.Rat).Mul(rat, new(big.Rat).SetInt(weiPerEther))
	if !wei.IsInt() {
		return nil, fmt.Errorf("ether amount %q has more than 18 decimal places", amount)
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("ether amount %q is negative", amount)
	}

	return wei.Num(), nil
}

// FormatEther renders a wei amount as a decimal ether string for display.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	out := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	out = strings.TrimRight(out, "0")
	out = strings.TrimRight(out, ".")
	if out == "" {
		return "0"
	}

	return out
}

// GweiToWei converts a gas price expressed in gwei into wei.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}
