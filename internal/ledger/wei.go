package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// All prices cross into ledger calls as integer wei and come back out as
// decimal ETH. This is the only place the conversion lives.

// EthToWei converts a decimal ETH amount to integer wei. Amounts must be
// positive and representable without sub-wei precision.
func EthToWei(eth decimal.Decimal) (*big.Int, error) {
	if !eth.IsPositive() {
		return nil, fmt.Errorf("ledger: price must be > 0, got %s", eth)
	}
	wei := eth.Shift(18)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("ledger: %s ETH has sub-wei precision", eth)
	}
	return wei.BigInt(), nil
}

// WeiToEth converts integer wei back to decimal ETH.
func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
