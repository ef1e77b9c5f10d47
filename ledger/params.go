// Package ledger holds the pure accounting rules of the bridge: tax,
// mintable headroom, payout validation and output construction. Nothing
// here touches storage or a chain; callers pass in what they observed.
package ledger

import (
	"math/big"

	"github.com/dingocoin/wdingocoin-bridge/common"
)

var (
	DefaultAmountThreshold     = common.MustToSatoshi("100000")
	DefaultDustThreshold       = common.MustToSatoshi("1")
	DefaultNetworkFeePerPayout = common.MustToSatoshi("20")
)

type Params struct {
	// Minimum mint and withdrawal amount.
	AmountThreshold *big.Int
	// Outputs below this are left out of payout transactions.
	DustThreshold *big.Int
	// Charged once per deposit tax payout and once per withdrawal payout.
	NetworkFeePerPayout *big.Int
}

func DefaultParams() *Params {
	return &Params{
		AmountThreshold:     new(big.Int).Set(DefaultAmountThreshold),
		DustThreshold:       new(big.Int).Set(DefaultDustThreshold),
		NetworkFeePerPayout: new(big.Int).Set(DefaultNetworkFeePerPayout),
	}
}

func (p *Params) MeetsThreshold(x *big.Int) bool {
	return x.Cmp(p.AmountThreshold) >= 0
}

var hundred = big.NewInt(100)

// TaxAmount is the 1% protocol fee, rounded down.
func TaxAmount(x *big.Int) *big.Int {
	return new(big.Int).Quo(x, hundred)
}

func AmountAfterTax(x *big.Int) *big.Int {
	return new(big.Int).Sub(x, TaxAmount(x))
}
