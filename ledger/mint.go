package ledger

import (
	"math/big"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
)

// MintHeadroom is what can still be minted against a deposit address.
func MintHeadroom(received *big.Int, row *agreement.MintDepositAddress) *big.Int {
	return new(big.Int).Sub(AmountAfterTax(received), row.ApprovedAmount)
}

// ComputePendingMint lists every registered deposit address whose
// remaining mintable amount meets the threshold. received maps deposit
// addresses to their confirmed totals; addresses absent from it have
// received nothing.
func ComputePendingMint(params *Params, received map[string]*big.Int, rows []*agreement.MintDepositAddress) []*agreement.PendingMint {
	pending := []*agreement.PendingMint{}
	for _, row := range rows {
		r, ok := received[row.DepositAddress]
		if !ok || r.Sign() <= 0 {
			continue
		}
		mintable := MintHeadroom(r, row)
		if !params.MeetsThreshold(mintable) {
			continue
		}
		pending = append(pending, &agreement.PendingMint{
			MintAddress:    row.MintAddress,
			DepositAddress: row.DepositAddress,
			ApprovedAmount: row.ApprovedAmount.String(),
			MintAmount:     mintable.String(),
		})
	}
	return pending
}
