package ledger

import (
	"math/big"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

// ComputeDepositStats aggregates the registered rows against the totals
// received at one confirmation depth.
func ComputeDepositStats(received map[string]*big.Int, rows []*agreement.MintDepositAddress) *agreement.DepositStats {
	deposited, approvable, approvableTax := big.NewInt(0), big.NewInt(0), big.NewInt(0)
	approved, approvedTax := big.NewInt(0), big.NewInt(0)
	for _, row := range rows {
		if r, ok := received[row.DepositAddress]; ok {
			deposited.Add(deposited, r)
			approvable.Add(approvable, AmountAfterTax(r))
			approvableTax.Add(approvableTax, TaxAmount(r))
		}
		approved.Add(approved, row.ApprovedAmount)
		approvedTax.Add(approvedTax, row.ApprovedTax)
	}
	return &agreement.DepositStats{
		Count:                     len(rows),
		TotalDepositedAmount:      deposited.String(),
		TotalApprovableAmount:     approvable.String(),
		TotalApprovedAmount:       approved.String(),
		RemainingApprovableAmount: new(big.Int).Sub(approvable, approved).String(),
		TotalApprovableTax:        approvableTax.String(),
		TotalApprovedTax:          approvedTax.String(),
		RemainingApprovableTax:    new(big.Int).Sub(approvableTax, approvedTax).String(),
	}
}

func ComputeWithdrawalStats(ws []*agreement.Withdrawal) *agreement.WithdrawalStats {
	burned, approvable, approvableTax := big.NewInt(0), big.NewInt(0), big.NewInt(0)
	approved, approvedTax := big.NewInt(0), big.NewInt(0)
	for _, w := range ws {
		burned.Add(burned, w.BurnAmount)
		approvable.Add(approvable, AmountAfterTax(w.BurnAmount))
		approvableTax.Add(approvableTax, TaxAmount(w.BurnAmount))
		approved.Add(approved, w.ApprovedAmount)
		approvedTax.Add(approvedTax, w.ApprovedTax)
	}
	return &agreement.WithdrawalStats{
		Count:                     len(ws),
		TotalBurnedAmount:         burned.String(),
		TotalApprovableAmount:     approvable.String(),
		TotalApprovedAmount:       approved.String(),
		TotalApprovableTax:        approvableTax.String(),
		TotalApprovedTax:          approvedTax.String(),
		RemainingApprovableAmount: new(big.Int).Sub(approvable, approved).String(),
		RemainingApprovableTax:    new(big.Int).Sub(approvableTax, approvedTax).String(),
	}
}

func ComputeUtxoStats(change, deposits []*agreement.Unspent) (*agreement.UtxoStats, error) {
	sum := func(us []*agreement.Unspent) (string, error) {
		amounts := make([]string, len(us))
		for i, u := range us {
			amounts[i] = u.Amount
		}
		total, err := common.SumAmounts(amounts)
		if err != nil {
			return "", err
		}
		return total.String(), nil
	}
	c, err := sum(change)
	if err != nil {
		return nil, err
	}
	d, err := sum(deposits)
	if err != nil {
		return nil, err
	}
	return &agreement.UtxoStats{TotalChangeBalance: c, TotalDepositsBalance: d}, nil
}
