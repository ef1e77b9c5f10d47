package ledger

import (
	"math/big"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

var ledgerErr = &LedgerError{}

// ComputePendingPayouts derives this node's candidate payouts. Deposit
// tax is owed on every registered address that received funds; every
// unapproved withdrawal is paid out in full.
func ComputePendingPayouts(
	received map[string]*big.Int,
	deposits []*agreement.MintDepositAddress,
	unapproved []*agreement.Withdrawal,
	processDeposits, processWithdrawals bool,
) (*agreement.Payouts, error) {
	payouts := agreement.NewEmptyPayouts()

	if processDeposits {
		for _, d := range deposits {
			r, ok := received[d.DepositAddress]
			if !ok || r.Sign() <= 0 {
				continue
			}
			approvable := TaxAmount(r)
			switch approvable.Cmp(d.ApprovedTax) {
			case 1:
				payouts.DepositTaxPayouts = append(payouts.DepositTaxPayouts, &agreement.DepositTaxPayout{
					DepositAddress: d.DepositAddress,
					Amount:         new(big.Int).Sub(approvable, d.ApprovedTax).String(),
				})
			case -1:
				return nil, ledgerErr.ApprovedTaxExceedsApprovable(d.DepositAddress)
			}
		}
	}

	if processWithdrawals {
		for _, w := range unapproved {
			payouts.WithdrawalPayouts = append(payouts.WithdrawalPayouts, &agreement.WithdrawalPayout{
				BurnSignature:   w.BurnSignature,
				BurnDestination: w.BurnDestination,
				Amount:          AmountAfterTax(w.BurnAmount).String(),
			})
			payouts.WithdrawalTaxPayouts = append(payouts.WithdrawalTaxPayouts, &agreement.WithdrawalPayout{
				BurnSignature:   w.BurnSignature,
				BurnDestination: w.BurnDestination,
				Amount:          TaxAmount(w.BurnAmount).String(),
			})
		}
	}

	return payouts, nil
}

// NetworkFee is the fee budget a payout round must fund from tax.
func NetworkFee(params *Params, p *agreement.Payouts) *big.Int {
	n := big.NewInt(int64(len(p.DepositTaxPayouts) + len(p.WithdrawalPayouts)))
	return n.Mul(n, params.NetworkFeePerPayout)
}

// TotalTax sums deposit tax and withdrawal tax payouts.
func TotalTax(p *agreement.Payouts) (*big.Int, error) {
	total := big.NewInt(0)
	for _, d := range p.DepositTaxPayouts {
		x, err := parsePayoutAmount("deposit tax", d.Amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, x)
	}
	for _, w := range p.WithdrawalTaxPayouts {
		x, err := parsePayoutAmount("withdrawal tax", w.Amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, x)
	}
	return total, nil
}

func parsePayoutAmount(what, s string) (*big.Int, error) {
	x, err := common.ParseAmount(s)
	if err != nil {
		return nil, ledgerErr.InvalidAmount(what, s)
	}
	return x, nil
}

func checkTaxCoversFee(params *Params, p *agreement.Payouts) (*big.Int, *big.Int, error) {
	totalTax, err := TotalTax(p)
	if err != nil {
		return nil, nil, err
	}
	fee := NetworkFee(params, p)
	if totalTax.Cmp(fee) < 0 {
		return nil, nil, ledgerErr.InsufficientTax(common.FromSatoshi(fee))
	}
	return totalTax, fee, nil
}

// ValidatePayouts re-checks a proposed payout set against this node's own
// observations. received holds confirmed totals per deposit address,
// deposits the registered rows for those addresses and withdrawals the
// stored rows keyed by burn signature.
func ValidatePayouts(
	params *Params,
	p *agreement.Payouts,
	received map[string]*big.Int,
	deposits []*agreement.MintDepositAddress,
	withdrawals map[string]*agreement.Withdrawal,
) error {
	if _, _, err := checkTaxCoversFee(params, p); err != nil {
		return err
	}

	rows := make(map[string]*agreement.MintDepositAddress, len(deposits))
	for _, d := range deposits {
		rows[d.DepositAddress] = d
	}
	seen := map[string]bool{}
	for _, dp := range p.DepositTaxPayouts {
		if seen[dp.DepositAddress] {
			return ledgerErr.DuplicatePayout(dp.DepositAddress)
		}
		seen[dp.DepositAddress] = true

		r, ok := received[dp.DepositAddress]
		if !ok || r.Sign() <= 0 {
			return ledgerErr.ZeroBalance(dp.DepositAddress)
		}
		row, ok := rows[dp.DepositAddress]
		if !ok {
			return ledgerErr.NotRegistered(dp.DepositAddress)
		}
		amount, err := parsePayoutAmount("deposit tax", dp.Amount)
		if err != nil {
			return err
		}
		if new(big.Int).Add(amount, row.ApprovedTax).Cmp(TaxAmount(r)) > 0 {
			return ledgerErr.TaxExceedsApprovable(dp.DepositAddress)
		}
	}

	if len(p.WithdrawalPayouts) != len(p.WithdrawalTaxPayouts) {
		return ledgerErr.WithdrawalCountMismatch()
	}
	seen = map[string]bool{}
	for i, wp := range p.WithdrawalPayouts {
		tp := p.WithdrawalTaxPayouts[i]
		if wp.BurnSignature != tp.BurnSignature {
			return ledgerErr.WithdrawalSignatureMismatch(i)
		}
		if seen[wp.BurnSignature] {
			return ledgerErr.DuplicatePayout(wp.BurnSignature)
		}
		seen[wp.BurnSignature] = true

		w, ok := withdrawals[wp.BurnSignature]
		if !ok {
			return ledgerErr.WithdrawalNotRegistered(wp.BurnSignature)
		}
		if !w.IsUnapproved() {
			return ledgerErr.WithdrawalAlreadyApproved(wp.BurnSignature)
		}
		if wp.BurnDestination != w.BurnDestination {
			return ledgerErr.WithdrawalFieldIncorrect("destination", wp.BurnSignature)
		}
		if tp.BurnDestination != w.BurnDestination {
			return ledgerErr.WithdrawalFieldIncorrect("tax destination", wp.BurnSignature)
		}
		amount, err := parsePayoutAmount("withdrawal", wp.Amount)
		if err != nil {
			return err
		}
		if amount.Cmp(AmountAfterTax(w.BurnAmount)) != 0 {
			return ledgerErr.WithdrawalFieldIncorrect("amount", wp.BurnSignature)
		}
		tax, err := parsePayoutAmount("withdrawal tax", tp.Amount)
		if err != nil {
			return err
		}
		if tax.Cmp(TaxAmount(w.BurnAmount)) != 0 {
			return ledgerErr.WithdrawalFieldIncorrect("tax amount", wp.BurnSignature)
		}
	}
	return nil
}

// ValidateUnspent requires every proposed output to be one this node
// observes as spendable itself.
func ValidateUnspent(proposed, observed []*agreement.Unspent) error {
	known := make(map[string]struct{}, len(observed))
	for _, u := range observed {
		known[u.Key()] = struct{}{}
	}
	seen := make(map[string]struct{}, len(proposed))
	for _, u := range proposed {
		key := u.Key()
		if _, ok := known[key]; !ok {
			return ledgerErr.NonExistentUnspent(key)
		}
		if _, ok := seen[key]; ok {
			return ledgerErr.DuplicatePayout(key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Vouts is the output set of a payout transaction, keyed by address.
type Vouts map[string]*big.Int

func (v Vouts) add(address string, amount *big.Int) {
	if cur, ok := v[address]; ok {
		cur.Add(cur, amount)
		return
	}
	v[address] = new(big.Int).Set(amount)
}

// Total sums every output.
func (v Vouts) Total() *big.Int {
	total := big.NewInt(0)
	for _, x := range v {
		total.Add(total, x)
	}
	return total
}

// ComputeVouts builds the deterministic output set of a payout
// transaction. Withdrawals are summed per destination, the tax left after
// the network fee is split evenly over taxPayoutAddresses, and the rest of
// the inputs returns to changeAddress. Outputs below the dust threshold
// are dropped and their value goes to the fee.
func ComputeVouts(
	params *Params,
	p *agreement.Payouts,
	unspent []*agreement.Unspent,
	taxPayoutAddresses []string,
	changeAddress string,
) (Vouts, error) {
	if len(taxPayoutAddresses) == 0 {
		return nil, ledgerErr.NoTaxPayoutAddresses()
	}

	vouts := Vouts{}
	for _, wp := range p.WithdrawalPayouts {
		amount, err := parsePayoutAmount("withdrawal", wp.Amount)
		if err != nil {
			return nil, err
		}
		vouts.add(wp.BurnDestination, amount)
	}

	totalTax, fee, err := checkTaxCoversFee(params, p)
	if err != nil {
		return nil, err
	}
	perPayee := new(big.Int).Sub(totalTax, fee)
	perPayee.Quo(perPayee, big.NewInt(int64(len(taxPayoutAddresses))))
	for _, a := range taxPayoutAddresses {
		vouts.add(a, perPayee)
	}

	inputs := big.NewInt(0)
	for _, u := range unspent {
		x, err := parsePayoutAmount("unspent", u.Amount)
		if err != nil {
			return nil, err
		}
		inputs.Add(inputs, x)
	}

	required := new(big.Int).Add(vouts.Total(), fee)
	change := new(big.Int).Sub(inputs, required)
	if change.Sign() < 0 {
		return nil, ledgerErr.InsufficientFunds(inputs.String(), required.String())
	}
	if change.Sign() > 0 {
		vouts.add(changeAddress, change)
	}

	dropped := []string{}
	for a, x := range vouts {
		if x.Cmp(params.DustThreshold) < 0 {
			dropped = append(dropped, a)
		}
	}
	sort.Strings(dropped)
	for _, a := range dropped {
		logger.WithFields(logger.Fields{
			"address": a,
			"amount":  vouts[a].String(),
		}).Warn("dropping dust output")
		delete(vouts, a)
	}

	return vouts, nil
}

// ApplyPayouts returns the rows with counters advanced by the payouts.
// Inputs are not modified. Nothing may push a deposit past its approvable
// tax or a withdrawal past its canonical amounts.
func ApplyPayouts(
	p *agreement.Payouts,
	received map[string]*big.Int,
	deposits []*agreement.MintDepositAddress,
	withdrawals map[string]*agreement.Withdrawal,
) ([]*agreement.MintDepositAddress, []*agreement.Withdrawal, error) {
	rows := make(map[string]*agreement.MintDepositAddress, len(deposits))
	for _, d := range deposits {
		rows[d.DepositAddress] = d
	}

	updatedDeposits := []*agreement.MintDepositAddress{}
	for _, dp := range p.DepositTaxPayouts {
		row, ok := rows[dp.DepositAddress]
		if !ok {
			return nil, nil, ledgerErr.NotRegistered(dp.DepositAddress)
		}
		amount, err := parsePayoutAmount("deposit tax", dp.Amount)
		if err != nil {
			return nil, nil, err
		}
		next := *row
		next.ApprovedAmount = new(big.Int).Set(row.ApprovedAmount)
		next.ApprovedTax = new(big.Int).Add(row.ApprovedTax, amount)

		r, ok := received[dp.DepositAddress]
		if !ok || next.ApprovedTax.Cmp(TaxAmount(r)) > 0 {
			return nil, nil, ledgerErr.TaxExceedsApprovable(dp.DepositAddress)
		}
		updatedDeposits = append(updatedDeposits, &next)
	}

	if len(p.WithdrawalPayouts) != len(p.WithdrawalTaxPayouts) {
		return nil, nil, ledgerErr.WithdrawalCountMismatch()
	}
	updatedWithdrawals := []*agreement.Withdrawal{}
	for i, wp := range p.WithdrawalPayouts {
		tp := p.WithdrawalTaxPayouts[i]
		w, ok := withdrawals[wp.BurnSignature]
		if !ok {
			return nil, nil, ledgerErr.WithdrawalNotRegistered(wp.BurnSignature)
		}
		amount, err := parsePayoutAmount("withdrawal", wp.Amount)
		if err != nil {
			return nil, nil, err
		}
		tax, err := parsePayoutAmount("withdrawal tax", tp.Amount)
		if err != nil {
			return nil, nil, err
		}
		next := *w
		next.ApprovedAmount = new(big.Int).Add(w.ApprovedAmount, amount)
		next.ApprovedTax = new(big.Int).Add(w.ApprovedTax, tax)
		if next.ApprovedAmount.Cmp(AmountAfterTax(w.BurnAmount)) > 0 ||
			next.ApprovedTax.Cmp(TaxAmount(w.BurnAmount)) > 0 {
			return nil, nil, ledgerErr.WithdrawalAlreadyApproved(wp.BurnSignature)
		}
		updatedWithdrawals = append(updatedWithdrawals, &next)
	}

	return updatedDeposits, updatedWithdrawals, nil
}
