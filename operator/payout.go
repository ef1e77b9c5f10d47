package operator

import (
	"context"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

// IntersectPayouts keeps the payouts every node reports identically.
func IntersectPayouts(lists []*agreement.Payouts) *agreement.Payouts {
	result := agreement.NewEmptyPayouts()
	if len(lists) == 0 {
		return result
	}
	result.DepositTaxPayouts = append(result.DepositTaxPayouts, lists[0].DepositTaxPayouts...)
	result.WithdrawalPayouts = append(result.WithdrawalPayouts, lists[0].WithdrawalPayouts...)
	result.WithdrawalTaxPayouts = append(result.WithdrawalTaxPayouts, lists[0].WithdrawalTaxPayouts...)
	for _, other := range lists[1:] {
		result.DepositTaxPayouts = filter(result.DepositTaxPayouts, func(x *agreement.DepositTaxPayout) bool {
			for _, y := range other.DepositTaxPayouts {
				if *x == *y {
					return true
				}
			}
			return false
		})
		sameWithdrawal := func(ys []*agreement.WithdrawalPayout) func(*agreement.WithdrawalPayout) bool {
			return func(x *agreement.WithdrawalPayout) bool {
				for _, y := range ys {
					if *x == *y {
						return true
					}
				}
				return false
			}
		}
		result.WithdrawalPayouts = filter(result.WithdrawalPayouts, sameWithdrawal(other.WithdrawalPayouts))
		result.WithdrawalTaxPayouts = filter(result.WithdrawalTaxPayouts, sameWithdrawal(other.WithdrawalTaxPayouts))
	}
	return result
}

// IntersectUnspent keeps the outputs that every node reports exactly once
// with the same amount.
func IntersectUnspent(lists [][]*agreement.Unspent) []*agreement.Unspent {
	if len(lists) == 0 {
		return []*agreement.Unspent{}
	}
	result := append([]*agreement.Unspent{}, lists[0]...)
	for _, other := range lists[1:] {
		result = filter(result, func(x *agreement.Unspent) bool {
			var matches []*agreement.Unspent
			for _, y := range other {
				if y.TxID == x.TxID && y.Vout == x.Vout {
					matches = append(matches, y)
				}
			}
			return len(matches) == 1 && !lessAmount(matches[0].Amount, x.Amount) && !lessAmount(x.Amount, matches[0].Amount)
		})
	}
	return result
}

func filter[T any](xs []T, keep func(T) bool) []T {
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

func (o *Operator) printPayouts(indent string, p *agreement.Payouts) {
	total := func(amounts []string) string {
		sum, err := common.SumAmounts(amounts)
		if err != nil {
			return "?"
		}
		return common.FromSatoshi(sum)
	}
	amounts := make([]string, len(p.DepositTaxPayouts))
	for i, d := range p.DepositTaxPayouts {
		amounts[i] = d.Amount
	}
	o.printf("%sTotal deposit tax = %s\n", indent, total(amounts))
	for _, d := range p.DepositTaxPayouts {
		o.printf("%s  %s -> %s\n", indent, d.DepositAddress, satoshiString(d.Amount))
	}
	for _, section := range []struct {
		name    string
		payouts []*agreement.WithdrawalPayout
	}{
		{"withdrawal", p.WithdrawalPayouts},
		{"withdrawal tax", p.WithdrawalTaxPayouts},
	} {
		amounts = make([]string, len(section.payouts))
		for i, w := range section.payouts {
			amounts[i] = w.Amount
		}
		o.printf("%sTotal %s = %s\n", indent, section.name, total(amounts))
		for _, w := range section.payouts {
			o.printf("%s  %s -> %s\n", indent, w.BurnDestination, satoshiString(w.Amount))
		}
	}
}

// ExecutePayouts agrees on payouts and inputs with every node, runs the
// approval chain in test mode and then for real, and broadcasts the
// fully signed transaction. It returns the source-chain txid, or "" for
// test runs and empty rounds.
func (o *Operator) ExecutePayouts(ctx context.Context, processDeposits, processWithdrawals, test bool) (string, error) {
	if !processDeposits && !processWithdrawals {
		return "", common.NewValidationError("At least one of deposits or withdrawals must be processed")
	}

	o.printf("Retrieving pending payouts...\n")
	lists := make([]*agreement.Payouts, len(o.clients))
	for i, c := range o.clients {
		o.printf("  Requesting pending payouts from %s...\n", o.label(i))
		req, err := o.request(&agreement.ComputePendingPayoutsRequest{
			ProcessDeposits:    processDeposits,
			ProcessWithdrawals: processWithdrawals,
		})
		if err != nil {
			return "", err
		}
		msg, err := c.ComputePendingPayouts(ctx, req)
		if err != nil {
			return "", err
		}
		p := &agreement.Payouts{}
		if err := o.open(i, msg, p); err != nil {
			return "", err
		}
		o.printPayouts("    ", p)
		lists[i] = p
	}
	payouts := IntersectPayouts(lists)
	if !processDeposits {
		payouts.DepositTaxPayouts = []*agreement.DepositTaxPayout{}
	}
	if !processWithdrawals {
		payouts.WithdrawalPayouts = []*agreement.WithdrawalPayout{}
		payouts.WithdrawalTaxPayouts = []*agreement.WithdrawalPayout{}
	}
	o.printf("Pending payouts consensus =\n")
	o.printPayouts("  ", payouts)
	if len(payouts.DepositTaxPayouts) == 0 && len(payouts.WithdrawalPayouts) == 0 {
		o.printf("Nothing to pay out.\n")
		return "", nil
	}

	o.printf("Retrieving unspent...\n")
	unspentLists := make([][]*agreement.Unspent, len(o.clients))
	for i, c := range o.clients {
		o.printf("  Requesting unspent from %s...\n", o.label(i))
		req, err := o.request(&agreement.EmptyPayload{})
		if err != nil {
			return "", err
		}
		msg, err := c.ComputeUnspent(ctx, req)
		if err != nil {
			return "", err
		}
		resp := &agreement.UnspentResponse{}
		if err := o.open(i, msg, resp); err != nil {
			return "", err
		}
		for _, u := range resp.Unspent {
			o.printf("      %s:%d -> %s\n", u.TxID, u.Vout, satoshiString(u.Amount))
		}
		unspentLists[i] = resp.Unspent
	}
	unspent := IntersectUnspent(unspentLists)
	o.printf("Unspent consensus =\n")
	for _, u := range unspent {
		o.printf("    %s:%d -> %s\n", u.TxID, u.Vout, satoshiString(u.Amount))
	}

	o.printf("Running test...\n")
	for i := range o.clients {
		if _, err := o.approvePayouts(ctx, i, payouts, unspent, nil, true); err != nil {
			return "", err
		}
	}
	if test {
		return "", nil
	}

	o.printf("Executing...\n")
	var chain *string
	for i := range o.clients {
		next, err := o.approvePayouts(ctx, i, payouts, unspent, chain, false)
		if err != nil {
			return "", err
		}
		chain = &next
	}
	o.printf("  Sending raw transaction:\n%s\n", *chain)
	txid, err := o.dingo.SendRawTransaction(*chain)
	if err != nil {
		return "", common.NewUpstreamError(err, "failed to send approved payouts")
	}
	o.printf("  Success! Transaction hash: %s\n", txid)
	return txid, nil
}

func (o *Operator) approvePayouts(
	ctx context.Context,
	i int,
	payouts *agreement.Payouts,
	unspent []*agreement.Unspent,
	chain *string,
	test bool,
) (string, error) {
	o.printf("  Requesting approval from %s...\n", o.label(i))
	req, err := o.request(&agreement.ApprovePayoutsRequest{
		Payouts:       *payouts,
		Unspent:       unspent,
		ApprovalChain: chain,
	})
	if err != nil {
		return "", err
	}
	msg, err := o.clients[i].ApprovePayouts(ctx, req, test)
	if err != nil {
		return "", err
	}
	resp := &agreement.ApprovePayoutsResponse{}
	if err := o.open(i, msg, resp); err != nil {
		return "", err
	}
	o.printf("    -> Success!\n")
	return resp.ApprovalChain, nil
}
