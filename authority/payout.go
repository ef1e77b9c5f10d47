package authority

import (
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
)

func (n *Node) ComputePendingPayouts(msg *envelope.SignedMessage) (*envelope.SignedMessage, error) {
	data, err := n.AuthenticateAny(msg)
	if err != nil {
		return nil, err
	}
	req := &agreement.ComputePendingPayoutsRequest{}
	if err := envelope.Decode(data, req); err != nil {
		return nil, err
	}

	received, rows, err := n.fundedDeposits()
	if err != nil {
		return nil, err
	}
	unapproved, err := n.storage.GetUnapprovedWithdrawals()
	if err != nil {
		return nil, err
	}
	payouts, err := ledger.ComputePendingPayouts(received, rows, unapproved, req.ProcessDeposits, req.ProcessWithdrawals)
	if err != nil {
		return nil, err
	}
	return n.signed(payouts)
}

func (n *Node) ComputeUnspent(msg *envelope.SignedMessage) (*envelope.SignedMessage, error) {
	if _, err := n.AuthenticateAny(msg); err != nil {
		return nil, err
	}
	unspent, err := n.computeUnspent()
	if err != nil {
		return nil, err
	}
	return n.signed(&agreement.UnspentResponse{Unspent: unspent})
}

// computeUnspent lists what this node considers spendable by the
// federation: change outputs and outputs of funded deposit addresses.
func (n *Node) computeUnspent() ([]*agreement.Unspent, error) {
	change, err := n.dingo.ListUnspent(n.cfg.ChangeConfirmations, []string{n.cfg.ChangeAddress})
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to list change outputs")
	}
	_, rows, err := n.fundedDeposits()
	if err != nil {
		return nil, err
	}
	addresses := make([]string, len(rows))
	for i, row := range rows {
		addresses[i] = row.DepositAddress
	}
	deposits, err := n.dingo.ListUnspent(n.cfg.DepositConfirmations, addresses)
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to list deposit outputs")
	}
	return append(change, deposits...), nil
}

func (n *Node) payoutWithdrawals(p *agreement.Payouts) (map[string]*agreement.Withdrawal, error) {
	withdrawals := map[string]*agreement.Withdrawal{}
	for _, wp := range p.WithdrawalPayouts {
		w, ok, err := n.storage.GetWithdrawal(wp.BurnSignature)
		if err != nil {
			return nil, err
		}
		if ok {
			withdrawals[wp.BurnSignature] = w
		}
	}
	return withdrawals, nil
}

// ApprovePayouts is one hop of the approval chain. The node recomputes
// the outputs from the agreed payouts and inputs, checks the relayed
// transaction pays exactly those, and adds its signature. Only a real
// round advances the counters.
func (n *Node) ApprovePayouts(msg *envelope.SignedMessage, test bool) (*envelope.SignedMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := n.authenticateCoordinator(msg)
	if err != nil {
		return nil, err
	}
	req := &agreement.ApprovePayoutsRequest{}
	if err := envelope.Decode(data, req); err != nil {
		return nil, err
	}
	payouts := &req.Payouts

	observed, err := n.computeUnspent()
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidateUnspent(req.Unspent, observed); err != nil {
		return nil, err
	}

	received, rows, err := n.fundedDeposits()
	if err != nil {
		return nil, err
	}
	withdrawals, err := n.payoutWithdrawals(payouts)
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidatePayouts(n.params, payouts, received, rows, withdrawals); err != nil {
		return nil, err
	}

	vouts, err := ledger.ComputeVouts(n.params, payouts, req.Unspent, n.cfg.TaxPayoutAddresses, n.cfg.ChangeAddress)
	if err != nil {
		return nil, err
	}

	var chain string
	if req.ApprovalChain == nil {
		chain, err = n.dingo.CreateRawTransaction(req.Unspent, vouts)
		if err != nil {
			return nil, err
		}
	} else {
		chain = *req.ApprovalChain
	}
	if err := n.dingo.VerifyRawTransaction(req.Unspent, vouts, chain); err != nil {
		return nil, authErr.ApprovalChainMismatch(err)
	}

	next, err := n.dingo.SignRawTransaction(chain)
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to sign approval chain")
	}

	fields := logger.Fields{
		"inputs":      len(req.Unspent),
		"outputs":     len(vouts),
		"deposits":    len(payouts.DepositTaxPayouts),
		"withdrawals": len(payouts.WithdrawalPayouts),
		"test":        test,
	}
	if test {
		logger.WithFields(fields).Debug("payout approval test passed")
		return n.signed(&agreement.ApprovePayoutsResponse{ApprovalChain: chain})
	}

	deposits, ws, err := ledger.ApplyPayouts(payouts, received, rows, withdrawals)
	if err != nil {
		return nil, err
	}
	resp, err := n.signed(&agreement.ApprovePayoutsResponse{ApprovalChain: next})
	if err != nil {
		return nil, err
	}
	if err := n.storage.ApplyPayouts(deposits, ws); err != nil {
		return nil, err
	}
	logger.WithFields(fields).Info("approved payouts")
	return resp, nil
}
