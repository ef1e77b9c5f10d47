package authority

import (
	"math/big"

	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

// QueryBurnHistory annotates each entry with the status of its
// withdrawal: nil when unknown, then submitted, then approved.
func (n *Node) QueryBurnHistory(req *agreement.BurnHistory) (*envelope.SignedMessage, error) {
	if req == nil || req.BurnHistory == nil {
		return nil, authErr.MissingField("burnHistory")
	}
	out := make([]*agreement.BurnHistoryEntry, len(req.BurnHistory))
	for i, entry := range req.BurnHistory {
		if entry == nil {
			return nil, authErr.MissingField("burnSignature")
		}
		e := *entry
		e.Status = nil
		w, ok, err := n.storage.GetWithdrawal(e.BurnSignature)
		if err != nil {
			return nil, err
		}
		if ok {
			status := agreement.BurnStatusApproved
			if w.ApprovedTax.Sign() == 0 {
				status = agreement.BurnStatusSubmitted
			}
			e.Status = &status
		}
		out[i] = &e
	}
	return n.signed(&agreement.BurnHistory{BurnHistory: out})
}

// SubmitWithdrawal admits a burn once it is confirmed on the destination
// ledger with exactly the claimed amount and destination.
func (n *Node) SubmitWithdrawal(req *agreement.SubmitWithdrawalRequest) (*envelope.SignedMessage, error) {
	if req == nil || req.Burn == nil {
		return nil, authErr.MissingField("burn")
	}
	burn := req.Burn
	if burn.BurnSignature == "" {
		return nil, authErr.MissingField("burnSignature")
	}
	if !n.dingo.ValidateAddress(burn.BurnDestination) {
		return nil, authErr.InvalidDingoAddress(burn.BurnDestination)
	}
	amount, err := common.ParseAmount(burn.BurnAmount)
	if err != nil {
		return nil, authErr.MissingField("burnAmount")
	}
	if !n.params.MeetsThreshold(amount) {
		return nil, authErr.BelowThreshold(amount.String())
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok, err := n.storage.GetWithdrawal(burn.BurnSignature)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, authErr.WithdrawalAlreadySubmitted(burn.BurnSignature)
	}

	chainBurn, err := n.dest.GetBurn(burn.BurnSignature)
	if err != nil {
		return nil, err
	}
	chainAmount, err := common.ParseAmount(chainBurn.Amount)
	if err != nil || chainAmount.Cmp(amount) != 0 {
		return nil, authErr.BurnMismatch("amount", burn.BurnSignature)
	}
	if chainBurn.Destination != burn.BurnDestination {
		return nil, authErr.BurnMismatch("destination", burn.BurnSignature)
	}

	if err := n.storage.RegisterWithdrawal(&agreement.Withdrawal{
		BurnSignature:   burn.BurnSignature,
		BurnAmount:      amount,
		BurnDestination: burn.BurnDestination,
		ApprovedAmount:  big.NewInt(0),
		ApprovedTax:     big.NewInt(0),
	}); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"burnSignature": burn.BurnSignature,
		"amount":        amount.String(),
		"destination":   burn.BurnDestination,
	}).Info("withdrawal submitted")

	return n.signed(&agreement.EmptyPayload{})
}
