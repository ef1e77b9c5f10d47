package authority

import (
	"math/big"

	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
)

func (n *Node) ComputePendingMint() (*envelope.SignedMessage, error) {
	received, rows, err := n.fundedDeposits()
	if err != nil {
		return nil, err
	}
	return n.signed(&agreement.PendingMintResponse{
		PendingMint: ledger.ComputePendingMint(n.params, received, rows),
	})
}

// ApproveMint partial-signs a coordinator-requested mint if the deposit
// still has the headroom for it. Only a real round advances the approved
// amount and hands out the signature.
func (n *Node) ApproveMint(msg *envelope.SignedMessage, test bool) (*envelope.SignedMessage, error) {
	data, err := n.authenticateCoordinator(msg)
	if err != nil {
		return nil, err
	}
	req := &agreement.ApproveMintRequest{}
	if err := envelope.Decode(data, req); err != nil {
		return nil, err
	}
	mint := req.Mint
	if mint == nil {
		return nil, authErr.MissingField("mint")
	}
	amount, err := common.ParseAmount(mint.MintAmount)
	if err != nil || amount.Sign() == 0 {
		return nil, authErr.MissingField("mintAmount")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	row, ok, err := n.storage.GetMintDepositAddress(mint.MintAddress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, authErr.MintAddressNotRegistered(mint.MintAddress)
	}
	if row.DepositAddress != mint.DepositAddress {
		return nil, authErr.DepositAddressIncorrect(mint.MintAddress)
	}

	received, err := n.received(n.cfg.DepositConfirmations)
	if err != nil {
		return nil, err
	}
	headroom := ledger.MintHeadroom(receivedAt(received, row.DepositAddress), row)
	if headroom.Cmp(amount) < 0 {
		return nil, authErr.InsufficientMintBalance(headroom.String(), amount.String())
	}

	signature, err := n.dest.SignMint(mint.MintAddress, amount)
	if err != nil {
		return nil, err
	}

	fields := logger.Fields{
		"mintAddress": mint.MintAddress,
		"amount":      amount.String(),
		"test":        test,
	}
	if test {
		logger.WithFields(fields).Debug("mint approval test passed")
		return n.signed(&agreement.ApproveMintResponse{Signature: nil})
	}

	// storage is only written once the response exists
	resp, err := n.signed(&agreement.ApproveMintResponse{Signature: &signature})
	if err != nil {
		return nil, err
	}
	row.ApprovedAmount = new(big.Int).Add(row.ApprovedAmount, amount)
	if err := n.storage.UpdateMintDepositAddresses([]*agreement.MintDepositAddress{row}); err != nil {
		return nil, err
	}
	logger.WithFields(fields).Info("approved mint")
	return resp, nil
}
