package authority

import (
	"math/big"

	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
)

type RegisterMintDepositAddressRequest struct {
	GenerateDepositAddressResponses []*envelope.SignedMessage `json:"generateDepositAddressResponses"`
}

func (n *Node) checkMintAddress(mintAddress string) error {
	if !n.dest.IsAddress(mintAddress) {
		return authErr.MissingField("mintAddress")
	}
	return nil
}

// GenerateDepositAddress contributes a fresh wallet key of this node to
// the deposit address of mintAddress.
func (n *Node) GenerateDepositAddress(req *agreement.GenerateDepositAddressRequest) (*envelope.SignedMessage, error) {
	if req == nil {
		return nil, authErr.MissingField("mintAddress")
	}
	if err := n.checkMintAddress(req.MintAddress); err != nil {
		return nil, err
	}
	ok, err := n.dest.HasTokenAccount(req.MintAddress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, authErr.TokenAccountNotFound(req.MintAddress)
	}

	pubKey, err := n.dingo.GetNewPubKey()
	if err != nil {
		return nil, err
	}
	return n.signed(&agreement.GenerateDepositAddressResponse{
		MintAddress:    req.MintAddress,
		DepositAddress: pubKey,
	})
}

// RegisterMintDepositAddress combines the keys of all N authorities, in
// authority order, into the M-of-N deposit address of one mint address.
func (n *Node) RegisterMintDepositAddress(req *RegisterMintDepositAddressRequest) (*envelope.SignedMessage, error) {
	if req == nil {
		return nil, authErr.MissingField("generateDepositAddressResponses")
	}
	if len(req.GenerateDepositAddressResponses) != len(n.cfg.AuthorityNodes) {
		return nil, authErr.IncorrectAuthorityCount(len(req.GenerateDepositAddressResponses), len(n.cfg.AuthorityNodes))
	}

	responses := make([]*agreement.GenerateDepositAddressResponse, len(req.GenerateDepositAddressResponses))
	for i, msg := range req.GenerateDepositAddressResponses {
		data, err := n.env.ValidateSignedMessage(msg, n.cfg.AuthorityNodes[i].WalletAddress, true)
		if err != nil {
			return nil, err
		}
		responses[i] = &agreement.GenerateDepositAddressResponse{}
		if err := envelope.Decode(data, responses[i]); err != nil {
			return nil, err
		}
	}
	mintAddress := responses[0].MintAddress
	pubKeys := make([]string, len(responses))
	for i, r := range responses {
		if r.MintAddress != mintAddress {
			return nil, authErr.MintAddressDisagreement()
		}
		if r.DepositAddress == "" {
			return nil, authErr.MissingField("depositAddress")
		}
		pubKeys[i] = r.DepositAddress
	}
	if err := n.checkMintAddress(mintAddress); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	used, err := n.storage.HasUsedDepositAddresses(pubKeys)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, authErr.DepositAddressAlreadyUsed()
	}

	multisig, err := n.dingo.CreateMultisig(n.cfg.AuthorityThreshold, pubKeys)
	if err != nil {
		return nil, err
	}
	if err := n.dingo.ImportAddress(multisig.RedeemScript); err != nil {
		logger.WithError(err).WithField("address", multisig.Address).Warn("failed to import deposit address")
	}

	row := &agreement.MintDepositAddress{
		MintAddress:    mintAddress,
		DepositAddress: multisig.Address,
		RedeemScript:   multisig.RedeemScript,
		ApprovedAmount: big.NewInt(0),
		ApprovedTax:    big.NewInt(0),
	}
	if err := n.storage.RegisterMintDepositAddress(row, pubKeys); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"mintAddress":    mintAddress,
		"depositAddress": multisig.Address,
	}).Info("registered mint deposit address")

	return n.signed(&agreement.DepositAddressResponse{DepositAddress: multisig.Address})
}

// QueryMintBalance reports the after-tax amounts deposited for a mint
// address.
func (n *Node) QueryMintBalance(req *agreement.QueryMintBalanceRequest) (*envelope.SignedMessage, error) {
	if req == nil {
		return nil, authErr.MissingField("mintAddress")
	}
	if err := n.checkMintAddress(req.MintAddress); err != nil {
		return nil, err
	}
	row, ok, err := n.storage.GetMintDepositAddress(req.MintAddress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, authErr.MintAddressNotRegistered(req.MintAddress)
	}

	confirmed, err := n.received(n.cfg.DepositConfirmations)
	if err != nil {
		return nil, err
	}
	all, err := n.received(0)
	if err != nil {
		return nil, err
	}
	deposited := receivedAt(confirmed, row.DepositAddress)
	unconfirmed := new(big.Int).Sub(receivedAt(all, row.DepositAddress), deposited)

	return n.signed(&agreement.QueryMintBalanceResponse{
		MintAddress:       row.MintAddress,
		DepositAddress:    row.DepositAddress,
		DepositedAmount:   ledger.AmountAfterTax(deposited).String(),
		UnconfirmedAmount: ledger.AmountAfterTax(unconfirmed).String(),
		ApprovedAmount:    row.ApprovedAmount.String(),
	})
}
