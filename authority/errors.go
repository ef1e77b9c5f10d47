package authority

import (
	"github.com/dingocoin/wdingocoin-bridge/common"
)

type AuthorityError struct{}

func (e *AuthorityError) MissingField(field string) error {
	return common.NewValidationError("%s missing or invalid", field)
}

func (e *AuthorityError) TokenAccountNotFound(address string) error {
	return common.NewValidationError("token account not found for wallet: %s", address)
}

func (e *AuthorityError) IncorrectAuthorityCount(got, want int) error {
	return common.NewConsensusError("incorrect authority count: got %d, want %d", got, want)
}

func (e *AuthorityError) MintAddressDisagreement() error {
	return common.NewConsensusError("consensus failure on mint address")
}

func (e *AuthorityError) DepositAddressAlreadyUsed() error {
	return common.NewStateConflictError("at least one deposit address has been previously registered")
}

func (e *AuthorityError) MintAddressNotRegistered(mintAddress string) error {
	return common.NewValidationError("mint address not registered: %s", mintAddress)
}

func (e *AuthorityError) DepositAddressIncorrect(mintAddress string) error {
	return common.NewValidationError("deposit address details incorrect for %s", mintAddress)
}

func (e *AuthorityError) InsufficientMintBalance(headroom, requested string) error {
	return common.NewStateConflictError("insufficient mint balance: %s remaining, %s requested", headroom, requested)
}

func (e *AuthorityError) InvalidDingoAddress(address string) error {
	return common.NewValidationError("withdrawal address is not a valid dingo address: %s", address)
}

func (e *AuthorityError) BelowThreshold(amount string) error {
	return common.NewValidationError("amount does not meet threshold: %s", amount)
}

func (e *AuthorityError) WithdrawalAlreadySubmitted(burnSignature string) error {
	return common.NewStateConflictError("withdrawal already submitted: %s", burnSignature)
}

func (e *AuthorityError) BurnMismatch(field, burnSignature string) error {
	return common.NewValidationError("burn %s does not match transaction %s", field, burnSignature)
}

func (e *AuthorityError) ApprovalChainMismatch(err error) error {
	return &common.BridgeError{Kind: common.KindConsensus, Msg: "approval chain does not match payouts", Err: err}
}
