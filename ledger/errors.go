package ledger

import (
	"github.com/dingocoin/wdingocoin-bridge/common"
)

type LedgerError struct{}

func (e *LedgerError) InvalidAmount(what, value string) error {
	return common.NewValidationError("invalid %s amount: %q", what, value)
}

func (e *LedgerError) ApprovedTaxExceedsApprovable(depositAddress string) error {
	return common.NewStateConflictError("deposit approved tax exceeds approvable: %s", depositAddress)
}

func (e *LedgerError) InsufficientTax(networkFee string) error {
	return common.NewStateConflictError("insufficient tax to cover network fees of %s", networkFee)
}

func (e *LedgerError) ZeroBalance(depositAddress string) error {
	return common.NewValidationError("dingo address has zero balance: %s", depositAddress)
}

func (e *LedgerError) NotRegistered(depositAddress string) error {
	return common.NewValidationError("dingo address not registered: %s", depositAddress)
}

func (e *LedgerError) TaxExceedsApprovable(depositAddress string) error {
	return common.NewStateConflictError("requested tax amount more than remaining approvable tax: %s", depositAddress)
}

func (e *LedgerError) DuplicatePayout(key string) error {
	return common.NewConsensusError("duplicate payout for %s", key)
}

func (e *LedgerError) WithdrawalCountMismatch() error {
	return common.NewConsensusError("withdrawal and withdrawal tax payouts mismatch in count")
}

func (e *LedgerError) WithdrawalSignatureMismatch(i int) error {
	return common.NewConsensusError("mismatch in withdrawal and withdrawal tax payout signatures at %d", i)
}

func (e *LedgerError) WithdrawalNotRegistered(burnSignature string) error {
	return common.NewValidationError("withdrawal not registered: %s", burnSignature)
}

func (e *LedgerError) WithdrawalAlreadyApproved(burnSignature string) error {
	return common.NewStateConflictError("withdrawal already approved: %s", burnSignature)
}

func (e *LedgerError) WithdrawalFieldIncorrect(field, burnSignature string) error {
	return common.NewConsensusError("withdrawal %s incorrect: %s", field, burnSignature)
}

func (e *LedgerError) NonExistentUnspent(key string) error {
	return common.NewConsensusError("non-existent UTXO: %s", key)
}

func (e *LedgerError) NoTaxPayoutAddresses() error {
	return common.NewValidationError("no tax payout addresses configured")
}

func (e *LedgerError) InsufficientFunds(inputs, required string) error {
	return common.NewStateConflictError("insufficient funds: inputs %s, required %s", inputs, required)
}
