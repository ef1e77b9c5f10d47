package state

import (
	"errors"
	"fmt"

	"github.com/dingocoin/wdingocoin-bridge/common"
)

var (
	ErrEmptyAddressList = errors.New("empty address list")
	ErrNilRow           = errors.New("nil row")
)

type StateDBError struct{}

func (e *StateDBError) DepositAddressAlreadyUsed() error {
	return common.NewStateConflictError("at least one deposit address has been previously registered")
}

func (e *StateDBError) MintAddressAlreadyRegistered(mintAddress string) error {
	return common.NewStateConflictError("mint address already registered: %s", mintAddress)
}

func (e *StateDBError) WithdrawalAlreadySubmitted(burnSignature string) error {
	return common.NewStateConflictError("withdrawal already submitted: %s", burnSignature)
}

func (e *StateDBError) RowNotUpdated(table, key string) error {
	return fmt.Errorf("no row updated in %s for key=%s", table, key)
}

func (e *StateDBError) CorruptedAmount(table, key, column, value string) error {
	return fmt.Errorf("corrupted amount in %s.%s for key=%s: %q", table, column, key, value)
}
