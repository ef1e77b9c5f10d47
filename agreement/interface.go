package agreement

import (
	"math/big"
)

// Storage is the local, exclusively owned ledger state of one authority.
// Updates are exact-match on the key and replace the full row.
type Storage interface {
	HasUsedDepositAddresses(addresses []string) (bool, error)
	RegisterUsedDepositAddresses(addresses []string) error

	// RegisterMintDepositAddress consumes the individual addresses and
	// inserts the row atomically. It fails without side effects if any
	// address was consumed before or the mint address is taken.
	RegisterMintDepositAddress(row *MintDepositAddress, usedAddresses []string) error
	GetMintDepositAddress(mintAddress string) (*MintDepositAddress, bool, error)
	// GetMintDepositAddresses returns rows whose deposit address is in
	// depositAddresses, or every row when depositAddresses is nil.
	GetMintDepositAddresses(depositAddresses []string) ([]*MintDepositAddress, error)
	UpdateMintDepositAddresses(rows []*MintDepositAddress) error

	RegisterWithdrawal(w *Withdrawal) error
	GetWithdrawal(burnSignature string) (*Withdrawal, bool, error)
	GetWithdrawals() ([]*Withdrawal, error)
	GetUnapprovedWithdrawals() ([]*Withdrawal, error)
	UpdateWithdrawals(ws []*Withdrawal) error

	// ApplyPayouts commits deposit and withdrawal counter updates together.
	ApplyPayouts(deposits []*MintDepositAddress, withdrawals []*Withdrawal) error

	// Dump renders the whole database as SQL text.
	Dump() (string, error)
}

// SourceChain is this authority's view of the UTXO coin through its own
// full node and wallet. Amounts are satoshi.
type SourceChain interface {
	ValidateAddress(address string) bool
	// GetNewPubKey returns the hex public key of a fresh wallet address.
	GetNewPubKey() (string, error)
	CreateMultisig(threshold int, pubKeys []string) (*Multisig, error)
	ImportAddress(redeemScript string) error

	// ListReceivedByAddress maps each address with a nonzero total
	// received (at the given depth) to that total.
	ListReceivedByAddress(confirmations int64) (map[string]*big.Int, error)
	ListUnspent(confirmations int64, addresses []string) ([]*Unspent, error)

	CreateRawTransaction(unspent []*Unspent, vouts map[string]*big.Int) (string, error)
	// VerifyRawTransaction checks that the transaction spends exactly
	// unspent and pays exactly vouts, order-independently.
	VerifyRawTransaction(unspent []*Unspent, vouts map[string]*big.Int, rawTx string) error
	SignRawTransaction(rawTx string) (string, error)
	SendRawTransaction(rawTx string) (string, error)

	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (string, error)
	GetClientVersion() (string, error)
}

// DestLedger drives the wrapped token on the smart-contract ledger.
// Amounts are satoshi.
type DestLedger interface {
	IsAddress(address string) bool
	HasTokenAccount(address string) (bool, error)
	// SignMint produces this authority's partial signature over a mint.
	SignMint(receiver string, amount *big.Int) (string, error)
	// FinalizeMintAndSend submits the mint with the collected signatures
	// and returns the transaction hash.
	FinalizeMintAndSend(receiver string, amount *big.Int, signatures []string) (string, error)
	GetBurn(burnSignature string) (*Burn, error)
}
