// Global agreement on types.
// Everything that crosses a node boundary carries amounts as base-unit
// decimal strings; persisted rows carry *big.Int.

package agreement

import (
	"fmt"
	"math/big"
)

const (
	BurnStatusSubmitted = "SUBMITTED"
	BurnStatusApproved  = "APPROVED"
)

// AuthorityNode is one federation member. Its index in the configured
// list identifies its role (e.g. payout coordinator).
type AuthorityNode struct {
	Hostname      string `json:"hostname" mapstructure:"hostname"`
	Port          int    `json:"port" mapstructure:"port"`
	WalletAddress string `json:"walletAddress" mapstructure:"walletAddress"`
}

func (a *AuthorityNode) String() string {
	return fmt.Sprintf("%s:%d", a.Hostname, a.Port)
}

// MintDepositAddress is created once per mint address and never deleted.
// ApprovedAmount and ApprovedTax only grow.
type MintDepositAddress struct {
	MintAddress    string
	DepositAddress string
	RedeemScript   string
	ApprovedAmount *big.Int
	ApprovedTax    *big.Int
}

func (m *MintDepositAddress) String() string {
	return fmt.Sprintf("%+v", *m)
}

// Withdrawal is admitted once per burn signature with zero approved
// counters; only payouts move the counters.
type Withdrawal struct {
	BurnSignature   string
	BurnAmount      *big.Int
	BurnDestination string
	ApprovedAmount  *big.Int
	ApprovedTax     *big.Int
}

func (w *Withdrawal) String() string {
	return fmt.Sprintf("%+v", *w)
}

// IsUnapproved reports whether no part of the withdrawal has been paid.
func (w *Withdrawal) IsUnapproved() bool {
	return w.ApprovedAmount.Sign() == 0 && w.ApprovedTax.Sign() == 0
}

// Multisig is an M-of-N pay-to-script-hash address with its redeem script.
type Multisig struct {
	Address      string `json:"address"`
	RedeemScript string `json:"redeemScript"`
}

// Unspent is a spendable output as observed on the source chain.
type Unspent struct {
	TxID         string `json:"txid"`
	Vout         uint32 `json:"vout"`
	Address      string `json:"address"`
	ScriptPubKey string `json:"scriptPubKey"`
	Amount       string `json:"amount"`
}

// Key identifies an output together with everything a node must agree on
// before spending it.
func (u *Unspent) Key() string {
	return fmt.Sprintf("%s|%d|%s|%s|%s", u.TxID, u.Vout, u.Address, u.ScriptPubKey, u.Amount)
}

// Burn is the canonical view of a destination-ledger burn.
type Burn struct {
	Signature   string `json:"signature"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

// Request and response payloads.

type PingResponse struct {
	Timestamp int64 `json:"timestamp"`
}

type GenerateDepositAddressRequest struct {
	MintAddress string `json:"mintAddress"`
}

type GenerateDepositAddressResponse struct {
	MintAddress    string `json:"mintAddress"`
	DepositAddress string `json:"depositAddress"`
}

type DepositAddressResponse struct {
	DepositAddress string `json:"depositAddress"`
}

type QueryMintBalanceRequest struct {
	MintAddress string `json:"mintAddress"`
}

type QueryMintBalanceResponse struct {
	MintAddress       string `json:"mintAddress"`
	DepositAddress    string `json:"depositAddress"`
	DepositedAmount   string `json:"depositedAmount"`
	UnconfirmedAmount string `json:"unconfirmedAmount"`
	ApprovedAmount    string `json:"approvedAmount"`
}

type PendingMint struct {
	MintAddress    string `json:"mintAddress"`
	DepositAddress string `json:"depositAddress"`
	ApprovedAmount string `json:"approvedAmount,omitempty"`
	MintAmount     string `json:"mintAmount"`
}

type PendingMintResponse struct {
	PendingMint []*PendingMint `json:"pendingMint"`
}

type ApproveMintRequest struct {
	Mint *PendingMint `json:"mint"`
}

// ApproveMintResponse carries the partial mint signature. It is nil for
// test rounds.
type ApproveMintResponse struct {
	Signature *string `json:"signature"`
}

type BurnHistoryEntry struct {
	BurnSignature   string  `json:"burnSignature"`
	BurnAmount      string  `json:"burnAmount,omitempty"`
	BurnDestination string  `json:"burnDestination,omitempty"`
	Status          *string `json:"status"`
}

type BurnHistory struct {
	BurnHistory []*BurnHistoryEntry `json:"burnHistory"`
}

type WithdrawalClaim struct {
	BurnSignature   string `json:"burnSignature"`
	BurnAmount      string `json:"burnAmount"`
	BurnDestination string `json:"burnDestination"`
}

type SubmitWithdrawalRequest struct {
	Burn *WithdrawalClaim `json:"burn"`
}

type EmptyPayload struct{}

type ComputePendingPayoutsRequest struct {
	ProcessDeposits    bool `json:"processDeposits"`
	ProcessWithdrawals bool `json:"processWithdrawals"`
}

type DepositTaxPayout struct {
	DepositAddress string `json:"depositAddress"`
	Amount         string `json:"amount"`
}

type WithdrawalPayout struct {
	BurnSignature   string `json:"burnSignature"`
	BurnDestination string `json:"burnDestination"`
	Amount          string `json:"amount"`
}

// Payouts is one round's definitive set of value transfers.
type Payouts struct {
	DepositTaxPayouts    []*DepositTaxPayout `json:"depositTaxPayouts"`
	WithdrawalPayouts    []*WithdrawalPayout `json:"withdrawalPayouts"`
	WithdrawalTaxPayouts []*WithdrawalPayout `json:"withdrawalTaxPayouts"`
}

func NewEmptyPayouts() *Payouts {
	return &Payouts{
		DepositTaxPayouts:    []*DepositTaxPayout{},
		WithdrawalPayouts:    []*WithdrawalPayout{},
		WithdrawalTaxPayouts: []*WithdrawalPayout{},
	}
}

type UnspentResponse struct {
	Unspent []*Unspent `json:"unspent"`
}

// ApprovePayoutsRequest is relayed from node to node. ApprovalChain is
// nil for the first hop.
type ApprovePayoutsRequest struct {
	Payouts
	Unspent       []*Unspent `json:"unspent"`
	ApprovalChain *string    `json:"approvalChain"`
}

type ApprovePayoutsResponse struct {
	ApprovalChain string `json:"approvalChain"`
}

type TerminateRequest struct {
	Message string `json:"message"`
}

type DumpDatabaseResponse struct {
	SQL string `json:"sql"`
}

type LogResponse struct {
	Log string `json:"log"`
}
