package authority

import (
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/aptosman"
	"github.com/dingocoin/wdingocoin-bridge/dingoman"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/netparams"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
	"github.com/dingocoin/wdingocoin-bridge/multisig"
	"github.com/dingocoin/wdingocoin-bridge/state"
)

const (
	testSyncDelay            = 2
	testDepositConfirmations = 3
	testChangeConfirmations  = 1
)

// federation is n authorities over one simulated chain and ledger.
type federation struct {
	t *testing.T

	chain   *dingoman.SimChain
	aptos   *aptosman.SimAptos
	cfg     *Config
	wallets []*multisig.LocalSchnorrWallet
	dingos  []*dingoman.SimDingo
	ledgers []*aptosman.SimLedger
	dbs     []*state.StateDB
	nodes   []*Node
}

func testLedgerParams() *ledger.Params {
	return &ledger.Params{
		AmountThreshold:     big.NewInt(9900),
		DustThreshold:       big.NewInt(100),
		NetworkFeePerPayout: big.NewInt(10),
	}
}

func randDingoAddress(t *testing.T) string {
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(sk.PubKey().SerializeCompressed()), &netparams.RegTestParams)
	require.NoError(t, err)
	return addr.EncodeAddress()
}

func newFederation(t *testing.T, n, threshold int) *federation {
	f := &federation{
		t:     t,
		chain: dingoman.NewSimChain(100),
		aptos: aptosman.NewSimAptos(threshold),
	}

	nodes := make([]*agreement.AuthorityNode, n)
	for i := 0; i < n; i++ {
		w, err := multisig.NewRandomLocalSchnorrWallet()
		require.NoError(t, err)
		f.wallets = append(f.wallets, w)
		nodes[i] = &agreement.AuthorityNode{Hostname: "localhost", Port: 8443 + i, WalletAddress: w.Address()}
	}
	f.cfg = &Config{
		AuthorityNodes:       nodes,
		AuthorityThreshold:   threshold,
		PayoutCoordinator:    0,
		Network:              "regtest",
		SyncDelayThreshold:   testSyncDelay,
		DepositConfirmations: testDepositConfirmations,
		ChangeConfirmations:  testChangeConfirmations,
		ChangeAddress:        randDingoAddress(t),
		TaxPayoutAddresses:   []string{randDingoAddress(t), randDingoAddress(t)},
		Aptos:                &agreement.AptosSettings{Network: "localnet"},
		Params:               testLedgerParams(),
	}

	for i := 0; i < n; i++ {
		d := dingoman.NewSimDingo(f.chain)
		d.WatchAddress(f.cfg.ChangeAddress)
		l := f.aptos.NewSimLedger()
		db, err := state.NewMemoryStateDB()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		node, err := NewNode(f.cfg, f.wallets[i], db, d, l)
		require.NoError(t, err)

		f.dingos = append(f.dingos, d)
		f.ledgers = append(f.ledgers, l)
		f.dbs = append(f.dbs, db)
		f.nodes = append(f.nodes, node)
	}
	return f
}

// signAs builds a request envelope authored by authority i.
func (f *federation) signAs(i int, payload any) *envelope.SignedMessage {
	msg, err := envelope.New(f.wallets[i], f.dingos[i], testSyncDelay).CreateSignedAndTimedMessage(payload)
	require.NoError(f.t, err)
	return msg
}

func decode[T any](t *testing.T, msg *envelope.SignedMessage) *T {
	require.NotNil(t, msg)
	v := new(T)
	require.NoError(t, envelope.Decode(msg.Data, v))
	return v
}

func (f *federation) generateResponses(mintAddress string) []*envelope.SignedMessage {
	responses := make([]*envelope.SignedMessage, len(f.nodes))
	for i, node := range f.nodes {
		msg, err := node.GenerateDepositAddress(&agreement.GenerateDepositAddressRequest{MintAddress: mintAddress})
		require.NoError(f.t, err)
		responses[i] = msg
	}
	return responses
}

// registerDeposit runs both registration rounds and returns the deposit
// address every node agreed on.
func (f *federation) registerDeposit(mintAddress string) string {
	f.aptos.RegisterTokenAccount(mintAddress)
	req := &RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: f.generateResponses(mintAddress)}

	depositAddress := ""
	for _, node := range f.nodes {
		msg, err := node.RegisterMintDepositAddress(req)
		require.NoError(f.t, err)
		resp := decode[agreement.DepositAddressResponse](f.t, msg)
		if depositAddress == "" {
			depositAddress = resp.DepositAddress
		}
		require.Equal(f.t, depositAddress, resp.DepositAddress)
	}
	return depositAddress
}

// deposit pays amount into depositAddress and confirms it.
func (f *federation) deposit(depositAddress string, amount int64) {
	f.chain.Receive(depositAddress, big.NewInt(amount))
	f.chain.Mine(testDepositConfirmations + testSyncDelay)
}

// mint runs the test round on every node, then the real round on the
// first threshold nodes, and finalizes on the destination ledger.
func (f *federation) mint(pending *agreement.PendingMint) {
	req := &agreement.ApproveMintRequest{Mint: pending}
	for _, node := range f.nodes {
		msg, err := node.ApproveMint(f.signAs(0, req), true)
		require.NoError(f.t, err)
		require.Nil(f.t, decode[agreement.ApproveMintResponse](f.t, msg).Signature)
	}

	amount := new(big.Int)
	amount.SetString(pending.MintAmount, 10)
	signatures := []string{}
	for _, node := range f.nodes[:f.cfg.AuthorityThreshold] {
		msg, err := node.ApproveMint(f.signAs(0, req), false)
		require.NoError(f.t, err)
		sig := decode[agreement.ApproveMintResponse](f.t, msg).Signature
		require.NotNil(f.t, sig)
		signatures = append(signatures, *sig)
	}
	_, err := f.ledgers[0].FinalizeMintAndSend(pending.MintAddress, amount, signatures)
	require.NoError(f.t, err)
}

func (f *federation) pendingMint(i int) []*agreement.PendingMint {
	msg, err := f.nodes[i].ComputePendingMint()
	require.NoError(f.t, err)
	return decode[agreement.PendingMintResponse](f.t, msg).PendingMint
}

var errAnchorDown = errors.New("anchor down")

// flakyAnchor fails the block count lookup on exactly one call.
type flakyAnchor struct {
	envelope.ChainAnchor
	calls  int
	failOn int
}

func (a *flakyAnchor) GetBlockCount() (int64, error) {
	a.calls++
	if a.calls == a.failOn {
		return 0, errAnchorDown
	}
	return a.ChainAnchor.GetBlockCount()
}

// failSigningOnce makes node i fail when signing its next response,
// after the request itself validated.
func (f *federation) failSigningOnce(i int) {
	anchor := &flakyAnchor{ChainAnchor: f.dingos[i], failOn: 2}
	f.nodes[i].env = envelope.New(f.wallets[i], anchor, testSyncDelay)
}
