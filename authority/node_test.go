package authority

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/aptosman"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/assembler"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

func TestConfigValidate(t *testing.T) {
	f := newFederation(t, 3, 2)
	assert.NoError(t, f.cfg.Validate())

	bad := *f.cfg
	bad.AuthorityThreshold = 4
	assert.Error(t, bad.Validate())
	bad = *f.cfg
	bad.PayoutCoordinator = 3
	assert.Error(t, bad.Validate())
	bad = *f.cfg
	bad.TaxPayoutAddresses = nil
	assert.Error(t, bad.Validate())
	bad = *f.cfg
	bad.AuthorityNodes = []*agreement.AuthorityNode{{WalletAddress: "nope"}}
	bad.AuthorityThreshold = 1
	assert.Error(t, bad.Validate())

	bad = *f.cfg
	bad.ChangeAddress = "not-a-dingo-address"
	_, err := NewNode(&bad, f.wallets[0], f.dbs[0], f.dingos[0], f.ledgers[0])
	assert.True(t, common.IsKind(err, common.KindValidation))
}

func TestPing(t *testing.T) {
	f := newFederation(t, 2, 2)
	msg, err := f.nodes[1].Ping()
	require.NoError(t, err)

	// anyone can check who answered
	_, err = f.nodes[0].env.ValidateSignedMessage(msg, f.wallets[1].Address(), true)
	assert.NoError(t, err)
	assert.NotZero(t, decode[agreement.PingResponse](t, msg).Timestamp)
}

func TestEndToEndMint(t *testing.T) {
	f := newFederation(t, 3, 2)
	mintAddress := aptosman.RandAddress()
	depositAddress := f.registerDeposit(mintAddress)
	assert.True(t, f.dingos[0].ValidateAddress(depositAddress))

	f.deposit(depositAddress, 10000)

	for i := range f.nodes {
		pending := f.pendingMint(i)
		require.Len(t, pending, 1)
		assert.Equal(t, &agreement.PendingMint{
			MintAddress:    mintAddress,
			DepositAddress: depositAddress,
			ApprovedAmount: "0",
			MintAmount:     "9900",
		}, pending[0])
	}

	f.mint(f.pendingMint(0)[0])
	assert.Equal(t, "9900", f.aptos.Balance(mintAddress).String())

	for i := range f.nodes[:f.cfg.AuthorityThreshold] {
		assert.Len(t, f.pendingMint(i), 0)
	}
	// the third node only took part in the test round
	assert.Len(t, f.pendingMint(2), 1)

	msg, err := f.nodes[2].QueryMintBalance(&agreement.QueryMintBalanceRequest{MintAddress: mintAddress})
	require.NoError(t, err)
	assert.Equal(t, &agreement.QueryMintBalanceResponse{
		MintAddress:       mintAddress,
		DepositAddress:    depositAddress,
		DepositedAmount:   "9900",
		UnconfirmedAmount: "0",
		// the third node only took part in the test round
		ApprovedAmount: "0",
	}, decode[agreement.QueryMintBalanceResponse](t, msg))

	// unconfirmed funds show up separately
	f.chain.Receive(depositAddress, big.NewInt(500))
	msg, err = f.nodes[0].QueryMintBalance(&agreement.QueryMintBalanceRequest{MintAddress: mintAddress})
	require.NoError(t, err)
	resp := decode[agreement.QueryMintBalanceResponse](t, msg)
	assert.Equal(t, "495", resp.UnconfirmedAmount)
	assert.Equal(t, "9900", resp.ApprovedAmount)
}

func TestQueryMintBalanceUnknown(t *testing.T) {
	f := newFederation(t, 2, 2)
	_, err := f.nodes[0].QueryMintBalance(&agreement.QueryMintBalanceRequest{MintAddress: aptosman.RandAddress()})
	assert.True(t, common.IsKind(err, common.KindValidation))
	_, err = f.nodes[0].QueryMintBalance(&agreement.QueryMintBalanceRequest{MintAddress: "xyz"})
	assert.True(t, common.IsKind(err, common.KindValidation))
}

func TestGenerateDepositAddress(t *testing.T) {
	f := newFederation(t, 2, 2)

	_, err := f.nodes[0].GenerateDepositAddress(&agreement.GenerateDepositAddressRequest{MintAddress: "bad"})
	assert.True(t, common.IsKind(err, common.KindValidation))

	// no token account yet
	_, err = f.nodes[0].GenerateDepositAddress(&agreement.GenerateDepositAddressRequest{MintAddress: aptosman.RandAddress()})
	assert.True(t, common.IsKind(err, common.KindValidation))

	mintAddress := aptosman.RandAddress()
	f.aptos.RegisterTokenAccount(mintAddress)
	r0 := decode[agreement.GenerateDepositAddressResponse](t, f.generateResponses(mintAddress)[0])
	r1 := decode[agreement.GenerateDepositAddressResponse](t, f.generateResponses(mintAddress)[0])
	assert.Equal(t, mintAddress, r0.MintAddress)
	assert.NotEqual(t, r0.DepositAddress, r1.DepositAddress)
}

func TestRegisterMintDepositAddressChecks(t *testing.T) {
	f := newFederation(t, 3, 2)
	mintAddress := aptosman.RandAddress()
	f.aptos.RegisterTokenAccount(mintAddress)
	responses := f.generateResponses(mintAddress)

	_, err := f.nodes[0].RegisterMintDepositAddress(&RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: responses[:2]})
	assert.True(t, common.IsKind(err, common.KindConsensus))

	// response i must come from authority i
	swapped := []*envelope.SignedMessage{responses[1], responses[0], responses[2]}
	_, err = f.nodes[0].RegisterMintDepositAddress(&RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: swapped})
	assert.True(t, common.IsKind(err, common.KindAuthentication))

	other := aptosman.RandAddress()
	f.aptos.RegisterTokenAccount(other)
	mixed := []*envelope.SignedMessage{responses[0], responses[1], f.generateResponses(other)[2]}
	_, err = f.nodes[0].RegisterMintDepositAddress(&RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: mixed})
	assert.True(t, common.IsKind(err, common.KindConsensus))

	// nothing was recorded by the failed attempts
	rows, err := f.dbs[0].GetMintDepositAddresses(nil)
	require.NoError(t, err)
	assert.Len(t, rows, 0)

	// a failing wallet import does not stop registration
	f.dingos[1].FailImportAddress = true
	req := &RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: responses}
	_, err = f.nodes[1].RegisterMintDepositAddress(req)
	assert.NoError(t, err)

	// the keys were consumed
	_, err = f.nodes[1].RegisterMintDepositAddress(req)
	assert.True(t, common.IsKind(err, common.KindStateConflict))
	rows, err = f.dbs[1].GetMintDepositAddresses(nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// fresh keys for an already registered mint address leave no trace
	fresh := f.generateResponses(mintAddress)
	_, err = f.nodes[1].RegisterMintDepositAddress(&RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: fresh})
	assert.True(t, common.IsKind(err, common.KindStateConflict))
	pubKeys := []string{}
	for _, msg := range fresh {
		pubKeys = append(pubKeys, decode[agreement.GenerateDepositAddressResponse](t, msg).DepositAddress)
	}
	used, err := f.dbs[1].HasUsedDepositAddresses(pubKeys)
	require.NoError(t, err)
	assert.False(t, used)
}

func TestApproveMintChecks(t *testing.T) {
	f := newFederation(t, 3, 2)
	mintAddress := aptosman.RandAddress()
	depositAddress := f.registerDeposit(mintAddress)
	f.deposit(depositAddress, 10000)

	pending := f.pendingMint(0)[0]
	req := &agreement.ApproveMintRequest{Mint: pending}

	// coordinator only
	_, err := f.nodes[1].ApproveMint(f.signAs(1, req), false)
	assert.True(t, common.IsKind(err, common.KindAuthentication))

	wrong := *pending
	wrong.DepositAddress = randDingoAddress(t)
	_, err = f.nodes[1].ApproveMint(f.signAs(0, &agreement.ApproveMintRequest{Mint: &wrong}), false)
	assert.True(t, common.IsKind(err, common.KindValidation))

	tooMuch := *pending
	tooMuch.MintAmount = "9901"
	_, err = f.nodes[1].ApproveMint(f.signAs(0, &agreement.ApproveMintRequest{Mint: &tooMuch}), false)
	assert.True(t, common.IsKind(err, common.KindStateConflict))

	_, err = f.nodes[1].ApproveMint(f.signAs(0, &agreement.ApproveMintRequest{}), false)
	assert.True(t, common.IsKind(err, common.KindValidation))

	// test rounds never move the counter
	for i := 0; i < 3; i++ {
		_, err = f.nodes[1].ApproveMint(f.signAs(0, req), true)
		require.NoError(t, err)
	}
	row, _, err := f.dbs[1].GetMintDepositAddress(mintAddress)
	require.NoError(t, err)
	assert.Equal(t, 0, row.ApprovedAmount.Sign())

	// approval is monotonic and bounded by the deposit
	half := *pending
	half.MintAmount = "5000"
	_, err = f.nodes[1].ApproveMint(f.signAs(0, &agreement.ApproveMintRequest{Mint: &half}), false)
	require.NoError(t, err)
	_, err = f.nodes[1].ApproveMint(f.signAs(0, &agreement.ApproveMintRequest{Mint: &half}), false)
	assert.True(t, common.IsKind(err, common.KindStateConflict))
	rest := *pending
	rest.MintAmount = "4900"
	_, err = f.nodes[1].ApproveMint(f.signAs(0, &agreement.ApproveMintRequest{Mint: &rest}), false)
	require.NoError(t, err)

	row, _, err = f.dbs[1].GetMintDepositAddress(mintAddress)
	require.NoError(t, err)
	assert.Equal(t, "9900", row.ApprovedAmount.String())
}

func TestApproveMintIsSerialized(t *testing.T) {
	f := newFederation(t, 2, 2)
	mintAddress := aptosman.RandAddress()
	depositAddress := f.registerDeposit(mintAddress)
	f.deposit(depositAddress, 10000)
	req := &agreement.ApproveMintRequest{Mint: f.pendingMint(0)[0]}

	const n = 8
	msgs := make([]*envelope.SignedMessage, n)
	for i := range msgs {
		msgs[i] = f.signAs(0, req)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.nodes[1].ApproveMint(msgs[i], false); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestStaleRequestsRejected(t *testing.T) {
	f := newFederation(t, 2, 2)
	msg := f.signAs(0, &agreement.ComputePendingPayoutsRequest{})

	f.chain.Mine(2*testSyncDelay + 1)
	_, err := f.nodes[1].ComputePendingPayouts(msg)
	assert.True(t, common.IsKind(err, common.KindAuthentication))

	msg = f.signAs(0, &agreement.ComputePendingPayoutsRequest{})
	f.chain.Reorg()
	_, err = f.nodes[1].ComputePendingPayouts(msg)
	assert.True(t, common.IsKind(err, common.KindAuthentication))
}

func TestSubmitWithdrawal(t *testing.T) {
	f := newFederation(t, 2, 2)
	user := aptosman.RandAddress()
	depositAddress := f.registerDeposit(user)
	f.deposit(depositAddress, 20000)
	f.mint(f.pendingMint(0)[0])

	destination := randDingoAddress(t)
	burnSig, err := f.aptos.Burn(user, big.NewInt(10000), destination)
	require.NoError(t, err)
	claim := &agreement.WithdrawalClaim{BurnSignature: burnSig, BurnAmount: "10000", BurnDestination: destination}

	bad := *claim
	bad.BurnDestination = "nope"
	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: &bad})
	assert.True(t, common.IsKind(err, common.KindValidation))

	bad = *claim
	bad.BurnAmount = "9899"
	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: &bad})
	assert.True(t, common.IsKind(err, common.KindValidation))

	bad = *claim
	bad.BurnAmount = "9999"
	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: &bad})
	assert.True(t, common.IsKind(err, common.KindValidation))

	bad = *claim
	bad.BurnDestination = randDingoAddress(t)
	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: &bad})
	assert.True(t, common.IsKind(err, common.KindValidation))

	bad = *claim
	bad.BurnSignature = "0xfeed"
	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: &bad})
	assert.True(t, common.IsKind(err, common.KindUpstream))

	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: claim})
	require.NoError(t, err)

	// at most once
	_, err = f.nodes[0].SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: claim})
	assert.True(t, common.IsKind(err, common.KindStateConflict))
	ws, err := f.dbs[0].GetWithdrawals()
	require.NoError(t, err)
	assert.Len(t, ws, 1)

	msg, err := f.nodes[0].QueryBurnHistory(&agreement.BurnHistory{BurnHistory: []*agreement.BurnHistoryEntry{
		{BurnSignature: burnSig},
		{BurnSignature: "0xunknown"},
	}})
	require.NoError(t, err)
	history := decode[agreement.BurnHistory](t, msg).BurnHistory
	require.Len(t, history, 2)
	require.NotNil(t, history[0].Status)
	assert.Equal(t, agreement.BurnStatusSubmitted, *history[0].Status)
	assert.Nil(t, history[1].Status)
}

// payoutRound drives both approval chains across the federation and
// broadcasts the result.
func (f *federation) payoutRound() (*agreement.Payouts, []*agreement.Unspent, string) {
	var payouts *agreement.Payouts
	for i, node := range f.nodes {
		msg, err := node.ComputePendingPayouts(f.signAs(0, &agreement.ComputePendingPayoutsRequest{ProcessDeposits: true, ProcessWithdrawals: true}))
		require.NoError(f.t, err)
		p := decode[agreement.Payouts](f.t, msg)
		if i == 0 {
			payouts = p
		}
		require.Equal(f.t, payouts, p)
	}
	msg, err := f.nodes[1].ComputeUnspent(f.signAs(0, &agreement.EmptyPayload{}))
	require.NoError(f.t, err)
	unspent := decode[agreement.UnspentResponse](f.t, msg).Unspent

	approve := func(i int, chain *string, test bool) string {
		req := &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: unspent, ApprovalChain: chain}
		msg, err := f.nodes[i].ApprovePayouts(f.signAs(0, req), test)
		require.NoError(f.t, err)
		return decode[agreement.ApprovePayoutsResponse](f.t, msg).ApprovalChain
	}

	var chain *string
	for i := range f.nodes {
		next := approve(i, chain, true)
		chain = &next
	}
	chain = nil
	for i := 0; i < f.cfg.AuthorityThreshold; i++ {
		next := approve(i, chain, false)
		chain = &next
	}
	txid, err := f.dingos[0].SendRawTransaction(*chain)
	require.NoError(f.t, err)
	return payouts, unspent, txid
}

func TestPayoutRound(t *testing.T) {
	f := newFederation(t, 3, 2)
	user := aptosman.RandAddress()
	depositAddress := f.registerDeposit(user)
	f.deposit(depositAddress, 20000)
	f.mint(f.pendingMint(0)[0])

	destination := randDingoAddress(t)
	burnSig, err := f.aptos.Burn(user, big.NewInt(10000), destination)
	require.NoError(t, err)
	for _, node := range f.nodes {
		_, err := node.SubmitWithdrawal(&agreement.SubmitWithdrawalRequest{Burn: &agreement.WithdrawalClaim{
			BurnSignature: burnSig, BurnAmount: "10000", BurnDestination: destination,
		}})
		require.NoError(t, err)
	}

	payouts, unspent, _ := f.payoutRound()
	assert.Equal(t, []*agreement.DepositTaxPayout{{DepositAddress: depositAddress, Amount: "200"}}, payouts.DepositTaxPayouts)
	assert.Len(t, payouts.WithdrawalPayouts, 1)
	require.Len(t, unspent, 1)

	// tax 300, fee 20, 140 to each tax address, change 20000 - 9900 - 280 - 20
	assert.Equal(t, "9900", f.chain.Balance(destination).String())
	for _, a := range f.cfg.TaxPayoutAddresses {
		assert.Equal(t, "140", f.chain.Balance(a).String())
	}
	assert.Equal(t, "9800", f.chain.Balance(f.cfg.ChangeAddress).String())
	assert.Equal(t, "0", f.chain.Balance(depositAddress).String())

	// the signers advanced their counters, the third node did not sign
	for i, db := range f.dbs {
		w, _, err := db.GetWithdrawal(burnSig)
		require.NoError(t, err)
		row, _, err := db.GetMintDepositAddress(user)
		require.NoError(t, err)
		if i < f.cfg.AuthorityThreshold {
			assert.Equal(t, "9900", w.ApprovedAmount.String())
			assert.Equal(t, "100", w.ApprovedTax.String())
			assert.Equal(t, "200", row.ApprovedTax.String())
		} else {
			assert.True(t, w.IsUnapproved())
		}
	}

	msg, err := f.nodes[0].QueryBurnHistory(&agreement.BurnHistory{BurnHistory: []*agreement.BurnHistoryEntry{{BurnSignature: burnSig}}})
	require.NoError(t, err)
	assert.Equal(t, agreement.BurnStatusApproved, *decode[agreement.BurnHistory](t, msg).BurnHistory[0].Status)

	// nothing left to pay on the signers
	msg, err = f.nodes[0].ComputePendingPayouts(f.signAs(1, &agreement.ComputePendingPayoutsRequest{ProcessDeposits: true, ProcessWithdrawals: true}))
	require.NoError(t, err)
	assert.Equal(t, agreement.NewEmptyPayouts(), decode[agreement.Payouts](t, msg))

	// the same payouts cannot be approved again
	req := &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: unspent}
	_, err = f.nodes[0].ApprovePayouts(f.signAs(0, req), false)
	assert.Error(t, err)
}

func TestApprovalChainTamper(t *testing.T) {
	f := newFederation(t, 3, 2)
	user := aptosman.RandAddress()
	depositAddress := f.registerDeposit(user)
	f.deposit(depositAddress, 40000)

	msg, err := f.nodes[0].ComputePendingPayouts(f.signAs(0, &agreement.ComputePendingPayoutsRequest{ProcessDeposits: true}))
	require.NoError(t, err)
	payouts := decode[agreement.Payouts](t, msg)
	msg, err = f.nodes[0].ComputeUnspent(f.signAs(0, &agreement.EmptyPayload{}))
	require.NoError(t, err)
	unspent := decode[agreement.UnspentResponse](t, msg).Unspent

	req := &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: unspent}
	msg, err = f.nodes[0].ApprovePayouts(f.signAs(0, req), false)
	require.NoError(t, err)
	chain := decode[agreement.ApprovePayoutsResponse](t, msg).ApprovalChain

	tx, err := assembler.DecodeTx(chain)
	require.NoError(t, err)
	tx.TxOut[0].Value -= 1
	tampered, err := assembler.EncodeTx(tx)
	require.NoError(t, err)

	for _, i := range []int{1, 2} {
		req := &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: unspent, ApprovalChain: &tampered}
		_, err := f.nodes[i].ApprovePayouts(f.signAs(0, req), false)
		assert.True(t, common.IsKind(err, common.KindConsensus))
		assert.True(t, errors.Is(err, assembler.ErrPayoutsMismatch))

		row, _, err := f.dbs[i].GetMintDepositAddress(user)
		require.NoError(t, err)
		assert.Equal(t, 0, row.ApprovedTax.Sign())
	}

	// smuggled inputs are refused before anything is signed
	foreign := append([]*agreement.Unspent{}, unspent...)
	foreign = append(foreign, &agreement.Unspent{TxID: "00", Vout: 0, Address: depositAddress, ScriptPubKey: unspent[0].ScriptPubKey, Amount: "1000"})
	req = &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: foreign}
	_, err = f.nodes[1].ApprovePayouts(f.signAs(0, req), false)
	assert.True(t, common.IsKind(err, common.KindConsensus))

	// only the coordinator drives the chain
	req = &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: unspent, ApprovalChain: &chain}
	_, err = f.nodes[1].ApprovePayouts(f.signAs(2, req), false)
	assert.True(t, common.IsKind(err, common.KindAuthentication))
}

func TestStatsCache(t *testing.T) {
	f := newFederation(t, 2, 2)
	node := f.nodes[0]
	now := time.Unix(1_700_000_000, 0)
	node.now = func() time.Time { return now }

	msg, err := node.Stats()
	require.NoError(t, err)
	s0 := decode[agreement.Stats](t, msg)
	assert.Equal(t, now.UnixMilli(), s0.Time)
	assert.Equal(t, f.wallets[0].Address(), s0.PublicSettings.WalletAddress)
	assert.Equal(t, "1160000", s0.Version.DingoVersion)
	assert.Equal(t, 0, s0.ConfirmedDeposits.Count)

	f.registerDeposit(aptosman.RandAddress())
	now = now.Add(DefaultStatsTTL - time.Second)
	msg, err = node.Stats()
	require.NoError(t, err)
	assert.Equal(t, s0.Time, decode[agreement.Stats](t, msg).Time)

	now = now.Add(time.Second)
	msg, err = node.Stats()
	require.NoError(t, err)
	s1 := decode[agreement.Stats](t, msg)
	assert.Equal(t, now.UnixMilli(), s1.Time)
	assert.Equal(t, 1, s1.ConfirmedDeposits.Count)
}

func TestDumpDatabaseAndTerminate(t *testing.T) {
	f := newFederation(t, 3, 2)
	depositAddress := f.registerDeposit(aptosman.RandAddress())

	dump, err := f.nodes[0].DumpDatabase(f.signAs(2, &agreement.EmptyPayload{}))
	require.NoError(t, err)
	assert.Contains(t, dump.SQL, depositAddress)

	outsider := newFederation(t, 1, 1)
	_, err = f.nodes[0].DumpDatabase(outsider.signAs(0, &agreement.EmptyPayload{}))
	assert.True(t, common.IsKind(err, common.KindAuthentication))

	req, err := f.nodes[0].Terminate(f.signAs(1, &agreement.TerminateRequest{Message: "maintenance"}))
	require.NoError(t, err)
	assert.Equal(t, "maintenance", req.Message)
}

func TestApproveMintSigningFailureKeepsState(t *testing.T) {
	f := newFederation(t, 1, 1)
	mintAddress := aptosman.RandAddress()
	depositAddress := f.registerDeposit(mintAddress)
	f.deposit(depositAddress, 10000)

	req := &agreement.ApproveMintRequest{Mint: f.pendingMint(0)[0]}
	f.failSigningOnce(0)
	_, err := f.nodes[0].ApproveMint(f.signAs(0, req), false)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUpstream))
	assert.ErrorIs(t, err, errAnchorDown)

	row, ok, err := f.dbs[0].GetMintDepositAddress(mintAddress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0", row.ApprovedAmount.String())
	require.Len(t, f.pendingMint(0), 1)

	// the round can simply be rerun
	msg, err := f.nodes[0].ApproveMint(f.signAs(0, req), false)
	require.NoError(t, err)
	assert.NotNil(t, decode[agreement.ApproveMintResponse](t, msg).Signature)
	row, _, err = f.dbs[0].GetMintDepositAddress(mintAddress)
	require.NoError(t, err)
	assert.Equal(t, "9900", row.ApprovedAmount.String())
}

func TestApprovePayoutsSigningFailureKeepsState(t *testing.T) {
	f := newFederation(t, 1, 1)
	mintAddress := aptosman.RandAddress()
	depositAddress := f.registerDeposit(mintAddress)
	f.deposit(depositAddress, 20000)
	f.mint(f.pendingMint(0)[0])

	msg, err := f.nodes[0].ComputePendingPayouts(f.signAs(0, &agreement.ComputePendingPayoutsRequest{ProcessDeposits: true}))
	require.NoError(t, err)
	payouts := decode[agreement.Payouts](t, msg)
	require.Len(t, payouts.DepositTaxPayouts, 1)
	msg, err = f.nodes[0].ComputeUnspent(f.signAs(0, &agreement.EmptyPayload{}))
	require.NoError(t, err)
	unspent := decode[agreement.UnspentResponse](t, msg).Unspent

	req := &agreement.ApprovePayoutsRequest{Payouts: *payouts, Unspent: unspent}
	f.failSigningOnce(0)
	_, err = f.nodes[0].ApprovePayouts(f.signAs(0, req), false)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUpstream))

	row, _, err := f.dbs[0].GetMintDepositAddress(mintAddress)
	require.NoError(t, err)
	assert.Equal(t, "0", row.ApprovedTax.String())

	_, err = f.nodes[0].ApprovePayouts(f.signAs(0, req), false)
	require.NoError(t, err)
	row, _, err = f.dbs[0].GetMintDepositAddress(mintAddress)
	require.NoError(t, err)
	assert.Equal(t, payouts.DepositTaxPayouts[0].Amount, row.ApprovedTax.String())
}
