// Package assembler builds and checks the unsigned payout transactions
// spent from the federation's multisig deposit and change outputs.
package assembler

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/netparams"
)

var (
	ErrUnspentMismatch = errors.New("Unspent mismatch")
	ErrPayoutsMismatch = errors.New("Payouts mismatch")
)

type Assembler struct {
	ChainConfig *chaincfg.Params // which dingo chain it is on. (mainnet, testnet, regtest)
}

func NewAssembler(params *chaincfg.Params) *Assembler {
	return &Assembler{ChainConfig: params}
}

// CreateRawTransaction spends unspent (in the given order) and pays vouts.
// Outputs are ordered by address so that every node builds the same bytes.
// The result is hex and carries no signatures.
func (myAss *Assembler) CreateRawTransaction(unspent []*agreement.Unspent, vouts map[string]*big.Int) (string, error) {
	tx := wire.NewMsgTx(1)

	for _, u := range unspent {
		txHash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return "", fmt.Errorf("invalid txid %s: %w", u.TxID, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHash, u.Vout), nil, nil))
	}

	addresses := make([]string, 0, len(vouts))
	for a := range vouts {
		addresses = append(addresses, a)
	}
	sort.Strings(addresses)
	for _, a := range addresses {
		var err error
		tx, err = myAss.AppendPayToAddress(tx, a, vouts[a])
		if err != nil {
			return "", err
		}
	}

	return EncodeTx(tx)
}

// Append a pay-to-address clause to tx. amount is in satoshi.
func (myAss *Assembler) AppendPayToAddress(tx *wire.MsgTx, dst_addr string, amount *big.Int) (*wire.MsgTx, error) {
	if amount == nil || amount.Sign() < 0 || !amount.IsInt64() {
		return nil, fmt.Errorf("invalid amount for %s: %v", dst_addr, amount)
	}
	addr, err := netparams.DecodeAddress(dst_addr, myAss.ChainConfig)
	if err != nil {
		return nil, err
	}
	txOutScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}
	tx.AddTxOut(wire.NewTxOut(amount.Int64(), txOutScript))
	return tx, nil
}

// VerifyRawTransaction checks that rawTx spends exactly unspent and pays
// exactly vouts, regardless of input and output order.
func (myAss *Assembler) VerifyRawTransaction(unspent []*agreement.Unspent, vouts map[string]*big.Int, rawTx string) error {
	tx, err := DecodeTx(rawTx)
	if err != nil {
		return err
	}

	// 1. inputs
	if len(tx.TxIn) != len(unspent) {
		return ErrUnspentMismatch
	}
	proposed := make([]string, len(unspent))
	for i, u := range unspent {
		proposed[i] = outpointKey(u.TxID, u.Vout)
	}
	actual := make([]string, len(tx.TxIn))
	for i, in := range tx.TxIn {
		actual[i] = outpointKey(in.PreviousOutPoint.Hash.String(), in.PreviousOutPoint.Index)
	}
	sort.Strings(proposed)
	sort.Strings(actual)
	for i := range proposed {
		if proposed[i] != actual[i] {
			return ErrUnspentMismatch
		}
	}

	// 2. outputs
	if len(tx.TxOut) != len(vouts) {
		return ErrPayoutsMismatch
	}
	paid := make(map[string]int64, len(tx.TxOut))
	for _, out := range tx.TxOut {
		class, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, myAss.ChainConfig)
		if err != nil {
			return ErrPayoutsMismatch
		}
		if (class != txscript.PubKeyHashTy && class != txscript.ScriptHashTy) || len(addrs) != 1 {
			continue
		}
		paid[addrs[0].EncodeAddress()] += out.Value
	}
	if len(paid) != len(vouts) {
		return ErrPayoutsMismatch
	}
	for a, amount := range vouts {
		v, ok := paid[a]
		if !ok || amount == nil || !amount.IsInt64() || amount.Int64() != v {
			return ErrPayoutsMismatch
		}
	}
	return nil
}

// CreateMultisig builds the threshold-of-len(pubKeys) redeem script over
// the keys in the given order, and its P2SH address.
func CreateMultisig(params *chaincfg.Params, threshold int, pubKeys []string) (*agreement.Multisig, error) {
	if threshold <= 0 || threshold > len(pubKeys) {
		return nil, fmt.Errorf("invalid threshold %d for %d keys", threshold, len(pubKeys))
	}
	keys := make([]*btcutil.AddressPubKey, len(pubKeys))
	for i, pk := range pubKeys {
		b, err := hex.DecodeString(pk)
		if err != nil {
			return nil, fmt.Errorf("invalid public key %s: %w", pk, err)
		}
		keys[i], err = btcutil.NewAddressPubKey(b, params)
		if err != nil {
			return nil, fmt.Errorf("invalid public key %s: %w", pk, err)
		}
	}
	script, err := txscript.MultiSigScript(keys, threshold)
	if err != nil {
		return nil, err
	}
	addr, err := btcutil.NewAddressScriptHash(script, params)
	if err != nil {
		return nil, err
	}
	return &agreement.Multisig{
		Address:      addr.EncodeAddress(),
		RedeemScript: hex.EncodeToString(script),
	}, nil
}

func EncodeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func DecodeTx(rawTx string) (*wire.MsgTx, error) {
	b, err := hex.DecodeString(rawTx)
	if err != nil {
		return nil, fmt.Errorf("invalid raw transaction: %w", err)
	}
	tx := &wire.MsgTx{}
	if err := tx.DeserializeNoWitness(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("invalid raw transaction: %w", err)
	}
	return tx, nil
}

func outpointKey(txid string, vout uint32) string {
	return fmt.Sprintf("%s:%d", txid, vout)
}
