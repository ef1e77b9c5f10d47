// Package dingoman holds the Dingocoin side of the bridge: network
// params, the node RPC client, the transaction assembler and an in-memory
// chain used by tests.
package dingoman

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/assembler"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/netparams"
)

var (
	ErrSimImportFailed   = errors.New("simulated importaddress failure")
	ErrSimMissingInput   = errors.New("missing or spent input")
	ErrSimNotEnoughSigs  = errors.New("not enough signatures")
	ErrSimBlockNotFound  = errors.New("block height out of range")
	ErrSimOverspend      = errors.New("outputs exceed inputs")
	simulatedVersion     = "1160000"
	simulatedGenesisSalt = "dingo"
)

type simOutput struct {
	txid         string
	vout         uint32
	address      string
	scriptPubKey string
	amount       *big.Int
	height       int64 // 0 while in the mempool
	spent        bool
}

// SimChain is a shared in-memory Dingocoin chain. Every authority in a
// test gets its own SimDingo view of it.
type SimChain struct {
	mu sync.Mutex

	params    *chaincfg.Params
	height    int64
	salt      string
	outputs   []*simOutput
	multisigs map[string]int // p2sh address -> required signatures
	sent      []string
}

func NewSimChain(initialHeight int64) *SimChain {
	return &SimChain{
		params:    &netparams.RegTestParams,
		height:    initialHeight,
		salt:      simulatedGenesisSalt,
		multisigs: map[string]int{},
	}
}

func (c *SimChain) Params() *chaincfg.Params {
	return c.params
}

// Receive pays amount satoshi to address in a new mempool transaction.
func (c *SimChain) Receive(address string, amount *big.Int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	txid := common.ByteSliceToPureHexStr(common.RandBytes(32))
	c.addOutput(txid, 0, address, amount)
	return txid
}

func (c *SimChain) addOutput(txid string, vout uint32, address string, amount *big.Int) {
	script := ""
	if addr, err := netparams.DecodeAddress(address, c.params); err == nil {
		if b, err := txscript.PayToAddrScript(addr); err == nil {
			script = hex.EncodeToString(b)
		}
	}
	c.outputs = append(c.outputs, &simOutput{
		txid:         txid,
		vout:         vout,
		address:      address,
		scriptPubKey: script,
		amount:       new(big.Int).Set(amount),
	})
}

// Mine appends n blocks and confirms the mempool in the first of them.
func (c *SimChain) Mine(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 {
		return
	}
	for _, o := range c.outputs {
		if o.height == 0 {
			o.height = c.height + 1
		}
	}
	c.height += n
}

// Reorg replaces every block hash, as if the chain had switched forks.
func (c *SimChain) Reorg() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.salt = c.salt + "'"
}

func (c *SimChain) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.sent...)
}

// Balance is the unspent total held by address at any depth.
func (c *SimChain) Balance(address string) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := big.NewInt(0)
	for _, o := range c.outputs {
		if o.address == address && !o.spent {
			total.Add(total, o.amount)
		}
	}
	return total
}

func (c *SimChain) confirmations(o *simOutput) int64 {
	if o.height == 0 {
		return 0
	}
	return c.height - o.height + 1
}

func (c *SimChain) registerMultisig(redeemScript string) (string, error) {
	script, err := hex.DecodeString(redeemScript)
	if err != nil {
		return "", err
	}
	class, _, required, err := txscript.ExtractPkScriptAddrs(script, c.params)
	if err != nil {
		return "", err
	}
	if class != txscript.MultiSigTy {
		return "", fmt.Errorf("not a multisig redeem script")
	}
	addr, err := btcutil.NewAddressScriptHash(script, c.params)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.multisigs[addr.EncodeAddress()] = required
	c.mu.Unlock()
	return addr.EncodeAddress(), nil
}

func (c *SimChain) send(rawTx string) (string, error) {
	tx, err := assembler.DecodeTx(rawTx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	spent := make([]*simOutput, 0, len(tx.TxIn))
	in := big.NewInt(0)
	for _, txIn := range tx.TxIn {
		var found *simOutput
		for _, o := range c.outputs {
			if o.txid == txIn.PreviousOutPoint.Hash.String() && o.vout == txIn.PreviousOutPoint.Index && !o.spent {
				found = o
				break
			}
		}
		if found == nil {
			return "", ErrSimMissingInput
		}
		if required, ok := c.multisigs[found.address]; ok {
			pushes, err := txscript.PushedData(txIn.SignatureScript)
			if err != nil || len(pushes) < required {
				return "", ErrSimNotEnoughSigs
			}
		}
		spent = append(spent, found)
		in.Add(in, found.amount)
	}

	out := big.NewInt(0)
	for _, txOut := range tx.TxOut {
		out.Add(out, big.NewInt(txOut.Value))
	}
	if out.Cmp(in) > 0 {
		return "", ErrSimOverspend
	}

	txid := tx.TxHash().String()
	for _, o := range spent {
		o.spent = true
	}
	for i, txOut := range tx.TxOut {
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(txOut.PkScript, c.params)
		if err != nil || len(addrs) != 1 {
			continue
		}
		c.addOutput(txid, uint32(i), addrs[0].EncodeAddress(), big.NewInt(txOut.Value))
	}
	c.sent = append(c.sent, rawTx)
	return txid, nil
}

// SimDingo is one authority's node and wallet on a SimChain.
type SimDingo struct {
	chain     *SimChain
	assembler *assembler.Assembler
	id        []byte

	mu                sync.Mutex
	wallet            map[string]*btcec.PrivateKey
	watched           map[string]bool
	FailImportAddress bool
}

var _ agreement.SourceChain = (*SimDingo)(nil)

func NewSimDingo(chain *SimChain) *SimDingo {
	return &SimDingo{
		chain:     chain,
		assembler: assembler.NewAssembler(chain.params),
		id:        common.RandBytes(8),
		wallet:    map[string]*btcec.PrivateKey{},
		watched:   map[string]bool{},
	}
}

func (s *SimDingo) ValidateAddress(address string) bool {
	return netparams.IsValidAddress(address, s.chain.params)
}

func (s *SimDingo) GetNewPubKey() (string, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return "", err
	}
	pk := sk.PubKey().SerializeCompressed()
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pk), s.chain.params)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.wallet[addr.EncodeAddress()] = sk
	s.mu.Unlock()
	return hex.EncodeToString(pk), nil
}

func (s *SimDingo) CreateMultisig(threshold int, pubKeys []string) (*agreement.Multisig, error) {
	return assembler.CreateMultisig(s.chain.params, threshold, pubKeys)
}

func (s *SimDingo) ImportAddress(redeemScript string) error {
	if s.FailImportAddress {
		return common.NewUpstreamError(ErrSimImportFailed, "dingo rpc importaddress failed")
	}
	addr, err := s.chain.registerMultisig(redeemScript)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.watched[addr] = true
	s.mu.Unlock()
	return nil
}

// WatchAddress makes the wallet track a plain address, such as the
// change address.
func (s *SimDingo) WatchAddress(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched[address] = true
}

func (s *SimDingo) isMine(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.wallet[address]
	return ok || s.watched[address]
}

func (s *SimDingo) ListReceivedByAddress(confirmations int64) (map[string]*big.Int, error) {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()

	received := map[string]*big.Int{}
	for _, o := range s.chain.outputs {
		if !s.isMine(o.address) || s.chain.confirmations(o) < confirmations {
			continue
		}
		if _, ok := received[o.address]; !ok {
			received[o.address] = big.NewInt(0)
		}
		received[o.address].Add(received[o.address], o.amount)
	}
	for a, v := range received {
		if v.Sign() == 0 {
			delete(received, a)
		}
	}
	return received, nil
}

func (s *SimDingo) ListUnspent(confirmations int64, addresses []string) ([]*agreement.Unspent, error) {
	unspent := []*agreement.Unspent{}
	if len(addresses) == 0 {
		return unspent, nil
	}
	want := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		want[a] = true
	}

	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	for _, o := range s.chain.outputs {
		if o.spent || !want[o.address] || !s.isMine(o.address) || s.chain.confirmations(o) < confirmations {
			continue
		}
		unspent = append(unspent, &agreement.Unspent{
			TxID:         o.txid,
			Vout:         o.vout,
			Address:      o.address,
			ScriptPubKey: o.scriptPubKey,
			Amount:       o.amount.String(),
		})
	}
	return unspent, nil
}

func (s *SimDingo) CreateRawTransaction(unspent []*agreement.Unspent, vouts map[string]*big.Int) (string, error) {
	return s.assembler.CreateRawTransaction(unspent, vouts)
}

func (s *SimDingo) VerifyRawTransaction(unspent []*agreement.Unspent, vouts map[string]*big.Int, rawTx string) error {
	return s.assembler.VerifyRawTransaction(unspent, vouts, rawTx)
}

// SignRawTransaction appends one data push per input, standing in for
// this wallet's partial signature.
func (s *SimDingo) SignRawTransaction(rawTx string) (string, error) {
	tx, err := assembler.DecodeTx(rawTx)
	if err != nil {
		return "", err
	}
	for _, in := range tx.TxIn {
		script, err := txscript.NewScriptBuilder().
			AddOps(in.SignatureScript).
			AddData(s.id).
			Script()
		if err != nil {
			return "", err
		}
		in.SignatureScript = script
	}
	return assembler.EncodeTx(tx)
}

func (s *SimDingo) SendRawTransaction(rawTx string) (string, error) {
	return s.chain.send(rawTx)
}

func (s *SimDingo) GetBlockCount() (int64, error) {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	return s.chain.height, nil
}

func (s *SimDingo) GetBlockHash(height int64) (string, error) {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	if height < 0 || height > s.chain.height {
		return "", ErrSimBlockNotFound
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s/%d", s.chain.salt, height)))
	return hex.EncodeToString(h[:]), nil
}

func (s *SimDingo) GetClientVersion() (string, error) {
	return simulatedVersion, nil
}
