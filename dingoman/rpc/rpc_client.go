package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/assembler"
	"github.com/dingocoin/wdingocoin-bridge/dingoman/netparams"
)

const (
	MAX_CONFIRM = 9999999
)

type RpcClientConfig struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	Username   string
	Pwd        string
	Network    string // mainnet, testnet or regtest
}

// Wrapper of dingo rpc client. Transactions are built and checked
// locally; the node's wallet only signs and broadcasts.
type RpcClient struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	params     *chaincfg.Params
	assembler  *assembler.Assembler
	client     *rpcclient.Client
}

// Create a new RPC client which
// contains several useful functions
// to interact with dingo node.
func NewRpcClient(rcc *RpcClientConfig) (*RpcClient, error) {
	params, err := netparams.FromNetwork(rcc.Network)
	if err != nil {
		return nil, err
	}

	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         rcc.ServerAddr + ":" + rcc.Port,
		User:         rcc.Username,
		Pass:         rcc.Pwd,
		HTTPPostMode: true, // dingo only supports HTTP POST mode
		DisableTLS:   true, // dingo does not support TLS
	}, nil)
	if err != nil {
		return nil, err
	}

	return &RpcClient{
		ServerAddr: rcc.ServerAddr,
		Port:       rcc.Port,
		params:     params,
		assembler:  assembler.NewAssembler(params),
		client:     client,
	}, nil
}

// Close the rpc client
func (r *RpcClient) Close() {
	r.client.Shutdown()
}

func (r *RpcClient) Params() *chaincfg.Params {
	return r.params
}

// call issues a raw JSON-RPC request and decodes the result into result,
// keeping numbers as json.Number so that amounts stay exact.
func (r *RpcClient) call(method string, result any, params ...any) error {
	rawParams := make([]json.RawMessage, len(params))
	for i, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		rawParams[i] = b
	}

	raw, err := r.client.RawRequest(method, rawParams)
	if err != nil {
		logger.WithFields(logger.Fields{"method": method}).Debugf("rpc failed: %v", err)
		return common.NewUpstreamError(err, "dingo rpc %s failed", method)
	}
	if result == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return common.NewUpstreamError(err, "failed to decode %s result", method)
	}
	return nil
}

func (r *RpcClient) ValidateAddress(address string) bool {
	return netparams.IsValidAddress(address, r.params)
}

// GetNewPubKey asks the wallet for a fresh address and returns its public key.
func (r *RpcClient) GetNewPubKey() (string, error) {
	var address string
	if err := r.call("getnewaddress", &address); err != nil {
		return "", err
	}
	var info struct {
		IsValid bool   `json:"isvalid"`
		PubKey  string `json:"pubkey"`
	}
	if err := r.call("validateaddress", &info, address); err != nil {
		return "", err
	}
	if !info.IsValid || info.PubKey == "" {
		return "", fmt.Errorf("wallet returned no public key for %s", address)
	}
	return info.PubKey, nil
}

func (r *RpcClient) CreateMultisig(threshold int, pubKeys []string) (*agreement.Multisig, error) {
	return assembler.CreateMultisig(r.params, threshold, pubKeys)
}

// ImportAddress starts watching the P2SH address of redeemScript without
// a rescan.
func (r *RpcClient) ImportAddress(redeemScript string) error {
	return r.call("importaddress", nil, redeemScript, "", false, true)
}

type receivedEntry struct {
	Address string      `json:"address"`
	Amount  json.Number `json:"amount"`
}

func (r *RpcClient) ListReceivedByAddress(confirmations int64) (map[string]*big.Int, error) {
	var entries []receivedEntry
	if err := r.call("listreceivedbyaddress", &entries, confirmations, false, true); err != nil {
		return nil, err
	}

	received := make(map[string]*big.Int, len(entries))
	for _, e := range entries {
		amount, err := common.ToSatoshi(e.Amount.String())
		if err != nil {
			return nil, common.NewUpstreamError(err, "bad amount for %s", e.Address)
		}
		if amount.Sign() > 0 {
			received[e.Address] = amount
		}
	}
	return received, nil
}

type unspentEntry struct {
	TxID         string      `json:"txid"`
	Vout         uint32      `json:"vout"`
	Address      string      `json:"address"`
	ScriptPubKey string      `json:"scriptPubKey"`
	Amount       json.Number `json:"amount"`
}

// ListUnspent returns the outputs of addresses with at least
// confirmations confirmations. No addresses means no outputs.
func (r *RpcClient) ListUnspent(confirmations int64, addresses []string) ([]*agreement.Unspent, error) {
	if len(addresses) == 0 {
		return []*agreement.Unspent{}, nil
	}

	var entries []unspentEntry
	if err := r.call("listunspent", &entries, confirmations, MAX_CONFIRM, addresses); err != nil {
		return nil, err
	}

	unspent := make([]*agreement.Unspent, 0, len(entries))
	for _, e := range entries {
		amount, err := common.ToSatoshi(e.Amount.String())
		if err != nil {
			return nil, common.NewUpstreamError(err, "bad amount for %s:%d", e.TxID, e.Vout)
		}
		unspent = append(unspent, &agreement.Unspent{
			TxID:         e.TxID,
			Vout:         e.Vout,
			Address:      e.Address,
			ScriptPubKey: e.ScriptPubKey,
			Amount:       amount.String(),
		})
	}
	return unspent, nil
}

func (r *RpcClient) CreateRawTransaction(unspent []*agreement.Unspent, vouts map[string]*big.Int) (string, error) {
	return r.assembler.CreateRawTransaction(unspent, vouts)
}

func (r *RpcClient) VerifyRawTransaction(unspent []*agreement.Unspent, vouts map[string]*big.Int, rawTx string) error {
	return r.assembler.VerifyRawTransaction(unspent, vouts, rawTx)
}

// SignRawTransaction adds this wallet's signatures to rawTx.
func (r *RpcClient) SignRawTransaction(rawTx string) (string, error) {
	var res struct {
		Hex      string `json:"hex"`
		Complete bool   `json:"complete"`
	}
	if err := r.call("signrawtransaction", &res, rawTx); err != nil {
		return "", err
	}
	return res.Hex, nil
}

// Send raw transaction to dingo network.
func (r *RpcClient) SendRawTransaction(rawTx string) (string, error) {
	var txid string
	if err := r.call("sendrawtransaction", &txid, rawTx); err != nil {
		return "", err
	}
	return txid, nil
}

// Get the latest block height.
func (r *RpcClient) GetBlockCount() (int64, error) {
	count, err := r.client.GetBlockCount()
	if err != nil {
		return 0, common.NewUpstreamError(err, "dingo rpc getblockcount failed")
	}
	return count, nil
}

func (r *RpcClient) GetBlockHash(height int64) (string, error) {
	hash, err := r.client.GetBlockHash(height)
	if err != nil {
		return "", common.NewUpstreamError(err, "dingo rpc getblockhash failed")
	}
	return hash.String(), nil
}

func (r *RpcClient) GetClientVersion() (string, error) {
	var info struct {
		Version json.Number `json:"version"`
	}
	if err := r.call("getinfo", &info); err != nil {
		return "", err
	}
	return info.Version.String(), nil
}
