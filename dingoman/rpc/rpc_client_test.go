package rpc

import (
	"encoding/json"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingocoin/wdingocoin-bridge/common"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

// fakeNode answers JSON-RPC calls from a method -> raw result table and
// records the params of every call.
type fakeNode struct {
	results map[string]string
	calls   map[string][]json.RawMessage
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.calls[req.Method] = req.Params

	result, ok := f.results[req.Method]
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.Write([]byte(`{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":` + string(req.ID) + `}`))
		return
	}
	w.Write([]byte(`{"result":` + result + `,"error":null,"id":` + string(req.ID) + `}`))
}

func setupClient(t *testing.T, results map[string]string) (*RpcClient, *fakeNode) {
	node := &fakeNode{results: results, calls: map[string][]json.RawMessage{}}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)

	r, err := NewRpcClient(&RpcClientConfig{
		ServerAddr: host,
		Port:       port,
		Username:   "user",
		Pwd:        "pass",
		Network:    "regtest",
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, node
}

func TestListReceivedByAddress(t *testing.T) {
	r, node := setupClient(t, map[string]string{
		"listreceivedbyaddress": `[
			{"address": "addr0", "amount": 100000.12345678, "confirmations": 10},
			{"address": "addr1", "amount": 0, "confirmations": 0},
			{"address": "addr2", "amount": 0.00000001, "confirmations": 3}
		]`,
	})

	received, err := r.ListReceivedByAddress(5)
	require.NoError(t, err)
	assert.Equal(t, map[string]*big.Int{
		"addr0": common.MustParseAmount("10000012345678"),
		"addr2": big.NewInt(1),
	}, received)
	assert.Equal(t, `5`, string(node.calls["listreceivedbyaddress"][0]))
	assert.Equal(t, `true`, string(node.calls["listreceivedbyaddress"][2]))
}

func TestListUnspent(t *testing.T) {
	r, node := setupClient(t, map[string]string{
		"listunspent": `[{"txid": "ab", "vout": 2, "address": "addr0", "scriptPubKey": "a914", "amount": 12.5}]`,
	})

	unspent, err := r.ListUnspent(3, nil)
	require.NoError(t, err)
	assert.Len(t, unspent, 0)
	assert.NotContains(t, node.calls, "listunspent")

	unspent, err = r.ListUnspent(3, []string{"addr0"})
	require.NoError(t, err)
	require.Len(t, unspent, 1)
	assert.Equal(t, "1250000000", unspent[0].Amount)
	assert.Equal(t, uint32(2), unspent[0].Vout)
	assert.Equal(t, `["addr0"]`, string(node.calls["listunspent"][2]))
}

func TestWalletCalls(t *testing.T) {
	r, node := setupClient(t, map[string]string{
		"getnewaddress":      `"addr0"`,
		"validateaddress":    `{"isvalid": true, "pubkey": "02abcd"}`,
		"importaddress":      `null`,
		"signrawtransaction": `{"hex": "beef", "complete": false}`,
		"sendrawtransaction": `"txid0"`,
		"getinfo":            `{"version": 1160000}`,
		"getblockcount":      `42`,
	})

	pk, err := r.GetNewPubKey()
	require.NoError(t, err)
	assert.Equal(t, "02abcd", pk)
	assert.Equal(t, `"addr0"`, string(node.calls["validateaddress"][0]))

	assert.NoError(t, r.ImportAddress("5221"))
	assert.Equal(t, `false`, string(node.calls["importaddress"][2]))

	signed, err := r.SignRawTransaction("dead")
	require.NoError(t, err)
	assert.Equal(t, "beef", signed)

	txid, err := r.SendRawTransaction("beef")
	require.NoError(t, err)
	assert.Equal(t, "txid0", txid)

	v, err := r.GetClientVersion()
	require.NoError(t, err)
	assert.Equal(t, "1160000", v)

	count, err := r.GetBlockCount()
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	// failures surface as upstream errors
	_, err = r.GetBlockHash(1)
	assert.True(t, common.IsKind(err, common.KindUpstream))
}
