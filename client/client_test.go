package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/server"
)

func nodeOf(t *testing.T, ts *httptest.Server) *agreement.AuthorityNode {
	u := ts.Listener.Addr().(*net.TCPAddr)
	return &agreement.AuthorityNode{Hostname: u.IP.String(), Port: u.Port}
}

func TestPost(t *testing.T) {
	var gotPath, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotPath, gotBody = r.URL.Path, string(b)
		switch r.URL.Path {
		case server.ROUTE_APPROVE_MINT_TEST:
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(&envelope.SignedMessage{Error: "Insufficient mint balance"})
		case server.ROUTE_STATS:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			_ = json.NewEncoder(w).Encode(&envelope.SignedMessage{Data: json.RawMessage(`{"timestamp":1}`), Signature: "ab"})
		}
	}))
	defer ts.Close()

	node := nodeOf(t, ts)
	c := NewHttpClient(node, false)
	assert.Equal(t, "http://"+node.Hostname+":"+strconv.Itoa(node.Port)+"/ping", c.URL(server.ROUTE_PING))
	assert.Equal(t, "https://x:1/ping", NewHttpClient(&agreement.AuthorityNode{Hostname: "x", Port: 1}, true).URL(server.ROUTE_PING))

	msg, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ab", msg.Signature)
	assert.Equal(t, server.ROUTE_PING, gotPath)
	assert.Equal(t, "{}", gotBody)

	_, err = c.GenerateDepositAddress(context.Background(), "0x1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mintAddress":"0x1"}`, gotBody)

	_, err = c.ApproveMint(context.Background(), &envelope.SignedMessage{Data: json.RawMessage(`{}`), Signature: "cd"}, true)
	var rerr *ResponseError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusConflict, rerr.Status)
	assert.Equal(t, "Insufficient mint balance", rerr.Msg)
	assert.Equal(t, server.ROUTE_APPROVE_MINT_TEST, rerr.Route)
	assert.True(t, common.IsKind(err, common.KindUpstream))

	_, err = c.Stats(context.Background())
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "upstream down", rerr.Msg)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	c := NewHttpClient(nodeOf(t, ts), false)
	c.http.Timeout = 50 * time.Millisecond
	_, err := c.Ping(context.Background())
	assert.Error(t, err)
	var rerr *ResponseError
	assert.False(t, errors.As(err, &rerr))
	assert.True(t, common.IsKind(err, common.KindUpstream))
}
