// Package client talks to authority nodes over HTTP. Requests are never
// retried: a failed round is restarted by the operator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/authority"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/server"
)

const DefaultTimeout = 10 * time.Second

// ResponseError is a non-200 answer from a node.
type ResponseError struct {
	Node   string
	Route  string
	Status int
	Msg    string
}

func (e *ResponseError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s%s: Error %d", e.Node, e.Route, e.Status)
	}
	return fmt.Sprintf("%s%s: Error %d: %s", e.Node, e.Route, e.Status, e.Msg)
}

type HttpClient struct {
	node    *agreement.AuthorityNode
	baseURL string
	http    *http.Client
}

func NewHttpClient(node *agreement.AuthorityNode, useTLS bool) *HttpClient {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	return &HttpClient{
		node:    node,
		baseURL: scheme + "://" + node.Hostname + ":" + strconv.Itoa(node.Port),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

func (c *HttpClient) Node() *agreement.AuthorityNode {
	return c.node
}

func (c *HttpClient) URL(route string) string {
	return c.baseURL + route
}

// Post sends body as JSON and decodes a successful answer into out.
func (c *HttpClient) Post(ctx context.Context, route string, body any, out any) error {
	raw := []byte("{}")
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(route), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return common.NewUpstreamError(err, "failed to reach %s", c.URL(route))
	}
	defer resp.Body.Close()

	// Read the response body
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.NewUpstreamError(err, "failed to read response from %s", c.URL(route))
	}
	if resp.StatusCode != http.StatusOK {
		rerr := &ResponseError{Node: c.baseURL, Route: route, Status: resp.StatusCode}
		failure := &envelope.SignedMessage{}
		if json.Unmarshal(payload, failure) == nil && failure.Error != "" {
			rerr.Msg = failure.Error
		} else {
			rerr.Msg = string(payload)
		}
		return common.NewUpstreamError(rerr, "node rejected the request")
	}
	if out == nil {
		return nil
	}
	return common.NewUpstreamError(json.Unmarshal(payload, out), "malformed response from %s", c.URL(route))
}

func (c *HttpClient) signed(ctx context.Context, route string, body any) (*envelope.SignedMessage, error) {
	msg := &envelope.SignedMessage{}
	if err := c.Post(ctx, route, body, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *HttpClient) Ping(ctx context.Context) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_PING, nil)
}

func (c *HttpClient) GenerateDepositAddress(ctx context.Context, mintAddress string) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_GENERATE_DEPOSIT_ADDRESS, &agreement.GenerateDepositAddressRequest{MintAddress: mintAddress})
}

func (c *HttpClient) RegisterMintDepositAddress(ctx context.Context, responses []*envelope.SignedMessage) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_REGISTER_MINT_DEPOSIT_ADDRESS, &authority.RegisterMintDepositAddressRequest{GenerateDepositAddressResponses: responses})
}

func (c *HttpClient) QueryMintBalance(ctx context.Context, mintAddress string) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_QUERY_MINT_BALANCE, &agreement.QueryMintBalanceRequest{MintAddress: mintAddress})
}

func (c *HttpClient) ComputePendingMint(ctx context.Context) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_COMPUTE_PENDING_MINT, nil)
}

func (c *HttpClient) ApproveMint(ctx context.Context, msg *envelope.SignedMessage, test bool) (*envelope.SignedMessage, error) {
	route := server.ROUTE_APPROVE_MINT
	if test {
		route = server.ROUTE_APPROVE_MINT_TEST
	}
	return c.signed(ctx, route, msg)
}

func (c *HttpClient) QueryBurnHistory(ctx context.Context, req *agreement.BurnHistory) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_QUERY_BURN_HISTORY, req)
}

func (c *HttpClient) SubmitWithdrawal(ctx context.Context, claim *agreement.WithdrawalClaim) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_SUBMIT_WITHDRAWAL, &agreement.SubmitWithdrawalRequest{Burn: claim})
}

func (c *HttpClient) ComputePendingPayouts(ctx context.Context, msg *envelope.SignedMessage) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_COMPUTE_PENDING_PAYOUTS, msg)
}

func (c *HttpClient) ComputeUnspent(ctx context.Context, msg *envelope.SignedMessage) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_COMPUTE_UNSPENT, msg)
}

func (c *HttpClient) ApprovePayouts(ctx context.Context, msg *envelope.SignedMessage, test bool) (*envelope.SignedMessage, error) {
	route := server.ROUTE_APPROVE_PAYOUTS
	if test {
		route = server.ROUTE_APPROVE_PAYOUTS_TEST
	}
	return c.signed(ctx, route, msg)
}

func (c *HttpClient) Stats(ctx context.Context) (*envelope.SignedMessage, error) {
	return c.signed(ctx, server.ROUTE_STATS, nil)
}

func (c *HttpClient) DumpDatabase(ctx context.Context, msg *envelope.SignedMessage) (*agreement.DumpDatabaseResponse, error) {
	resp := &agreement.DumpDatabaseResponse{}
	if err := c.Post(ctx, server.ROUTE_DUMP_DATABASE, msg, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HttpClient) Log(ctx context.Context, msg *envelope.SignedMessage) (*agreement.LogResponse, error) {
	resp := &agreement.LogResponse{}
	if err := c.Post(ctx, server.ROUTE_LOG, msg, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HttpClient) Terminate(ctx context.Context, msg *envelope.SignedMessage) error {
	return c.Post(ctx, server.ROUTE_TERMINATE, msg, nil)
}
