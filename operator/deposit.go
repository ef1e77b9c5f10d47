package operator

import (
	"context"
	"strings"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

// CreateMintDepositAddress collects one fresh key from every node, has
// every node register the combined address and checks they agree on it.
func (o *Operator) CreateMintDepositAddress(ctx context.Context, mintAddress string) (string, error) {
	o.printf("Requesting new individual deposit addresses from nodes...\n")
	responses := make([]*envelope.SignedMessage, len(o.clients))
	failed := false
	for i, c := range o.clients {
		o.printf("  %s -> ", o.label(i))
		msg, err := c.GenerateDepositAddress(ctx, mintAddress)
		resp := &agreement.GenerateDepositAddressResponse{}
		if err == nil {
			err = o.open(i, msg, resp)
		}
		if err != nil {
			failed = true
			o.printf("Error: %v\n", err)
			continue
		}
		responses[i] = msg
		o.printf("pubKey: %s\n", resp.DepositAddress)
	}
	if failed {
		return "", common.NewUpstreamError(errIncomplete, "failed to collect new individual deposit addresses from all nodes")
	}

	o.printf("Registering new multisig deposit address with nodes...\n")
	addresses := make([]string, len(o.clients))
	for i, c := range o.clients {
		o.printf("  %s -> ", o.label(i))
		msg, err := c.RegisterMintDepositAddress(ctx, responses)
		resp := &agreement.DepositAddressResponse{}
		if err == nil {
			err = o.open(i, msg, resp)
		}
		if err != nil {
			failed = true
			o.printf("Error: %v\n", err)
			continue
		}
		addresses[i] = resp.DepositAddress
		o.printf("multisigDepositAddress: %s\n", resp.DepositAddress)
	}
	if failed {
		return "", common.NewUpstreamError(errIncomplete, "failed to register the multisig deposit address with all nodes")
	}
	for _, a := range addresses {
		if a != addresses[0] {
			return "", common.NewConsensusError("Consensus failure on multisig deposit address")
		}
	}
	o.printf("Multisig deposit address: %s\n", addresses[0])
	return addresses[0], nil
}

// QueryMintBalance asks every node; unreachable nodes leave a nil entry.
func (o *Operator) QueryMintBalance(ctx context.Context, mintAddress string) []*agreement.QueryMintBalanceResponse {
	results := make([]*agreement.QueryMintBalanceResponse, len(o.clients))
	for i, c := range o.clients {
		o.printf("  %s -> ", o.label(i))
		msg, err := c.QueryMintBalance(ctx, mintAddress)
		resp := &agreement.QueryMintBalanceResponse{}
		if err == nil {
			err = o.open(i, msg, resp)
		}
		if err != nil {
			o.printf("Error: %v\n", err)
			continue
		}
		results[i] = resp
		o.printf("approvedAmount: %s, depositedAmount: %s, unconfirmedAmount: %s, depositAddress: %s\n",
			satoshiString(resp.ApprovedAmount), satoshiString(resp.DepositedAmount),
			satoshiString(resp.UnconfirmedAmount), resp.DepositAddress)
	}
	return results
}

// QueryBurnHistory asks every node for the status of the given burns.
func (o *Operator) QueryBurnHistory(ctx context.Context, burnSignatures []string) [][]*agreement.BurnHistoryEntry {
	req := &agreement.BurnHistory{BurnHistory: make([]*agreement.BurnHistoryEntry, len(burnSignatures))}
	for i, s := range burnSignatures {
		req.BurnHistory[i] = &agreement.BurnHistoryEntry{BurnSignature: s}
	}

	results := make([][]*agreement.BurnHistoryEntry, len(o.clients))
	for i, c := range o.clients {
		o.printf("  %s -> ", o.label(i))
		msg, err := c.QueryBurnHistory(ctx, req)
		resp := &agreement.BurnHistory{}
		if err == nil {
			err = o.open(i, msg, resp)
		}
		if err != nil {
			o.printf("Error: %v\n", err)
			continue
		}
		results[i] = resp.BurnHistory
		o.printf("\n")
		for j, e := range resp.BurnHistory {
			status := "null"
			if e.Status != nil {
				status = *e.Status
			}
			o.printf("    index: %d, signature: %s, status: %s\n", j, common.Shorten(e.BurnSignature, 16), status)
		}
	}
	return results
}

// satoshiString renders a base-unit amount in coins, or the raw text if
// it is not an amount.
func satoshiString(s string) string {
	x, err := common.ParseAmount(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return common.FromSatoshi(x)
}
