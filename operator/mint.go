package operator

import (
	"context"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

// IntersectPendingMint keeps the mints every node reports, each at the
// smallest amount any node would approve. The order of the first list is
// kept.
func IntersectPendingMint(lists [][]*agreement.PendingMint) []*agreement.PendingMint {
	if len(lists) == 0 {
		return []*agreement.PendingMint{}
	}
	result := lists[0]
	for _, other := range lists[1:] {
		next := []*agreement.PendingMint{}
		for _, x := range result {
			for _, y := range other {
				if x.MintAddress != y.MintAddress || x.DepositAddress != y.DepositAddress {
					continue
				}
				amount := x.MintAmount
				if lessAmount(y.MintAmount, x.MintAmount) {
					amount = y.MintAmount
				}
				next = append(next, &agreement.PendingMint{
					MintAddress:    x.MintAddress,
					DepositAddress: x.DepositAddress,
					MintAmount:     amount,
				})
				break
			}
		}
		result = next
	}
	return result
}

func lessAmount(a, b string) bool {
	x, errA := common.ParseAmount(a)
	y, errB := common.ParseAmount(b)
	if errA != nil || errB != nil {
		return false
	}
	return x.Cmp(y) < 0
}

// ExecuteMint mints the first pending mint all nodes agree on. A test
// run stops after every node passed the test round. It returns the
// destination-ledger transaction, or "" when nothing was minted.
func (o *Operator) ExecuteMint(ctx context.Context, test bool) (string, error) {
	o.printf("Retrieving pending mint...\n")
	lists := make([][]*agreement.PendingMint, len(o.clients))
	for i, c := range o.clients {
		o.printf("  Requesting pending mint from %s...\n", o.label(i))
		msg, err := c.ComputePendingMint(ctx)
		if err != nil {
			return "", err
		}
		resp := &agreement.PendingMintResponse{}
		if err := o.open(i, msg, resp); err != nil {
			return "", err
		}
		for _, m := range resp.PendingMint {
			o.printf("    %s -> %s\n", m.MintAddress, satoshiString(m.MintAmount))
		}
		lists[i] = resp.PendingMint
	}

	mints := IntersectPendingMint(lists)
	o.printf("Pending mint consensus =\n")
	for _, m := range mints {
		o.printf("    %s -> %s\n", m.MintAddress, satoshiString(m.MintAmount))
	}
	if len(mints) == 0 {
		o.printf("Nothing to mint.\n")
		return "", nil
	}
	mint := mints[0]
	amount, err := common.ParseAmount(mint.MintAmount)
	if err != nil {
		return "", common.NewValidationError("invalid mint amount %q", mint.MintAmount)
	}
	o.printf("Minting: %s -> %s\n", mint.MintAddress, satoshiString(mint.MintAmount))

	o.printf("Running test...\n")
	if _, err := o.approveMint(ctx, mint, true); err != nil {
		return "", err
	}
	if test {
		return "", nil
	}

	o.printf("Executing...\n")
	signatures, err := o.approveMint(ctx, mint, false)
	if err != nil {
		return "", err
	}
	if o.dest == nil {
		return "", common.NewValidationError("no destination ledger configured")
	}
	o.printf("  Sending finalized transaction...\n")
	tx, err := o.dest.FinalizeMintAndSend(mint.MintAddress, amount, signatures)
	if err != nil {
		return "", common.NewUpstreamError(err, "failed to finalize mint")
	}
	o.printf("  Success! Transaction signature: %s\n", tx)
	return tx, nil
}

func (o *Operator) approveMint(ctx context.Context, mint *agreement.PendingMint, test bool) ([]string, error) {
	signatures := []string{}
	for i, c := range o.clients {
		o.printf("  Requesting approval from %s...\n", o.label(i))
		req, err := o.request(&agreement.ApproveMintRequest{Mint: mint})
		if err != nil {
			return nil, err
		}
		msg, err := c.ApproveMint(ctx, req, test)
		if err != nil {
			return nil, err
		}
		resp := &agreement.ApproveMintResponse{}
		if err := o.open(i, msg, resp); err != nil {
			return nil, err
		}
		if resp.Signature != nil {
			signatures = append(signatures, *resp.Signature)
		}
		o.printf("    -> Success!\n")
	}
	return signatures, nil
}
