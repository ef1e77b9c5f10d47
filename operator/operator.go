// Package operator drives the federation rounds from one authority's
// seat: it collects signed answers from every node, checks who signed
// them and only moves on when every node agreed.
package operator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/client"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

var errIncomplete = errors.New("not every node answered")

type Config struct {
	AuthorityNodes     []*agreement.AuthorityNode
	SyncDelayThreshold int64
	UseTLS             bool
}

// Chain is the operator's own view of the source chain.
type Chain interface {
	envelope.ChainAnchor
	SendRawTransaction(rawTx string) (string, error)
}

type Finalizer interface {
	FinalizeMintAndSend(receiver string, amount *big.Int, signatures []string) (string, error)
}

type Restorer interface {
	Restore(dump string) error
}

type Operator struct {
	nodes   []*agreement.AuthorityNode
	clients []*client.HttpClient
	env     *envelope.Envelope
	dingo   Chain
	dest    Finalizer
	storage Restorer
	out     io.Writer
}

// New returns an operator signing with signer. dest and storage may be
// nil when minting or database sync are not needed.
func New(cfg *Config, signer envelope.Signer, dingo Chain, dest Finalizer, storage Restorer, out io.Writer) *Operator {
	clients := make([]*client.HttpClient, len(cfg.AuthorityNodes))
	for i, node := range cfg.AuthorityNodes {
		clients[i] = client.NewHttpClient(node, cfg.UseTLS)
	}
	return &Operator{
		nodes:   cfg.AuthorityNodes,
		clients: clients,
		env:     envelope.New(signer, dingo, cfg.SyncDelayThreshold),
		dingo:   dingo,
		dest:    dest,
		storage: storage,
		out:     out,
	}
}

func (o *Operator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

func (o *Operator) label(i int) string {
	return fmt.Sprintf("Node %d at %s (%s)", i, o.nodes[i].Hostname, o.nodes[i].WalletAddress)
}

// open checks that node i signed msg and decodes its payload into v.
func (o *Operator) open(i int, msg *envelope.SignedMessage, v any) error {
	data, err := o.env.ValidateSignedMessage(msg, o.nodes[i].WalletAddress, true)
	if err != nil {
		return err
	}
	return envelope.Decode(data, v)
}

func (o *Operator) request(payload any) (*envelope.SignedMessage, error) {
	return o.env.CreateSignedAndTimedMessage(payload)
}

func (o *Operator) node(index int) (*client.HttpClient, error) {
	if index < 0 || index >= len(o.clients) {
		return nil, common.NewValidationError("node index %d out of range [0, %d)", index, len(o.clients))
	}
	return o.clients[index], nil
}

// Ping reports which nodes answer with a valid signature.
func (o *Operator) Ping(ctx context.Context) []error {
	errs := make([]error, len(o.clients))
	for i, c := range o.clients {
		o.printf("  %s -> ", o.label(i))
		msg, err := c.Ping(ctx)
		if err == nil {
			err = o.open(i, msg, &agreement.PingResponse{})
		}
		if err != nil {
			errs[i] = err
			o.printf("Error: %v\n", err)
			continue
		}
		o.printf("OK\n")
	}
	return errs
}
