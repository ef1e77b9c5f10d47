// Package authority is one federation member: it answers the operator's
// protocol rounds, re-deriving every check from its own chain view and its
// own database before it signs anything.
package authority

import (
	"encoding/json"
	"math/big"
	"sort"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
)

var authErr = &AuthorityError{}

type Node struct {
	cfg     *Config
	params  *ledger.Params
	storage agreement.Storage
	dingo   agreement.SourceChain
	dest    agreement.DestLedger
	env     *envelope.Envelope

	// Held for the whole read-compute-write span of every mutating call.
	mu sync.Mutex

	stats   *statsCache
	version *agreement.VersionInfo
	now     func() time.Time
}

func NewNode(
	cfg *Config,
	signer envelope.Signer,
	storage agreement.Storage,
	dingo agreement.SourceChain,
	dest agreement.DestLedger,
) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, a := range append([]string{cfg.ChangeAddress}, cfg.TaxPayoutAddresses...) {
		if !dingo.ValidateAddress(a) {
			return nil, authErr.InvalidDingoAddress(a)
		}
	}

	params := cfg.Params
	if params == nil {
		params = ledger.DefaultParams()
	}
	ttl := cfg.StatsTTL
	if ttl == 0 {
		ttl = DefaultStatsTTL
	}

	version, err := buildVersion(dingo)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:     cfg,
		params:  params,
		storage: storage,
		dingo:   dingo,
		dest:    dest,
		env:     envelope.New(signer, dingo, cfg.SyncDelayThreshold),
		stats:   &statsCache{ttl: ttl},
		version: version,
		now:     time.Now,
	}

	logger.WithFields(logger.Fields{
		"walletAddress": n.env.Address(),
		"authorities":   len(cfg.AuthorityNodes),
		"threshold":     cfg.AuthorityThreshold,
		"coordinator":   cfg.PayoutCoordinator,
	}).Info("authority node ready")

	return n, nil
}

func (n *Node) WalletAddress() string {
	return n.env.Address()
}

func (n *Node) signed(payload any) (*envelope.SignedMessage, error) {
	return n.env.CreateSignedAndTimedMessage(payload)
}

// AuthenticateAny accepts a message signed by exactly one authority and
// returns its payload.
func (n *Node) AuthenticateAny(msg *envelope.SignedMessage) (json.RawMessage, error) {
	return n.env.ValidateSignedMessageOne(msg, n.cfg.walletAddresses(), true)
}

func (n *Node) authenticateCoordinator(msg *envelope.SignedMessage) (json.RawMessage, error) {
	return n.env.ValidateSignedMessage(msg, n.cfg.coordinator(), true)
}

func (n *Node) Ping() (*envelope.SignedMessage, error) {
	return n.signed(&agreement.PingResponse{Timestamp: n.now().UnixMilli()})
}

// received returns the totals received per wallet address at the given
// depth. Addresses with nothing received are absent.
func (n *Node) received(confirmations int64) (map[string]*big.Int, error) {
	r, err := n.dingo.ListReceivedByAddress(confirmations)
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to list received amounts")
	}
	return r, nil
}

// fundedDeposits returns the registered rows whose deposit address
// received funds at depositConfirmations, together with those totals.
func (n *Node) fundedDeposits() (map[string]*big.Int, []*agreement.MintDepositAddress, error) {
	received, err := n.received(n.cfg.DepositConfirmations)
	if err != nil {
		return nil, nil, err
	}
	rows, err := n.storage.GetMintDepositAddresses(sortedKeys(received))
	if err != nil {
		return nil, nil, err
	}
	return received, rows, nil
}

func sortedKeys(m map[string]*big.Int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func receivedAt(received map[string]*big.Int, address string) *big.Int {
	if r, ok := received[address]; ok {
		return r
	}
	return big.NewInt(0)
}
