package authority

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
)

// statsCache keeps the last aggregate until it is ttl old.
type statsCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	stats *agreement.Stats
	at    time.Time
}

func buildVersion(dingo agreement.SourceChain) (*agreement.VersionInfo, error) {
	v := &agreement.VersionInfo{}
	if info, ok := debug.ReadBuildInfo(); ok {
		v.Module = info.Main.Path
		v.Version = info.Main.Version
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				v.Revision = s.Value
			case "vcs.time":
				v.Time = s.Value
			case "vcs.modified":
				v.Modified = s.Value == "true"
			}
		}
	}
	dingoVersion, err := dingo.GetClientVersion()
	if err != nil {
		return nil, common.NewUpstreamError(err, "failed to get dingo client version")
	}
	v.DingoVersion = dingoVersion
	return v, nil
}

// Stats returns the cached aggregate, rebuilding it once it expires.
func (n *Node) Stats() (*envelope.SignedMessage, error) {
	n.stats.mu.Lock()
	defer n.stats.mu.Unlock()

	now := n.now()
	if n.stats.stats == nil || now.Sub(n.stats.at) >= n.stats.ttl {
		stats, err := n.computeStats(now)
		if err != nil {
			return nil, err
		}
		n.stats.stats = stats
		n.stats.at = now
	}
	return n.signed(n.stats.stats)
}

func (n *Node) computeStats(now time.Time) (*agreement.Stats, error) {
	stats := &agreement.Stats{
		Version: n.version,
		Time:    now.UnixMilli(),
		PublicSettings: &agreement.PublicSettings{
			AuthorityNodes:     n.cfg.AuthorityNodes,
			AuthorityThreshold: n.cfg.AuthorityThreshold,
			PayoutCoordinator:  n.cfg.PayoutCoordinator,
			WalletAddress:      n.env.Address(),
		},
		DingoSettings: &agreement.DingoSettings{
			Network:              n.cfg.Network,
			SyncDelayThreshold:   n.cfg.SyncDelayThreshold,
			DepositConfirmations: n.cfg.DepositConfirmations,
			ChangeConfirmations:  n.cfg.ChangeConfirmations,
			ChangeAddress:        n.cfg.ChangeAddress,
			TaxPayoutAddresses:   n.cfg.TaxPayoutAddresses,
		},
		AptosSettings: n.cfg.Aptos,
	}

	rows, err := n.storage.GetMintDepositAddresses(nil)
	if err != nil {
		return nil, err
	}
	depositAddresses := make([]string, len(rows))
	for i, row := range rows {
		depositAddresses[i] = row.DepositAddress
	}

	confirmed, err := n.received(n.cfg.DepositConfirmations)
	if err != nil {
		return nil, err
	}
	stats.ConfirmedDeposits = ledger.ComputeDepositStats(confirmed, rows)
	all, err := n.received(0)
	if err != nil {
		return nil, err
	}
	stats.UnconfirmedDeposits = ledger.ComputeDepositStats(all, rows)

	withdrawals, err := n.storage.GetWithdrawals()
	if err != nil {
		return nil, err
	}
	stats.Withdrawals = ledger.ComputeWithdrawalStats(withdrawals)

	utxos := func(changeConfirmations, depositConfirmations int64) (*agreement.UtxoStats, error) {
		change, err := n.dingo.ListUnspent(changeConfirmations, []string{n.cfg.ChangeAddress})
		if err != nil {
			return nil, common.NewUpstreamError(err, "failed to list change outputs")
		}
		deposits, err := n.dingo.ListUnspent(depositConfirmations, depositAddresses)
		if err != nil {
			return nil, common.NewUpstreamError(err, "failed to list deposit outputs")
		}
		return ledger.ComputeUtxoStats(change, deposits)
	}
	if stats.ConfirmedUtxos, err = utxos(n.cfg.ChangeConfirmations, n.cfg.DepositConfirmations); err != nil {
		return nil, err
	}
	if stats.UnconfirmedUtxos, err = utxos(0, 0); err != nil {
		return nil, err
	}
	return stats, nil
}
