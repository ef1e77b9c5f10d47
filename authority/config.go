package authority

import (
	"fmt"
	"time"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/ledger"
	"github.com/dingocoin/wdingocoin-bridge/multisig"
)

const DefaultStatsTTL = 10 * time.Minute

type Config struct {
	// Federation. The position of a node in AuthorityNodes is its role.
	AuthorityNodes     []*agreement.AuthorityNode
	AuthorityThreshold int
	PayoutCoordinator  int

	// Dingocoin side
	Network              string
	SyncDelayThreshold   int64
	DepositConfirmations int64
	ChangeConfirmations  int64
	ChangeAddress        string
	TaxPayoutAddresses   []string

	// Aptos side, reported by stats only
	Aptos *agreement.AptosSettings

	// Nil means ledger.DefaultParams.
	Params *ledger.Params
	// Zero means DefaultStatsTTL.
	StatsTTL time.Duration
}

func (cfg *Config) Validate() error {
	n := len(cfg.AuthorityNodes)
	if n == 0 {
		return fmt.Errorf("no authority nodes configured")
	}
	for i, a := range cfg.AuthorityNodes {
		if a == nil || !multisig.IsValidAddress(a.WalletAddress) {
			return fmt.Errorf("authority node %d has an invalid wallet address", i)
		}
	}
	if cfg.AuthorityThreshold < 1 || cfg.AuthorityThreshold > n {
		return fmt.Errorf("authority threshold %d out of range [1, %d]", cfg.AuthorityThreshold, n)
	}
	if cfg.PayoutCoordinator < 0 || cfg.PayoutCoordinator >= n {
		return fmt.Errorf("payout coordinator %d out of range [0, %d)", cfg.PayoutCoordinator, n)
	}
	if cfg.SyncDelayThreshold < 0 || cfg.DepositConfirmations < 0 || cfg.ChangeConfirmations < 0 {
		return fmt.Errorf("negative confirmation setting")
	}
	if cfg.ChangeAddress == "" {
		return fmt.Errorf("change address not configured")
	}
	if len(cfg.TaxPayoutAddresses) == 0 {
		return fmt.Errorf("tax payout addresses not configured")
	}
	return nil
}

func (cfg *Config) walletAddresses() []string {
	addrs := make([]string, len(cfg.AuthorityNodes))
	for i, a := range cfg.AuthorityNodes {
		addrs[i] = a.WalletAddress
	}
	return addrs
}

func (cfg *Config) coordinator() string {
	return cfg.AuthorityNodes[cfg.PayoutCoordinator].WalletAddress
}
