package aptosman

import (
	"github.com/aptos-labs/aptos-go-sdk"
)

type AptosmanConfig struct {
	// Network is mainnet, testnet, devnet or localnet
	Network string

	// Address the bridge and wdingo modules are published under
	ModuleAddress string

	// Hex ed25519 seed of this authority's mint signing key
	PrivateKey string

	// Hex ed25519 seed of the account that submits mints and pays gas
	FeePayerPrivateKey string

	// Number of burns kept in memory
	BurnCacheSize int
}

const (
	NetworkMainnet  = "mainnet"
	NetworkTestnet  = "testnet"
	NetworkDevnet   = "devnet"
	NetworkLocalnet = "localnet"

	DefaultBurnCacheSize = 1024
)

func GetNetworkConfig(network string) aptos.NetworkConfig {
	switch network {
	case NetworkMainnet:
		return aptos.MainnetConfig
	case NetworkTestnet:
		return aptos.TestnetConfig
	case NetworkLocalnet:
		return aptos.LocalnetConfig
	default:
		return aptos.DevnetConfig
	}
}
