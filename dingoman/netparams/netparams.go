// Package netparams holds the chain parameters of the Dingocoin networks.
// The params are never registered with chaincfg: addresses are always
// decoded against an explicit *chaincfg.Params.
package netparams

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	MainNet = "mainnet"
	TestNet = "testnet"
	RegTest = "regtest"
)

var MainNetParams = chaincfg.Params{
	Name:             "dingo-mainnet",
	DefaultPort:      "33117",
	PubKeyHashAddrID: 0x1e, // D
	ScriptHashAddrID: 0x16, // A or 9
	PrivateKeyID:     0x9e,
	HDCoinType:       3,
}

var TestNetParams = chaincfg.Params{
	Name:             "dingo-testnet",
	DefaultPort:      "44117",
	PubKeyHashAddrID: 113,
	ScriptHashAddrID: 196,
	PrivateKeyID:     241,
	HDCoinType:       1,
}

var RegTestParams = chaincfg.Params{
	Name:             "dingo-regtest",
	DefaultPort:      "18444",
	PubKeyHashAddrID: 111,
	ScriptHashAddrID: 196,
	PrivateKeyID:     239,
	HDCoinType:       1,
}

func FromNetwork(network string) (*chaincfg.Params, error) {
	switch network {
	case MainNet, "":
		return &MainNetParams, nil
	case TestNet:
		return &TestNetParams, nil
	case RegTest:
		return &RegTestParams, nil
	default:
		return nil, fmt.Errorf("unknown dingo network: %s", network)
	}
}

// DecodeAddress accepts only P2PKH and P2SH addresses of net.
func DecodeAddress(address string, net *chaincfg.Params) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(address, net)
	if err != nil {
		return nil, err
	}
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash, *btcutil.AddressScriptHash:
	default:
		return nil, fmt.Errorf("unsupported address type: %s", address)
	}
	if !addr.IsForNet(net) {
		return nil, fmt.Errorf("address %s is not for %s", address, net.Name)
	}
	return addr, nil
}

func IsValidAddress(address string, net *chaincfg.Params) bool {
	_, err := DecodeAddress(address, net)
	return err == nil
}
