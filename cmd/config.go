package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
)

const (
	ENV_CONFIG_FILE_PATH = "AUTHORITY_CONFIG"

	defaultErrorLogPath = "log.txt"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type AuthorityServerConfig struct {
	// public side, identical on every authority
	AuthorityNodes     []*agreement.AuthorityNode
	AuthorityThreshold int
	PayoutCoordinator  int
	Port               string // port this authority listens on

	// dingo side
	DingoNetwork         string // mainnet, testnet or regtest
	DingoRpcHost         string
	DingoRpcPort         string
	DingoRpcUser         string
	DingoRpcPassword     string
	SyncDelayThreshold   int64
	DepositConfirmations int64
	ChangeConfirmations  int64
	ChangeAddress        string
	TaxPayoutAddresses   []string

	// aptos side
	AptosNetwork            string
	AptosModuleAddress      string
	AptosPrivateKey         string // mint signing key
	AptosFeePayerPrivateKey string // pays for finalized mints
	AptosBurnCacheSize      int

	// identity
	IdentityPrivateKey string // hex secp256k1

	// state side
	DbFilePath string

	// http side
	CertPath     string
	KeyPath      string
	ErrorLogPath string
	RateLimit    bool
	LogLevel     string
}

func InitializeViper(filePath string) error {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading configuration file %s: %w", filePath, err)
	}
	return nil
}

// PrepareAuthorityServerConfig reads the loaded configuration file.
func PrepareAuthorityServerConfig() (*AuthorityServerConfig, error) {
	nodes := []*agreement.AuthorityNode{}
	if err := viper.UnmarshalKey("public.authorityNodes", &nodes); err != nil {
		return nil, fmt.Errorf("invalid public.authorityNodes: %w", err)
	}

	viper.SetDefault("dingo.network", "mainnet")
	viper.SetDefault("aptos.network", "mainnet")
	viper.SetDefault("server.errorLogPath", defaultErrorLogPath)
	viper.SetDefault("server.rateLimit", true)

	return &AuthorityServerConfig{
		AuthorityNodes:     nodes,
		AuthorityThreshold: viper.GetInt("public.authorityThreshold"),
		PayoutCoordinator:  viper.GetInt("public.payoutCoordinator"),
		Port:               viper.GetString("public.port"),

		DingoNetwork:         viper.GetString("dingo.network"),
		DingoRpcHost:         viper.GetString("dingo.rpcHost"),
		DingoRpcPort:         viper.GetString("dingo.rpcPort"),
		DingoRpcUser:         viper.GetString("dingo.rpcUser"),
		DingoRpcPassword:     viper.GetString("dingo.rpcPassword"),
		SyncDelayThreshold:   viper.GetInt64("dingo.syncDelayThreshold"),
		DepositConfirmations: viper.GetInt64("dingo.depositConfirmations"),
		ChangeConfirmations:  viper.GetInt64("dingo.changeConfirmations"),
		ChangeAddress:        viper.GetString("dingo.changeAddress"),
		TaxPayoutAddresses:   viper.GetStringSlice("dingo.taxPayoutAddresses"),

		AptosNetwork:            viper.GetString("aptos.network"),
		AptosModuleAddress:      viper.GetString("aptos.moduleAddress"),
		AptosPrivateKey:         viper.GetString("aptos.privateKey"),
		AptosFeePayerPrivateKey: viper.GetString("aptos.feePayerPrivateKey"),
		AptosBurnCacheSize:      viper.GetInt("aptos.burnCacheSize"),

		IdentityPrivateKey: viper.GetString("identity.privateKey"),

		DbFilePath: viper.GetString("database.databasePath"),

		CertPath:     viper.GetString("ssl.certPath"),
		KeyPath:      viper.GetString("ssl.keyPath"),
		ErrorLogPath: viper.GetString("server.errorLogPath"),
		RateLimit:    viper.GetBool("server.rateLimit"),
		LogLevel:     viper.GetString("server.logLevel"),
	}, nil
}
