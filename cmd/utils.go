package cmd

import (
	"database/sql"
	"os"

	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/aptosman"
	dingorpc "github.com/dingocoin/wdingocoin-bridge/dingoman/rpc"
	"github.com/dingocoin/wdingocoin-bridge/state"
)

// fileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

// Shared Helper function. Create a dingo rpc client.
func SetupDingoRpc(cfg *AuthorityServerConfig) (*dingorpc.RpcClient, error) {
	r, err := dingorpc.NewRpcClient(&dingorpc.RpcClientConfig{
		ServerAddr: cfg.DingoRpcHost,
		Port:       cfg.DingoRpcPort,
		Username:   cfg.DingoRpcUser,
		Pwd:        cfg.DingoRpcPassword,
		Network:    cfg.DingoNetwork,
	})
	if err != nil {
		logger.Errorf("failed to create dingo rpc client: %v", err)
		return nil, err
	}
	return r, nil
}

// Shared Helper function. Connect to the aptos ledger.
func SetupAptosman(cfg *AuthorityServerConfig) (*aptosman.Aptosman, error) {
	aptman, err := aptosman.NewAptosman(&aptosman.AptosmanConfig{
		Network:            cfg.AptosNetwork,
		ModuleAddress:      cfg.AptosModuleAddress,
		PrivateKey:         cfg.AptosPrivateKey,
		FeePayerPrivateKey: cfg.AptosFeePayerPrivateKey,
		BurnCacheSize:      cfg.AptosBurnCacheSize,
	})
	if err != nil {
		logger.Errorf("failed to create aptosman: %v", err)
		return nil, err
	}
	return aptman, nil
}

// Shared Helper function. Open the sqlite file holding the bridge state.
func OpenStateDB(dbFilePath string) (*state.StateDB, error) {
	sqldb, err := sql.Open("sqlite3", dbFilePath)
	if err != nil {
		logger.Errorf("failed to open db file: %v", err)
		return nil, err
	}

	st, err := state.NewStateDB(sqldb)
	if err != nil {
		logger.Errorf("failed to create state db: %v", err)
		sqldb.Close()
		return nil, err
	}
	return st, nil
}
