// Server = dingo rpc + aptos ledger + db/state + authority node + http api.
// All components are configured from one configuration file.

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/aptosman"
	"github.com/dingocoin/wdingocoin-bridge/authority"
	dingorpc "github.com/dingocoin/wdingocoin-bridge/dingoman/rpc"
	"github.com/dingocoin/wdingocoin-bridge/logconfig"
	"github.com/dingocoin/wdingocoin-bridge/multisig"
	"github.com/dingocoin/wdingocoin-bridge/server"
	"github.com/dingocoin/wdingocoin-bridge/state"
)

// AuthorityServer holds the objects that consists of the authority server.
type AuthorityServer struct {
	DingoRpcClient *dingorpc.RpcClient
	MyAptosman     *aptosman.Aptosman
	MyStateDb      *state.StateDB
	MyNode         *authority.Node
	MyErrorLog     *logconfig.ErrorLog
	MyHttpServer   *server.HttpServer
}

// AuthorityConfig converts the text configuration into the node's.
func (asc *AuthorityServerConfig) AuthorityConfig(mintAuthority string) *authority.Config {
	return &authority.Config{
		AuthorityNodes:       asc.AuthorityNodes,
		AuthorityThreshold:   asc.AuthorityThreshold,
		PayoutCoordinator:    asc.PayoutCoordinator,
		Network:              asc.DingoNetwork,
		SyncDelayThreshold:   asc.SyncDelayThreshold,
		DepositConfirmations: asc.DepositConfirmations,
		ChangeConfirmations:  asc.ChangeConfirmations,
		ChangeAddress:        asc.ChangeAddress,
		TaxPayoutAddresses:   asc.TaxPayoutAddresses,
		Aptos: &agreement.AptosSettings{
			Network:       asc.AptosNetwork,
			ModuleAddress: asc.AptosModuleAddress,
			MintAuthority: mintAuthority,
		},
	}
}

// NewAuthorityServer connects to both chains, opens the database and
// builds the node and its http api. Nothing is served yet.
func NewAuthorityServer(asc *AuthorityServerConfig, onTerminate func(message string)) (*AuthorityServer, error) {
	wallet, err := multisig.NewLocalSchnorrWalletFromHex(asc.IdentityPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid identity private key: %w", err)
	}
	logger.WithField("walletAddress", wallet.Address()).Info("authority identity")

	// 0) connect to dingo network
	myDingoRpcClient, err := SetupDingoRpc(asc)
	if err != nil {
		return nil, err
	}

	// 1) connect to aptos network
	myAptosman, err := SetupAptosman(asc)
	if err != nil {
		myDingoRpcClient.Close()
		return nil, err
	}

	// 2) state db
	myStateDb, err := OpenStateDB(asc.DbFilePath)
	if err != nil {
		myDingoRpcClient.Close()
		return nil, err
	}

	// 3) the authority itself
	node, err := authority.NewNode(
		asc.AuthorityConfig(hex.EncodeToString(myAptosman.PublicKey())),
		wallet,
		myStateDb,
		myDingoRpcClient,
		myAptosman,
	)
	if err != nil {
		myDingoRpcClient.Close()
		myStateDb.CloseAll()
		return nil, err
	}

	// 4) http api
	errLog := logconfig.NewErrorLog(asc.ErrorLogPath)
	httpServer := server.NewHttpServer(&server.Config{
		ServerIP:   "0.0.0.0",
		ServerPort: asc.Port,
		CertPath:   asc.CertPath,
		KeyPath:    asc.KeyPath,
		RateLimit:  asc.RateLimit,
	}, node, errLog, onTerminate)

	return &AuthorityServer{
		DingoRpcClient: myDingoRpcClient,
		MyAptosman:     myAptosman,
		MyStateDb:      myStateDb,
		MyNode:         node,
		MyErrorLog:     errLog,
		MyHttpServer:   httpServer,
	}, nil
}

// Close releases everything NewAuthorityServer opened.
func (as *AuthorityServer) Close() {
	as.DingoRpcClient.Close()
	if err := as.MyStateDb.CloseAll(); err != nil {
		logger.WithError(err).Error("failed to close state db")
	}
	if err := as.MyErrorLog.Close(); err != nil {
		logger.WithError(err).Error("failed to close error log")
	}
}

// Create, then start the authority server and wait.
// Press Ctrl-C, or send a signed terminate request, to stop the server.
func StartAuthorityServerAndWait(asc *AuthorityServerConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Printf("Received signal: %v, cancelling context...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	as, err := NewAuthorityServer(asc, func(message string) {
		logger.WithField("message", message).Warn("terminating on request")
		cancel()
	})
	if err != nil {
		return err
	}
	defer as.Close()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := as.MyHttpServer.Run(); err != nil {
			errCh <- err
			cancel()
		}
	}()

	<-ctx.Done()
	if err := as.MyHttpServer.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Error("failed to shut down http server")
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
