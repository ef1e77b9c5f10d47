package cmd

import (
	"fmt"
	"io"

	"github.com/dingocoin/wdingocoin-bridge/multisig"
	"github.com/dingocoin/wdingocoin-bridge/operator"
)

type OperatorOptions struct {
	UseTLS bool

	// Connect to the aptos ledger, needed to finalize mints.
	WithAptos bool
	// Open the local database, needed to sync it.
	WithDatabase bool
}

// NewOperator builds an operator seated at this authority. The returned
// func releases what was opened.
func NewOperator(asc *AuthorityServerConfig, opts *OperatorOptions, out io.Writer) (*operator.Operator, func(), error) {
	wallet, err := multisig.NewLocalSchnorrWalletFromHex(asc.IdentityPrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid identity private key: %w", err)
	}

	dingo, err := SetupDingoRpc(asc)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){dingo.Close}
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var dest operator.Finalizer
	if opts.WithAptos {
		aptman, err := SetupAptosman(asc)
		if err != nil {
			release()
			return nil, nil, err
		}
		dest = aptman
	}

	var storage operator.Restorer
	if opts.WithDatabase {
		st, err := OpenStateDB(asc.DbFilePath)
		if err != nil {
			release()
			return nil, nil, err
		}
		closers = append(closers, func() { st.CloseAll() })
		storage = st
	}

	op := operator.New(&operator.Config{
		AuthorityNodes:     asc.AuthorityNodes,
		SyncDelayThreshold: asc.SyncDelayThreshold,
		UseTLS:             opts.UseTLS,
	}, wallet, dingo, dest, storage, out)
	return op, release, nil
}
