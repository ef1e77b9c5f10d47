package state

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/database"
)

// StateDB is the sqlite-backed ledger state of one authority node.
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	// 1. Create the tables.
	if _, err := db.Exec(usedDepositAddressesTable + mintDepositAddressesTable + withdrawalsTable); err != nil {
		return nil, err
	}

	// 2. A stmt cache + db.
	return &StateDB{
		db:        db,
		stmtCache: database.NewStmtCache(db),
	}, nil
}

// OpenStateDB opens (or creates) the database file at path.
func OpenStateDB(path string) (*StateDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection keeps
	// transactions and :memory: databases coherent.
	db.SetMaxOpenConns(1)

	st, err := NewStateDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.WithField("path", path).Debug("state db opened")
	return st, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

// CloseAll releases the statement cache and the underlying database.
func (st *StateDB) CloseAll() error {
	st.Close()
	return st.db.Close()
}

// withTx runs fn inside a transaction and commits only if fn succeeds.
func (st *StateDB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := st.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Error("failed to rollback")
		}
		return err
	}
	return tx.Commit()
}

// txStmt prepares on the transaction's own connection. Going through the
// stmt cache here could block on a second connection while tx holds the
// only one.
func (st *StateDB) txStmt(tx *sql.Tx, query string) (*sql.Stmt, error) {
	return tx.Prepare(query)
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
