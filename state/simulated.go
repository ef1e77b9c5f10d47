package state

import (
	"database/sql"
	"math/big"

	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

// NewMemoryStateDB returns a StateDB on a fresh in-memory database.
func NewMemoryStateDB() (*StateDB, error) {
	return NewStateDB(getMemoryDB())
}

func getMemoryDB() *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	// every connection would see its own :memory: database
	db.SetMaxOpenConns(1)
	return db
}

func randMintDepositAddress() *agreement.MintDepositAddress {
	return &agreement.MintDepositAddress{
		MintAddress:    common.ByteSliceToPureHexStr(common.RandBytes(32)),
		DepositAddress: "9" + common.ByteSliceToPureHexStr(common.RandBytes(16)),
		RedeemScript:   common.ByteSliceToPureHexStr(common.RandBytes(71)),
		ApprovedAmount: big.NewInt(0),
		ApprovedTax:    big.NewInt(0),
	}
}

func randWithdrawal(amount int64) *agreement.Withdrawal {
	return &agreement.Withdrawal{
		BurnSignature:   common.ByteSliceToPureHexStr(common.RandBytes(32)),
		BurnAmount:      big.NewInt(amount),
		BurnDestination: "D" + common.ByteSliceToPureHexStr(common.RandBytes(16)),
		ApprovedAmount:  big.NewInt(0),
		ApprovedTax:     big.NewInt(0),
	}
}
