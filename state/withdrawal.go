package state

import (
	"database/sql"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

type sqlWithdrawal struct {
	BurnSignature   string
	BurnAmount      string
	BurnDestination string
	ApprovedAmount  string
	ApprovedTax     string
}

func (s *sqlWithdrawal) encode(w *agreement.Withdrawal) *sqlWithdrawal {
	return &sqlWithdrawal{
		BurnSignature:   w.BurnSignature,
		BurnAmount:      zeroIfNil(w.BurnAmount).String(),
		BurnDestination: w.BurnDestination,
		ApprovedAmount:  zeroIfNil(w.ApprovedAmount).String(),
		ApprovedTax:     zeroIfNil(w.ApprovedTax).String(),
	}
}

func (s *sqlWithdrawal) decode() (*agreement.Withdrawal, error) {
	e := &StateDBError{}
	burnAmount, err := common.ParseAmount(s.BurnAmount)
	if err != nil {
		return nil, e.CorruptedAmount("withdrawals", s.BurnSignature, "burnAmount", s.BurnAmount)
	}
	approvedAmount, err := common.ParseAmount(s.ApprovedAmount)
	if err != nil {
		return nil, e.CorruptedAmount("withdrawals", s.BurnSignature, "approvedAmount", s.ApprovedAmount)
	}
	approvedTax, err := common.ParseAmount(s.ApprovedTax)
	if err != nil {
		return nil, e.CorruptedAmount("withdrawals", s.BurnSignature, "approvedTax", s.ApprovedTax)
	}
	return &agreement.Withdrawal{
		BurnSignature:   s.BurnSignature,
		BurnAmount:      burnAmount,
		BurnDestination: s.BurnDestination,
		ApprovedAmount:  approvedAmount,
		ApprovedTax:     approvedTax,
	}, nil
}

func (s *sqlWithdrawal) scan(row interface{ Scan(...any) error }) error {
	return row.Scan(&s.BurnSignature, &s.BurnAmount, &s.BurnDestination, &s.ApprovedAmount, &s.ApprovedTax)
}

func (st *StateDB) RegisterWithdrawal(w *agreement.Withdrawal) error {
	if w == nil {
		return ErrNilRow
	}

	query := `INSERT INTO withdrawals (` + withdrawalParamList + `) VALUES (?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	s := (&sqlWithdrawal{}).encode(w)
	if _, err := stmt.Exec(s.BurnSignature, s.BurnAmount, s.BurnDestination, s.ApprovedAmount, s.ApprovedTax); err != nil {
		if isConstraintViolation(err) {
			return (&StateDBError{}).WithdrawalAlreadySubmitted(s.BurnSignature)
		}
		return err
	}
	return nil
}

func (st *StateDB) GetWithdrawal(burnSignature string) (*agreement.Withdrawal, bool, error) {
	query := `SELECT` + withdrawalParamList + `FROM withdrawals WHERE burnSignature = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	s := &sqlWithdrawal{}
	if err := s.scan(stmt.QueryRow(burnSignature)); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	w, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return w, true, nil
}

func (st *StateDB) GetWithdrawals() ([]*agreement.Withdrawal, error) {
	return st.queryWithdrawals(`SELECT` + withdrawalParamList + `FROM withdrawals ORDER BY rowid`)
}

// GetUnapprovedWithdrawals returns the withdrawals never paid out, in
// submission order.
func (st *StateDB) GetUnapprovedWithdrawals() ([]*agreement.Withdrawal, error) {
	return st.queryWithdrawals(`SELECT` + withdrawalParamList + `FROM withdrawals WHERE approvedTax = '0' ORDER BY rowid`)
}

func (st *StateDB) queryWithdrawals(query string) ([]*agreement.Withdrawal, error) {
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*agreement.Withdrawal{}
	for rows.Next() {
		s := &sqlWithdrawal{}
		if err := s.scan(rows); err != nil {
			return nil, err
		}
		w, err := s.decode()
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (st *StateDB) UpdateWithdrawals(ws []*agreement.Withdrawal) error {
	return st.withTx(func(tx *sql.Tx) error {
		return st.updateWithdrawals(tx, ws)
	})
}

func (st *StateDB) updateWithdrawals(tx *sql.Tx, ws []*agreement.Withdrawal) error {
	if len(ws) == 0 {
		return nil
	}
	stmt, err := st.txStmt(tx, `UPDATE withdrawals SET approvedAmount = ?, approvedTax = ? WHERE burnSignature = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range ws {
		if w == nil {
			return ErrNilRow
		}
		s := (&sqlWithdrawal{}).encode(w)
		res, err := stmt.Exec(s.ApprovedAmount, s.ApprovedTax, s.BurnSignature)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return (&StateDBError{}).RowNotUpdated("withdrawals", s.BurnSignature)
		}
	}
	return nil
}

// ApplyPayouts commits the counter updates of an approved payout round.
// Either every row is updated or none is.
func (st *StateDB) ApplyPayouts(deposits []*agreement.MintDepositAddress, withdrawals []*agreement.Withdrawal) error {
	return st.withTx(func(tx *sql.Tx) error {
		if err := st.updateMintDepositAddresses(tx, deposits); err != nil {
			return err
		}
		return st.updateWithdrawals(tx, withdrawals)
	})
}
