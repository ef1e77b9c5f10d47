package state

import (
	"database/sql"
	"math/big"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
	"github.com/dingocoin/wdingocoin-bridge/common"
)

type sqlMintDepositAddress struct {
	MintAddress    string
	DepositAddress string
	RedeemScript   string
	ApprovedAmount string
	ApprovedTax    string
}

func (s *sqlMintDepositAddress) encode(m *agreement.MintDepositAddress) *sqlMintDepositAddress {
	s = &sqlMintDepositAddress{
		MintAddress:    m.MintAddress,
		DepositAddress: m.DepositAddress,
		RedeemScript:   m.RedeemScript,
		ApprovedAmount: zeroIfNil(m.ApprovedAmount).String(),
		ApprovedTax:    zeroIfNil(m.ApprovedTax).String(),
	}
	return s
}

func (s *sqlMintDepositAddress) decode() (*agreement.MintDepositAddress, error) {
	approvedAmount, err := common.ParseAmount(s.ApprovedAmount)
	if err != nil {
		return nil, (&StateDBError{}).CorruptedAmount("mintDepositAddresses", s.MintAddress, "approvedAmount", s.ApprovedAmount)
	}
	approvedTax, err := common.ParseAmount(s.ApprovedTax)
	if err != nil {
		return nil, (&StateDBError{}).CorruptedAmount("mintDepositAddresses", s.MintAddress, "approvedTax", s.ApprovedTax)
	}
	return &agreement.MintDepositAddress{
		MintAddress:    s.MintAddress,
		DepositAddress: s.DepositAddress,
		RedeemScript:   s.RedeemScript,
		ApprovedAmount: approvedAmount,
		ApprovedTax:    approvedTax,
	}, nil
}

func (st *StateDB) HasUsedDepositAddresses(addresses []string) (bool, error) {
	if len(addresses) == 0 {
		return false, nil
	}

	query := `SELECT COUNT(*) FROM usedDepositAddresses WHERE address = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	for _, a := range addresses {
		var count int
		if err := stmt.QueryRow(a).Scan(&count); err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (st *StateDB) RegisterUsedDepositAddresses(addresses []string) error {
	if len(addresses) == 0 {
		return ErrEmptyAddressList
	}
	return st.withTx(func(tx *sql.Tx) error {
		return st.registerUsedDepositAddresses(tx, addresses)
	})
}

func (st *StateDB) registerUsedDepositAddresses(tx *sql.Tx, addresses []string) error {
	stmt, err := st.txStmt(tx, `INSERT INTO usedDepositAddresses (address) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range addresses {
		if _, err := stmt.Exec(a); err != nil {
			if isConstraintViolation(err) {
				return (&StateDBError{}).DepositAddressAlreadyUsed()
			}
			return err
		}
	}
	return nil
}

// RegisterMintDepositAddress marks usedAddresses as consumed and inserts
// the row in one transaction.
func (st *StateDB) RegisterMintDepositAddress(row *agreement.MintDepositAddress, usedAddresses []string) error {
	if row == nil {
		return ErrNilRow
	}
	if len(usedAddresses) == 0 {
		return ErrEmptyAddressList
	}

	s := (&sqlMintDepositAddress{}).encode(row)
	return st.withTx(func(tx *sql.Tx) error {
		if err := st.registerUsedDepositAddresses(tx, usedAddresses); err != nil {
			return err
		}

		stmt, err := st.txStmt(tx, `INSERT INTO mintDepositAddresses (`+mintDepositAddressParamList+`) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		if _, err := stmt.Exec(s.MintAddress, s.DepositAddress, s.RedeemScript, s.ApprovedAmount, s.ApprovedTax); err != nil {
			if isConstraintViolation(err) {
				return (&StateDBError{}).MintAddressAlreadyRegistered(s.MintAddress)
			}
			return err
		}
		return nil
	})
}

// GetMintDepositAddress returns (nil, false, nil) if mintAddress is unknown.
func (st *StateDB) GetMintDepositAddress(mintAddress string) (*agreement.MintDepositAddress, bool, error) {
	query := `SELECT` + mintDepositAddressParamList + `FROM mintDepositAddresses WHERE mintAddress = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	s := &sqlMintDepositAddress{}
	err = stmt.QueryRow(mintAddress).Scan(&s.MintAddress, &s.DepositAddress, &s.RedeemScript, &s.ApprovedAmount, &s.ApprovedTax)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	m, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (st *StateDB) GetMintDepositAddresses(depositAddresses []string) ([]*agreement.MintDepositAddress, error) {
	query := `SELECT` + mintDepositAddressParamList + `FROM mintDepositAddresses ORDER BY rowid`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	var filter map[string]struct{}
	if depositAddresses != nil {
		filter = make(map[string]struct{}, len(depositAddresses))
		for _, a := range depositAddresses {
			filter[a] = struct{}{}
		}
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*agreement.MintDepositAddress{}
	for rows.Next() {
		s := &sqlMintDepositAddress{}
		if err := rows.Scan(&s.MintAddress, &s.DepositAddress, &s.RedeemScript, &s.ApprovedAmount, &s.ApprovedTax); err != nil {
			return nil, err
		}
		if filter != nil {
			if _, ok := filter[s.DepositAddress]; !ok {
				continue
			}
		}
		m, err := s.decode()
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// UpdateMintDepositAddresses persists the approved counters of rows,
// keyed by deposit address, all or nothing.
func (st *StateDB) UpdateMintDepositAddresses(rows []*agreement.MintDepositAddress) error {
	return st.withTx(func(tx *sql.Tx) error {
		return st.updateMintDepositAddresses(tx, rows)
	})
}

func (st *StateDB) updateMintDepositAddresses(tx *sql.Tx, rows []*agreement.MintDepositAddress) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := st.txStmt(tx, `UPDATE mintDepositAddresses SET approvedAmount = ?, approvedTax = ? WHERE depositAddress = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range rows {
		if m == nil {
			return ErrNilRow
		}
		s := (&sqlMintDepositAddress{}).encode(m)
		res, err := stmt.Exec(s.ApprovedAmount, s.ApprovedTax, s.DepositAddress)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return (&StateDBError{}).RowNotUpdated("mintDepositAddresses", s.DepositAddress)
		}
	}
	return nil
}

func zeroIfNil(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	return x
}
