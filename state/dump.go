package state

import (
	"database/sql"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
)

var dumpTables = []struct {
	name   string
	schema string
	params string
}{
	{"usedDepositAddresses", usedDepositAddressesTable, " address "},
	{"mintDepositAddresses", mintDepositAddressesTable, mintDepositAddressParamList},
	{"withdrawals", withdrawalsTable, withdrawalParamList},
}

// Dump renders every table as SQL text that Restore can replay.
func (st *StateDB) Dump() (string, error) {
	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n")
	for _, t := range dumpTables {
		b.WriteString(strings.TrimSpace(t.schema))
		b.WriteString("\n")
		if err := st.dumpTable(&b, t.name, t.params); err != nil {
			return "", err
		}
	}
	b.WriteString("COMMIT;\n")
	return b.String(), nil
}

func (st *StateDB) dumpTable(b *strings.Builder, table, params string) error {
	cols := strings.Split(strings.TrimSpace(params), ", ")
	rows, err := st.db.Query(`SELECT` + params + `FROM ` + table + ` ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		quoted := make([]string, len(vals))
		for i, v := range vals {
			if !v.Valid {
				quoted[i] = "NULL"
				continue
			}
			quoted[i] = quoteLiteral(v.String)
		}
		fmt.Fprintf(b, "INSERT INTO %s (%s) VALUES (%s);\n", table, strings.Join(cols, ", "), strings.Join(quoted, ", "))
	}
	return rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Restore replaces the whole local state with the content of a dump. The
// previous state survives if the dump cannot be replayed.
func (st *StateDB) Restore(dump string) error {
	st.stmtCache.Clear()

	var body []string
	for _, line := range strings.Split(dump, "\n") {
		switch strings.TrimSpace(line) {
		case "BEGIN TRANSACTION;", "COMMIT;", "":
			continue
		}
		body = append(body, line)
	}

	return st.withTx(func(tx *sql.Tx) error {
		for _, t := range dumpTables {
			if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + t.name); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(strings.Join(body, "\n")); err != nil {
			logger.WithError(err).Error("failed to replay dump")
			return err
		}
		// a partial dump still leaves every table in place
		_, err := tx.Exec(usedDepositAddressesTable + mintDepositAddressesTable + withdrawalsTable)
		return err
	})
}
