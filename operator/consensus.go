package operator

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/dingocoin/wdingocoin-bridge/agreement"
)

const unreachable = "UNREACHABLE"

type statsSection struct {
	title   string
	columns []string
	// columns that differ per node by nature and get no verdict
	skip map[int]bool
	row  func(s *agreement.Stats) []string
}

func depositRow(d *agreement.DepositStats) []string {
	if d == nil {
		d = &agreement.DepositStats{}
	}
	return []string{
		fmt.Sprint(d.Count),
		satoshiString(d.TotalDepositedAmount),
		satoshiString(d.TotalApprovableAmount),
		satoshiString(d.TotalApprovedAmount),
		satoshiString(d.RemainingApprovableAmount),
		satoshiString(d.TotalApprovableTax),
		satoshiString(d.TotalApprovedTax),
		satoshiString(d.RemainingApprovableTax),
	}
}

func utxoRow(u *agreement.UtxoStats) []string {
	if u == nil {
		u = &agreement.UtxoStats{}
	}
	return []string{satoshiString(u.TotalChangeBalance), satoshiString(u.TotalDepositsBalance)}
}

var depositColumns = []string{
	"Count", "Deposited", "Approvable", "Approved", "Remaining",
	"Approvable Tax", "Approved Tax", "Remaining Tax",
}

var statsSections = []statsSection{
	{
		title:   "Version",
		columns: []string{"Version", "Revision", "Time", "Modified", "Dingo"},
		row: func(s *agreement.Stats) []string {
			v := s.Version
			if v == nil {
				v = &agreement.VersionInfo{}
			}
			return []string{v.Version, v.Revision, v.Time, fmt.Sprint(v.Modified), v.DingoVersion}
		},
	},
	{
		title:   "Public Settings",
		columns: []string{"Authority Nodes", "Threshold", "Payout Coordinator", "Wallet"},
		skip:    map[int]bool{3: true},
		row: func(s *agreement.Stats) []string {
			p := s.PublicSettings
			if p == nil {
				p = &agreement.PublicSettings{}
			}
			nodes := make([]string, len(p.AuthorityNodes))
			for i, n := range p.AuthorityNodes {
				nodes[i] = n.String()
			}
			return []string{strings.Join(nodes, " "), fmt.Sprint(p.AuthorityThreshold), fmt.Sprint(p.PayoutCoordinator), p.WalletAddress}
		},
	},
	{
		title:   "Dingo Settings",
		columns: []string{"Network", "Sync Delay", "Deposit Conf.", "Change Conf.", "Change Address", "Tax Addresses"},
		row: func(s *agreement.Stats) []string {
			d := s.DingoSettings
			if d == nil {
				d = &agreement.DingoSettings{}
			}
			return []string{
				d.Network,
				fmt.Sprint(d.SyncDelayThreshold),
				fmt.Sprint(d.DepositConfirmations),
				fmt.Sprint(d.ChangeConfirmations),
				d.ChangeAddress,
				strings.Join(d.TaxPayoutAddresses, " "),
			}
		},
	},
	{
		title:   "Aptos Settings",
		columns: []string{"Network", "Module", "Mint Authority"},
		row: func(s *agreement.Stats) []string {
			a := s.AptosSettings
			if a == nil {
				a = &agreement.AptosSettings{}
			}
			return []string{a.Network, a.ModuleAddress, a.MintAuthority}
		},
	},
	{
		title:   "Confirmed Deposits",
		columns: depositColumns,
		row:     func(s *agreement.Stats) []string { return depositRow(s.ConfirmedDeposits) },
	},
	{
		title:   "Unconfirmed Deposits",
		columns: depositColumns,
		row:     func(s *agreement.Stats) []string { return depositRow(s.UnconfirmedDeposits) },
	},
	{
		title: "Withdrawals",
		columns: []string{
			"Count", "Burned", "Approvable", "Approved",
			"Approvable Tax", "Approved Tax", "Remaining", "Remaining Tax",
		},
		row: func(s *agreement.Stats) []string {
			w := s.Withdrawals
			if w == nil {
				w = &agreement.WithdrawalStats{}
			}
			return []string{
				fmt.Sprint(w.Count),
				satoshiString(w.TotalBurnedAmount),
				satoshiString(w.TotalApprovableAmount),
				satoshiString(w.TotalApprovedAmount),
				satoshiString(w.TotalApprovableTax),
				satoshiString(w.TotalApprovedTax),
				satoshiString(w.RemainingApprovableAmount),
				satoshiString(w.RemainingApprovableTax),
			}
		},
	},
	{
		title:   "Confirmed UTXOs",
		columns: []string{"Change", "Deposits"},
		row:     func(s *agreement.Stats) []string { return utxoRow(s.ConfirmedUtxos) },
	},
	{
		title:   "Unconfirmed UTXOs",
		columns: []string{"Change", "Deposits"},
		row:     func(s *agreement.Stats) []string { return utxoRow(s.UnconfirmedUtxos) },
	},
}

// Verdicts returns, per column, "YES" when every reachable node reports
// the same value and "NO" otherwise. Skipped columns are left empty.
func Verdicts(rows [][]string, width int, skip map[int]bool) []string {
	out := make([]string, width)
	for col := 0; col < width; col++ {
		if skip[col] {
			continue
		}
		out[col] = "YES"
		first := ""
		seen := false
		for _, r := range rows {
			if r == nil {
				continue
			}
			if !seen {
				first, seen = r[col], true
				continue
			}
			if r[col] != first {
				out[col] = "NO"
				break
			}
		}
	}
	return out
}

// Consensus fetches every node's stats and prints one table per section
// with a footer telling whether the nodes agree. It returns the rendered
// report.
func (o *Operator) Consensus(ctx context.Context) (string, error) {
	stats := make([]*agreement.Stats, len(o.clients))
	for i, c := range o.clients {
		msg, err := c.Stats(ctx)
		s := &agreement.Stats{}
		if err == nil {
			err = o.open(i, msg, s)
		}
		if err != nil {
			o.printf("%s -> Error: %v\n", o.label(i), err)
			continue
		}
		stats[i] = s
	}

	var b strings.Builder
	for _, section := range statsSections {
		fmt.Fprintf(&b, "\n%s\n", section.title)
		table := tablewriter.NewWriter(&b)
		table.SetHeader(append([]string{"Node"}, section.columns...))
		table.SetAutoWrapText(false)

		rows := make([][]string, len(stats))
		for i, s := range stats {
			if s == nil {
				cells := make([]string, len(section.columns))
				for j := range cells {
					cells[j] = unreachable
				}
				table.Append(append([]string{fmt.Sprint(i)}, cells...))
				continue
			}
			rows[i] = section.row(s)
			table.Append(append([]string{fmt.Sprint(i)}, rows[i]...))
		}
		table.SetFooter(append([]string{"Consensus"}, Verdicts(rows, len(section.columns), section.skip)...))
		table.Render()
	}
	report := b.String()
	o.printf("%s", report)
	return report, nil
}
