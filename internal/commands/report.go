package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/raketrapport/raket/internal/accounts"
	"github.com/raketrapport/raket/internal/importer"
	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/presentation"
	"github.com/raketrapport/raket/internal/report"
)

func newReportCommand(opts *globalOptions) *cobra.Command {
	var (
		format   string
		showAll  bool
		asJSON   bool
		balances string
	)

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Build the annual report from an SE or CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			ledger, err := importer.DefaultRegistry().ParseFile(args[0], format)
			if err != nil {
				return err
			}
			rep, err := e.reports().Build(cmd.Context(), ledger)
			if err != nil {
				return err
			}
			if balances != "" {
				if err := accounts.Save(balances, ledger); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return printReport(out, rep, showAll)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "input format: se or csv (default from the file extension)")
	cmd.Flags().BoolVar(&showAll, "show-all", false, "show rows without amounts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().StringVar(&balances, "export-balances", "", "also write the parsed balances to this CSV file")

	return cmd
}

func printReport(w io.Writer, rep *report.Report, showAll bool) error {
	if rep.Company.Name != "" {
		fmt.Fprintf(w, "%s (%s), räkenskapsår %d\n\n", rep.Company.Name, rep.Company.OrgNumber, rep.Company.FiscalYear)
	}
	sections := []struct {
		title string
		rows  []presentation.Row
	}{
		{"Resultaträkning", presentation.Filter(rep.RR, showAll)},
		{"Balansräkning", presentation.Filter(rep.BR, showAll)},
		{"Skatteberäkning", presentation.FilterTax(rep.INK2, showAll)},
	}
	for _, s := range sections {
		if err := presentation.Render(w, s.title, s.rows); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	printTaxAccounts(w, rep.Accounts)
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "varning: %s: %s\n", warn.Code, warn.Message)
	}
	return nil
}

// taxAccounts are the accounts the tax flow reads outside the rule tables.
var taxAccounts = []int{accounts.PensionPremiums, accounts.PensionPayrollTax, accounts.IncomeTax}

func printTaxAccounts(w io.Writer, balances model.Balances) {
	printed := false
	for _, acct := range taxAccounts {
		v := balances.Get(acct)
		if v.IsZero() {
			continue
		}
		if !printed {
			fmt.Fprintln(w, "Skattekonton")
			printed = true
		}
		fmt.Fprintf(w, "  %d %s: %s\n", acct, accounts.Names[acct],
			presentation.FormatAmount(decimal.NewNullDecimal(v), model.BalanceDebit))
	}
	if printed {
		fmt.Fprintln(w)
	}
}
