package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raketrapport/raket/internal/accounts"
	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/report"
	"github.com/raketrapport/raket/internal/tax"
)

// recalcOutput mirrors the /api/recalculate-ink2 response.
type recalcOutput struct {
	Success    bool                `json:"success"`
	INK2       []model.TaxVariable `json:"ink2_data,omitempty"`
	Warnings   []tax.Warning       `json:"warnings,omitempty"`
	Error      string              `json:"error,omitempty"`
	IncidentID string              `json:"incident_id,omitempty"`
}

func newRecalcCommand(opts *globalOptions) *cobra.Command {
	var session, balances string

	cmd := &cobra.Command{
		Use:   "recalc <request.json>",
		Short: "Recalculate the INK2 tax variables for a saved request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading request: %w", err)
			}
			var req tax.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parsing request: %w", err)
			}
			if balances != "" {
				ledger, err := accounts.Load(balances)
				if err != nil {
					return err
				}
				req.CurrentAccounts = ledger.Current
			}

			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			res, err := e.reports().Recalculate(cmd.Context(), session, req)
			return printRecalc(cmd.OutOrStdout(), res, err)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id recorded in the audit log")
	cmd.Flags().StringVar(&balances, "balances", "", "balances CSV replacing the request's current_accounts")

	return cmd
}

// printRecalc writes the result, or for a fault the failure payload the API
// would send, and passes the error on so the exit status reflects it.
func printRecalc(w io.Writer, res *tax.Result, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err != nil {
		var fault *report.FaultError
		if !errors.As(err, &fault) {
			return err
		}
		if encErr := enc.Encode(recalcOutput{Error: fault.Error(), IncidentID: fault.IncidentID}); encErr != nil {
			return encErr
		}
		return err
	}
	return enc.Encode(recalcOutput{Success: true, INK2: res.Variables, Warnings: res.Warnings})
}
