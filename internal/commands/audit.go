package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/raketrapport/raket/internal/auditlog"
)

func newAuditCommand(opts *globalOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded manual tax inputs and decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Audit.Dir == "" {
				return fmt.Errorf("audit logging is disabled (audit.dir is empty)")
			}
			entries, err := auditlog.Read(cfg.Audit.Dir)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSESSION\tKIND\tVARIABLE\tAMOUNT\tDETAIL")
			for _, e := range entries {
				if session != "" && e.Session != session {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Session, e.Kind, e.Variable, e.Amount, e.Detail)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "only show entries for this session")

	return cmd
}
