package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raketrapport/raket/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "raket",
		Short:   "Swedish annual report and INK2 tax engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./raket.yaml when present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	flags.StringVar(&opts.envFile, "env-file", ".env", "file of KEY=value environment overrides")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newReportCommand(opts),
		newRecalcCommand(opts),
		newAuditCommand(opts),
		newRulesCommand(opts),
		newConfigCommand(),
	)

	return rootCmd
}
