package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raketrapport/raket/internal/rules"
	"github.com/raketrapport/raket/internal/storage/postgres"
)

func newRulesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage rule tables",
	}
	cmd.AddCommand(
		newRulesValidateCommand(opts),
		newRulesExportCommand(opts),
		newRulesImportCommand(opts),
	)
	return cmd
}

func newRulesValidateCommand(opts *globalOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile and cross-check the configured rule tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat *rules.Catalog
			if file != "" {
				doc, err := rules.LoadFile(file)
				if err != nil {
					return err
				}
				if cat, err = rules.LoadCatalog(cmd.Context(), doc); err != nil {
					return err
				}
			} else {
				e, err := opts.open(cmd.Context())
				if err != nil {
					return err
				}
				defer e.close()
				cat = e.catalog
			}

			for _, name := range rules.Tables {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", name, cat.Table(name).Len())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rule tables OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "validate a rules YAML file instead of the configured source")

	return cmd
}

func newRulesExportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the configured rule tables and rates as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := rules.SaveFile(args[0], e.catalog.Export()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote rules to %s\n", args[0])
			return nil
		},
	}
}

func newRulesImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Validate a rules YAML file and store it in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := rules.LoadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := rules.LoadCatalog(ctx, doc); err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("database.url is not configured")
			}
			store, err := postgres.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			if err := store.Import(ctx, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into Postgres\n", args[0])
			return nil
		},
	}
}
