package commands

import (
	"fmt"

	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/internal/sink"
	"github.com/spf13/cobra"

	// Register the built-in sinks.
	_ "github.com/leapstack-labs/exocat/internal/sink/duckdb"
	_ "github.com/leapstack-labs/exocat/internal/sink/postgres"
)

// PublishOptions holds options for the publish command.
type PublishOptions struct {
	Target    string
	Table     string
	Path      string
	FromStore string
}

// NewPublishCommand creates the publish command.
func NewPublishCommand() *cobra.Command {
	opts := &PublishOptions{}

	cmd := &cobra.Command{
		Use:   "publish [ref]",
		Short: "Write a dataset's records into a database table",
		Long: `Publish normalized records into a DuckDB file or a PostgreSQL database.

The target table is created when missing and its rows are replaced in a single
transaction. Connection settings come from the publish section of exocat.yaml;
--target, --path and --table override them.`,
		Example: `  # Publish a sample into the default DuckDB file
  exocat publish demo:kepler

  # Publish the latest stored dataset into Postgres
  exocat publish --from-store latest --target postgres --table public.planets`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			return runPublish(cmd, ref, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", "Sink type (duckdb|postgres)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Destination table")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Database file for file-backed sinks")
	cmd.Flags().StringVar(&opts.FromStore, "from-store", "", "Publish a stored dataset by ID, or \"latest\"")

	_ = cmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return sink.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runPublish(cmd *cobra.Command, ref string, opts *PublishOptions) error {
	if ref != "" && opts.FromStore != "" {
		return fmt.Errorf("give either a reference or --from-store, not both")
	}

	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	sinkCfg := cc.Cfg.Publish.Config
	if opts.Target != "" {
		sinkCfg.Type = opts.Target
	}
	if opts.Path != "" {
		sinkCfg.Path = opts.Path
	}
	table := cc.Cfg.Publish.Table
	if opts.Table != "" {
		table = opts.Table
	}
	if err := sink.ValidateTableName(table); err != nil {
		return err
	}

	s, err := sink.New(sinkCfg, cc.Logger)
	if err != nil {
		return err
	}

	ds, err := resolveDataset(ctx, cmd, cc, ref, opts.FromStore)
	if err != nil {
		return err
	}

	if err := s.Connect(ctx, sinkCfg); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", sinkCfg.Type, err)
	}
	defer func() { _ = s.Close() }()

	n, err := s.Publish(ctx, table, ds.Records)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", sinkCfg.Type, err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"dataset": ds.ID,
			"sink":    sinkCfg.Type,
			"table":   table,
			"rows":    n,
		})
	}
	r.Success(fmt.Sprintf("Published %d records from %s to %s table %s", n, ds.Source, sinkCfg.Type, table))
	return nil
}
