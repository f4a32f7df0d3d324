package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "load <ref>",
		Short: "Load a dataset and print its summary",
		Long: `Load a catalog export, classify its layout and normalize every row.

A reference is one of:
  demo:kepler, demo:tess      embedded fixtures
  public:kepler, public:tess  exports under the data directory
  -                           standard input
  <path>                      a CSV or XLSX file, optionally .gz, .bz2, .xz or .zst

The loaded dataset is saved to the history store unless --no-save is given.`,
		Example: `  # Load an embedded sample
  exocat load demo:kepler

  # Load a compressed export and print the summary as JSON
  exocat load data/kepler_koi.csv.gz -o json

  # Pipe a file in
  cat toi.csv | exocat load -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], noSave)
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "Don't record the dataset in the history store")

	return cmd
}

func runLoad(cmd *cobra.Command, ref string, noSave bool) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	ds, err := cc.Resolver(cmd).Load(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ref, err)
	}
	switch {
	case len(ds.Records) == 0 && len(ds.Header) > 0:
		cc.Renderer.Warning("no data rows; dataset is empty")
	case ds.Schema == catalog.SchemaUnknown && len(ds.Header) > 0:
		cc.Renderer.Warning("header not recognized; fields were matched by common column names")
	}

	if !noSave {
		if err := saveDataset(ctx, cc, ds); err != nil {
			return err
		}
	}

	return renderSummary(cc.Renderer, ds.Summary())
}

func saveDataset(ctx context.Context, cc *CommandContext, ds *catalog.Dataset) error {
	st, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.SaveDataset(ctx, ds); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}
