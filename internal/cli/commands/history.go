package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List datasets recorded in the history store",
		Long: `List the datasets saved by load, serve and watch, newest first.

Stored datasets can be queried again with 'exocat query --from-store <id>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to list, 0 for all")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryRemoveCommand())

	return cmd
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	st, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	entries, err := st.ListDatasets(ctx, limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if entries == nil {
			entries = []store.Entry{}
		}
		return r.JSON(entries)
	}
	if len(entries) == 0 && r.EffectiveMode() != output.ModeCSV {
		r.Println(r.Muted("No stored datasets."))
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.ID,
			e.Source,
			string(e.Schema),
			strconv.Itoa(e.Rows),
			e.LoadedAt.Local().Format(time.DateTime),
		}
	}
	return r.Table([]string{"id", "source", "schema", "rows", "loaded"}, rows)
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the summary of a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			ds, err := resolveDataset(cmd.Context(), cmd, cc, "", args[0])
			if err != nil {
				return err
			}
			return renderSummary(cc.Renderer, ds.Summary())
		},
	}
}

func newHistoryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a stored dataset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			ctx := cmd.Context()

			st, err := cc.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteDataset(ctx, args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("dataset %s: %w", args[0], err)
				}
				return err
			}
			cc.Renderer.Success("Removed " + args[0])
			return nil
		},
	}
}
