package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/exocat/internal/source"
	"github.com/leapstack-labs/exocat/internal/watch"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var noSave bool

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Reload a dataset file whenever it changes",
		Long: `Load a dataset file, then reload it each time it is written.

A line is printed for every reload. Each loaded dataset is saved to the
history store unless --no-save is given. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], noSave)
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "Don't record reloads in the history store")

	return cmd
}

func runWatch(cmd *cobra.Command, path string, noSave bool) error {
	if path == source.StdinRef || catalog.IsSampleRef(path) {
		return errors.New("watch needs a file path")
	}

	cc := NewCommandContext(cmd)
	ctx := cmd.Context()
	r := cc.Renderer
	resolver := cc.Resolver(cmd)

	save := func(context.Context, *catalog.Dataset) error { return nil }
	if !noSave {
		st, err := cc.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		save = st.SaveDataset
	}

	report := func(ds *catalog.Dataset) {
		if err := save(ctx, ds); err != nil {
			cc.Logger.Warn("failed to save dataset", "id", ds.ID, "error", err)
		}
		s := ds.Summary()
		r.StatusLine(path, "success", fmt.Sprintf("%s, %d records, %d confirmed", s.Schema, s.Rows, s.Confirmed))
	}

	ds, err := resolver.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	report(ds)

	w := &watch.Watcher{
		Path:    path,
		Load:    resolver.Load,
		Replace: report,
		Logger:  cc.Logger,
	}
	r.Println(r.Muted("Watching " + path + " (Ctrl+C to stop)"))
	return w.Run(ctx)
}
