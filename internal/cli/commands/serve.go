package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/leapstack-labs/exocat/internal/live"
	"github.com/leapstack-labs/exocat/internal/server"
	"github.com/leapstack-labs/exocat/internal/source"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr  string
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve [ref]",
		Short: "Serve the catalog over HTTP",
		Long: `Start an HTTP server exposing the active dataset.

The server starts with ref, or with the latest stored dataset when ref is
omitted. Datasets uploaded or selected over HTTP replace the active one and are
saved to the history store. With --watch, a file reference is reloaded
whenever it changes on disk.

Endpoints:
  GET  /healthz
  GET  /api/dataset                summary of the active dataset
  POST /api/dataset                upload a CSV/XLSX body or multipart "file"
  POST /api/dataset/sample/{name}  switch to a sample
  GET  /api/records                filtered, sorted, paged records
  POST /api/sort/{key}             toggle the session's sort
  GET  /api/events                 dataset summaries as server-sent events`,
		Example: `  # Serve a sample on the default address
  exocat serve demo:kepler

  # Reload an export whenever it is rewritten
  exocat serve data/kepler_koi.csv --watch --addr :8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			return runServe(cmd, ref, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload the dataset file when it changes")

	return cmd
}

func runServe(cmd *cobra.Command, ref string, opts *ServeOptions) error {
	if opts.Watch && (ref == "" || ref == source.StdinRef || catalog.IsSampleRef(ref)) {
		return errors.New("--watch needs a file reference")
	}

	cc := NewCommandContext(cmd)
	ctx := cmd.Context()
	cfg := cc.Cfg

	st, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	resolver := cc.Resolver(cmd)
	initial, err := initialDataset(ctx, resolver, st, ref)
	if err != nil {
		return err
	}

	addr := cfg.Serve.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	secret := cfg.Serve.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		cc.Renderer.Warning("serve.session_secret is not set; sessions will not survive a restart")
	}

	srvCfg := server.Config{
		Addr:          addr,
		Catalog:       live.New(initial, nil, cc.Logger),
		Resolver:      resolver,
		Store:         st,
		SessionSecret: secret,
		MaxConns:      cfg.Serve.MaxConns,
		Logger:        cc.Logger,
	}
	if opts.Watch {
		srvCfg.WatchPath = ref
	}

	r := cc.Renderer
	if initial != nil {
		r.StatusLine(initial.Source, "success", fmt.Sprintf("%d records", len(initial.Records)))
	}
	r.Printf("Serving on http://%s\n", addr)
	r.Println(r.Muted("Press Ctrl+C to stop"))

	return server.New(srvCfg).Serve(ctx)
}

// initialDataset loads ref, or falls back to the latest stored dataset. An
// empty store starts the server with no dataset.
func initialDataset(ctx context.Context, resolver *source.Resolver, st *store.Store, ref string) (*catalog.Dataset, error) {
	if ref != "" {
		ds, err := resolver.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ref, err)
		}
		if err := st.SaveDataset(ctx, ds); err != nil {
			return nil, fmt.Errorf("failed to save dataset: %w", err)
		}
		return ds, nil
	}

	ds, err := st.LatestDataset(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return ds, err
}
