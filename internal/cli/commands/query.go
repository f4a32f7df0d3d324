package commands

import (
	"context"
	"errors"
	"fmt"

	starctx "github.com/leapstack-labs/exocat/internal/starlark"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
	"github.com/spf13/cobra"
)

// latestRef selects the most recent dataset in the history store.
const latestRef = "latest"

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Search    string
	Confirmed bool
	RadiusMin string
	RadiusMax string
	PeriodMin string
	PeriodMax string
	Sort      string
	Desc      bool
	Where     string
	Limit     int
	Offset    int
	FromStore string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [ref]",
		Short: "Filter and sort a dataset",
		Long: `Filter and sort the records of a dataset.

The dataset is loaded from ref, or taken from the history store with
--from-store. Without either, the most recently stored dataset is used.

Range bounds are inclusive and either may be omitted. Records without a value
never match a bounded range. --where takes a Starlark expression over the
fields mission, id, name, host, disposition, confirmed, period, radius and snr;
absent numbers are None.`,
		Example: `  # Confirmed planets smaller than two Earth radii
  exocat query demo:kepler --confirmed --radius-max 2

  # Longest periods first
  exocat query data/tess_toi.csv --sort period --desc --limit 10

  # Starlark filter over the latest stored dataset
  exocat query --where 'known(snr) and snr > 20'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			return runQuery(cmd, ref, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Case-insensitive text search over name, id, host, mission and disposition")
	cmd.Flags().BoolVar(&opts.Confirmed, "confirmed", false, "Only confirmed planets")
	cmd.Flags().StringVar(&opts.RadiusMin, "radius-min", "", "Minimum radius in Earth radii")
	cmd.Flags().StringVar(&opts.RadiusMax, "radius-max", "", "Maximum radius in Earth radii")
	cmd.Flags().StringVar(&opts.PeriodMin, "period-min", "", "Minimum orbital period in days")
	cmd.Flags().StringVar(&opts.PeriodMax, "period-max", "", "Maximum orbital period in days")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort key (mission|id|name|host|disposition|period|radius|snr)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&opts.Where, "where", "", "Starlark filter expression")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum records to print, 0 for all (default from config)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Records to skip")
	cmd.Flags().StringVar(&opts.FromStore, "from-store", "", "Query a stored dataset by ID, or \"latest\"")

	_ = cmd.RegisterFlagCompletionFunc("sort", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		keys := make([]string, len(catalog.Fields))
		for i, f := range catalog.Fields {
			keys[i] = string(f)
		}
		return keys, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// buildState turns flag values into a query State.
func buildState(opts *QueryOptions) (query.State, error) {
	st := query.Default().
		WithSearch(opts.Search).
		WithConfirmedOnly(opts.Confirmed)

	radius, err := query.ParseRange(opts.RadiusMin, opts.RadiusMax)
	if err != nil {
		return query.State{}, fmt.Errorf("radius %w", err)
	}
	period, err := query.ParseRange(opts.PeriodMin, opts.PeriodMax)
	if err != nil {
		return query.State{}, fmt.Errorf("period %w", err)
	}
	st = st.WithRadius(radius).WithPeriod(period)

	order := query.DefaultSort
	if opts.Sort != "" {
		key, err := catalog.ParseField(opts.Sort)
		if err != nil {
			return query.State{}, err
		}
		order.Key = key
	}
	if opts.Desc {
		order.Dir = query.Desc
	}
	return st.WithSort(order), nil
}

func runQuery(cmd *cobra.Command, ref string, opts *QueryOptions) error {
	if ref != "" && opts.FromStore != "" {
		return errors.New("give either a reference or --from-store, not both")
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return errors.New("--limit and --offset must not be negative")
	}

	st, err := buildState(opts)
	if err != nil {
		return err
	}

	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	var extra []query.Predicate
	var filter *starctx.Filter
	if opts.Where != "" {
		filter, err = starctx.Compile(opts.Where, cc.Logger)
		if err != nil {
			return err
		}
		extra = append(extra, filter.Predicate())
	}

	ds, err := resolveDataset(ctx, cmd, cc, ref, opts.FromStore)
	if err != nil {
		return err
	}

	limit := opts.Limit
	if !cmd.Flags().Changed("limit") {
		limit = cc.Cfg.Query.Limit
	}

	matched := query.ApplyWith(ds.Records, st, extra...)
	res := recordsResult{
		State:   st.Describe(),
		Total:   len(matched),
		Records: query.Page(matched, opts.Offset, limit),
	}
	if filter != nil {
		res.Where = filter.String()
		res.WhereErrors = filter.Errors()
		if res.WhereErrors > 0 {
			cc.Renderer.Warning(fmt.Sprintf("where expression failed on %d record(s); they were excluded", res.WhereErrors))
		}
	}

	cc.Logger.Debug("query applied", "dataset", ds.ID, "state", res.State, "matched", res.Total)
	return renderRecords(cc.Renderer, res)
}

// resolveDataset loads ref, or reads fromStore ("latest" or an ID) from the
// history store. With neither, the latest stored dataset is used.
func resolveDataset(ctx context.Context, cmd *cobra.Command, cc *CommandContext, ref, fromStore string) (*catalog.Dataset, error) {
	if ref != "" {
		ds, err := cc.Resolver(cmd).Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ref, err)
		}
		return ds, nil
	}

	st, err := cc.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	var ds *catalog.Dataset
	if fromStore == "" || fromStore == latestRef {
		ds, err = st.LatestDataset(ctx)
	} else {
		ds, err = st.GetDataset(ctx, fromStore)
	}
	if errors.Is(err, store.ErrNotFound) {
		if fromStore == "" || fromStore == latestRef {
			return nil, errors.New("no stored datasets; run 'exocat load <ref>' first")
		}
		return nil, fmt.Errorf("dataset %s: %w", fromStore, err)
	}
	if err != nil {
		return nil, err
	}
	return ds, nil
}
