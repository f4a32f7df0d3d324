package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/internal/source"
	starctx "github.com/leapstack-labs/exocat/internal/starlark"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "exocat> "
	replHistory    = "repl_history"
	unboundedToken = "_"
)

// Shell is the interactive query session. Every command rebuilds State as a
// new value; the loaded dataset is only ever replaced as a whole.
type Shell struct {
	State    query.State
	Where    *starctx.Filter
	Dataset  *catalog.Dataset
	Resolver *source.Resolver
	Renderer *output.Renderer
	// Limit is the default row count for show.
	Limit int
	// Save records each loaded dataset. Optional.
	Save   func(context.Context, *catalog.Dataset) error
	Logger *slog.Logger
}

// NewShell creates a shell with the default state.
func NewShell(resolver *source.Resolver, r *output.Renderer, limit int) *Shell {
	return &Shell{
		State:    query.Default(),
		Resolver: resolver,
		Renderer: r,
		Limit:    limit,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

// Exec runs one input line and reports whether the session should end.
// Command errors are printed to the renderer's error writer.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(name) {
	case ".quit", ".exit":
		return true
	case ".help":
		printShellHelp(s.Renderer.Writer())
	case "load":
		err = s.load(ctx, rest)
	case "search":
		s.State = s.State.WithSearch(rest)
	case "confirmed":
		err = s.confirmed(rest)
	case "radius":
		err = s.rangeCommand(rest, query.State.WithRadius)
	case "period":
		err = s.rangeCommand(rest, query.State.WithPeriod)
	case "sort":
		err = s.sort(rest)
	case "where":
		err = s.where(rest)
	case "show":
		err = s.show(rest)
	case "state":
		s.printState()
	case "reset":
		s.State = query.Default()
		s.Where = nil
		s.Renderer.Println(s.Renderer.Muted("state reset"))
	default:
		err = fmt.Errorf("unknown command %q (type .help for commands)", name)
	}

	if err != nil {
		_, _ = fmt.Fprintf(s.Renderer.ErrWriter(), "Error: %v\n", err)
	}
	return false
}

func (s *Shell) load(ctx context.Context, ref string) error {
	if ref == "" {
		return errors.New("usage: load <ref>")
	}
	ds, err := s.Resolver.Load(ctx, ref)
	if err != nil {
		return err
	}
	if s.Save != nil {
		if err := s.Save(ctx, ds); err != nil {
			return fmt.Errorf("failed to save dataset: %w", err)
		}
	}
	s.Dataset = ds
	sum := ds.Summary()
	s.Renderer.StatusLine(ds.Source, "success",
		fmt.Sprintf("%s, %d records, %d confirmed", sum.Schema, sum.Rows, sum.Confirmed))
	return nil
}

func (s *Shell) confirmed(arg string) error {
	switch strings.ToLower(arg) {
	case "":
		s.State = s.State.WithConfirmedOnly(!s.State.ConfirmedOnly)
	case "on", "true", "yes":
		s.State = s.State.WithConfirmedOnly(true)
	case "off", "false", "no":
		s.State = s.State.WithConfirmedOnly(false)
	default:
		return fmt.Errorf("usage: confirmed [on|off]")
	}
	return nil
}

// rangeCommand handles "radius" and "period": no arguments clears the range,
// otherwise both bounds are required and "_" leaves one open.
func (s *Shell) rangeCommand(arg string, with func(query.State, query.Range) query.State) error {
	fields := strings.Fields(arg)
	switch len(fields) {
	case 0:
		s.State = with(s.State, query.Range{})
		return nil
	case 2:
	default:
		return errors.New("usage: <radius|period> <min> <max> (use _ for no bound)")
	}

	bound := func(t string) string {
		if t == unboundedToken {
			return ""
		}
		return t
	}
	rng, err := query.ParseRange(bound(fields[0]), bound(fields[1]))
	if err != nil {
		return err
	}
	s.State = with(s.State, rng)
	return nil
}

func (s *Shell) sort(arg string) error {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return errors.New("usage: sort <key> [asc|desc]")
	}
	key, err := catalog.ParseField(fields[0])
	if err != nil {
		return err
	}
	if len(fields) == 1 {
		s.State = s.State.ToggleSort(key)
		return nil
	}
	dir, err := query.ParseDirection(fields[1])
	if err != nil {
		return err
	}
	s.State = s.State.WithSort(query.Sort{Key: key, Dir: dir})
	return nil
}

func (s *Shell) where(expr string) error {
	if expr == "" {
		s.Where = nil
		return nil
	}
	f, err := starctx.Compile(expr, s.Logger)
	if err != nil {
		return err
	}
	s.Where = f
	return nil
}

func (s *Shell) show(arg string) error {
	if s.Dataset == nil {
		return errors.New("no dataset loaded (try: load demo:kepler)")
	}
	limit := s.Limit
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("usage: show [n]")
		}
		limit = n
	}

	var extra []query.Predicate
	var before int64
	if s.Where != nil {
		before = s.Where.Errors()
		extra = append(extra, s.Where.Predicate())
	}

	matched := query.ApplyWith(s.Dataset.Records, s.State, extra...)
	res := recordsResult{
		State:   s.State.Describe(),
		Total:   len(matched),
		Records: query.Page(matched, 0, limit),
	}
	if s.Where != nil {
		res.Where = s.Where.String()
		res.WhereErrors = s.Where.Errors() - before
		if res.WhereErrors > 0 {
			s.Renderer.Warning(fmt.Sprintf("where expression failed on %d record(s)", res.WhereErrors))
		}
	}
	s.Logger.Debug("shell show", "state", res.State, "matched", res.Total)
	return renderRecords(s.Renderer, res)
}

func (s *Shell) printState() {
	r := s.Renderer
	dataset := "(none)"
	if s.Dataset != nil {
		dataset = fmt.Sprintf("%s (%d records)", s.Dataset.Source, len(s.Dataset.Records))
	}
	where := "(none)"
	if s.Where != nil {
		where = s.Where.String()
	}
	r.KeyValues([][2]string{
		{"dataset", dataset},
		{"state", s.State.Describe()},
		{"where", where},
	})
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  load <ref>               Load a dataset (demo:kepler, public:tess, a path, ...)
  search <text>            Filter by text; no text clears the search
  confirmed [on|off]       Only confirmed planets; no argument toggles
  radius <min> <max>       Radius range in Earth radii; _ for no bound
  period <min> <max>       Period range in days; _ for no bound
  sort <key> [asc|desc]    Sort; without a direction, toggles
  where <expr>             Starlark filter; no expression clears it
  show [n]                 Print the first n matching records
  state                    Print the current view
  reset                    Clear every filter and restore the default sort
  .help                    Show this help message
  .quit / .exit            Exit the shell
`
	_, _ = fmt.Fprintln(w, help)
}

func newShellCompleter() *readline.PrefixCompleter {
	keys := make([]readline.PrefixCompleterInterface, len(catalog.Fields))
	for i, f := range catalog.Fields {
		keys[i] = readline.PcItem(string(f), readline.PcItem("asc"), readline.PcItem("desc"))
	}
	samples := make([]readline.PrefixCompleterInterface, 0, len(catalog.SampleNames()))
	for _, name := range catalog.SampleNames() {
		samples = append(samples, readline.PcItem(name))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("load", samples...),
		readline.PcItem("search"),
		readline.PcItem("confirmed", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("radius"),
		readline.PcItem("period"),
		readline.PcItem("sort", keys...),
		readline.PcItem("where"),
		readline.PcItem("show"),
		readline.PcItem("state"),
		readline.PcItem("reset"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl [ref]",
		Short: "Explore a dataset interactively",
		Long: `Start an interactive shell over a query state.

Each command adjusts one part of the view (search text, confirmed-only,
radius and period ranges, sort, where-expression) and 'show' prints the
matching records. Type .help inside the shell for the command list.`,
		Example: `  exocat repl demo:kepler`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			return runRepl(cmd, ref)
		},
	}
}

func runRepl(cmd *cobra.Command, ref string) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	limit := cc.Cfg.Query.Limit
	if limit <= 0 {
		limit = 20
	}
	sh := NewShell(cc.Resolver(cmd), cc.Renderer, limit)
	sh.Logger = cc.Logger

	historyFile := ""
	if cc.Cfg.StorePath != store.MemoryPath {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.StorePath), replHistory)
		st, err := cc.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		sh.Save = st.SaveDataset
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newShellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "exocat shell. Type .help for commands, .quit to exit")
	if ref != "" {
		sh.Exec(ctx, "load "+ref)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if sh.Exec(ctx, line) {
			return nil
		}
	}
}
