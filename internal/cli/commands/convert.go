package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/exocat/internal/source"
	"github.com/leapstack-labs/exocat/internal/tap"
	"github.com/spf13/cobra"
)

// ConvertOptions holds options for the convert command.
type ConvertOptions struct {
	Mission   string
	Out       string
	ToDataDir bool
	PrintURL  bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <payload.json>",
		Short: "Convert an archive TAP JSON response to the unified CSV layout",
		Long: `Convert a JSON response from the NASA Exoplanet Archive TAP sync endpoint
into the unified CSV layout (mission,id,name,disposition,period_days,radius_re,snr).

Both response shapes are accepted: an array of objects, or an object with
"metadata" and "data" arrays. Use --print-url to get the query URL for a
mission; fetching it is left to curl or a browser.`,
		Example: `  # Print the query URL for the Kepler cumulative table
  exocat convert --mission kepler --print-url

  # Convert a downloaded response into the data directory (public:kepler)
  exocat convert --mission kepler kepler.json --to-data-dir

  # Convert from stdin to a file
  curl -s "$URL" | exocat convert --mission tess - -O toi.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mission, "mission", "", "Source mission (Kepler|TESS)")
	cmd.Flags().StringVarP(&opts.Out, "out", "O", "", "Write CSV to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.ToDataDir, "to-data-dir", false, "Write to the mission's export file under the data directory")
	cmd.Flags().BoolVar(&opts.PrintURL, "print-url", false, "Print the TAP sync URL for the mission and exit")
	_ = cmd.MarkFlagRequired("mission")
	cmd.MarkFlagsMutuallyExclusive("out", "to-data-dir")

	_ = cmd.RegisterFlagCompletionFunc("mission", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(tap.Missions))
		for i, m := range tap.Missions {
			names[i] = string(m)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	mission, err := tap.ParseMission(opts.Mission)
	if err != nil {
		return err
	}

	if opts.PrintURL {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), tap.SyncURL(tap.Query(mission)))
		return err
	}
	if len(args) == 0 {
		return errors.New("payload file required (use - for stdin)")
	}

	cc := NewCommandContext(cmd)

	payload, err := readPayload(cmd, args[0])
	if err != nil {
		return err
	}
	rows, err := tap.Convert(payload, mission)
	if err != nil {
		return err
	}
	cc.Logger.Debug("converted TAP payload", "mission", mission, "rows", len(rows))

	dest := opts.Out
	if opts.ToDataDir {
		dest = filepath.Join(cc.Cfg.DataDir, tap.FileName(mission))
	}
	if dest == "" {
		if err := tap.WriteCSV(cmd.OutOrStdout(), mission, rows); err != nil {
			return err
		}
		// Terminate the last line on a terminal; files keep the export layout.
		_, err = fmt.Fprintln(cmd.OutOrStdout())
		return err
	}

	if err := writeCSVFile(dest, mission, rows); err != nil {
		return err
	}
	cc.Renderer.Success(fmt.Sprintf("Wrote %d %s rows to %s", len(rows), mission, dest))
	return nil
}

func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == source.StdinRef {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// writeCSVFile writes through a temporary file so a failed conversion never
// truncates an existing export.
func writeCSVFile(dest string, mission tap.Mission, rows []tap.Row) (err error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".exocat-convert-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tap.WriteCSV(tmp, mission, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
