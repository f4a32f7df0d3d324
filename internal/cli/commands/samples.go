package commands

import (
	"errors"
	"io/fs"
	"os"

	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/spf13/cobra"
)

// sampleInfo is one row of the samples listing.
type sampleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path,omitempty"`
	Available   bool   `json:"available"`
}

// NewSamplesCommand creates the samples command.
func NewSamplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the built-in and published sample datasets",
		Long: `List the dataset references that can be loaded by name.

Demo samples are embedded. Public samples are exports under the data
directory; run 'exocat convert --to-data-dir' to create them.`,
		Args: cobra.NoArgs,
		RunE: runSamples,
	}
}

func runSamples(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	infos := make([]sampleInfo, 0, len(catalog.Samples()))
	for _, s := range catalog.Samples() {
		info := sampleInfo{Name: s.Name, Description: s.Description, Available: true}
		if !s.Embedded() {
			info.Path = s.Path(cc.Cfg.DataDir)
			_, err := os.Stat(info.Path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				info.Available = false
			case err != nil:
				cc.Logger.Debug("stat sample", "path", info.Path, "error", err)
				info.Available = false
			}
		}
		infos = append(infos, info)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		status := "embedded"
		switch {
		case info.Path != "" && info.Available:
			status = info.Path
		case info.Path != "":
			status = "missing: " + info.Path
		}
		rows[i] = []string{info.Name, info.Description, status}
	}
	return r.Table([]string{"name", "description", "source"}, rows)
}
