package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/exocat/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envVars are the configuration keys most often overridden from the
// environment. Nested keys join with a double underscore.
var envVars = [][]string{
	{"EXOCAT_DATA_DIR", "Directory searched for catalog files"},
	{"EXOCAT_STORE", "Path of the dataset history database"},
	{"EXOCAT_OUTPUT", "Output mode: auto, text, markdown, json, csv"},
	{"EXOCAT_QUERY__LIMIT", "Default number of rows printed by query"},
	{"EXOCAT_SERVE__ADDR", "Listen address for serve"},
	{"EXOCAT_SERVE__SESSION_SECRET", "Cookie signing secret for serve"},
	{"EXOCAT_PUBLISH__TYPE", "Default publish sink"},
	{"EXOCAT_PUBLISH__TABLE", "Default publish table"},
}

// generateCLIDocs writes index.md plus one page per top-level command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := documented(root)

	if err := writePage(filepath.Join(outDir, "index.md"), indexPage(root, pages)); err != nil {
		return err
	}
	for _, cmd := range pages {
		if err := writePage(filepath.Join(outDir, cmd.Name()+".md"), commandPage(cmd)); err != nil {
			return err
		}
	}
	return nil
}

func writePage(path string, w *MarkdownWriter) error {
	if err := os.WriteFile(path, w.Bytes(), 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("  Generated %s", filepath.Base(path))
	return nil
}

// documented returns the visible children of cmd, skipping cobra's own.
func documented(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || c.Name() == "help" || strings.HasPrefix(c.Name(), "__") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func indexPage(root *cobra.Command, pages []*cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line reference for exocat")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/exocat/cmd/exocat@latest")

	w.Header(2, "Commands")
	rows := make([][]string, 0, len(pages))
	for _, c := range pages {
		rows = append(rows, []string{fmt.Sprintf("[%s](%s.md)", InlineCode(c.Name()), c.Name()), cleanDescription(c.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	flagTable(w, root.PersistentFlags())

	w.Header(2, "Environment")
	w.Paragraph("Precedence, lowest first: built-in defaults, `exocat.yaml`, `EXOCAT_*` variables, flags.")
	envRows := make([][]string, len(envVars))
	for i, e := range envVars {
		envRows[i] = []string{InlineCode(e[0]), e[1]}
	}
	w.Table([]string{"Variable", "Description"}, envRows)

	w.Paragraph("Commands exit with status 1 on error; the message is printed to stderr.")
	return w
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()
	w.Header(1, cmd.Name())
	describe(w, cmd, 2)

	for _, sub := range documented(cmd) {
		w.Header(2, sub.CommandPath())
		describe(w, sub, 3)
	}
	return w
}

// describe writes the body shared by commands and subcommands, with
// section headings at level.
func describe(w *MarkdownWriter, cmd *cobra.Command, level int) {
	text := cmd.Long
	if text == "" {
		text = cmd.Short
	}
	w.Paragraph(text)

	if cmd.Runnable() {
		w.CodeBlock("bash", cmd.UseLine())
	}
	if len(cmd.Aliases) > 0 {
		w.Paragraph("Aliases: " + InlineCode(strings.Join(cmd.Aliases, "`, `")))
	}
	if cmd.HasAvailableLocalFlags() {
		w.Header(level, "Options")
		flagTable(w, cmd.LocalNonPersistentFlags())
	}
	if cmd.Example != "" {
		w.Header(level, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
}

func flagTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		def := ""
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
			def = InlineCode(f.DefValue)
		}
		rows = append(rows, []string{name, def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Default", "Description"}, rows)
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, l := range lines {
			if len(l) >= indent {
				lines[i] = l[indent:]
			} else {
				lines[i] = strings.TrimLeft(l, " \t")
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
