package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/exocat/internal/cli/config"
)

// ConfigField documents one key of exocat.yaml.
type ConfigField struct {
	Key         string
	Type        string
	Description string
	Section     string
}

// getConfigSchema mirrors internal/cli/config.Config. Defaults are read from
// config.Defaults so they cannot drift.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Key: "data_dir", Type: "string", Description: "Directory searched for catalog files and convert output", Section: "general"},
		{Key: "store", Type: "string", Description: "SQLite database holding loaded datasets", Section: "general"},
		{Key: "output", Type: "string", Description: "Output mode: auto, text, markdown, json, csv", Section: "general"},
		{Key: "verbose", Type: "bool", Description: "Enable debug logging", Section: "general"},

		{Key: "query.limit", Type: "int", Description: "Rows printed by query when --limit is not given; 0 prints all", Section: "query"},

		{Key: "serve.addr", Type: "string", Description: "Listen address", Section: "serve"},
		{Key: "serve.session_secret", Type: "string", Description: "Cookie signing secret; a random one is used when empty", Section: "serve"},
		{Key: "serve.max_conns", Type: "int", Description: "Maximum concurrent connections", Section: "serve"},

		{Key: "publish.type", Type: "string", Description: "Sink type: duckdb or postgres", Section: "publish"},
		{Key: "publish.path", Type: "string", Description: "Database file (duckdb)", Section: "publish"},
		{Key: "publish.host", Type: "string", Description: "Server host (postgres)", Section: "publish"},
		{Key: "publish.port", Type: "int", Description: "Server port (postgres)", Section: "publish"},
		{Key: "publish.database", Type: "string", Description: "Database name (postgres)", Section: "publish"},
		{Key: "publish.username", Type: "string", Description: "User name (postgres)", Section: "publish"},
		{Key: "publish.password", Type: "string", Description: "Password; ${VAR} references are expanded", Section: "publish"},
		{Key: "publish.options", Type: "map[string]string", Description: "Extra driver options", Section: "publish"},
		{Key: "publish.table", Type: "string", Description: "Destination table", Section: "publish"},
	}
}

func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "exocat configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("exocat reads %s from the current directory or the nearest parent. "+
		"Relative paths are resolved against the directory holding the file.", InlineCode(config.FileName)))

	defaults := config.Defaults()
	sections := map[string][]ConfigField{}
	for _, f := range getConfigSchema() {
		sections[f.Section] = append(sections[f.Section], f)
	}
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := []string{"Key", "Type", "Default", "Description"}
	for _, name := range names {
		w.Header(2, capitalize(name))
		var rows [][]string
		for _, f := range sections[name] {
			def := "-"
			if v, ok := defaults[f.Key]; ok {
				def = InlineCode(fmt.Sprint(v))
			}
			rows = append(rows, []string{InlineCode(f.Key), f.Type, def, f.Description})
		}
		w.Table(headers, rows)
	}

	w.Header(2, "Example")
	w.CodeBlock("yaml", `data_dir: data
store: .exocat/exocat.db
query:
  limit: 25
serve:
  addr: 127.0.0.1:8470
publish:
  type: postgres
  host: localhost
  port: 5432
  database: catalog
  username: exocat
  password: ${PGPASSWORD}
  table: public.exoplanets`)

	log.Printf("  Generated configuration.md")
	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
