// Package source resolves dataset references (samples, files, stdin) into
// raw rows ready for classification.
package source

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/csvtext"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StdinRef is the reference that reads from standard input.
const StdinRef = "-"

// Compression is a stream codec inferred from a file extension.
type Compression string

// Supported codecs.
const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gz"
	CompressionBzip Compression = "bz2"
	CompressionXZ   Compression = "xz"
	CompressionZstd Compression = "zst"
)

// Format is the tabular layout of the decompressed payload.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Detect infers codec and format from a file name. Unrecognized extensions
// are treated as uncompressed CSV text.
func Detect(name string) (Format, Compression) {
	lower := strings.ToLower(name)
	comp := CompressionNone
	for _, c := range []Compression{CompressionGzip, CompressionBzip, CompressionXZ, CompressionZstd} {
		if strings.HasSuffix(lower, "."+string(c)) {
			comp = c
			lower = strings.TrimSuffix(lower, "."+string(c))
			break
		}
	}
	if strings.HasSuffix(lower, ".xlsx") {
		return FormatXLSX, comp
	}
	return FormatCSV, comp
}

// Resolver turns references into rows.
type Resolver struct {
	// DataDir holds the published catalog exports referenced by public: samples.
	DataDir string
	// Stdin is read for StdinRef. Defaults to os.Stdin.
	Stdin  io.Reader
	Logger *slog.Logger
}

// NewResolver creates a resolver rooted at dataDir.
func NewResolver(dataDir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{DataDir: dataDir, Stdin: os.Stdin, Logger: logger}
}

// Load resolves ref and runs the catalog pipeline over its rows.
func (r *Resolver) Load(ctx context.Context, ref string) (*catalog.Dataset, error) {
	rows, err := r.Rows(ctx, ref)
	if err != nil {
		return nil, err
	}
	return catalog.FromRows(rows, ref), nil
}

// Rows resolves ref to raw rows. Sample references use the sample registry,
// StdinRef reads Stdin, and anything else is a file path.
func (r *Resolver) Rows(ctx context.Context, ref string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if catalog.IsSampleRef(ref) {
		sample, err := catalog.LookupSample(ref)
		if err != nil {
			return nil, err
		}
		if sample.Embedded() {
			r.Logger.Debug("loading embedded sample", "ref", ref)
			return csvtext.Parse(sample.Text), nil
		}
		return r.file(ctx, sample.Path(r.DataDir))
	}

	if ref == StdinRef {
		stdin := r.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		r.Logger.Debug("reading stdin")
		return Decode(ctx, "stdin.csv", stdin)
	}

	return r.file(ctx, ref)
}

func (r *Resolver) file(ctx context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := Decode(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	r.Logger.Debug("loaded source file", "path", path, "rows", len(rows))
	return rows, nil
}

// Decode reads a payload named name from rd. The name only selects codec and
// format.
func Decode(ctx context.Context, name string, rd io.Reader) ([][]string, error) {
	format, comp := Detect(name)

	plain, closeFn, err := decompress(comp, rd)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	if format == FormatXLSX {
		return readXLSX(ctx, plain)
	}

	// BOMOverride honours a UTF-8 or UTF-16 BOM and otherwise passes UTF-8 through.
	decoded := transform.NewReader(plain, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return csvtext.Parse(string(data)), nil
}

func decompress(comp Compression, rd io.Reader) (io.Reader, func() error, error) {
	switch comp {
	case CompressionGzip:
		gz, err := gzip.NewReader(rd)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, gz.Close, nil
	case CompressionBzip:
		return bzip2.NewReader(rd), nil, nil
	case CompressionXZ:
		x, err := xz.NewReader(rd)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return x, nil, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(rd)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec, func() error { dec.Close(); return nil }, nil
	default:
		return rd, nil, nil
	}
}

// readXLSX returns the cells of the first sheet. Empty rows are skipped, the
// same as blank text rows.
func readXLSX(ctx context.Context, rd io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = book.Close() }()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}

	iter, err := book.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("rows of sheet %s: %w", sheets[0], err)
	}
	defer func() { _ = iter.Close() }()

	var rows [][]string
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row in sheet %s: %w", sheets[0], err)
		}
		if csvtext.IsBlankRow(cols) {
			continue
		}
		rows = append(rows, cols)
	}
	return rows, nil
}
