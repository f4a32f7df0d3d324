// Package live holds the dataset a long-running process is currently serving.
package live

import (
	"log/slog"
	"sync/atomic"

	"github.com/leapstack-labs/exocat/internal/notifier"
	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// Catalog is the active dataset. Readers take a snapshot with Current and
// compute their view from it; writers swap in a whole new dataset. A dataset
// is never modified after it is published here.
type Catalog struct {
	current  atomic.Pointer[catalog.Dataset]
	notifier *notifier.Notifier
	logger   *slog.Logger
}

// New creates a Catalog serving initial, which may be nil.
func New(initial *catalog.Dataset, n *notifier.Notifier, logger *slog.Logger) *Catalog {
	if n == nil {
		n = notifier.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Catalog{notifier: n, logger: logger}
	if initial != nil {
		c.current.Store(initial)
	}
	return c
}

// Current returns the active dataset, or nil before the first load.
func (c *Catalog) Current() *catalog.Dataset {
	return c.current.Load()
}

// Replace makes ds the active dataset and pings subscribers. It returns the
// dataset it replaced.
func (c *Catalog) Replace(ds *catalog.Dataset) *catalog.Dataset {
	prev := c.current.Swap(ds)
	version := c.notifier.Broadcast()
	c.logger.Info("dataset replaced",
		"id", ds.ID,
		"source", ds.Source,
		"schema", ds.Schema,
		"rows", len(ds.Records),
		"version", version,
	)
	return prev
}

// Notifier returns the notifier pinged on every Replace.
func (c *Catalog) Notifier() *notifier.Notifier {
	return c.notifier
}
