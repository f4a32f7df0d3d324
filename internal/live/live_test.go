package live

import (
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/exocat/internal/notifier"
	"github.com/leapstack-labs/exocat/internal/testutil"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ReplaceSwapsAndNotifies(t *testing.T) {
	n := notifier.New()
	c := New(nil, n, testutil.NewTestLogger(t))
	assert.Nil(t, c.Current())

	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	kepler := catalog.Load(catalog.DemoKeplerCSV, "demo:kepler")
	assert.Nil(t, c.Replace(kepler))
	assert.Same(t, kepler, c.Current())

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("subscriber was not notified")
	}

	tess := catalog.Load(catalog.DemoTESSCSV, "demo:tess")
	assert.Same(t, kepler, c.Replace(tess))
	assert.Same(t, tess, c.Current())
	assert.Len(t, kepler.Records, 2, "previous snapshot is untouched")
	assert.Same(t, n, c.Notifier())
}

func TestCatalog_ConcurrentReaders(t *testing.T) {
	initial := catalog.Load(catalog.DemoKeplerCSV, "demo:kepler")
	c := New(initial, nil, nil)
	require.NotNil(t, c.Current())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				c.Replace(catalog.Load(catalog.DemoTESSCSV, "demo:tess"))
				return
			}
			ds := c.Current()
			// Every snapshot is internally consistent.
			assert.Equal(t, len(ds.Records) == 2, ds.Source == "demo:kepler")
		}()
	}
	wg.Wait()
}
