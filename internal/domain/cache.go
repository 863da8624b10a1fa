package domain

import (
	"sync"

	"golang.org/x/sync/singleflight"

	m "github.com/mouse-blink/culprit/internal/model"
)

// verdictCache is the single shared structure of a run: subset key to
// verdict. Entries are immutable once written (the oracle is assumed
// deterministic per subset) and a write commits before the verdict is
// returned to the search logic. In-flight executions are deduplicated so
// two concurrent trials for the identical subset never both dispatch.
type verdictCache struct {
	mu      sync.Mutex
	entries map[string]m.Verdict
	flight  singleflight.Group
}

func newVerdictCache() *verdictCache {
	return &verdictCache{entries: make(map[string]m.Verdict)}
}

// get returns the cached verdict for key, if any.
func (c *verdictCache) get(key string) (m.Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]

	return v, ok
}

// resolve returns the verdict for key, executing fn at most once per key
// across all concurrent callers. shared reports whether this caller was
// served without its own execution (a cache hit).
func (c *verdictCache) resolve(key string, fn func() (m.Verdict, error)) (verdict m.Verdict, shared bool, err error) {
	if v, ok := c.get(key); ok {
		return v, true, nil
	}

	res, err, shared := c.flight.Do(key, func() (any, error) {
		v, err := fn()
		if err != nil {
			return m.Verdict(""), err
		}

		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		return "", shared, err
	}

	return res.(m.Verdict), shared, nil
}

// invalidate drops the cache entry for key. Used only by the explicit
// confirm policy; a re-query that disagrees with the dropped entry is
// reported as a flaky-oracle warning, never silently overwritten.
func (c *verdictCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	c.flight.Forget(key)
}
