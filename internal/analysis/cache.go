package analysis

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// DefaultCacheSize bounds the number of memoized views.
const DefaultCacheSize = 32

// View is a filtered record set with its statistics.
type View struct {
	Criteria vitals.Criteria `json:"criteria"`
	Records  []vitals.Record `json:"records"`
	Stats    Stats           `json:"stats"`
}

// Cache memoizes views by dataset identity and criteria. It is safe for
// concurrent use; concurrent misses on the same key compute once.
type Cache struct {
	engine *Engine
	size   int

	mu      sync.Mutex
	entries map[string]*View
	order   []string
	group   singleflight.Group
}

// NewCache returns a cache holding at most size views, evicting the oldest.
func NewCache(engine *Engine, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if engine == nil {
		engine = &Engine{}
	}
	return &Cache{engine: engine, size: size, entries: make(map[string]*View)}
}

// View returns the filtered records and stats of ds under c. Callers must
// not modify the returned slices.
func (c *Cache) View(ds *vitals.Dataset, crit vitals.Criteria) *View {
	if ds == nil {
		return &View{Criteria: crit, Records: []vitals.Record{}}
	}
	key := ds.ID + "#" + crit.Key()

	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	res, _, _ := c.group.Do(key, func() (any, error) {
		records := vitals.Apply(ds, crit)
		v := &View{Criteria: crit, Records: records, Stats: c.engine.Compute(records)}
		c.store(key, v)
		return v, nil
	})
	return res.(*View)
}

func (c *Cache) store(key string, v *View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = v
	c.order = append(c.order, key)
}

// Len reports the number of memoized views.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every memoized view.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*View)
	c.order = nil
}
