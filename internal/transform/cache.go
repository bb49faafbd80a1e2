package transform

import "sync"

// PlanCache pools plans per PlanKey. At most one pool survives per key
// under concurrent first use; plan instances are pooled because a Plan
// carries scratch state and is not safe for concurrent execution.
type PlanCache struct {
	mu         sync.Mutex
	entries    map[PlanKey]*cacheEntry
	maxEntries int
}

type cacheEntry struct {
	pool sync.Pool
}

// NewPlanCache creates a cache bounded to maxEntries distinct keys;
// maxEntries <= 0 means unbounded.
func NewPlanCache(maxEntries int) *PlanCache {
	return &PlanCache{
		entries:    make(map[PlanKey]*cacheEntry),
		maxEntries: maxEntries,
	}
}

// Get returns a plan for the key, building one with the provider if the
// pool is empty. The returned put function recycles the plan and must
// be called when the caller is done with it; for keys beyond the entry
// bound the plan is built uncached and put is a no-op.
func (c *PlanCache) Get(key PlanKey, p Provider) (Plan, func(), error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
			c.mu.Unlock()
			plan, err := p.NewPlan(key.H, key.W)
			if err != nil {
				return nil, nil, &TransformError{Key: key, Wrapped: err}
			}
			return plan, func() {}, nil
		}
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	if plan, ok := e.pool.Get().(Plan); ok && plan != nil {
		return plan, func() { e.pool.Put(plan) }, nil
	}
	plan, err := p.NewPlan(key.H, key.W)
	if err != nil {
		return nil, nil, &TransformError{Key: key, Wrapped: err}
	}
	return plan, func() { e.pool.Put(plan) }, nil
}

// Len reports the number of distinct cached keys.
func (c *PlanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
