package cache

// Cache is the mutable state container scoped to a single run. It is handed
// to the strategy through its context and never shared across runs.
type Cache interface {
	// Set stores a value by key.
	Set(key string, value any)
	// Get retrieves a value by key.
	Get(key string) (any, bool)
	// Delete removes a key.
	Delete(key string)
	// Reset clears all stored state.
	Reset()
}

type CacheV1 struct {
	data map[string]any
}

func NewCacheV1() Cache {
	return &CacheV1{
		data: make(map[string]any),
	}
}

// Set implements cache.Cache.
func (c *CacheV1) Set(key string, value any) {
	c.data[key] = value
}

// Get implements cache.Cache.
func (c *CacheV1) Get(key string) (any, bool) {
	value, ok := c.data[key]

	return value, ok
}

// Delete implements cache.Cache.
func (c *CacheV1) Delete(key string) {
	delete(c.data, key)
}

// Reset implements cache.Cache.
func (c *CacheV1) Reset() {
	c.data = make(map[string]any)
}
