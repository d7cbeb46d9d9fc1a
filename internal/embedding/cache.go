package embedding

import (
	"container/list"
	"context"
	"sync"
)

// Cache is an LRU cache for embeddings keyed by text.
type Cache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewCache creates a cache holding at most capacity embeddings.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry at capacity.
func (c *Cache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedProvider wraps a Provider with an LRU cache. Only cache misses reach
// the underlying provider; a provider failure is returned unmodified and
// nothing is cached for that call.
type CachedProvider struct {
	provider Provider
	cache    *Cache
}

// NewCachedProvider wraps provider with a cache of the given capacity.
func NewCachedProvider(provider Provider, capacity int) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    NewCache(capacity),
	}
}

// EmbedTexts serves cached vectors where possible and embeds the rest in one
// batch, preserving input order.
func (c *CachedProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}
	embedded, err := c.provider.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range embedded {
		vectors[missingIdx[j]] = vec
		c.cache.Set(missing[j], vec)
	}
	return vectors, nil
}

// Dimensions returns the underlying provider's dimension.
func (c *CachedProvider) Dimensions() int {
	return c.provider.Dimensions()
}
