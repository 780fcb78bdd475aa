package embeddings

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Cache is a thread-safe text→vector map. Entries are immutable once
// written, so a miss racing a concurrent fill at worst costs one redundant
// provider call. A disabled cache misses on every lookup and drops writes.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]float32
	enabled bool
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string][]float32),
		enabled: true,
	}
}

func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled {
		return nil, false
	}
	vec, ok := c.entries[text]
	return vec, ok
}

func (c *Cache) Put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.entries[text] = vec
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]float32)
}

func (c *Cache) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

func (c *Cache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedEmbedder wraps a provider with the embedding cache and fixed-size
// sub-batching. Only texts missing from the cache reach the provider; a
// failed sub-batch fails the whole call with no partial results.
type CachedEmbedder struct {
	provider  Embedder
	cache     *Cache
	batchSize int
}

const defaultBatchSize = 50

func NewCachedEmbedder(provider Embedder, cache *Cache, batchSize int) *CachedEmbedder {
	if cache == nil {
		cache = NewCache()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &CachedEmbedder{
		provider:  provider,
		cache:     cache,
		batchSize: batchSize,
	}
}

func (e *CachedEmbedder) Cache() *Cache {
	return e.cache
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("embed text %d: %w", i, ErrEmptyInput)
		}
		if vec, ok := e.cache.Get(text); ok {
			results[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	for start := 0; start < len(missing); start += e.batchSize {
		end := start + e.batchSize
		if end > len(missing) {
			end = len(missing)
		}

		vectors, err := e.provider.Embed(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embed batch: expected %d vectors, got %d: %w", end-start, len(vectors), ErrProviderUnavailable)
		}

		for i, vec := range vectors {
			e.cache.Put(missing[start+i], vec)
			results[missingIdx[start+i]] = vec
		}
	}

	return results, nil
}

// EmbedOne embeds a single text, going through the same cache and
// validation as Embed.
func (e *CachedEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

var _ Embedder = (*CachedEmbedder)(nil)
