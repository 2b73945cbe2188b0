package render

import (
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheSize is the number of rendered pages kept.
const CacheSize = 20

// Renderer rasterizes one page of a fixed-layout document into a box of at
// most maxWidth×maxHeight pixels.
type Renderer interface {
	RenderPage(page, maxWidth, maxHeight int) (image.Image, error)
}

// Key identifies a rendered page.
type Key struct {
	Page      int
	MaxWidth  int
	MaxHeight int
}

// Cache wraps a Renderer with a bounded cache. When full, the entry
// inserted first is evicted; lookups do not refresh an entry's age.
type Cache struct {
	renderer Renderer
	entries  *lru.Cache[Key, image.Image]
}

// NewCache returns a cache of CacheSize entries in front of r.
func NewCache(r Renderer) *Cache {
	return NewCacheSize(r, CacheSize)
}

// NewCacheSize returns a cache holding at most size entries.
func NewCacheSize(r Renderer, size int) *Cache {
	entries, err := lru.New[Key, image.Image](max(size, 1))
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &Cache{renderer: r, entries: entries}
}

// Page returns the rendered page, rendering it on a miss. Render errors are
// not cached.
func (c *Cache) Page(page, maxWidth, maxHeight int) (image.Image, error) {
	k := Key{Page: page, MaxWidth: maxWidth, MaxHeight: maxHeight}
	// Peek leaves recency untouched, so eviction follows insertion order.
	if img, ok := c.entries.Peek(k); ok {
		return img, nil
	}
	img, err := c.renderer.RenderPage(page, maxWidth, maxHeight)
	if err != nil {
		return nil, err
	}
	c.entries.Add(k, img)
	return img, nil
}

// Contains reports whether k is cached.
func (c *Cache) Contains(k Key) bool { return c.entries.Contains(k) }

// Len returns the number of cached pages.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every cached page.
func (c *Cache) Purge() { c.entries.Purge() }
