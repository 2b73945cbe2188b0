// Package metrics estimates the rendered height of wrapped text.
//
// The estimate is not a line breaker: it divides the total pixel width of a
// string, inflated by WrapOverhead, by the wrap width. The paginator depends
// on measurement and re-measurement of the same text agreeing, so the
// formula must stay stable.
package metrics

import (
	"strings"
	"sync"
)

const (
	// WrapOverhead inflates the naive width/wrap ratio to account for space
	// lost at word-wrap boundaries.
	WrapOverhead = 1.08

	// HeaderSizeBoost is added to the point size of header text.
	HeaderSizeBoost = 4
)

// Font describes how a piece of text is rendered.
type Font struct {
	Family string
	Size   int
	Header bool
}

// RenderSize returns the point size text is actually drawn at.
func (f Font) RenderSize() int {
	if f.Header {
		return f.Size + HeaderSizeBoost
	}
	return f.Size
}

// Bold reports whether the font is drawn bold. Headers are bold.
func (f Font) Bold() bool { return f.Header }

// Face gives pixel metrics for one resolved font.
type Face interface {
	LineHeight() int
	Width(text string) int
}

// Loader resolves a family, point size and weight to a Face.
type Loader interface {
	Load(family string, size int, bold bool) (Face, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(family string, size int, bold bool) (Face, error)

// Load calls f.
func (f LoaderFunc) Load(family string, size int, bold bool) (Face, error) {
	return f(family, size, bold)
}

// Cache memoizes faces by Font. Entries are never invalidated; the metrics
// of a given family, size and weight do not change at runtime.
type Cache struct {
	loader Loader

	mu    sync.RWMutex
	faces map[Font]Face
}

// NewCache creates an empty cache that loads faces through l.
func NewCache(l Loader) *Cache {
	return &Cache{
		loader: l,
		faces:  make(map[Font]Face),
	}
}

// Face returns the cached face for f, loading it on first use.
func (c *Cache) Face(f Font) (Face, error) {
	c.mu.RLock()
	face, ok := c.faces[f]
	c.mu.RUnlock()
	if ok {
		return face, nil
	}

	face, err := c.loader.Load(f.Family, f.RenderSize(), f.Bold())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.faces[f]; ok {
		return existing, nil
	}
	c.faces[f] = face
	return face, nil
}

// Len returns the number of cached faces.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.faces)
}

// Provider is what the paginator needs from a metrics source.
type Provider interface {
	LineHeight(f Font) int
	Height(text string, f Font, wrapWidth int) int
}

// Estimator implements Provider on top of a face cache.
type Estimator struct {
	cache *Cache
}

// NewEstimator returns an Estimator backed by c.
func NewEstimator(c *Cache) *Estimator {
	return &Estimator{cache: c}
}

// LineHeight returns the line spacing of f in pixels.
func (e *Estimator) LineHeight(f Font) int {
	return e.face(f).LineHeight()
}

// Height estimates the height of text wrapped at wrapWidth pixels.
func (e *Estimator) Height(text string, f Font, wrapWidth int) int {
	face := e.face(f)
	return face.LineHeight() * EstimateLines(text, face.Width(text), wrapWidth)
}

func (e *Estimator) face(f Font) Face {
	face, err := e.cache.Face(f)
	if err != nil {
		return approxFace{size: f.RenderSize()}
	}
	return face
}

// EstimateLines returns the number of lines text of the given pixel width
// occupies when wrapped at wrapWidth: the larger of the wrap estimate and the
// explicit line count, and at least one.
func EstimateLines(text string, textWidth, wrapWidth int) int {
	if wrapWidth <= 0 {
		wrapWidth = 1
	}
	lines := int(float64(textWidth)*WrapOverhead/float64(wrapWidth)) + 1
	if explicit := strings.Count(text, "\n") + 1; explicit > lines {
		lines = explicit
	}
	return max(lines, 1)
}

// approxFace stands in when a face cannot be loaded.
type approxFace struct {
	size int
}

func (f approxFace) LineHeight() int { return f.size * 4 / 3 }

func (f approxFace) Width(text string) int {
	return len([]rune(text)) * f.size / 2
}
