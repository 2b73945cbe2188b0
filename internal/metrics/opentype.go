package metrics

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFamily is used when a requested family is not registered.
const DefaultFamily = "Go"

// OpenTypeLoader loads faces from registered TrueType/OpenType fonts.
// Sizes are points at 72 DPI, so one point is one pixel.
type OpenTypeLoader struct {
	DPI float64

	mu       sync.RWMutex
	families map[string]fontPair
}

type fontPair struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// NewOpenTypeLoader returns a loader with the Go font families registered.
func NewOpenTypeLoader() *OpenTypeLoader {
	l := &OpenTypeLoader{
		DPI:      72,
		families: make(map[string]fontPair),
	}
	// The embedded Go fonts are known to parse.
	_ = l.Register(DefaultFamily, goregular.TTF, gobold.TTF)
	_ = l.Register("Go Mono", gomono.TTF, gomonobold.TTF)
	return l
}

// Register adds a family from raw font data. bold may be nil, in which case
// the regular face is used for bold text too.
func (l *OpenTypeLoader) Register(family string, regular, bold []byte) error {
	reg, err := opentype.Parse(regular)
	if err != nil {
		return fmt.Errorf("failed to parse %s regular: %w", family, err)
	}
	pair := fontPair{regular: reg, bold: reg}
	if len(bold) > 0 {
		b, err := opentype.Parse(bold)
		if err != nil {
			return fmt.Errorf("failed to parse %s bold: %w", family, err)
		}
		pair.bold = b
	}

	l.mu.Lock()
	l.families[strings.ToLower(family)] = pair
	l.mu.Unlock()
	return nil
}

// RegisterFiles adds a family from font files on disk. boldPath may be empty.
func (l *OpenTypeLoader) RegisterFiles(family, regularPath, boldPath string) error {
	regular, err := os.ReadFile(regularPath)
	if err != nil {
		return err
	}
	var bold []byte
	if boldPath != "" {
		bold, err = os.ReadFile(boldPath)
		if err != nil {
			return err
		}
	}
	return l.Register(family, regular, bold)
}

// Has reports whether family is registered.
func (l *OpenTypeLoader) Has(family string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.families[strings.ToLower(family)]
	return ok
}

// Load implements Loader. Unknown families resolve to DefaultFamily.
func (l *OpenTypeLoader) Load(family string, size int, bold bool) (Face, error) {
	l.mu.RLock()
	pair, ok := l.families[strings.ToLower(family)]
	if !ok {
		pair = l.families[strings.ToLower(DefaultFamily)]
	}
	l.mu.RUnlock()

	f := pair.regular
	if bold {
		f = pair.bold
	}
	if f == nil {
		return nil, fmt.Errorf("no font registered for %q", family)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     l.DPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %dpt face: %w", family, size, err)
	}
	return &otFace{
		face:       face,
		lineHeight: face.Metrics().Height.Ceil(),
	}, nil
}

// otFace serializes access to a font.Face, which is not safe for concurrent
// use.
type otFace struct {
	mu         sync.Mutex
	face       font.Face
	lineHeight int
}

func (f *otFace) LineHeight() int { return f.lineHeight }

func (f *otFace) Width(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return font.MeasureString(f.face, text).Ceil()
}
