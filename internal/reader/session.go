// Package reader provides the two-page spread reading session.
package reader

import (
	"errors"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/Kabyik-Kayal/Booker/internal/config"
	"github.com/Kabyik-Kayal/Booker/internal/content"
	"github.com/Kabyik-Kayal/Booker/internal/extract"
	"github.com/Kabyik-Kayal/Booker/internal/library"
	"github.com/Kabyik-Kayal/Booker/internal/metrics"
	"github.com/Kabyik-Kayal/Booker/internal/paginate"
	"github.com/Kabyik-Kayal/Booker/internal/pdfdoc"
	"github.com/Kabyik-Kayal/Booker/internal/render"
	"github.com/Kabyik-Kayal/Booker/internal/toc"
)

// PDF pages are rendered into the page box minus these margins.
const (
	PDFMarginWidth  = 80
	PDFMarginHeight = 100
)

// Options configure a Session. Zero values select defaults.
type Options struct {
	FontFamily string
	FontSize   int
	PageWidth  int
	PageHeight int

	Metrics   metrics.Provider
	Extractor *extract.Extractor
	Logger    *zap.Logger
	// Renderer rasterizes PDF pages. Defaults to the document itself.
	Renderer func(*pdfdoc.Document) render.Renderer
}

// Session is one open book. It is not safe for concurrent use; UI shells
// drive it from their event loop.
type Session struct {
	path     string
	title    string
	fileType library.FileType
	err      error

	fontFamily string
	fontSize   int
	width      int
	height     int
	spread     int

	blocks    []content.Block
	nav       []content.NavPoint
	pages     []content.Page
	entries   []*toc.Entry
	paginator *paginate.Paginator

	pdf     *pdfdoc.Document
	renders *render.Cache

	log      *zap.Logger
	onChange []func(spread, total int)
}

// Open loads the book at path. A book that cannot be parsed still opens: its
// session holds a single page with the error message and Err reports the
// cause. Only unsupported file types fail.
func Open(path string, opts Options) (*Session, error) {
	ft, err := library.DetectType(path)
	if err != nil {
		return nil, err
	}

	s := &Session{
		path:       path,
		fileType:   ft,
		fontFamily: opts.FontFamily,
		fontSize:   config.ClampFontSize(opts.FontSize),
		log:        opts.Logger,
	}
	if s.fontFamily == "" {
		s.fontFamily = config.DefaultFontFamily
	}
	if opts.FontSize == 0 {
		s.fontSize = config.DefaultFontSize
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.width, s.height = opts.PageWidth, opts.PageHeight
	if s.width <= 0 || s.height <= 0 {
		s.width, s.height = FallbackPageWidth, FallbackPageHeight
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewEstimator(metrics.NewCache(metrics.NewOpenTypeLoader()))
	}
	s.paginator = paginate.New(m)

	switch ft {
	case library.EPUB:
		s.openEPUB(opts.Extractor)
	case library.PDF:
		s.openPDF(opts.Renderer)
	}
	return s, nil
}

func (s *Session) openEPUB(e *extract.Extractor) {
	if e == nil {
		e = extract.New(extract.WithLogger(s.log))
	}
	book, err := e.ExtractFile(s.path)
	if err != nil {
		s.fail("Error loading EPUB", err)
		return
	}
	s.title = book.Title
	s.blocks = book.Blocks
	s.nav = book.Nav
	s.repaginate()
}

func (s *Session) openPDF(newRenderer func(*pdfdoc.Document) render.Renderer) {
	doc, err := pdfdoc.Open(s.path)
	if err != nil {
		s.fail("Error loading PDF", err)
		return
	}
	s.pdf = doc
	var r render.Renderer = doc
	if newRenderer != nil {
		r = newRenderer(doc)
	}
	s.renders = render.NewCache(r)
	s.log.Debug("opened pdf", zap.String("path", s.path), zap.Int("pages", doc.NumPages()))
}

func (s *Session) fail(prefix string, err error) {
	s.err = err
	s.pages = []content.Page{content.ErrorPage(fmt.Sprintf("%s:\n%v", prefix, err))}
	s.log.Warn("failed to load book", zap.String("path", s.path), zap.Error(err))
}

func (s *Session) repaginate() {
	if s.err != nil || s.fileType != library.EPUB {
		return
	}
	s.pages = s.paginator.Paginate(s.blocks, s.Layout())
	s.entries = toc.Build(s.nav, s.blocks)
	toc.Correct(s.entries, s.pages)
	s.log.Debug("paginated",
		zap.Int("width", s.width),
		zap.Int("height", s.height),
		zap.Int("font_size", s.fontSize),
		zap.Int("pages", len(s.pages)),
	)
}

// Close releases the PDF handle and cached renders. The session must not be
// used afterwards.
func (s *Session) Close() error {
	if s.renders != nil {
		s.renders.Purge()
	}
	if s.pdf == nil {
		return nil
	}
	err := s.pdf.Close()
	s.pdf = nil
	return err
}

// Err returns the error that prevented the book from loading, if any.
func (s *Session) Err() error { return s.err }

func (s *Session) Path() string               { return s.path }
func (s *Session) Title() string              { return s.title }
func (s *Session) FileType() library.FileType { return s.fileType }
func (s *Session) FontFamily() string         { return s.fontFamily }
func (s *Session) FontSize() int              { return s.fontSize }

// Layout returns the pagination layout for the current page box and font.
func (s *Session) Layout() paginate.Layout {
	return paginate.Layout{
		Width:      s.width,
		Height:     s.height,
		FontFamily: s.fontFamily,
		FontSize:   s.fontSize,
	}
}

// PageBox returns the size of one page.
func (s *Session) PageBox() (width, height int) { return s.width, s.height }

// TOC returns the table of contents with page indices of the current
// pagination.
func (s *Session) TOC() []*toc.Entry { return s.entries }

// TotalPages is never zero.
func (s *Session) TotalPages() int {
	if s.pdf != nil {
		return max(1, s.pdf.NumPages())
	}
	return paginate.TotalPages(s.pages)
}

// Page returns page i of a reflowed book. ok is false past the last page and
// for PDF books.
func (s *Session) Page(i int) (p content.Page, ok bool) {
	if i < 0 || i >= len(s.pages) {
		return content.Page{}, false
	}
	return s.pages[i], true
}

// HasPage reports whether page index i exists.
func (s *Session) HasPage(i int) bool {
	if s.pdf != nil {
		return i >= 0 && i < s.pdf.NumPages()
	}
	return i >= 0 && i < len(s.pages)
}

// IsPDF reports whether pages are rendered images rather than reflowed
// content.
func (s *Session) IsPDF() bool { return s.pdf != nil }

// RenderPage returns PDF page i rendered to fit the page box, from cache
// when possible.
func (s *Session) RenderPage(i int) (image.Image, error) {
	if s.pdf == nil {
		return nil, errors.New("not a pdf session")
	}
	return s.renders.Page(i, s.width-PDFMarginWidth, s.height-PDFMarginHeight)
}

// Spread returns the current spread index.
func (s *Session) Spread() int { return s.spread }

// MaxSpread returns the index of the last spread.
func (s *Session) MaxSpread() int {
	return max(0, (s.TotalPages()+1)/2-1)
}

// SpreadPages returns the page indices shown by the current spread. The
// right page may not exist.
func (s *Session) SpreadPages() (left, right int) {
	return 2 * s.spread, 2*s.spread + 1
}

// Next moves to the next spread, reporting whether it moved.
func (s *Session) Next() bool { return s.GoToSpread(s.spread + 1) }

// Prev moves to the previous spread, reporting whether it moved.
func (s *Session) Prev() bool { return s.GoToSpread(s.spread - 1) }

// GoToSpread moves to spread n, clamped to the valid range.
func (s *Session) GoToSpread(n int) bool {
	n = min(max(n, 0), s.MaxSpread())
	if n == s.spread {
		return false
	}
	s.spread = n
	s.notify()
	return true
}

// GoToPage moves to the spread containing page index p.
func (s *Session) GoToPage(p int) bool { return s.GoToSpread(p / 2) }

// Resume restores a position saved as a page index.
func (s *Session) Resume(currentPage int) { s.GoToPage(currentPage) }

// SetSlider moves to the spread at percent of the book.
func (s *Session) SetSlider(percent float64) bool {
	return s.GoToSpread(SliderSpread(percent, s.MaxSpread()))
}

// SliderValue returns the position of the current spread in percent.
func (s *Session) SliderValue() float64 {
	m := s.MaxSpread()
	if m == 0 {
		return 100
	}
	return float64(s.spread) / float64(m) * 100
}

// SliderSpread maps a slider percentage to a spread index.
func SliderSpread(percent float64, maxSpread int) int {
	if maxSpread <= 0 {
		return 0
	}
	percent = min(max(percent, 0), 100)
	return int(math.Round(percent / 100 * float64(maxSpread)))
}

// Label describes the visible pages, e.g. "Pages 3-4 of 10".
func (s *Session) Label() string {
	total := s.TotalPages()
	left, right := s.SpreadPages()
	return fmt.Sprintf("Pages %d-%d of %d", left+1, min(right+1, total), total)
}

// IncreaseFont grows the font one step and repaginates from the first
// spread. It reports false at the maximum size or for PDF books.
func (s *Session) IncreaseFont() bool {
	return s.SetFontSize(s.fontSize + config.FontStep)
}

// DecreaseFont shrinks the font one step; see IncreaseFont.
func (s *Session) DecreaseFont() bool {
	return s.SetFontSize(s.fontSize - config.FontStep)
}

// SetFontSize repaginates at size and returns to the first spread. Sizes
// outside the allowed range are rejected.
func (s *Session) SetFontSize(size int) bool {
	if s.pdf != nil || size < config.MinFontSize || size > config.MaxFontSize || size == s.fontSize {
		return false
	}
	s.fontSize = size
	s.repaginate()
	s.spread = 0
	s.notify()
	return true
}

// SetFontFamily repaginates with family and returns to the first spread.
func (s *Session) SetFontFamily(family string) bool {
	if s.pdf != nil || family == "" || family == s.fontFamily {
		return false
	}
	s.fontFamily = family
	s.repaginate()
	s.spread = 0
	s.notify()
	return true
}

// Resize changes the page box. Reflowed books are repaginated and keep
// their spread, clamped to the new last spread.
func (s *Session) Resize(width, height int) bool {
	if width <= 0 || height <= 0 || (width == s.width && height == s.height) {
		return false
	}
	s.width, s.height = width, height
	s.repaginate()
	s.spread = min(s.spread, s.MaxSpread())
	s.notify()
	return true
}

// OnChange registers fn to be called with the spread and total page count
// after every change of position or pagination.
func (s *Session) OnChange(fn func(spread, total int)) {
	s.onChange = append(s.onChange, fn)
}

func (s *Session) notify() {
	total := s.TotalPages()
	for _, fn := range s.onChange {
		fn(s.spread, total)
	}
}
