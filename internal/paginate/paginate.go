// Package paginate splits a flow of content blocks into fixed-size pages.
package paginate

import (
	"strings"
	"unicode"

	"github.com/Kabyik-Kayal/Booker/internal/content"
	"github.com/Kabyik-Kayal/Booker/internal/metrics"
)

const (
	// FooterReserve is kept free at the bottom of a page for the page number.
	FooterReserve = 50
	// HorizontalMargin is the total left and right padding of a page.
	HorizontalMargin = 80
	// ParagraphSpacing follows every placed text block.
	ParagraphSpacing = 10
	// ImageHeight is the fixed layout height of an image including padding.
	// Images are scaled to fit at render time.
	ImageHeight = 350 + 20
	// GlyphWidthFactor approximates the average glyph width as a fraction of
	// the font size. It is a rough figure; mixed-width scripts such as CJK
	// measure inaccurately.
	GlyphWidthFactor = 0.42
	// MinSplitLines is the fewest lines of a split paragraph placed at the
	// bottom of a page that already has content.
	MinSplitLines = 2
	// SplitSpaceRatio is how far into a chunk budget the last space must be
	// for a word-boundary split; otherwise the chunk is hard-split.
	SplitSpaceRatio = 0.8
)

// Layout is the page box and font a book is paginated for.
type Layout struct {
	Width      int
	Height     int
	FontFamily string
	FontSize   int
}

// AvailableHeight is the vertical budget for content on one page.
func (l Layout) AvailableHeight() int { return l.Height - FooterReserve }

// WrapWidth is the width text wraps at.
func (l Layout) WrapWidth() int { return l.Width - HorizontalMargin }

// CharsPerLine estimates how many characters one line holds.
func (l Layout) CharsPerLine() int {
	if l.FontSize <= 0 {
		return 1
	}
	return max(1, int(float64(l.WrapWidth())/(float64(l.FontSize)*GlyphWidthFactor)))
}

// Paginator partitions content into pages. It holds no state between calls
// other than the metrics provider, so identical inputs give identical pages.
type Paginator struct {
	metrics metrics.Provider
}

// New returns a Paginator measuring text with m.
func New(m metrics.Provider) *Paginator {
	return &Paginator{metrics: m}
}

// TotalPages is the page count navigation works with; never zero.
func TotalPages(pages []content.Page) int {
	return max(1, len(pages))
}

// Paginate lays blocks out on pages of the given layout. The result always
// holds at least one page, possibly empty.
func (p *Paginator) Paginate(blocks []content.Block, l Layout) []content.Page {
	s := &state{
		metrics:   p.metrics,
		layout:    l,
		available: l.AvailableHeight(),
		wrap:      l.WrapWidth(),
	}

	for i, b := range blocks {
		switch b := b.(type) {
		case content.ImageBlock:
			s.placeImage(b, i)
		case content.TextBlock:
			s.placeText(b, i)
		case content.LinkBlock:
			s.placeLink(b, i)
		}
	}
	s.flush()

	if len(s.pages) == 0 {
		return []content.Page{{}}
	}
	return s.pages
}

type state struct {
	metrics   metrics.Provider
	layout    Layout
	available int
	wrap      int

	pages   []content.Page
	current content.Page
	height  int
}

func (s *state) font(header bool) metrics.Font {
	return metrics.Font{Family: s.layout.FontFamily, Size: s.layout.FontSize, Header: header}
}

func (s *state) flush() {
	if s.current.Len() > 0 {
		s.pages = append(s.pages, s.current)
	}
	s.current = content.Page{}
	s.height = 0
}

func (s *state) fits(h int) bool {
	return s.height+h+ParagraphSpacing <= s.available
}

func (s *state) placeImage(b content.ImageBlock, src int) {
	if s.height+ImageHeight > s.available && s.current.Len() > 0 {
		s.flush()
	}
	s.current.Add(b, src)
	s.height += ImageHeight
}

func (s *state) placeLink(b content.LinkBlock, src int) {
	h := s.metrics.Height(b.Text, s.font(false), s.wrap)
	if !s.fits(h) && s.current.Len() > 0 {
		s.flush()
	}
	s.current.Add(b, src)
	s.height += h + ParagraphSpacing
}

func (s *state) placeText(b content.TextBlock, src int) {
	f := s.font(b.IsHeader)
	h := s.metrics.Height(b.Text, f, s.wrap)
	if s.fits(h) {
		s.current.Add(b, src)
		s.height += h + ParagraphSpacing
		return
	}
	s.split(b, src, f)
}

// split places a text block that does not fit whole, one chunk per page.
func (s *state) split(b content.TextBlock, src int, f metrics.Font) {
	lineHeight := max(1, s.metrics.LineHeight(f))
	perLine := s.layout.CharsPerLine()
	remaining := []rune(b.Text)

	for len(remaining) > 0 {
		lines := max(0, (s.available-s.height)/lineHeight)
		if lines < MinSplitLines && s.current.Len() > 0 {
			s.flush()
			continue
		}
		// First content on an empty page: always place something.
		lines = max(lines, 1)

		var chunk, rest []rune
		var h int
		for {
			chunk, rest = cut(remaining, lines*perLine)
			h = s.metrics.Height(string(chunk), f, s.wrap)
			if s.fits(h) || lines == 1 {
				break
			}
			lines--
		}
		if !s.fits(h) && s.current.Len() > 0 {
			s.flush()
			continue
		}

		s.current.Add(chunkBlock(b, string(chunk)), src)
		s.height += h + ParagraphSpacing
		if len(rest) == 0 {
			return
		}
		s.flush()
		remaining = rest
	}
}

// cut splits text into a chunk of at most budget runes and the rest. The
// split falls on the last space when that space lies beyond SplitSpaceRatio
// of the budget. Both parts are trimmed.
func cut(text []rune, budget int) (chunk, rest []rune) {
	budget = max(budget, 1)
	if len(text) <= budget {
		return text, nil
	}

	at := budget
	if sp := lastSpace(text[:budget]); float64(sp) > float64(budget)*SplitSpaceRatio {
		at = sp
	}
	return trim(text[:at]), trim(text[at:])
}

func lastSpace(text []rune) int {
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == ' ' {
			return i
		}
	}
	return -1
}

func trim(r []rune) []rune {
	start, end := 0, len(r)
	for start < end && unicode.IsSpace(r[start]) {
		start++
	}
	for end > start && unicode.IsSpace(r[end-1]) {
		end--
	}
	return r[start:end]
}

// chunkBlock copies b with new text, keeping the links that occur in it.
func chunkBlock(b content.TextBlock, text string) content.TextBlock {
	out := content.TextBlock{
		Text:        text,
		IsHeader:    b.IsHeader,
		HeaderLevel: b.HeaderLevel,
	}
	for _, l := range b.Links {
		if strings.Contains(text, l.Text) {
			out.Links = append(out.Links, l)
		}
	}
	return out
}
