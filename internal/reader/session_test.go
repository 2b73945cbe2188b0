package reader

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kabyik-Kayal/Booker/internal/config"
	"github.com/Kabyik-Kayal/Booker/internal/content"
	"github.com/Kabyik-Kayal/Booker/internal/epubtest"
	"github.com/Kabyik-Kayal/Booker/internal/extract"
	"github.com/Kabyik-Kayal/Booker/internal/library"
	"github.com/Kabyik-Kayal/Booker/internal/metrics"
	"github.com/Kabyik-Kayal/Booker/internal/pdfdoc"
	"github.com/Kabyik-Kayal/Booker/internal/pdfdoc/pdftest"
	"github.com/Kabyik-Kayal/Booker/internal/render"
)

// fakeMetrics measures every glyph as half the font size wide.
type fakeMetrics struct{}

func (fakeMetrics) LineHeight(f metrics.Font) int { return f.RenderSize() * 4 / 3 }

func (m fakeMetrics) Height(text string, f metrics.Font, wrap int) int {
	w := len([]rune(text)) * f.RenderSize() / 2
	return m.LineHeight(f) * metrics.EstimateLines(text, w, wrap)
}

// longBook has chapters of many paragraphs so it spans several spreads.
func longBook(t *testing.T, chapters, paragraphs int) epubtest.Book {
	t.Helper()
	b := epubtest.Book{Title: "Long Book"}
	for c := 1; c <= chapters; c++ {
		var body strings.Builder
		fmt.Fprintf(&body, "<h1>Chapter %d</h1>\n", c)
		for p := 0; p < paragraphs; p++ {
			fmt.Fprintf(&body, "<p>Chapter %d paragraph %d. %s</p>\n", c, p,
				strings.Repeat("All work and no play makes a dull reader. ", 4))
		}
		b.Documents = append(b.Documents, epubtest.Document{
			Href: fmt.Sprintf("ch%d.xhtml", c),
			Body: body.String(),
		})
	}
	return b
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func openTestSession(t *testing.T, b epubtest.Book, opts Options) *Session {
	t.Helper()
	path := b.WriteFile(t, t.TempDir(), "book.epub")
	if opts.Metrics == nil {
		opts.Metrics = fakeMetrics{}
	}
	s, err := Open(path, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenEPUB(t *testing.T) {
	s := openTestSession(t, epubtest.Sample(t), Options{})

	if s.Err() != nil {
		t.Fatalf("Err() = %v", s.Err())
	}
	if s.FileType() != library.EPUB || s.Title() != "Sample Book" || s.IsPDF() {
		t.Errorf("session = %s %q pdf=%v", s.FileType(), s.Title(), s.IsPDF())
	}
	if s.FontSize() != config.DefaultFontSize || s.FontFamily() != config.DefaultFontFamily {
		t.Errorf("font = %s %d", s.FontFamily(), s.FontSize())
	}
	if w, h := s.PageBox(); w != FallbackPageWidth || h != FallbackPageHeight {
		t.Errorf("PageBox() = %dx%d", w, h)
	}
	if s.TotalPages() < 1 || s.Spread() != 0 {
		t.Errorf("TotalPages=%d Spread=%d", s.TotalPages(), s.Spread())
	}

	entries := s.TOC()
	if len(entries) != 2 || entries[0].Title != "Chapter 1" || len(entries[0].Children) != 1 {
		t.Fatalf("TOC() = %+v", entries)
	}
	p, ok := s.Page(entries[1].PageIndex)
	if !ok {
		t.Fatalf("TOC page %d missing", entries[1].PageIndex)
	}
	found := false
	for _, h := range p.Headers() {
		found = found || h.Text == "Chapter 2"
	}
	if !found {
		t.Errorf("Chapter 2 entry points at page %d without its header", entries[1].PageIndex)
	}
}

func TestOpenBrokenEPUBShowsErrorPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.epub")
	writeFile(t, path, "not a zip")

	s, err := Open(path, Options{Metrics: fakeMetrics{}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var pe *extract.ParseError
	if !errors.As(s.Err(), &pe) {
		t.Fatalf("Err() = %v, want wrapped parse error", s.Err())
	}
	if s.TotalPages() != 1 || s.MaxSpread() != 0 {
		t.Errorf("TotalPages=%d MaxSpread=%d, want 1 and 0", s.TotalPages(), s.MaxSpread())
	}
	p, _ := s.Page(0)
	tb, ok := p.Blocks[0].(content.TextBlock)
	if !ok || !strings.HasPrefix(tb.Text, "Error loading EPUB:\n") {
		t.Errorf("error page = %#v", p.Blocks)
	}

	s.IncreaseFont()
	if s.TotalPages() != 1 {
		t.Error("error page repaginated")
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open("notes.txt", Options{}); !errors.Is(err, library.ErrUnsupportedFormat) {
		t.Errorf("Open(txt) = %v, want ErrUnsupportedFormat", err)
	}
}

func TestNavigation(t *testing.T) {
	s := openTestSession(t, longBook(t, 3, 12), Options{PageWidth: 400, PageHeight: 500})
	total := s.TotalPages()
	if total < 6 {
		t.Fatalf("TotalPages() = %d, want a multi-spread book", total)
	}
	maxSpread := (total+1)/2 - 1
	if s.MaxSpread() != maxSpread {
		t.Errorf("MaxSpread() = %d, want %d", s.MaxSpread(), maxSpread)
	}

	if s.Prev() {
		t.Error("Prev() moved before the first spread")
	}
	if !s.Next() || s.Spread() != 1 {
		t.Errorf("Next() -> spread %d, want 1", s.Spread())
	}
	if l, r := s.SpreadPages(); l != 2 || r != 3 {
		t.Errorf("SpreadPages() = %d, %d, want 2, 3", l, r)
	}
	if got, want := s.Label(), fmt.Sprintf("Pages 3-4 of %d", total); got != want {
		t.Errorf("Label() = %q, want %q", got, want)
	}

	s.GoToSpread(1000)
	if s.Spread() != maxSpread {
		t.Errorf("GoToSpread(1000) -> %d, want %d", s.Spread(), maxSpread)
	}
	if s.Next() {
		t.Error("Next() moved past the last spread")
	}
	if s.SliderValue() != 100 {
		t.Errorf("SliderValue() at end = %v", s.SliderValue())
	}
	if total%2 == 1 {
		if got, want := s.Label(), fmt.Sprintf("Pages %d-%d of %d", total, total, total); got != want {
			t.Errorf("Label() = %q, want %q", got, want)
		}
		if _, r := s.SpreadPages(); s.HasPage(r) {
			t.Error("right page of the last spread should not exist")
		}
	}

	s.GoToSpread(-5)
	if s.Spread() != 0 || s.SliderValue() != 0 {
		t.Errorf("GoToSpread(-5) -> %d (slider %v)", s.Spread(), s.SliderValue())
	}

	s.GoToPage(5)
	if s.Spread() != 2 {
		t.Errorf("GoToPage(5) -> spread %d, want 2", s.Spread())
	}

	s.SetSlider(100)
	if s.Spread() != maxSpread {
		t.Errorf("SetSlider(100) -> %d, want %d", s.Spread(), maxSpread)
	}
	s.SetSlider(0)
	if s.Spread() != 0 {
		t.Errorf("SetSlider(0) -> %d", s.Spread())
	}
}

func TestSliderSpread(t *testing.T) {
	tests := []struct {
		percent float64
		max     int
		want    int
	}{
		{0, 10, 0},
		{100, 10, 10},
		{50, 10, 5},
		{44, 10, 4},
		{46, 10, 5},
		{50, 0, 0},
		{-20, 10, 0},
		{150, 10, 10},
	}
	for _, tt := range tests {
		if got := SliderSpread(tt.percent, tt.max); got != tt.want {
			t.Errorf("SliderSpread(%v, %d) = %d, want %d", tt.percent, tt.max, got, tt.want)
		}
	}
}

func TestFontChangeResetsSpread(t *testing.T) {
	s := openTestSession(t, longBook(t, 3, 12), Options{PageWidth: 400, PageHeight: 500})
	before := s.TotalPages()
	s.GoToSpread(2)

	if !s.IncreaseFont() {
		t.Fatal("IncreaseFont() refused")
	}
	if s.FontSize() != config.DefaultFontSize+config.FontStep {
		t.Errorf("FontSize() = %d", s.FontSize())
	}
	if s.Spread() != 0 {
		t.Errorf("Spread() after font change = %d, want 0", s.Spread())
	}
	if s.TotalPages() < before {
		t.Errorf("larger font gave fewer pages: %d < %d", s.TotalPages(), before)
	}

	for s.IncreaseFont() {
	}
	if s.FontSize() != config.MaxFontSize {
		t.Errorf("FontSize() capped at %d, want %d", s.FontSize(), config.MaxFontSize)
	}
	for s.DecreaseFont() {
	}
	if s.FontSize() != config.MinFontSize {
		t.Errorf("FontSize() floored at %d, want %d", s.FontSize(), config.MinFontSize)
	}

	if !s.SetFontFamily("Go Mono") || s.FontFamily() != "Go Mono" {
		t.Errorf("SetFontFamily failed: %q", s.FontFamily())
	}
	if s.SetFontFamily("Go Mono") {
		t.Error("SetFontFamily with the same family reported a change")
	}
}

func TestResizeKeepsSpread(t *testing.T) {
	s := openTestSession(t, longBook(t, 4, 12), Options{PageWidth: 400, PageHeight: 500})
	s.GoToSpread(3)

	if !s.Resize(420, 520) {
		t.Fatal("Resize refused")
	}
	if s.Spread() != min(3, s.MaxSpread()) {
		t.Errorf("Spread() after small resize = %d", s.Spread())
	}

	s.GoToSpread(s.MaxSpread())
	s.Resize(1600, 2400)
	if s.Spread() != s.MaxSpread() {
		t.Errorf("Spread() = %d not clamped to %d", s.Spread(), s.MaxSpread())
	}

	if s.Resize(1600, 2400) {
		t.Error("Resize to the same box reported a change")
	}
	if s.Resize(0, 100) {
		t.Error("Resize accepted an empty box")
	}
}

func TestOnChange(t *testing.T) {
	s := openTestSession(t, longBook(t, 2, 12), Options{PageWidth: 400, PageHeight: 500})

	var got [][2]int
	s.OnChange(func(spread, total int) { got = append(got, [2]int{spread, total}) })

	s.Prev() // no change at spread 0
	s.Next()
	s.Next()
	s.Prev()
	s.IncreaseFont()

	if len(got) != 4 {
		t.Fatalf("got %d notifications, want 4: %v", len(got), got)
	}
	if got[0][0] != 1 || got[1][0] != 2 || got[2][0] != 1 || got[3][0] != 0 {
		t.Errorf("spreads = %v", got)
	}
	if got[3][1] != s.TotalPages() {
		t.Errorf("total after font change = %d, want %d", got[3][1], s.TotalPages())
	}
}

type stubRenderer struct{ calls int }

func (r *stubRenderer) RenderPage(page, w, h int) (image.Image, error) {
	r.calls++
	return image.NewGray(image.Rect(0, 0, w, h)), nil
}

func TestPDFSession(t *testing.T) {
	path := pdftest.WriteFile(t, t.TempDir(), "doc.pdf", [2]int{}, [2]int{}, [2]int{})
	stub := &stubRenderer{}
	s, err := Open(path, Options{
		PageWidth:  480,
		PageHeight: 600,
		Metrics:    fakeMetrics{},
		Renderer:   func(*pdfdoc.Document) render.Renderer { return stub },
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if !s.IsPDF() || s.TotalPages() != 3 || s.MaxSpread() != 1 {
		t.Fatalf("pdf session: pdf=%v pages=%d max=%d", s.IsPDF(), s.TotalPages(), s.MaxSpread())
	}
	if s.TOC() != nil {
		t.Error("PDF session has a TOC")
	}
	if s.IncreaseFont() {
		t.Error("font change accepted for PDF")
	}

	img, err := s.RenderPage(0)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 480-PDFMarginWidth || b.Dy() != 600-PDFMarginHeight {
		t.Errorf("render box %dx%d", b.Dx(), b.Dy())
	}
	s.RenderPage(0)
	if stub.calls != 1 {
		t.Errorf("renderer called %d times, want 1 (cached)", stub.calls)
	}

	s.Next()
	if l, r := s.SpreadPages(); !s.HasPage(l) || s.HasPage(r) {
		t.Errorf("last spread pages %d/%d: want left only", l, r)
	}
	if s.Label() != "Pages 3-3 of 3" {
		t.Errorf("Label() = %q", s.Label())
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestRenderPageRequiresPDF(t *testing.T) {
	s := openTestSession(t, epubtest.Sample(t), Options{})
	if _, err := s.RenderPage(0); err == nil {
		t.Error("RenderPage succeeded on an EPUB session")
	}
}

func TestPageSize(t *testing.T) {
	tests := []struct {
		winW, winH int
		w, h       int
	}{
		{1200, 800, 565, 620},
		{1000, 900, 465, 720},
		{50, 800, FallbackPageWidth, FallbackPageHeight},
		{1200, 150, FallbackPageWidth, FallbackPageHeight},
	}
	for _, tt := range tests {
		w, h := PageSize(tt.winW, tt.winH)
		if w != tt.w || h != tt.h {
			t.Errorf("PageSize(%d, %d) = %dx%d, want %dx%d", tt.winW, tt.winH, w, h, tt.w, tt.h)
		}
	}
}
