// Package pdfdoc is the fixed-layout document handle used for PDF books.
// PDFs paginate natively, so the reader only needs page count, page boxes
// and a rasterization entry point.
package pdfdoc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// US Letter, used for pages without a usable MediaBox.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

// ErrClosed is returned by methods called after Close.
var ErrClosed = errors.New("pdf document is closed")

// Document is an open PDF. It must be closed to release the file.
type Document struct {
	r     *pdf.Reader
	pages int
}

// Open opens the PDF file at path.
func Open(path string) (*Document, error) {
	r, err := pdf.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return newDocument(r)
}

// NewDocument reads a PDF from data. Close closes data when it implements
// io.Closer.
func NewDocument(data io.ReaderAt, size int64) (*Document, error) {
	r, err := pdf.NewReader(data, size, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return newDocument(r)
}

func newDocument(r *pdf.Reader) (*Document, error) {
	n, err := pagetree.NumPages(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to read page tree: %w", err)
	}
	return &Document{r: r, pages: n}, nil
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int { return d.pages }

// PageSize returns the MediaBox of page i (0-based) in points.
func (d *Document) PageSize(i int) (width, height float64, err error) {
	if d.r == nil {
		return 0, 0, ErrClosed
	}
	if i < 0 || i >= d.pages {
		return 0, 0, fmt.Errorf("page %d out of range [0, %d)", i, d.pages)
	}
	_, dict, err := pagetree.GetPage(d.r, i)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load page %d: %w", i, err)
	}
	box, err := pdf.GetRectangle(d.r, dict["MediaBox"])
	if err != nil || box == nil {
		return DefaultPageWidth, DefaultPageHeight, nil
	}
	width, height = box.URx-box.LLx, box.URy-box.LLy
	if width <= 0 || height <= 0 {
		return DefaultPageWidth, DefaultPageHeight, nil
	}
	return width, height, nil
}

// FitSize scales a w×h page to fit inside maxWidth×maxHeight, keeping its
// aspect ratio.
func FitSize(w, h float64, maxWidth, maxHeight int) (int, int) {
	if w <= 0 || h <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return 0, 0
	}
	scale := min(float64(maxWidth)/w, float64(maxHeight)/h)
	return max(1, int(w*scale)), max(1, int(h*scale))
}

// RenderPage returns a blank page canvas of the page's proportions fitted
// into maxWidth×maxHeight. Content rasterization is left to a dedicated
// renderer behind render.Renderer.
func (d *Document) RenderPage(page, maxWidth, maxHeight int) (image.Image, error) {
	w, h, err := d.PageSize(page)
	if err != nil {
		return nil, err
	}
	pw, ph := FitSize(w, h, maxWidth, maxHeight)
	if pw == 0 || ph == 0 {
		return nil, fmt.Errorf("invalid render box %dx%d", maxWidth, maxHeight)
	}
	return imaging.New(pw, ph, color.White), nil
}

// Close releases the underlying file. It is safe to call more than once.
func (d *Document) Close() error {
	if d.r == nil {
		return nil
	}
	err := d.r.Close()
	d.r = nil
	return err
}
