package library

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/Kabyik-Kayal/Booker/internal/extract"
	"github.com/Kabyik-Kayal/Booker/internal/pdfdoc"
)

// Cover thumbnail size, the medium library card.
const (
	CoverWidth  = 140
	CoverHeight = 210
)

func init() {
	Register(&EPUBFormat{})
	Register(&PDFFormat{})
}

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct {
	// Extractor defaults to extract.New().
	Extractor *extract.Extractor
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Type() FileType       { return EPUB }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

func (f *EPUBFormat) Inspect(filename string) (*Metadata, error) {
	e := f.Extractor
	if e == nil {
		e = extract.New()
	}
	book, err := e.ExtractFile(filename)
	if err != nil {
		return nil, err
	}

	md := &Metadata{
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Pages:       book.DocumentCount,
	}
	if _, img, ok := book.Cover(); ok {
		if md.Cover, err = Thumbnail(img); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// PDFFormat implements Format for PDF files.
type PDFFormat struct{}

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Type() FileType       { return PDF }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }

func (f *PDFFormat) Inspect(filename string) (*Metadata, error) {
	doc, err := pdfdoc.Open(filename)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	md := &Metadata{Pages: doc.NumPages()}
	if md.Pages > 0 {
		w, h, err := doc.PageSize(0)
		if err != nil {
			return nil, err
		}
		// First page at half scale.
		first, err := doc.RenderPage(0, int(w/2), int(h/2))
		if err != nil {
			return nil, err
		}
		if md.Cover, err = Thumbnail(first); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// Thumbnail crops and scales img to the cover size and encodes it as PNG.
func Thumbnail(img image.Image) ([]byte, error) {
	thumb := imaging.Thumbnail(img, CoverWidth, CoverHeight, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
