// Package extract turns an EPUB container into an ordered sequence of
// content blocks, its decoded images and its native navigation.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"go.uber.org/zap"

	"github.com/Kabyik-Kayal/Booker/internal/content"
)

// ErrNoDocuments is wrapped by a ParseError when a container holds no
// readable document parts.
var ErrNoDocuments = errors.New("no document parts")

// ParseError reports a container that could not be opened or read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse epub: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeError reports an image resource that could not be decoded.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ResolveError reports an image reference that matches no decoded image.
type ResolveError struct {
	Ref string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("image %q not found", e.Ref)
}

// Book is everything extracted from one EPUB.
type Book struct {
	Title       string
	Author      string
	Description string

	Blocks []content.Block
	// Images holds decoded images by manifest path. ImageNames lists the
	// same keys in manifest order.
	Images     map[string]image.Image
	ImageNames []string

	Nav           []content.NavPoint
	DocumentCount int
}

// Cover returns the first image whose name contains "cover", or the first
// image when none does. ok is false for books without images.
func (b *Book) Cover() (name string, img image.Image, ok bool) {
	for _, n := range b.ImageNames {
		if strings.Contains(strings.ToLower(n), "cover") {
			return n, b.Images[n], true
		}
	}
	if len(b.ImageNames) == 0 {
		return "", nil, false
	}
	n := b.ImageNames[0]
	return n, b.Images[n], true
}

// Extractor reads EPUB files. The zero value is not usable; call New.
type Extractor struct {
	log     *zap.Logger
	decoder Decoder
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. Recovered per-image failures are logged at
// debug level.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithDecoder replaces the image decoder.
func WithDecoder(d Decoder) Option {
	return func(e *Extractor) { e.decoder = d }
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		log:     zap.NewNop(),
		decoder: ImagingDecoder{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractFile extracts the EPUB at path.
func (e *Extractor) ExtractFile(path string) (*Book, error) {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer rc.Close()

	b, err := e.extract(&rc.Reader)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return b, nil
}

// ExtractBytes extracts an EPUB held in memory.
func (e *Extractor) ExtractBytes(data []byte) (*Book, error) {
	r, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	b, err := e.extract(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return b, nil
}

func (e *Extractor) extract(r *epub.Reader) (*Book, error) {
	if len(r.Rootfiles) == 0 {
		return nil, errors.New("no rootfiles found in epub")
	}
	pkg := r.Rootfiles[0]

	b := &Book{
		Title:       strings.TrimSpace(pkg.Metadata.Title),
		Author:      strings.TrimSpace(pkg.Metadata.Creator),
		Description: strings.TrimSpace(pkg.Metadata.Description),
		Images:      make(map[string]image.Image),
	}

	var docs []*epub.Item
	var ncxItem *epub.Item
	for i := range pkg.Manifest.Items {
		item := &pkg.Manifest.Items[i]
		switch {
		case isDocument(item):
			docs = append(docs, item)
		case isImage(item):
			e.loadImage(b, item)
		case item.MediaType == ncxMediaType:
			ncxItem = item
		}
	}

	w := &walker{book: b, log: e.log, seen: make(map[string]bool)}
	for _, item := range docs {
		data, err := readItem(item)
		if err != nil {
			e.log.Debug("skipping unreadable document", zap.String("href", item.HREF), zap.Error(err))
			continue
		}
		doc, err := parseDocument(data)
		if err != nil {
			e.log.Debug("skipping malformed document", zap.String("href", item.HREF), zap.Error(err))
			continue
		}
		if nav, ok := navFromDocument(doc); ok {
			if len(b.Nav) == 0 {
				b.Nav = nav
			}
			continue
		}
		b.DocumentCount++
		w.walk(doc)
	}

	if b.DocumentCount == 0 {
		return nil, ErrNoDocuments
	}

	if len(b.Nav) == 0 && ncxItem != nil {
		nav, err := navFromNCX(ncxItem)
		if err != nil {
			e.log.Debug("ignoring malformed NCX", zap.String("href", ncxItem.HREF), zap.Error(err))
		}
		b.Nav = nav
	}

	e.log.Debug("extracted epub",
		zap.String("title", b.Title),
		zap.Int("documents", b.DocumentCount),
		zap.Int("blocks", len(b.Blocks)),
		zap.Int("images", len(b.Images)),
		zap.Int("nav_points", len(b.Nav)),
	)
	return b, nil
}

func (e *Extractor) loadImage(b *Book, item *epub.Item) {
	data, err := readItem(item)
	if err == nil {
		var img image.Image
		img, err = e.decoder.Decode(data)
		if err == nil {
			b.Images[item.HREF] = img
			b.ImageNames = append(b.ImageNames, item.HREF)
			return
		}
	}
	e.log.Debug("dropping image", zap.Error(&DecodeError{Name: item.HREF, Err: err}))
}

const ncxMediaType = "application/x-dtbncx+xml"

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".svg": true,
}

func isDocument(item *epub.Item) bool {
	switch item.MediaType {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

func isImage(item *epub.Item) bool {
	if strings.HasPrefix(item.MediaType, "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(item.HREF))]
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
