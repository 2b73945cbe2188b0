// Package content defines the structured content model shared by the
// extractor, the paginator and the renderers.
package content

import "image"

// Block is one semantic unit of book content. The set of implementations is
// closed: TextBlock, ImageBlock and LinkBlock.
type Block interface {
	block()
}

// Link is an anchor found inside a text block.
type Link struct {
	Text string
	URL  string
}

// TextBlock is a paragraph or a header.
type TextBlock struct {
	Text        string
	IsHeader    bool
	HeaderLevel int // 1-6 for headers, 0 otherwise
	Links       []Link
}

// ImageBlock is a decoded image placed in the text flow.
type ImageBlock struct {
	Name  string
	Image image.Image
}

// LinkBlock is a standalone external link.
type LinkBlock struct {
	Text string
	URL  string
}

func (TextBlock) block()  {}
func (ImageBlock) block() {}
func (LinkBlock) block()  {}

// Page is the content of one logical page.
type Page struct {
	Blocks []Block
	// Sources[i] is the index of the input block that produced Blocks[i].
	// Chunks of a split paragraph share the same source index.
	Sources []int
}

// Len returns the number of blocks on the page.
func (p Page) Len() int { return len(p.Blocks) }

// Add appends a block produced by the input block at index src.
func (p *Page) Add(b Block, src int) {
	p.Blocks = append(p.Blocks, b)
	p.Sources = append(p.Sources, src)
}

// NavPoint is a node of a book's native navigation.
type NavPoint struct {
	Title    string
	Href     string
	Children []NavPoint
}

// Headers returns the header text blocks of the page.
func (p Page) Headers() []TextBlock {
	var out []TextBlock
	for _, b := range p.Blocks {
		if t, ok := b.(TextBlock); ok && t.IsHeader {
			out = append(out, t)
		}
	}
	return out
}

// ErrorPage builds the single synthetic page shown when a book cannot be
// loaded.
func ErrorPage(msg string) Page {
	var p Page
	p.Add(TextBlock{Text: msg}, 0)
	return p
}
