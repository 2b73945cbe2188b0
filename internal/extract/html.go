package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Kabyik-Kayal/Booker/internal/content"
)

const (
	blockSelector = "p, h1, h2, h3, h4, h5, h6, img, image, a"
	textSelector  = "p, h1, h2, h3, h4, h5, h6"
)

func parseDocument(data []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(data))
}

// walker accumulates blocks across all documents of a book so that
// duplicate text is dropped book-wide.
type walker struct {
	book *Book
	log  *zap.Logger
	seen map[string]bool
}

func (w *walker) walk(doc *goquery.Document) {
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		switch n.DataAtom {
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.text(s, headerLevel(n.DataAtom))
		case atom.Img, atom.Image:
			w.image(s)
		case atom.A:
			w.link(s)
		}
	})
}

func (w *walker) text(s *goquery.Selection, level int) {
	text := blockText(s.Get(0))
	if text == "" || w.seen[text] {
		return
	}
	w.seen[text] = true

	tb := content.TextBlock{
		Text:        text,
		IsHeader:    level > 0,
		HeaderLevel: level,
	}
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		t := collapse(a.Text())
		if t == "" {
			return
		}
		href, _ := a.Attr("href")
		tb.Links = append(tb.Links, content.Link{Text: t, URL: href})
	})
	w.book.Blocks = append(w.book.Blocks, tb)
}

func (w *walker) image(s *goquery.Selection) {
	ref := imageRef(s)
	if ref == "" {
		return
	}
	name, err := resolveImage(ref, w.book.ImageNames)
	if err != nil {
		w.log.Debug("dropping image reference", zap.Error(err))
		return
	}
	w.book.Blocks = append(w.book.Blocks, content.ImageBlock{
		Name:  name,
		Image: w.book.Images[name],
	})
}

func (w *walker) link(s *goquery.Selection) {
	// Anchors inside paragraphs and headers belong to that block.
	if s.ParentsFiltered(textSelector).Length() > 0 {
		return
	}
	text := collapse(s.Text())
	href, _ := s.Attr("href")
	if text == "" || !isExternal(href) {
		return
	}
	w.book.Blocks = append(w.book.Blocks, content.LinkBlock{Text: text, URL: href})
}

func imageRef(s *goquery.Selection) string {
	for _, attr := range []string{"src", "xlink:href", "href"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func isExternal(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://")
}

func headerLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// blockText returns the text of n with <br> kept as line breaks. Whitespace
// runs within a line collapse to one space and lines are trimmed.
func blockText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(sourceBreaks.Replace(n.Data))
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	lines := strings.Split(sb.String(), "\n")
	for i, l := range lines {
		lines[i] = collapse(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Line breaks in the markup itself are just whitespace.
var sourceBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
