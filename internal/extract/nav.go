package extract

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/taylorskalyo/goreader/epub"

	"github.com/Kabyik-Kayal/Booker/internal/content"
)

// toc.ncx navMap, decoded with encoding/xml.
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []ncxPoint `xml:"navPoint"`
}

type ncxPoint struct {
	Label    ncxLabel   `xml:"navLabel"`
	Content  ncxContent `xml:"content"`
	Children []ncxPoint `xml:"navPoint"`
}

type ncxLabel struct {
	Text string `xml:"text"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

func navFromNCX(item *epub.Item) ([]content.NavPoint, error) {
	data, err := readItem(item)
	if err != nil {
		return nil, err
	}
	var doc ncx
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return convertNCX(doc.NavMap.NavPoints), nil
}

func convertNCX(points []ncxPoint) []content.NavPoint {
	var out []content.NavPoint
	for _, p := range points {
		np := content.NavPoint{
			Title:    collapse(p.Label.Text),
			Href:     p.Content.Src,
			Children: convertNCX(p.Children),
		}
		if np.Title == "" {
			out = append(out, np.Children...)
			continue
		}
		out = append(out, np)
	}
	return out
}

// navFromDocument reports whether doc is an EPUB 3 navigation document and
// returns its table of contents.
func navFromDocument(doc *goquery.Document) ([]content.NavPoint, bool) {
	var toc *goquery.Selection
	doc.Find("nav").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("epub:type")
		for _, t := range strings.Fields(typ) {
			if t == "toc" {
				toc = s
				return false
			}
		}
		return true
	})
	if toc == nil {
		return nil, false
	}
	return navList(toc.Find("ol").First()), true
}

func navList(ol *goquery.Selection) []content.NavPoint {
	var out []content.NavPoint
	ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		label := li.ChildrenFiltered("a, span").First()
		np := content.NavPoint{
			Title:    collapse(label.Text()),
			Children: navList(li.ChildrenFiltered("ol").First()),
		}
		np.Href, _ = label.Attr("href")
		if np.Title == "" {
			out = append(out, np.Children...)
			return
		}
		out = append(out, np)
	})
	return out
}
