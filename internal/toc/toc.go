// Package toc builds a book's table of contents and maps its entries to
// pages.
package toc

import (
	"strings"
	"unicode/utf8"

	"github.com/Kabyik-Kayal/Booker/internal/content"
)

const (
	// MaxDepth is the deepest header level included in a synthesized outline.
	MaxDepth = 4
	// MaxTitleLength excludes long "headers", which are usually body text
	// marked up as a heading.
	MaxTitleLength = 80
	// BlocksPerPage is the rough page estimate used before pagination.
	BlocksPerPage = 8
)

// Entry is one node of the table of contents.
type Entry struct {
	Title     string
	PageIndex int
	Depth     int
	Children  []*Entry
}

// Build returns the outline from native navigation when there is any, and
// synthesizes one from header blocks otherwise.
func Build(nav []content.NavPoint, blocks []content.Block) []*Entry {
	if len(nav) > 0 {
		return FromNav(nav)
	}
	return FromHeaders(blocks)
}

// FromNav converts native navigation, preserving nesting. PageIndex holds
// the number of entries created before it until Correct runs.
func FromNav(nav []content.NavPoint) []*Entry {
	count := 0
	var walk func(points []content.NavPoint, depth int) []*Entry
	walk = func(points []content.NavPoint, depth int) []*Entry {
		var out []*Entry
		for _, np := range points {
			e := &Entry{
				Title:     strings.TrimSpace(np.Title),
				PageIndex: count,
				Depth:     depth,
			}
			count++
			e.Children = walk(np.Children, depth+1)
			out = append(out, e)
		}
		return out
	}
	return walk(nav, 0)
}

// FromHeaders infers an outline from header levels 1 through MaxDepth.
// A header nests under the nearest open header of a smaller level.
func FromHeaders(blocks []content.Block) []*Entry {
	var roots []*Entry
	var open [MaxDepth]*Entry

	for i, b := range blocks {
		tb, ok := b.(content.TextBlock)
		if !ok || !tb.IsHeader || tb.HeaderLevel < 1 || tb.HeaderLevel > MaxDepth {
			continue
		}
		title := strings.TrimSpace(tb.Text)
		if title == "" || utf8.RuneCountInString(title) >= MaxTitleLength {
			continue
		}

		slot := tb.HeaderLevel - 1
		var parent *Entry
		for j := slot - 1; j >= 0; j-- {
			if open[j] != nil {
				parent = open[j]
				break
			}
		}

		e := &Entry{Title: title, PageIndex: i / BlocksPerPage}
		if parent != nil {
			e.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, e)
		} else {
			roots = append(roots, e)
		}

		open[slot] = e
		for j := slot + 1; j < MaxDepth; j++ {
			open[j] = nil
		}
	}
	return roots
}

// Correct points every entry whose title matches a header on some page at
// the first such page. Other entries keep their estimate.
func Correct(entries []*Entry, pages []content.Page) {
	first := make(map[string]int)
	for i, p := range pages {
		for _, h := range p.Headers() {
			text := strings.TrimSpace(h.Text)
			if _, ok := first[text]; !ok {
				first[text] = i
			}
		}
	}

	var walk func([]*Entry)
	walk = func(es []*Entry) {
		for _, e := range es {
			if page, ok := first[strings.TrimSpace(e.Title)]; ok {
				e.PageIndex = page
			}
			walk(e.Children)
		}
	}
	walk(entries)
}

// Flatten lists entries in pre-order.
func Flatten(entries []*Entry) []*Entry {
	var out []*Entry
	var walk func([]*Entry)
	walk = func(es []*Entry) {
		for _, e := range es {
			out = append(out, e)
			walk(e.Children)
		}
	}
	walk(entries)
	return out
}

// Clone deep-copies a forest so page indices can be rewritten without
// touching the original.
func Clone(entries []*Entry) []*Entry {
	if entries == nil {
		return nil
	}
	out := make([]*Entry, len(entries))
	for i, e := range entries {
		c := *e
		c.Children = Clone(e.Children)
		out[i] = &c
	}
	return out
}
