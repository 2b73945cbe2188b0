package toc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Kabyik-Kayal/Booker/internal/content"
)

func header(level int, text string) content.TextBlock {
	return content.TextBlock{Text: text, IsHeader: true, HeaderLevel: level}
}

func para(text string) content.TextBlock {
	return content.TextBlock{Text: text}
}

func TestFromNavPreservesNesting(t *testing.T) {
	nav := []content.NavPoint{
		{Title: "Chapter 1", Href: "ch1.xhtml", Children: []content.NavPoint{
			{Title: "Section 1.1", Href: "ch1.xhtml#s1"},
		}},
		{Title: " Chapter 2 ", Href: "ch2.xhtml"},
	}

	got := FromNav(nav)
	want := []*Entry{
		{Title: "Chapter 1", PageIndex: 0, Depth: 0, Children: []*Entry{
			{Title: "Section 1.1", PageIndex: 1, Depth: 1},
		}},
		{Title: "Chapter 2", PageIndex: 2, Depth: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromNav() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHeaders(t *testing.T) {
	blocks := []content.Block{
		header(1, "Chapter 1"),
		para("Intro."),
		header(2, "Section 1.1"),
		para("Body."),
		header(1, "Chapter 2"),
	}

	got := FromHeaders(blocks)
	want := []*Entry{
		{Title: "Chapter 1", PageIndex: 0, Depth: 0, Children: []*Entry{
			{Title: "Section 1.1", PageIndex: 0, Depth: 1},
		}},
		{Title: "Chapter 2", PageIndex: 0, Depth: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromHeaders() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHeadersSkipsLevels(t *testing.T) {
	blocks := []content.Block{
		header(1, "Part"),
		header(3, "Deep"),
		header(2, "Shallow"),
		header(4, "Deeper"),
	}

	got := FromHeaders(blocks)
	if len(got) != 1 {
		t.Fatalf("got %d roots, want 1", len(got))
	}
	part := got[0]
	if len(part.Children) != 2 {
		t.Fatalf("Part has %d children, want 2", len(part.Children))
	}
	if part.Children[0].Title != "Deep" || part.Children[0].Depth != 1 {
		t.Errorf("first child = %+v, want Deep at depth 1", part.Children[0])
	}
	shallow := part.Children[1]
	if shallow.Title != "Shallow" || len(shallow.Children) != 1 || shallow.Children[0].Title != "Deeper" {
		t.Errorf("Deeper should nest under Shallow, got %+v", shallow)
	}
	if shallow.Children[0].Depth != 2 {
		t.Errorf("Deeper depth = %d, want 2", shallow.Children[0].Depth)
	}
}

func TestFromHeadersFilters(t *testing.T) {
	blocks := []content.Block{
		header(1, strings.Repeat("x", MaxTitleLength)),
		header(5, "Fifth level"),
		header(6, "Sixth level"),
		header(1, "   "),
		para("Not a header"),
		content.LinkBlock{Text: "link", URL: "https://example.com"},
	}

	if got := FromHeaders(blocks); len(got) != 0 {
		t.Errorf("FromHeaders() = %d entries, want 0", len(got))
	}
}

func TestFromHeadersEstimatesPages(t *testing.T) {
	var blocks []content.Block
	for i := 0; i < 20; i++ {
		blocks = append(blocks, para("filler"))
	}
	blocks = append(blocks, header(1, "Late chapter"))

	got := FromHeaders(blocks)
	if len(got) != 1 || got[0].PageIndex != 20/BlocksPerPage {
		t.Errorf("got %+v, want PageIndex %d", got, 20/BlocksPerPage)
	}
}

func TestBuildPrefersNav(t *testing.T) {
	nav := []content.NavPoint{{Title: "From nav"}}
	blocks := []content.Block{header(1, "From headers")}

	if got := Build(nav, blocks); len(got) != 1 || got[0].Title != "From nav" {
		t.Errorf("Build with nav = %+v", got)
	}
	if got := Build(nil, blocks); len(got) != 1 || got[0].Title != "From headers" {
		t.Errorf("Build without nav = %+v", got)
	}
}

func TestCorrect(t *testing.T) {
	pages := []content.Page{
		{Blocks: []content.Block{para("front matter")}},
		{Blocks: []content.Block{header(1, "Chapter 1"), para("text")}},
		{Blocks: []content.Block{header(2, "Section 1.1")}},
		{Blocks: []content.Block{header(1, "Chapter 1")}},
	}
	entries := []*Entry{
		{Title: "Chapter 1", PageIndex: 0, Children: []*Entry{
			{Title: " Section 1.1", PageIndex: 1, Depth: 1},
		}},
		{Title: "Appendix", PageIndex: 7},
	}

	Correct(entries, pages)

	if entries[0].PageIndex != 1 {
		t.Errorf("Chapter 1 page = %d, want 1 (first match)", entries[0].PageIndex)
	}
	if entries[0].Children[0].PageIndex != 2 {
		t.Errorf("Section 1.1 page = %d, want 2", entries[0].Children[0].PageIndex)
	}
	if entries[1].PageIndex != 7 {
		t.Errorf("unmatched entry page = %d, want estimate 7 kept", entries[1].PageIndex)
	}
}

func TestCorrectMatchedEntriesPointAtHeader(t *testing.T) {
	var pages []content.Page
	for i := 0; i < 10; i++ {
		pages = append(pages, content.Page{Blocks: []content.Block{para("body")}})
	}
	pages[4].Blocks = append(pages[4].Blocks, header(1, "Target"))

	entries := []*Entry{{Title: "Target"}}
	Correct(entries, pages)

	found := false
	for _, h := range pages[entries[0].PageIndex].Headers() {
		if h.Text == "Target" {
			found = true
		}
	}
	if !found {
		t.Errorf("page %d has no header titled Target", entries[0].PageIndex)
	}
}

func TestFlatten(t *testing.T) {
	entries := FromNav([]content.NavPoint{
		{Title: "A", Children: []content.NavPoint{{Title: "A.1"}, {Title: "A.2"}}},
		{Title: "B"},
	})

	var titles []string
	for _, e := range Flatten(entries) {
		titles = append(titles, e.Title)
	}
	if diff := cmp.Diff([]string{"A", "A.1", "A.2", "B"}, titles); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

func TestClone(t *testing.T) {
	orig := FromNav([]content.NavPoint{{Title: "A", Children: []content.NavPoint{{Title: "A.1"}}}})
	c := Clone(orig)
	c[0].Children[0].PageIndex = 99

	if orig[0].Children[0].PageIndex == 99 {
		t.Error("Clone shares children with the original")
	}
}
