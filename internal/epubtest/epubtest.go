// Package epubtest builds small EPUB containers for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/png"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
)

// Document is one XHTML part. Body is inserted verbatim inside <body>.
type Document struct {
	Href string
	Body string
}

// Resource is an arbitrary manifest item such as an image.
type Resource struct {
	Href      string
	MediaType string // derived from the extension when empty
	Data      []byte
}

// Book describes the container to build. All hrefs are relative to the
// package document in OEBPS/.
type Book struct {
	Title       string
	Author      string
	Description string

	Documents []Document
	Resources []Resource

	// NavBody, when set, adds an EPUB 3 navigation document with this body.
	NavBody string
	// NCX, when set, adds a toc.ncx whose navMap holds this markup.
	NCX string
}

// Bytes returns the zipped container.
func (b Book) Bytes(t testing.TB) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	files := b.files()
	order := []string{"mimetype", "META-INF/container.xml", "OEBPS/content.opf"}
	for name := range files {
		if name != order[0] && name != order[1] && name != order[2] {
			order = append(order, name)
		}
	}
	for _, name := range order {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("epubtest: create %s: %v", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			t.Fatalf("epubtest: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("epubtest: close: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes the container to dir/name and returns its path.
func (b Book) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b.Bytes(t), 0o644); err != nil {
		t.Fatalf("epubtest: write %s: %v", p, err)
	}
	return p
}

func (b Book) files() map[string][]byte {
	files := map[string][]byte{
		"mimetype": []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`),
	}

	var manifest, spine strings.Builder
	for i, d := range b.Documents {
		id := fmt.Sprintf("doc%d", i)
		fmt.Fprintf(&manifest, `    <item id="%s" href="%s" media-type="application/xhtml+xml"/>`+"\n", id, d.Href)
		fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", id)
		files["OEBPS/"+d.Href] = []byte(XHTML(d.Body))
	}
	for i, r := range b.Resources {
		id := fmt.Sprintf("res%d", i)
		mt := r.MediaType
		if mt == "" {
			mt = mime.TypeByExtension(path.Ext(r.Href))
		}
		fmt.Fprintf(&manifest, `    <item id="%s" href="%s" media-type="%s"/>`+"\n", id, r.Href, mt)
		if len(b.Documents) == 0 && i == 0 {
			fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", id)
		}
		files["OEBPS/"+r.Href] = r.Data
	}
	if b.NavBody != "" {
		manifest.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
		files["OEBPS/nav.xhtml"] = []byte(XHTML(b.NavBody))
	}
	spineAttr := ""
	if b.NCX != "" {
		manifest.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
		spineAttr = ` toc="ncx"`
		files["OEBPS/toc.ncx"] = []byte(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
` + b.NCX + `
  </navMap>
</ncx>`)
	}

	files["OEBPS/content.opf"] = []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">urn:uuid:test</dc:identifier>
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:description>%s</dc:description>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
%s  </manifest>
  <spine%s>
%s  </spine>
</package>`,
		html.EscapeString(b.Title), html.EscapeString(b.Author), html.EscapeString(b.Description),
		manifest.String(), spineAttr, spine.String()))

	return files
}

// XHTML wraps body in a minimal XHTML document.
func XHTML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>t</title></head>
<body>
` + body + `
</body>
</html>`
}

// PNG returns an encoded solid-color image of the given size.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("epubtest: encode png: %v", err)
	}
	return buf.Bytes()
}

// Sample is a small two-chapter book with a cover, an inline image and an
// NCX table of contents.
func Sample(t testing.TB) Book {
	t.Helper()
	return Book{
		Title:       "Sample Book",
		Author:      "Jane Doe",
		Description: "A book for tests.",
		Documents: []Document{
			{Href: "text/ch1.xhtml", Body: `<h1>Chapter 1</h1>
<p>It was a bright cold day in April.</p>
<h2>Section 1.1</h2>
<p>The clocks were striking <a href="https://example.com/thirteen">thirteen</a>.</p>
<p><img src="../images/figure.png" alt="figure"/></p>`},
			{Href: "text/ch2.xhtml", Body: `<h1>Chapter 2</h1>
<p>Outside, even through the shut window-pane, the world looked cold.</p>
<a href="https://example.com/more">Read more online</a>`},
		},
		Resources: []Resource{
			{Href: "images/cover.png", Data: PNG(t, 60, 90)},
			{Href: "images/figure.png", Data: PNG(t, 40, 20)},
		},
		NCX: `    <navPoint id="n1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="n2" playOrder="2">
        <navLabel><text>Section 1.1</text></navLabel>
        <content src="text/ch1.xhtml#s11"/>
      </navPoint>
    </navPoint>
    <navPoint id="n3" playOrder="3">
      <navLabel><text>Chapter 2</text></navLabel>
      <content src="text/ch2.xhtml"/>
    </navPoint>`,
	}
}
