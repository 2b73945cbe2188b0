// Package pdftest writes minimal PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Bytes returns a PDF with one empty page per entry of sizes. The page tree
// carries a 612×792 MediaBox; a zero size inherits it.
func Bytes(sizes ...[2]int) []byte {
	n := len(sizes)
	kids := make([]string, n)
	for i := range sizes {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), n),
	}
	for _, s := range sizes {
		if s[0] == 0 || s[1] == 0 {
			objects = append(objects, "<< /Type /Page /Parent 2 0 R >>")
			continue
		}
		objects = append(objects, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] >>", s[0], s[1]))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// WriteFile writes Bytes(sizes...) to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, sizes ...[2]int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Bytes(sizes...), 0o644); err != nil {
		t.Fatalf("pdftest: write %s: %v", p, err)
	}
	return p
}
