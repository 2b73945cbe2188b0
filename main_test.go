package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Kabyik-Kayal/Booker/internal/epubtest"
	"github.com/Kabyik-Kayal/Booker/internal/library"
	"github.com/Kabyik-Kayal/Booker/internal/toc"
)

// run executes the CLI with an isolated config and state directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	return dir
}

func TestLibraryCommands(t *testing.T) {
	dir := isolate(t)
	book := epubtest.Sample(t).WriteFile(t, dir, "sample.epub")

	out, err := run(t, "import", book)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if want := "Imported 1: Sample Book by Jane Doe (2 pages)\n"; out != want {
		t.Errorf("import output = %q, want %q", out, want)
	}

	if _, err := run(t, "import", book); err != nil {
		t.Errorf("importing a duplicate should be skipped, got %v", err)
	}

	out, err = run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Sample Book") || !strings.Contains(out, "Jane Doe") {
		t.Errorf("list output missing book:\n%s", out)
	}

	out, err = run(t, "favorite", "1")
	if err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if out != "Book 1 is now marked favorite.\n" {
		t.Errorf("favorite output = %q", out)
	}

	out, _ = run(t, "list", "--favorites")
	if !strings.Contains(out, "Sample Book") || !strings.Contains(out, "favorite") {
		t.Errorf("favorites list:\n%s", out)
	}
	out, _ = run(t, "list", "--finished")
	if out != "No books.\n" {
		t.Errorf("finished list = %q", out)
	}

	if _, err := run(t, "remove", "1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out, _ = run(t, "list")
	if out != "No books.\n" {
		t.Errorf("list after remove = %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown book", []string{"favorite", "7"}, library.ErrNotFound},
		{"unsupported import", []string{"import", "notes.txt"}, library.ErrUnsupportedFormat},
		{"unsupported type filter", []string{"list", "--type", "mobi"}, library.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := run(t, "favorite", "abc"); err == nil {
		t.Error("favorite with a non-numeric ID succeeded")
	}
	if _, err := run(t, "toc", "no-such-book"); err == nil {
		t.Error("toc of a missing book succeeded")
	}
}

func TestTOCCommand(t *testing.T) {
	dir := isolate(t)
	book := epubtest.Sample(t).WriteFile(t, dir, "sample.epub")

	out, err := run(t, "toc", book)
	if err != nil {
		t.Fatalf("toc: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("toc output has %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "Chapter 1  p.1" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  Section 1.1  p.") {
		t.Errorf("second line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Chapter 2  p.") {
		t.Errorf("third line = %q", lines[2])
	}
}

func TestPagesCommand(t *testing.T) {
	dir := isolate(t)
	book := epubtest.Sample(t).WriteFile(t, dir, "sample.epub")

	out, err := run(t, "pages", book, "--width", "400", "--height", "600", "--font-size", "40")
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if !strings.Contains(out, "(page 400x600, Go 26pt)") {
		t.Errorf("pages output = %q", out)
	}
}

func TestConfigAndVersion(t *testing.T) {
	isolate(t)

	out, err := run(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, `font_family = "Go"`) || !strings.Contains(out, "font_size = 18") {
		t.Errorf("config output:\n%s", out)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "booker dev (commit: none") {
		t.Errorf("version output = %q", out)
	}
}

func TestResolveBook(t *testing.T) {
	dir := t.TempDir()
	store, err := library.NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path := filepath.Join(dir, "loose.epub")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	listed := filepath.Join(dir, "listed.epub")
	if err := os.WriteFile(listed, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	id, err := store.Add(&library.Book{Title: "Listed", FilePath: listed, FileType: library.EPUB})
	if err != nil {
		t.Fatal(err)
	}

	got, book, err := resolveBook(store, path)
	if err != nil || got != path || book != nil {
		t.Errorf("resolveBook(loose) = %q, %v, %v", got, book, err)
	}
	got, book, err = resolveBook(store, listed)
	if err != nil || got != listed || book == nil || book.ID != id {
		t.Errorf("resolveBook(listed) = %q, %v, %v", got, book, err)
	}
	got, book, err = resolveBook(store, "1")
	if err != nil || got != listed || book == nil {
		t.Errorf("resolveBook(1) = %q, %v, %v", got, book, err)
	}
	if _, _, err := resolveBook(store, "2"); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("resolveBook(2) error = %v, want ErrNotFound", err)
	}
	if _, _, err := resolveBook(store, "missing.epub"); err == nil {
		t.Error("resolveBook(missing.epub) succeeded")
	}
}

func TestNewLogger(t *testing.T) {
	quiet, err := newLogger(false)
	if err != nil {
		t.Fatalf("newLogger(false): %v", err)
	}
	if quiet.Core().Enabled(zap.InfoLevel) || !quiet.Core().Enabled(zap.WarnLevel) {
		t.Error("default logger should log warnings only")
	}

	verbose, err := newLogger(true)
	if err != nil {
		t.Fatalf("newLogger(true): %v", err)
	}
	if !verbose.Core().Enabled(zap.DebugLevel) {
		t.Error("verbose logger should log debug output")
	}
}

func TestPrintTOC(t *testing.T) {
	var buf bytes.Buffer
	printTOC(&buf, nil)
	if buf.String() != "No table of contents.\n" {
		t.Errorf("empty toc = %q", buf.String())
	}

	buf.Reset()
	printTOC(&buf, []*toc.Entry{
		{Title: "One", PageIndex: 0, Children: []*toc.Entry{{Title: "Inner", PageIndex: 3, Depth: 1}}},
	})
	if want := "One  p.1\n  Inner  p.4\n"; buf.String() != want {
		t.Errorf("printTOC = %q, want %q", buf.String(), want)
	}
}

func TestMarks(t *testing.T) {
	b := &library.Book{Favorite: true, Finished: true}
	if got := marks(b); got != "favorite,finished" {
		t.Errorf("marks() = %q", got)
	}
}
