package pdfdoc

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/Kabyik-Kayal/Booker/internal/pdfdoc/pdftest"
)

func TestOpen(t *testing.T) {
	path := pdftest.WriteFile(t, t.TempDir(), "two.pdf", [2]int{}, [2]int{300, 400})
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if d.NumPages() != 2 {
		t.Fatalf("NumPages() = %d, want 2", d.NumPages())
	}

	tests := []struct {
		page int
		w, h float64
	}{
		{0, 612, 792},
		{1, 300, 400},
	}
	for _, tt := range tests {
		w, h, err := d.PageSize(tt.page)
		if err != nil {
			t.Fatalf("PageSize(%d): %v", tt.page, err)
		}
		if w != tt.w || h != tt.h {
			t.Errorf("PageSize(%d) = %vx%v, want %vx%v", tt.page, w, h, tt.w, tt.h)
		}
	}

	if _, _, err := d.PageSize(2); err == nil {
		t.Error("PageSize(2) succeeded on a two-page document")
	}
}

func TestRenderPage(t *testing.T) {
	data := pdftest.Bytes([2]int{300, 400})
	d, err := NewDocument(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	defer d.Close()

	img, err := d.RenderPage(0, 150, 1000)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 150 || b.Dy() != 200 {
		t.Errorf("rendered %dx%d, want 150x200", b.Dx(), b.Dy())
	}
	if got := color.NRGBAModel.Convert(img.At(10, 10)); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("canvas pixel = %v, want white", got)
	}

	if _, err := d.RenderPage(0, 0, 100); err == nil {
		t.Error("RenderPage accepted an empty box")
	}
}

func TestClose(t *testing.T) {
	data := pdftest.Bytes([2]int{})
	d, err := NewDocument(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, _, err := d.PageSize(0); !errors.Is(err, ErrClosed) {
		t.Errorf("PageSize after Close = %v, want ErrClosed", err)
	}
}

func TestOpenInvalid(t *testing.T) {
	data := []byte("not a pdf")
	if _, err := NewDocument(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("expected error for invalid data")
	}
	if _, err := Open("/nonexistent.pdf"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h         float64
		maxW, maxH   int
		wantW, wantH int
	}{
		{612, 792, 306, 2000, 306, 396},
		{612, 792, 2000, 396, 306, 396},
		{100, 100, 50, 80, 50, 50},
		{100, 100, 0, 80, 0, 0},
	}
	for _, tt := range tests {
		w, h := FitSize(tt.w, tt.h, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("FitSize(%v, %v, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}
