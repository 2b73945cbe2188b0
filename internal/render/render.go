// Package render holds the drawing-side contracts of the spread reader:
// image display scaling and the bounded cache of rasterized PDF pages.
package render

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	// ImageMaxHeight caps the display height of an inline image.
	ImageMaxHeight = 350
	// ImagePadding is subtracted from the wrap width for inline images.
	ImagePadding = 20
)

// DisplaySize returns the on-screen size of a w×h image on a page whose text
// wraps at wrapWidth. Images are only ever scaled down and keep their aspect
// ratio.
func DisplaySize(w, h, wrapWidth int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	ratio := min(
		float64(wrapWidth-ImagePadding)/float64(w),
		float64(ImageMaxHeight)/float64(h),
		1.0,
	)
	if ratio <= 0 {
		return 0, 0
	}
	return int(float64(w) * ratio), int(float64(h) * ratio)
}

// ScaleForDisplay resizes img to its display size. The image is returned
// unchanged when no scaling is needed.
func ScaleForDisplay(img image.Image, wrapWidth int) image.Image {
	b := img.Bounds()
	w, h := DisplaySize(b.Dx(), b.Dy(), wrapWidth)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	if w == 0 || h == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
