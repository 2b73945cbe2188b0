package extract

import (
	"bytes"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Decoder turns raw image bytes into a bitmap.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

// ImagingDecoder decodes the formats registered with the image package,
// honoring EXIF orientation.
type ImagingDecoder struct{}

// Decode implements Decoder.
func (ImagingDecoder) Decode(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

// baseName returns the trailing file name of a reference, after the last
// slash or backslash, without fragment or query.
func baseName(ref string) string {
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.LastIndexAny(ref, `/\`); i >= 0 {
		ref = ref[i+1:]
	}
	return ref
}

// resolveImage matches ref against names: first by exact file name, then by
// the file name being contained in a candidate's full name.
func resolveImage(ref string, names []string) (string, error) {
	want := baseName(ref)
	if want == "" {
		return "", &ResolveError{Ref: ref}
	}
	for _, n := range names {
		if baseName(n) == want {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.Contains(n, want) {
			return n, nil
		}
	}
	return "", &ResolveError{Ref: ref}
}
