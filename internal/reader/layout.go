package reader

// Window chrome around the two-page spread.
const (
	ChromeHeight = 140 // toolbar and navigation bar
	SideMargin   = 60
	VerticalPad  = 40
	SpineWidth   = 10

	FallbackPageWidth  = 500
	FallbackPageHeight = 700
)

// PageSize returns the size of one page of a spread filling a window of
// winWidth×winHeight pixels. Windows too small to hold a page get the
// fallback size.
func PageSize(winWidth, winHeight int) (width, height int) {
	width = (winWidth - SideMargin - SpineWidth) / 2
	height = winHeight - ChromeHeight - VerticalPad
	if width <= 0 || height <= 0 {
		return FallbackPageWidth, FallbackPageHeight
	}
	return width, height
}
