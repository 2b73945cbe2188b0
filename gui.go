//go:build gui

package main

import (
	"fmt"
	"image/color"
	"net/url"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/Kabyik-Kayal/Booker/internal/content"
	"github.com/Kabyik-Kayal/Booker/internal/metrics"
	"github.com/Kabyik-Kayal/Booker/internal/reader"
	"github.com/Kabyik-Kayal/Booker/internal/render"
	"github.com/Kabyik-Kayal/Booker/internal/toc"
)

const frontend = "gui"

// readerTheme draws body text at the session's font size so what is shown
// matches what was paginated.
type readerTheme struct {
	fyne.Theme
	size float32
}

func newReaderTheme(size int) *readerTheme {
	return &readerTheme{Theme: theme.DefaultTheme(), size: float32(size)}
}

func (t *readerTheme) Size(n fyne.ThemeSizeName) float32 {
	switch n {
	case theme.SizeNameText:
		return t.size
	case theme.SizeNameSubHeadingText:
		return t.size + metrics.HeaderSizeBoost
	}
	return t.Theme.Size(n)
}

type guiReader struct {
	app     fyne.App
	win     fyne.Window
	session *reader.Session
	log     *zap.Logger

	left, right *fyne.Container
	status      *widget.Label
	slider      *widget.Slider

	entries []*toc.Entry
	tocList *widget.List
	split   *container.Split
}

func (g *guiReader) pageObject(i int) fyne.CanvasObject {
	s := g.session
	if !s.HasPage(i) {
		return layout.NewSpacer()
	}
	if s.IsPDF() {
		img, err := s.RenderPage(i)
		if err != nil {
			g.log.Warn("failed to render page", zap.Int("page", i), zap.Error(err))
			return widget.NewLabel(fmt.Sprintf("Error rendering page %d", i+1))
		}
		ci := canvas.NewImageFromImage(img)
		ci.FillMode = canvas.ImageFillContain
		b := img.Bounds()
		ci.SetMinSize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
		return container.NewCenter(ci)
	}

	p, _ := s.Page(i)
	wrap := s.Layout().WrapWidth()
	objs := make([]fyne.CanvasObject, 0, p.Len())
	for _, b := range p.Blocks {
		if o := blockObject(b, wrap); o != nil {
			objs = append(objs, o)
		}
	}
	return container.NewVBox(objs...)
}

func blockObject(b content.Block, wrap int) fyne.CanvasObject {
	switch b := b.(type) {
	case content.TextBlock:
		style := widget.RichTextStyleParagraph
		if b.IsHeader {
			style = widget.RichTextStyleSubHeading
		}
		rt := widget.NewRichText(&widget.TextSegment{Text: b.Text, Style: style})
		rt.Wrapping = fyne.TextWrapWord
		return rt
	case content.ImageBlock:
		if b.Image == nil {
			return nil
		}
		img := render.ScaleForDisplay(b.Image, wrap)
		ci := canvas.NewImageFromImage(img)
		ci.FillMode = canvas.ImageFillOriginal
		return container.NewCenter(ci)
	case content.LinkBlock:
		u, err := url.Parse(b.URL)
		if err != nil {
			return widget.NewLabel(b.Text)
		}
		return widget.NewHyperlink(b.Text, u)
	}
	return nil
}

// refresh redraws the spread and the navigation bar.
func (g *guiReader) refresh() {
	left, right := g.session.SpreadPages()
	g.left.Objects = []fyne.CanvasObject{g.pageObject(left)}
	g.right.Objects = []fyne.CanvasObject{g.pageObject(right)}
	g.left.Refresh()
	g.right.Refresh()

	g.status.SetText(fmt.Sprintf("%s | %s %dpt", g.session.Label(), g.session.FontFamily(), g.session.FontSize()))
	g.slider.SetValue(g.session.SliderValue())
}

func (g *guiReader) setFont(change func() bool) {
	if change() {
		g.app.Settings().SetTheme(newReaderTheme(g.session.FontSize()))
		g.reloadTOC()
		g.refresh()
	}
}

func (g *guiReader) reloadTOC() {
	g.entries = toc.Flatten(g.session.TOC())
	if g.tocList != nil {
		g.tocList.Refresh()
	}
}

func (g *guiReader) toggleTOC() {
	if g.split == nil {
		return
	}
	if g.split.Leading.Visible() {
		g.split.Leading.Hide()
	} else {
		g.split.Leading.Show()
	}
	g.split.Refresh()
}

func (g *guiReader) tocPanel() fyne.CanvasObject {
	g.tocList = widget.NewList(
		func() int { return len(g.entries) },
		func() fyne.CanvasObject { return widget.NewLabel("Title") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			e := g.entries[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%s%s  %d", strings.Repeat("  ", e.Depth), e.Title, e.PageIndex+1))
		},
	)
	g.tocList.OnSelected = func(id widget.ListItemID) {
		if id < len(g.entries) {
			g.session.GoToPage(g.entries[id].PageIndex)
			g.refresh()
		}
		g.tocList.UnselectAll()
	}
	return container.NewBorder(widget.NewLabel("Contents"), nil, nil, nil, g.tocList)
}

func runReader(a *application, req readRequest) error {
	s := req.session
	fa := app.New()
	fa.Settings().SetTheme(newReaderTheme(s.FontSize()))

	title := s.Title()
	if title == "" {
		title = "Booker"
	}
	w := fa.NewWindow(title)

	g := &guiReader{
		app:     fa,
		win:     w,
		session: s,
		log:     a.log,
		left:    container.NewStack(),
		right:   container.NewStack(),
		status:  widget.NewLabel(""),
		slider:  widget.NewSlider(0, 100),
	}
	g.status.Alignment = fyne.TextAlignCenter
	g.slider.Step = 0.1
	g.slider.OnChangeEnded = func(v float64) {
		if g.session.SetSlider(v) {
			g.refresh()
		}
	}

	s.Resume(req.resume)
	if req.tracker != nil {
		if err := req.tracker.Attach(s); err != nil {
			a.log.Warn("failed to save progress", zap.Error(err))
		}
	}

	prev := widget.NewButton("◀", func() {
		if s.Prev() {
			g.refresh()
		}
	})
	next := widget.NewButton("▶", func() {
		if s.Next() {
			g.refresh()
		}
	})
	smaller := widget.NewButton("A-", func() { g.setFont(s.DecreaseFont) })
	bigger := widget.NewButton("A+", func() { g.setFont(s.IncreaseFont) })
	if s.IsPDF() {
		smaller.Disable()
		bigger.Disable()
	}

	toolbar := container.NewHBox(smaller, bigger, layout.NewSpacer(), g.status, layout.NewSpacer())
	spine := canvas.NewRectangle(color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x60})
	spine.SetMinSize(fyne.NewSize(reader.SpineWidth, 0))
	spread := container.New(layout.NewGridLayoutWithColumns(2),
		container.NewBorder(nil, nil, nil, spine, g.left), g.right)
	nav := container.NewBorder(nil, nil, prev, next, g.slider)
	readingView := container.NewBorder(toolbar, nav, nil, nil, container.NewPadded(spread))

	var root fyne.CanvasObject = readingView
	g.reloadTOC()
	if len(g.entries) > 0 {
		g.split = container.NewHSplit(g.tocPanel(), readingView)
		g.split.Offset = 0.25
		g.split.Leading.Hide()
		root = g.split
		toolbar.Add(widget.NewButton("Contents", g.toggleTOC))
	}

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }

	debounce := reader.NewDebouncer(a.cfg.ResizeDebounce, func() {
		fyne.Do(func() {
			size := w.Canvas().Size()
			if s.Resize(reader.PageSize(int(size.Width), int(size.Height))) {
				g.reloadTOC()
				g.refresh()
			}
		})
	})
	defer debounce.Stop()

	w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		moved := false
		switch k.Name {
		case fyne.KeyRight, fyne.KeyPageDown, fyne.KeySpace:
			moved = s.Next()
		case fyne.KeyLeft, fyne.KeyPageUp:
			moved = s.Prev()
		case fyne.KeyHome:
			moved = s.GoToSpread(0)
		case fyne.KeyEnd:
			moved = s.GoToSpread(s.MaxSpread())
		case fyne.KeyF11:
			w.SetFullScreen(!w.FullScreen())
		case fyne.KeyEscape:
			if g.split != nil && g.split.Leading.Visible() {
				g.toggleTOC()
			}
		}
		if moved {
			g.refresh()
		}
	})
	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case '+', '=':
			g.setFont(s.IncreaseFont)
		case '-':
			g.setFont(s.DecreaseFont)
		case 't', 'T':
			g.toggleTOC()
		case 'q', 'Q':
			stop()
			fa.Quit()
		}
	})

	w.SetContent(root)
	w.Resize(fyne.NewSize(float32(a.cfg.WindowWidth), float32(a.cfg.WindowHeight)))
	w.SetOnClosed(stop)

	// Watch for window resizes and repaginate once they settle.
	go func() {
		last := fyne.NewSize(float32(a.cfg.WindowWidth), float32(a.cfg.WindowHeight))
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fyne.Do(func() {
					if size := w.Canvas().Size(); size.Width > 0 && size != last {
						last = size
						debounce.Trigger()
					}
				})
			}
		}
	}()

	g.refresh()
	w.ShowAndRun()
	stop()
	return nil
}
