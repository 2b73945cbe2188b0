//go:build !gui

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Kabyik-Kayal/Booker/internal/content"
	"github.com/Kabyik-Kayal/Booker/internal/paginate"
	"github.com/Kabyik-Kayal/Booker/internal/reader"
	"github.com/Kabyik-Kayal/Booker/internal/toc"
)

const frontend = "terminal"

// A terminal cell stands in for this many pixels when paginating. The
// height matches the line height of the default font at 18pt.
const (
	cellWidth  = 9
	cellHeight = 22
)

// Rows taken by the title, the progress bar and the help line.
const tuiChromeRows = 4

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	linkStyle = lipgloss.NewStyle().
			Underline(true).
			Foreground(lipgloss.Color("#5FAFFF"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Italic(true)

	spineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))
)

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	First    key.Binding
	Last     key.Binding
	Back     key.Binding
	Forward  key.Binding
	Bigger   key.Binding
	Smaller  key.Binding
	Contents key.Binding
	Select   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Bigger, k.Smaller, k.Contents, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.First, k.Last},
		{k.Back, k.Forward, k.Bigger, k.Smaller},
		{k.Contents, k.Select, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Next:     key.NewBinding(key.WithKeys("right", "l", "pgdown", " "), key.WithHelp("→", "next")),
	Prev:     key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←", "previous")),
	First:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first")),
	Last:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last")),
	Back:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "back 10%")),
	Forward:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "forward 10%")),
	Bigger:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger font")),
	Smaller:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller font")),
	Contents: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "go to chapter")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// repaginateMsg arrives once terminal resizes have settled.
type repaginateMsg struct{}

type tuiModel struct {
	session *reader.Session
	tracker *reader.Tracker
	resume  int
	log     *zap.Logger

	debounce *reader.Debouncer
	sized    bool
	width    int
	height   int

	help help.Model
	bar  progress.Model

	showTOC bool
	entries []*toc.Entry
	cursor  int
}

func newTUIModel(req readRequest, log *zap.Logger) tuiModel {
	return tuiModel{
		session: req.session,
		tracker: req.tracker,
		resume:  req.resume,
		log:     log,
		width:   80,
		height:  24,
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// pageBox converts the terminal size to the pixel box of one page.
func (m tuiModel) pageBox() (width, height int) {
	return m.columnWidth()*cellWidth + paginate.HorizontalMargin,
		m.pageRows()*cellHeight + paginate.FooterReserve
}

func (m tuiModel) columnWidth() int { return max(10, (m.width-3)/2) }
func (m tuiModel) pageRows() int    { return max(3, m.height-tuiChromeRows) }

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.bar.Width = max(10, msg.Width-4)
		if !m.sized {
			m.sized = true
			m.session.Resize(m.pageBox())
			m.session.Resume(m.resume)
			if m.tracker != nil {
				if err := m.tracker.Attach(m.session); err != nil {
					m.log.Warn("failed to save progress", zap.Error(err))
				}
			}
			return m, nil
		}
		if m.debounce != nil {
			m.debounce.Trigger()
		}
		return m, nil

	case repaginateMsg:
		m.session.Resize(m.pageBox())
		m.entries = toc.Flatten(m.session.TOC())
		return m, nil

	case tea.KeyMsg:
		if m.showTOC {
			return m.updateTOC(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			m.session.Next()
		case key.Matches(msg, keys.Prev):
			m.session.Prev()
		case key.Matches(msg, keys.First):
			m.session.GoToSpread(0)
		case key.Matches(msg, keys.Last):
			m.session.GoToSpread(m.session.MaxSpread())
		case key.Matches(msg, keys.Back):
			m.session.SetSlider(m.session.SliderValue() - 10)
		case key.Matches(msg, keys.Forward):
			m.session.SetSlider(m.session.SliderValue() + 10)
		case key.Matches(msg, keys.Bigger):
			m.session.IncreaseFont()
		case key.Matches(msg, keys.Smaller):
			m.session.DecreaseFont()
		case key.Matches(msg, keys.Contents):
			m.entries = toc.Flatten(m.session.TOC())
			if len(m.entries) > 0 {
				m.showTOC = true
				m.cursor = min(m.cursor, len(m.entries)-1)
			}
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m tuiModel) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.cursor = max(0, m.cursor-1)
	case "down", "j":
		m.cursor = min(len(m.entries)-1, m.cursor+1)
	case "enter":
		m.session.GoToPage(m.entries[m.cursor].PageIndex)
		m.showTOC = false
	case "esc", "t":
		m.showTOC = false
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) View() string {
	var sb strings.Builder

	title := m.session.Title()
	if title == "" {
		title = "Booker"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("%s | %s %dpt", m.session.Label(), m.session.FontFamily(), m.session.FontSize())))
	sb.WriteString("\n")

	if m.showTOC {
		sb.WriteString(m.tocView())
	} else {
		left, right := m.session.SpreadPages()
		rows := m.pageRows()
		spine := spineStyle.Render(strings.TrimSuffix(strings.Repeat(" │ \n", rows), "\n"))
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.pageView(left), spine, m.pageView(right)))
	}
	sb.WriteString("\n")

	sb.WriteString("  " + m.bar.ViewAs(m.session.SliderValue()/100))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

func (m tuiModel) pageView(i int) string {
	w, rows := m.columnWidth(), m.pageRows()
	frame := lipgloss.NewStyle().Width(w).Height(rows).MaxHeight(rows)

	if !m.session.HasPage(i) {
		return frame.Render("")
	}
	if m.session.IsPDF() {
		return frame.Render(placeholderStyle.Render(fmt.Sprintf("[PDF page %d: open with the gui build to view]", i+1)))
	}

	p, _ := m.session.Page(i)
	parts := make([]string, 0, p.Len())
	for _, b := range p.Blocks {
		parts = append(parts, renderBlock(b, w))
	}
	return frame.Render(strings.Join(parts, "\n\n"))
}

func renderBlock(b content.Block, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	switch b := b.(type) {
	case content.TextBlock:
		if b.IsHeader {
			return wrap.Inherit(headingStyle).Render(b.Text)
		}
		return wrap.Render(b.Text)
	case content.ImageBlock:
		if b.Image == nil {
			return placeholderStyle.Render("[image " + b.Name + "]")
		}
		bounds := b.Image.Bounds()
		return placeholderStyle.Render(fmt.Sprintf("[image %s, %dx%d]", b.Name, bounds.Dx(), bounds.Dy()))
	case content.LinkBlock:
		return wrap.Render(linkStyle.Render(b.Text) + " " + placeholderStyle.Render(b.URL))
	}
	return ""
}

func (m tuiModel) tocView() string {
	rows := m.pageRows()
	start := max(0, m.cursor-rows/2)
	end := min(len(m.entries), start+rows)

	var lines []string
	for i := start; i < end; i++ {
		e := m.entries[i]
		line := fmt.Sprintf("%s%s  p.%d", strings.Repeat("  ", e.Depth), e.Title, e.PageIndex+1)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Height(rows).MaxHeight(rows).Render(strings.Join(lines, "\n"))
}

func runReader(a *application, req readRequest) error {
	m := newTUIModel(req, a.log)
	var p *tea.Program
	m.debounce = reader.NewDebouncer(a.cfg.ResizeDebounce, func() { p.Send(repaginateMsg{}) })
	p = tea.NewProgram(m, tea.WithAltScreen())
	defer m.debounce.Stop()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal reader: %w", err)
	}
	return nil
}
