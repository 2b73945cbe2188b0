package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Kabyik-Kayal/Booker/internal/config"
	"github.com/Kabyik-Kayal/Booker/internal/library"
	"github.com/Kabyik-Kayal/Booker/internal/metrics"
	"github.com/Kabyik-Kayal/Booker/internal/reader"
	"github.com/Kabyik-Kayal/Booker/internal/toc"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// application carries what every subcommand needs. It is filled in by the
// root command's PersistentPreRunE.
type application struct {
	configPath string
	verbose    bool

	cfg   *config.Config
	log   *zap.Logger
	store *library.FileStore
	fonts *metrics.OpenTypeLoader

	out io.Writer
}

// readRequest is handed to the frontend selected at build time.
type readRequest struct {
	session *reader.Session
	tracker *reader.Tracker
	// resume is the saved page index, applied once the frontend knows its
	// page size.
	resume int
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func (a *application) setup() error {
	log, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log = log

	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.fonts = metrics.NewOpenTypeLoader()
	if err := cfg.RegisterFonts(a.fonts); err != nil {
		a.log.Warn("failed to register fonts", zap.Error(err))
	}

	store, err := library.NewFileStore(cfg.LibraryDir(), a.log)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *application) sessionOptions(width, height int) reader.Options {
	return reader.Options{
		FontFamily: a.cfg.FontFamily,
		FontSize:   a.cfg.FontSize,
		PageWidth:  width,
		PageHeight: height,
		Metrics:    metrics.NewEstimator(metrics.NewCache(a.fonts)),
		Logger:     a.log,
	}
}

// resolveBook maps a command argument to a file. An existing file wins;
// otherwise the argument must be a library ID. book is nil for files that
// are not in the library.
func resolveBook(store *library.FileStore, arg string) (path string, book *library.Book, err error) {
	if _, statErr := os.Stat(arg); statErr == nil {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", nil, err
		}
		b, err := store.FindByPath(abs)
		if err != nil && !errors.Is(err, library.ErrNotFound) {
			return "", nil, err
		}
		return abs, b, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "", nil, fmt.Errorf("%s: no such file or book ID", arg)
	}
	b, err := store.Get(id)
	if err != nil {
		return "", nil, err
	}
	return b.FilePath, b, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book ID %q", arg)
	}
	return id, nil
}

func newRootCmd() *cobra.Command {
	a := &application{out: os.Stdout}

	root := &cobra.Command{
		Use:   "booker",
		Short: "A two-page e-book reader and library",
		Long: `Booker keeps a library of EPUB and PDF books and reads them as
two-page spreads. Reflowable books are paginated for the current window
and font size; PDF pages are shown as they are.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newImportCmd(a),
		newListCmd(a),
		newTOCCmd(a),
		newPagesCmd(a),
		newReadCmd(a),
		newToggleCmd(a, "favorite", "Toggle a book's favorite mark", "favorite", a.toggleFavorite),
		newToggleCmd(a, "want", "Toggle a book's want-to-read mark", "want to read", a.toggleWant),
		newToggleCmd(a, "finished", "Toggle a book's finished mark", "finished", a.toggleFinished),
		newRemoveCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func newImportCmd(a *application) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Add books to the library",
		Long:  "Add books to the library. Supported formats: " + strings.Join(library.SupportedFormats(), ", ") + ".",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := library.NewImporter(a.store, a.log).ImportAll(args)
			for _, b := range books {
				fmt.Fprintf(a.out, "Imported %d: %s by %s (%d pages)\n", b.ID, b.Title, b.Author, b.TotalPages)
			}
			return err
		},
	}
}

func newListCmd(a *application) *cobra.Command {
	var f library.Filter
	var fileType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileType != "" {
				ft := library.FileType(strings.ToLower(fileType))
				if ft != library.EPUB && ft != library.PDF {
					return fmt.Errorf("%s: %w", fileType, library.ErrUnsupportedFormat)
				}
				f.FileType = ft
			}
			books, err := a.store.List(f)
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Fprintln(a.out, "No books.")
				return nil
			}
			fmt.Fprintln(a.out, bookTable(books))
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Query, "search", "s", "", "match title or author")
	cmd.Flags().StringVarP(&fileType, "type", "t", "", "only books of this format (epub, pdf)")
	cmd.Flags().BoolVar(&f.Favorites, "favorites", false, "only favorites")
	cmd.Flags().BoolVar(&f.CurrentlyReading, "reading", false, "only books in progress, most recent first")
	cmd.Flags().BoolVar(&f.WantToRead, "want", false, "only books marked want to read")
	cmd.Flags().BoolVar(&f.Finished, "finished", false, "only finished books")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 0, "show at most n books")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func bookTable(books []*library.Book) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "AUTHOR", "TYPE", "PROGRESS", "MARKS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, b := range books {
		t.Row(
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Author,
			string(b.FileType),
			fmt.Sprintf("%.0f%%", b.Progress),
			marks(b),
		)
	}
	return t.String()
}

func marks(b *library.Book) string {
	var m []string
	if b.Favorite {
		m = append(m, "favorite")
	}
	if b.WantToRead {
		m = append(m, "want")
	}
	if b.Finished {
		m = append(m, "finished")
	}
	return strings.Join(m, ",")
}

func newTOCCmd(a *application) *cobra.Command {
	return &cobra.Command{
		Use:   "toc <id|file>",
		Short: "Print a book's table of contents with page numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := resolveBook(a.store, args[0])
			if err != nil {
				return err
			}
			w, h := reader.PageSize(a.cfg.WindowWidth, a.cfg.WindowHeight)
			s, err := reader.Open(path, a.sessionOptions(w, h))
			if err != nil {
				return err
			}
			defer s.Close()
			if s.Err() != nil {
				return s.Err()
			}
			printTOC(a.out, s.TOC())
			return nil
		},
	}
}

func printTOC(w io.Writer, entries []*toc.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No table of contents.")
		return
	}
	for _, e := range toc.Flatten(entries) {
		fmt.Fprintf(w, "%s%s  p.%d\n", strings.Repeat("  ", e.Depth), e.Title, e.PageIndex+1)
	}
}

func newPagesCmd(a *application) *cobra.Command {
	var width, height, fontSize int
	cmd := &cobra.Command{
		Use:   "pages <id|file>",
		Short: "Paginate a book and print the page count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := resolveBook(a.store, args[0])
			if err != nil {
				return err
			}
			if width == 0 || height == 0 {
				width, height = reader.PageSize(a.cfg.WindowWidth, a.cfg.WindowHeight)
			}
			opts := a.sessionOptions(width, height)
			if fontSize != 0 {
				opts.FontSize = config.ClampFontSize(fontSize)
			}
			s, err := reader.Open(path, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			if s.Err() != nil {
				return s.Err()
			}
			w, h := s.PageBox()
			fmt.Fprintf(a.out, "%d pages, %d spreads (page %dx%d, %s %dpt)\n",
				s.TotalPages(), s.MaxSpread()+1, w, h, s.FontFamily(), s.FontSize())
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "page width in pixels (default: from window size)")
	cmd.Flags().IntVar(&height, "height", 0, "page height in pixels (default: from window size)")
	cmd.Flags().IntVar(&fontSize, "font-size", 0, fmt.Sprintf("font size, %d to %d", config.MinFontSize, config.MaxFontSize))
	return cmd
}

func newReadCmd(a *application) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "read <id|file>",
		Short: "Open a book in the " + frontend + " reader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, book, err := resolveBook(a.store, args[0])
			if err != nil {
				return err
			}
			w, h := reader.PageSize(a.cfg.WindowWidth, a.cfg.WindowHeight)
			s, err := reader.Open(path, a.sessionOptions(w, h))
			if err != nil {
				return err
			}
			defer s.Close()

			req := readRequest{session: s}
			if book != nil && s.Err() == nil {
				req.tracker = reader.NewTracker(a.store, book.ID, a.log)
				if !fresh {
					req.resume = book.CurrentPage
				}
			}
			return runReader(a, req)
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the saved reading position")
	return cmd
}

func newToggleCmd(a *application, use, short, label string, toggle func(int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			on, err := toggle(id)
			if err != nil {
				return err
			}
			state := "no longer"
			if on {
				state = "now"
			}
			fmt.Fprintf(a.out, "Book %d is %s marked %s.\n", id, state, label)
			return nil
		},
	}
}

func (a *application) toggleFavorite(id int64) (bool, error) { return a.store.ToggleFavorite(id) }
func (a *application) toggleWant(id int64) (bool, error)     { return a.store.ToggleWantToRead(id) }
func (a *application) toggleFinished(id int64) (bool, error) { return a.store.ToggleFinished(id) }

func newRemoveCmd(a *application) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a book from the library (the file is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.store.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed book %d.\n", id)
			return nil
		},
	}
}

func newConfigCmd(a *application) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Write(a.out)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// No config or library needed.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "booker %s (commit: %s, built: %s, %s)\n", version, commit, date, frontend)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
