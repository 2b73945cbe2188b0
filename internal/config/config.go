// Package config loads user settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "booker"

// Font size bounds of the reader.
const (
	MinFontSize = 14
	MaxFontSize = 26
	FontStep    = 2
)

// Defaults.
const (
	DefaultFontFamily     = "Go"
	DefaultFontSize       = 18
	DefaultResizeDebounce = 200 * time.Millisecond
	DefaultWindowWidth    = 1200
	DefaultWindowHeight   = 800
)

// FontFiles names the font files of a family. Bold is optional.
type FontFiles struct {
	Regular string `toml:"regular"`
	Bold    string `toml:"bold,omitempty"`
}

// Config holds user settings.
type Config struct {
	FontFamily     string        `toml:"font_family"`
	FontSize       int           `toml:"font_size"`
	ResizeDebounce time.Duration `toml:"resize_debounce"`
	WindowWidth    int           `toml:"window_width"`
	WindowHeight   int           `toml:"window_height"`
	// DataDir holds the library file. Empty means StateDir().
	DataDir string `toml:"data_dir,omitempty"`
	// Fonts registers extra families by name.
	Fonts map[string]FontFiles `toml:"fonts,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		FontFamily:     DefaultFontFamily,
		FontSize:       DefaultFontSize,
		ResizeDebounce: DefaultResizeDebounce,
		WindowWidth:    DefaultWindowWidth,
		WindowHeight:   DefaultWindowHeight,
	}
}

// DefaultPath returns XDG_CONFIG_HOME/booker/config.toml or
// ~/.config/booker/config.toml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName, "config.toml")
}

// StateDir returns XDG_STATE_HOME/booker or ~/.local/state/booker
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", appName)
}

// Load reads the file at path over the defaults. A missing file is not an
// error. Out-of-range values are clamped.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, keys)
	}
	c.normalize(filepath.Dir(path))
	return c, nil
}

func (c *Config) normalize(base string) {
	if c.FontFamily == "" {
		c.FontFamily = DefaultFontFamily
	}
	c.FontSize = ClampFontSize(c.FontSize)
	if c.ResizeDebounce <= 0 {
		c.ResizeDebounce = DefaultResizeDebounce
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = DefaultWindowWidth
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = DefaultWindowHeight
	}
	for name, f := range c.Fonts {
		f.Regular = resolve(base, f.Regular)
		f.Bold = resolve(base, f.Bold)
		c.Fonts[name] = f
	}
}

// resolve makes a relative font path relative to the config file.
func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// ClampFontSize limits size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	return min(max(size, MinFontSize), MaxFontSize)
}

// LibraryDir returns the directory holding the library.
func (c *Config) LibraryDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return StateDir()
}

// FontRegistry is where configured font families are registered.
type FontRegistry interface {
	RegisterFiles(family, regularPath, boldPath string) error
}

// RegisterFonts registers every configured family with r, in name order.
func (c *Config) RegisterFonts(r FontRegistry) error {
	names := make([]string, 0, len(c.Fonts))
	for name := range c.Fonts {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		f := c.Fonts[name]
		if err := r.RegisterFiles(name, f.Regular, f.Bold); err != nil {
			errs = append(errs, fmt.Errorf("font %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
