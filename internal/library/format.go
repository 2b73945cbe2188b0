package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Metadata is what a format can tell about a file before it is imported.
type Metadata struct {
	Title       string
	Author      string
	Description string
	// Cover is a PNG thumbnail, nil when the file has none.
	Cover []byte
	// Pages is the page count known at import time. For reflowable books it
	// is a placeholder until the reader paginates them.
	Pages int
}

// Format inspects book files of one container type.
type Format interface {
	Name() string
	Type() FileType
	Extensions() []string
	Inspect(filename string) (*Metadata, error)
}

var (
	registryMu sync.RWMutex
	registry   []Format
)

// Register adds a format to the registry.
func Register(f Format) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, f)
}

// Lookup returns the format handling filename's extension.
func Lookup(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrUnsupportedFormat)
}

// DetectType returns the file type for filename's extension.
func DetectType(filename string) (FileType, error) {
	f, err := Lookup(filename)
	if err != nil {
		return "", err
	}
	return f.Type(), nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
