package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Importer adds book files to a Store.
type Importer struct {
	store Store
	log   *zap.Logger
}

// NewImporter returns an Importer writing to store.
func NewImporter(store Store, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, log: log}
}

// Import reads the metadata of the file at path and inserts it. The path is
// stored in absolute form; importing it again yields ErrDuplicate.
func (im *Importer) Import(path string) (*Book, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	format, err := Lookup(abs)
	if err != nil {
		return nil, err
	}
	md, err := format.Inspect(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(abs), err)
	}
	hash, err := ComputeHash(abs)
	if err != nil {
		return nil, err
	}

	b := &Book{
		Title:       md.Title,
		Author:      md.Author,
		FilePath:    abs,
		FileType:    format.Type(),
		Hash:        hash,
		Cover:       md.Cover,
		Description: md.Description,
		TotalPages:  md.Pages,
	}
	if b.Title == "" {
		b.Title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}

	if _, err := im.store.Add(b); err != nil {
		return nil, err
	}
	im.log.Info("imported book",
		zap.Int64("id", b.ID),
		zap.String("title", b.Title),
		zap.String("type", string(b.FileType)),
		zap.Int("pages", b.TotalPages),
	)
	return b, nil
}

// ImportAll imports every path, continuing past failures. Duplicates are
// skipped silently; other errors are collected.
func (im *Importer) ImportAll(paths []string) ([]*Book, error) {
	var books []*Book
	var errs []error
	for _, p := range paths {
		b, err := im.Import(p)
		switch {
		case errors.Is(err, ErrDuplicate):
			im.log.Debug("skipping duplicate", zap.String("path", p))
		case err != nil:
			im.log.Warn("import failed", zap.String("path", p), zap.Error(err))
			errs = append(errs, err)
		default:
			books = append(books, b)
		}
	}
	return books, errors.Join(errs...)
}
