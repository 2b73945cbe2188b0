package library

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	libraryFileName = "library.json"
	hashBytes       = 8192 // First 8KB for content hash
)

type libraryFile struct {
	NextID int64   `json:"next_id"`
	Books  []*Book `json:"books"`
}

// FileStore is a Store kept in a single JSON file.
type FileStore struct {
	path string
	log  *zap.Logger
	now  func() time.Time

	mu     sync.RWMutex
	nextID int64
	books  map[int64]*Book
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates or loads the library in dir. An unreadable library
// file is logged and replaced by an empty library on the next write.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &FileStore{
		path:   filepath.Join(dir, libraryFileName),
		log:    log,
		now:    time.Now,
		nextID: 1,
		books:  make(map[int64]*Book),
	}
	if err := s.load(); err != nil {
		// Non-fatal - start with an empty library
		log.Warn("ignoring unreadable library file", zap.String("path", s.path), zap.Error(err))
		s.nextID = 1
		s.books = make(map[int64]*Book)
	}
	return s, nil
}

// Path returns the library file location.
func (s *FileStore) Path() string { return s.path }

// ComputeHash fingerprints the first hashBytes of a book file. Imports use
// it to skip files already in the library.
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

func (s *FileStore) Get(id int64) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	c := *b
	return &c, nil
}

// FindByPath returns the book stored for path.
func (s *FileStore) FindByPath(path string) (*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.FilePath == path {
			c := *b
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
}

func (s *FileStore) List(f Filter) ([]*Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(f.Query))
	var out []*Book
	for _, b := range s.books {
		if !matches(b, f, query) {
			continue
		}
		c := *b
		out = append(out, &c)
	}

	switch {
	case query != "" || f.Favorites:
		slices.SortFunc(out, func(a, b *Book) int {
			return cmp.Or(cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)), cmp.Compare(a.ID, b.ID))
		})
	case f.CurrentlyReading:
		slices.SortFunc(out, func(a, b *Book) int {
			return cmp.Or(b.LastRead.Compare(a.LastRead), cmp.Compare(b.ID, a.ID))
		})
	default:
		slices.SortFunc(out, func(a, b *Book) int {
			return cmp.Or(b.DateAdded.Compare(a.DateAdded), cmp.Compare(b.ID, a.ID))
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(b *Book, f Filter, query string) bool {
	if query != "" &&
		!strings.Contains(strings.ToLower(b.Title), query) &&
		!strings.Contains(strings.ToLower(b.Author), query) {
		return false
	}
	if f.FileType != "" && b.FileType != f.FileType {
		return false
	}
	if f.Favorites && !b.Favorite {
		return false
	}
	if f.CurrentlyReading && !b.Reading() {
		return false
	}
	if f.WantToRead && !b.WantToRead {
		return false
	}
	if f.Finished && !b.Finished {
		return false
	}
	return true
}

func (s *FileStore) Add(b *Book) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.books {
		if existing.FilePath == b.FilePath {
			return 0, fmt.Errorf("%s: %w", b.FilePath, ErrDuplicate)
		}
	}

	c := *b
	c.ID = s.nextID
	if c.Author == "" {
		c.Author = UnknownAuthor
	}
	if c.Genre == "" {
		c.Genre = DefaultGenre
	}
	if c.DateAdded.IsZero() {
		c.DateAdded = s.now()
	}
	s.books[c.ID] = &c
	s.nextID++

	if err := s.save(); err != nil {
		delete(s.books, c.ID)
		s.nextID--
		return 0, err
	}
	b.ID, b.Author, b.Genre, b.DateAdded = c.ID, c.Author, c.Genre, c.DateAdded
	s.log.Debug("added book", zap.Int64("id", c.ID), zap.String("title", c.Title))
	return c.ID, nil
}

func (s *FileStore) UpdateProgress(id int64, current, total int) error {
	return s.update(id, func(b *Book) {
		b.CurrentPage = current
		b.TotalPages = total
		b.Progress = Progress(current, total)
		b.LastRead = s.now()
	})
}

func (s *FileStore) ToggleFavorite(id int64) (bool, error) {
	var state bool
	err := s.update(id, func(b *Book) {
		b.Favorite = !b.Favorite
		state = b.Favorite
	})
	return state, err
}

func (s *FileStore) ToggleWantToRead(id int64) (bool, error) {
	var state bool
	err := s.update(id, func(b *Book) {
		b.WantToRead = !b.WantToRead
		state = b.WantToRead
	})
	return state, err
}

func (s *FileStore) ToggleFinished(id int64) (bool, error) {
	var state bool
	err := s.update(id, func(b *Book) {
		b.Finished = !b.Finished
		state = b.Finished
	})
	return state, err
}

func (s *FileStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	delete(s.books, id)
	if err := s.save(); err != nil {
		s.books[id] = b
		return err
	}
	return nil
}

// update applies fn to a copy of the book and commits it once saved.
func (s *FileStore) update(id int64, fn func(*Book)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	c := *b
	fn(&c)
	s.books[id] = &c
	if err := s.save(); err != nil {
		s.books[id] = b
		return err
	}
	return nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var f libraryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	for _, b := range f.Books {
		s.books[b.ID] = b
		if b.ID >= f.NextID {
			f.NextID = b.ID + 1
		}
	}
	s.nextID = max(f.NextID, 1)
	return nil
}

// save writes the library to a temporary file and renames it into place.
func (s *FileStore) save() error {
	f := libraryFile{NextID: s.nextID, Books: make([]*Book, 0, len(s.books))}
	for _, b := range s.books {
		f.Books = append(f.Books, b)
	}
	slices.SortFunc(f.Books, func(a, b *Book) int { return cmp.Compare(a.ID, b.ID) })

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), libraryFileName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save library: %w", err)
	}
	return nil
}
