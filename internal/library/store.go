// Package library persists the user's books and imports new ones.
package library

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("book not found")
	ErrDuplicate         = errors.New("book already in library")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// FileType is the container format of a book.
type FileType string

const (
	EPUB FileType = "epub"
	PDF  FileType = "pdf"
)

// Defaults for books imported without the corresponding metadata.
const (
	UnknownAuthor = "Unknown Author"
	DefaultGenre  = "General"
)

// Book is one library record.
type Book struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	FilePath    string   `json:"file_path"`
	FileType    FileType `json:"file_type"`
	Hash        string   `json:"hash,omitempty"`
	Cover       []byte   `json:"cover,omitempty"` // PNG thumbnail
	Description string   `json:"description,omitempty"`
	Genre       string   `json:"genre"`

	TotalPages  int     `json:"total_pages"`
	CurrentPage int     `json:"current_page"`
	Progress    float64 `json:"progress"` // percent

	Favorite   bool `json:"favorite"`
	WantToRead bool `json:"want_to_read"`
	Finished   bool `json:"finished"`

	DateAdded time.Time `json:"date_added"`
	LastRead  time.Time `json:"last_read,omitzero"`
}

// Reading reports whether the book has been started but not finished.
func (b *Book) Reading() bool {
	return b.Progress > 0 && b.Progress < 100
}

// Filter selects books for List. The zero value lists every book, newest
// first.
type Filter struct {
	// Query matches title or author, case-insensitively. Results sort by
	// title.
	Query    string
	FileType FileType
	// Favorites lists favorite books sorted by title.
	Favorites bool
	// CurrentlyReading lists started, unfinished books, most recently read
	// first.
	CurrentlyReading bool
	WantToRead       bool
	Finished         bool
	Limit            int
}

// Store is the persistence interface of the library.
type Store interface {
	Get(id int64) (*Book, error)
	List(f Filter) ([]*Book, error)
	// Add inserts b, assigning its ID and DateAdded. A book whose file path
	// is already present yields ErrDuplicate.
	Add(b *Book) (int64, error)
	// UpdateProgress records the reading position; progress becomes
	// current/total in percent and LastRead the current time.
	UpdateProgress(id int64, current, total int) error
	ToggleFavorite(id int64) (bool, error)
	ToggleWantToRead(id int64) (bool, error)
	ToggleFinished(id int64) (bool, error)
	Delete(id int64) error
}

// Progress returns current/total as a percentage, or 0 without a total.
func Progress(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(current) / float64(total) * 100
}
