package reader

import (
	"go.uber.org/zap"

	"github.com/Kabyik-Kayal/Booker/internal/library"
)

// Tracker persists a session's position. Progress is stored per spread:
// the current page is always the left page of the spread.
type Tracker struct {
	store library.Store
	id    int64
	log   *zap.Logger
}

// NewTracker returns a Tracker saving progress of book id to store.
func NewTracker(store library.Store, id int64, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{store: store, id: id, log: log}
}

// Attach saves progress after every change of s and records the initial
// position.
func (t *Tracker) Attach(s *Session) error {
	s.OnChange(func(spread, total int) {
		if err := t.Record(spread, total); err != nil {
			t.log.Warn("failed to save progress", zap.Int64("id", t.id), zap.Error(err))
		}
	})
	return t.Record(s.Spread(), s.TotalPages())
}

// Record stores spread as the current page.
func (t *Tracker) Record(spread, total int) error {
	return t.store.UpdateProgress(t.id, spread*2, total)
}
