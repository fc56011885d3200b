package study

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/vocabook/internal/sheet"
	"github.com/ashureev/vocabook/internal/source"
)

// Phase is the externally visible lifecycle of a Session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseEmpty   Phase = "empty"
	PhaseActive  Phase = "active"
)

// Snapshot is a consistent read of a session.
type Snapshot struct {
	Phase         Phase
	Generation    uint64
	Kind          Kind
	Selection     Selection
	Card          sheet.Row
	HasCard       bool
	AnswerVisible bool
	Progress      Progress
	HasProgress   bool
}

// Session owns one learner's deck and cursor. Start is the only blocking
// call; every other method runs to completion under the session lock.
//
// Each Start takes a new generation number and cancels the fetch of any
// earlier Start. A fetch that completes after a newer Start is discarded.
type Session struct {
	src     source.Source
	shuffle Shuffler

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	loading   bool
	closed    bool
	kind      Kind
	selection Selection
	cursor    *Cursor
}

// NewSession creates an idle session reading from src. A nil shuffle uses
// the package-level random source.
func NewSession(src source.Source, shuffle Shuffler) *Session {
	if shuffle == nil {
		shuffle = NewShuffler(nil)
	}
	return &Session{src: src, shuffle: shuffle}
}

// Start fetches the configured sheets and replaces the deck. An empty
// selection is rejected before any fetch. When the fetch yields no rows the
// session enters the empty phase; that is not an error.
func (s *Session) Start(ctx context.Context, cfg Config) error {
	sel, err := cfg.Selection()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loading = true
	s.mu.Unlock()
	defer cancel()

	rows := Normalize(s.src.Fetch(fetchCtx, sel.IDs()))

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		slog.Debug("Discarding superseded session start", "generation", gen, "current", s.gen)
		return ErrSuperseded
	}
	s.cancel = nil
	s.loading = false
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.kind = cfg.Kind
	s.selection = sel
	s.cursor = NewCursor(s.shuffle(rows), s.shuffle)
	if len(rows) == 0 {
		slog.Info("Session has no data", "sheets", sel.String())
	}
	return nil
}

// Reveal shows the current card's answer.
func (s *Session) Reveal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return ErrNotStarted
	}
	return s.cursor.Reveal()
}

// Advance moves to the next card, reshuffling after the last one.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return false, ErrNotStarted
	}
	return s.cursor.Advance()
}

// CurrentCard returns the card under the cursor, if any.
func (s *Session) CurrentCard() (sheet.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return sheet.Row{}, false
	}
	return s.cursor.Current()
}

// Progress returns the cursor progress, if any.
func (s *Session) Progress() (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return Progress{}, false
	}
	return s.cursor.Progress()
}

// DeckSize returns the number of rows in the current deck.
func (s *Session) DeckSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return 0
	}
	return s.cursor.Len()
}

// Snapshot returns the session state in one read.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Generation: s.gen,
		Kind:       s.kind,
		Selection:  s.selection,
	}
	switch {
	case s.loading:
		snap.Phase = PhaseLoading
	case s.cursor == nil:
		snap.Phase = PhaseIdle
	case s.cursor.State() == StateEmpty:
		snap.Phase = PhaseEmpty
	default:
		snap.Phase = PhaseActive
	}
	if s.cursor != nil {
		snap.Card, snap.HasCard = s.cursor.Current()
		snap.Progress, snap.HasProgress = s.cursor.Progress()
		snap.AnswerVisible = s.cursor.AnswerVisible()
	}
	return snap
}

// Close cancels any in-flight fetch. Later starts fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
}
