package study

import "github.com/ashureev/vocabook/internal/sheet"

// State is the cursor state.
type State int

const (
	// StateEmpty means the deck has no rows. Only a new session leaves it.
	StateEmpty State = iota
	// StateActive means the cursor points at a card.
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "empty"
}

// Progress is the 1-based position within the deck.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Cursor walks a deck. It is not safe for concurrent use.
type Cursor struct {
	deck          []sheet.Row
	pos           int
	answerVisible bool
	shuffle       Shuffler
}

// NewCursor starts a cursor at the first card of deck. The deck is used as
// given (callers shuffle it first); shuffle is used for wraparound.
func NewCursor(deck []sheet.Row, shuffle Shuffler) *Cursor {
	if shuffle == nil {
		shuffle = NewShuffler(nil)
	}
	return &Cursor{deck: deck, shuffle: shuffle}
}

// State reports whether the cursor has any card to show.
func (c *Cursor) State() State {
	if len(c.deck) == 0 {
		return StateEmpty
	}
	return StateActive
}

// Len returns the deck size.
func (c *Cursor) Len() int {
	return len(c.deck)
}

// Position returns the 0-based index of the current card.
func (c *Cursor) Position() int {
	return c.pos
}

// AnswerVisible reports whether the current card's answer is revealed.
func (c *Cursor) AnswerVisible() bool {
	return c.answerVisible
}

// Reveal shows the answer of the current card.
func (c *Cursor) Reveal() error {
	if c.State() == StateEmpty {
		return ErrEmptyDeck
	}
	c.answerVisible = true
	return nil
}

// Advance moves to the next card and hides the answer. Past the last card
// the deck is replaced by a fresh permutation and the cursor restarts at
// the first card; reshuffled reports when that happened.
func (c *Cursor) Advance() (reshuffled bool, err error) {
	if c.State() == StateEmpty {
		return false, ErrEmptyDeck
	}
	c.answerVisible = false
	if c.pos+1 < len(c.deck) {
		c.pos++
		return false, nil
	}
	c.deck = c.shuffle(c.deck)
	c.pos = 0
	return true, nil
}

// Current returns the card under the cursor.
func (c *Cursor) Current() (sheet.Row, bool) {
	if c.State() == StateEmpty {
		return sheet.Row{}, false
	}
	return c.deck[c.pos], true
}

// Progress returns the position as current-of-total and a percentage
// rounded half up.
func (c *Cursor) Progress() (Progress, bool) {
	n := len(c.deck)
	if n == 0 {
		return Progress{}, false
	}
	cur := c.pos + 1
	return Progress{
		Current: cur,
		Total:   n,
		Percent: (200*cur + n) / (2 * n),
	}, true
}
