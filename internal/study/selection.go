package study

import (
	"errors"
	"strings"

	"github.com/ashureev/vocabook/internal/sheet"
)

// Kind distinguishes the two supported session shapes.
type Kind int

const (
	// KindFixed is a session over one predetermined sheet, such as the
	// ing-or-to quiz.
	KindFixed Kind = iota + 1
	// KindMulti is a session over sheets picked by the learner.
	KindMulti
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// ErrFixedSelection is returned when a fixed config names more than one
// sheet.
var ErrFixedSelection = errors.New("fixed session takes exactly one sheet")

// Config describes which sheets a session draws from.
type Config struct {
	Kind   Kind
	Sheets []sheet.ID
}

// Fixed returns a single-sheet session config.
func Fixed(id sheet.ID) Config {
	return Config{Kind: KindFixed, Sheets: []sheet.ID{id}}
}

// Multi returns a learner-selected session config.
func Multi(ids ...sheet.ID) Config {
	return Config{Kind: KindMulti, Sheets: ids}
}

// ParseConfig builds a config from client input, checking every name
// against catalog. A non-blank fixed selects a single-sheet session and
// wins over sheets; blank names in sheets are skipped.
func ParseConfig(catalog *sheet.Catalog, fixed string, sheets []string) (Config, error) {
	if strings.TrimSpace(fixed) != "" {
		id, err := catalog.Parse(fixed)
		if err != nil {
			return Config{}, err
		}
		return Fixed(id), nil
	}

	ids := make([]sheet.ID, 0, len(sheets))
	for _, s := range sheets {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := catalog.Parse(s)
		if err != nil {
			return Config{}, err
		}
		ids = append(ids, id)
	}
	return Multi(ids...), nil
}

// Selection is an ordered set of sheet ids without duplicates.
type Selection struct {
	ids []sheet.ID
}

// Selection validates the config and returns its selection.
func (c Config) Selection() (Selection, error) {
	var sel Selection
	seen := make(map[sheet.ID]bool, len(c.Sheets))
	for _, id := range c.Sheets {
		id = sheet.ID(strings.TrimSpace(string(id)))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sel.ids = append(sel.ids, id)
	}

	if len(sel.ids) == 0 {
		return Selection{}, ErrEmptySelection
	}
	if c.Kind == KindFixed && len(sel.ids) != 1 {
		return Selection{}, ErrFixedSelection
	}
	return sel, nil
}

// IDs returns the selected ids in order.
func (s Selection) IDs() []sheet.ID {
	out := make([]sheet.ID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected sheets.
func (s Selection) Len() int {
	return len(s.ids)
}

// String joins the ids with commas.
func (s Selection) String() string {
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
