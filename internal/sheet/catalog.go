package sheet

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Groups used by the built-in catalogue.
const (
	GroupVocabulary = "vocabulary"
	GroupQuiz       = "quiz"
	GroupReference  = "reference"
)

// Entry describes one sheet: where its data lives and how its columns read.
type Entry struct {
	ID     ID     `yaml:"id" json:"id"`
	Label  string `yaml:"label" json:"label"`
	Range  string `yaml:"range" json:"-"`
	Group  string `yaml:"group" json:"group"`
	Layout Layout `yaml:"layout" json:"layout"`
}

// Catalog is the allow-list of known sheets.
type Catalog struct {
	entries []Entry
	byID    map[ID]Entry
}

type catalogFile struct {
	Sheets []Entry `yaml:"sheets"`
}

// DefaultCatalog returns the embedded catalogue.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("sheet: embedded catalog is invalid: " + err.Error())
	}
	return c
}

// LoadCatalog reads a YAML catalogue from path. An empty path yields the
// embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalogue.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("catalog has no sheets")
	}

	c := &Catalog{byID: make(map[ID]Entry, len(f.Sheets))}
	for _, e := range f.Sheets {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry without id")
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate sheet %q", e.ID)
		}
		if e.Range == "" {
			e.Range = string(e.ID)
		}
		if e.Label == "" {
			e.Label = string(e.ID)
		}
		if err := e.Layout.validate(); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", e.ID, err)
		}
		c.entries = append(c.entries, e)
		c.byID[e.ID] = e
	}
	return c, nil
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id ID) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Parse validates a raw identifier against the allow-list.
func (c *Catalog) Parse(s string) (ID, error) {
	id := ID(strings.TrimSpace(s))
	if _, ok := c.byID[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSheet, s)
	}
	return id, nil
}

// ParseList parses a comma-separated list such as "noun,verb". Blank
// elements are skipped.
func (c *Catalog) ParseList(s string) ([]ID, error) {
	var ids []ID
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := c.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Entries returns all entries in catalogue order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// IDs returns all identifiers in catalogue order.
func (c *Catalog) IDs() []ID {
	ids := make([]ID, 0, len(c.entries))
	for _, e := range c.entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Group returns the identifiers belonging to group, in catalogue order.
func (c *Catalog) Group(name string) []ID {
	var ids []ID
	for _, e := range c.entries {
		if e.Group == name {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// LayoutFor returns the column layout for id, or the zero layout (every
// column visible) when id is unknown.
func (c *Catalog) LayoutFor(id ID) Layout {
	return c.byID[id].Layout
}
