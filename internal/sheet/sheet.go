// Package sheet defines the spreadsheet-backed vocabulary data model: sheet
// identifiers, raw tables as returned by a source, and immutable rows.
package sheet

import (
	"errors"
	"strings"
)

// ID identifies a logical data category (a tab in the backing spreadsheet).
type ID string

// Built-in sheet identifiers.
const (
	Noun          ID = "noun"
	Verb          ID = "verb"
	Adverb        ID = "adverb"
	Adjective     ID = "adjective"
	Preposition   ID = "preposition"
	Conjunction   ID = "conjunction"
	AuxiliaryVerb ID = "auxiliaryVerb"
	Idiom         ID = "idiom"
	IngOrTo       ID = "ingOrTo"
	Reference     ID = "reference"
)

// ErrUnknownSheet is returned when an identifier is not in the catalogue.
var ErrUnknownSheet = errors.New("unknown sheet")

// Table is the raw content of one sheet as fetched from a source.
// Rows[0] is the header row when present.
type Table struct {
	Sheet ID
	Rows  [][]string
}

// Row is one learning item. Cells are positional (column A, B, C, ...).
type Row struct {
	Sheet ID
	cells []string
}

// NewRow copies cells into a new Row.
func NewRow(id ID, cells []string) Row {
	c := make([]string, len(cells))
	copy(c, cells)
	return Row{Sheet: id, cells: c}
}

// Cell returns column i, or "" when the column is absent.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Cells returns a copy of the row's cells.
func (r Row) Cells() []string {
	c := make([]string, len(r.cells))
	copy(c, r.cells)
	return c
}

// Len returns the number of cells.
func (r Row) Len() int {
	return len(r.cells)
}

// Term returns the primary term (column A) trimmed of surrounding space.
func (r Row) Term() string {
	return strings.TrimSpace(r.Cell(0))
}
