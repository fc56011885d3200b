package sheet

import "fmt"

// Column names one positional cell of a sheet. Reveal marks answer-only
// columns that stay hidden until the learner reveals the answer.
type Column struct {
	Index  int    `yaml:"index" json:"index"`
	Name   string `yaml:"name" json:"name"`
	Reveal bool   `yaml:"reveal" json:"reveal"`
}

// Layout maps column positions to meaning for one sheet.
type Layout struct {
	Columns []Column `yaml:"columns" json:"columns"`
}

// Field is a displayable cell of a card.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Reveal bool   `json:"reveal,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

func (l Layout) validate() error {
	seen := make(map[int]bool, len(l.Columns))
	for _, c := range l.Columns {
		if c.Index < 0 {
			return fmt.Errorf("column %q has negative index", c.Name)
		}
		if seen[c.Index] {
			return fmt.Errorf("column index %d declared twice", c.Index)
		}
		seen[c.Index] = true
	}
	return nil
}

// Fields renders row through the layout. Reveal-only fields carry no value
// until revealed is true. Empty cells are skipped. A layout with no columns
// shows every cell, labelled by spreadsheet column letter.
func (l Layout) Fields(row Row, revealed bool) []Field {
	if len(l.Columns) == 0 {
		fields := make([]Field, 0, row.Len())
		for i := 0; i < row.Len(); i++ {
			if row.Cell(i) == "" {
				continue
			}
			fields = append(fields, Field{Name: columnLetter(i), Value: row.Cell(i)})
		}
		return fields
	}

	fields := make([]Field, 0, len(l.Columns))
	for _, c := range l.Columns {
		v := row.Cell(c.Index)
		if v == "" {
			continue
		}
		f := Field{Name: c.Name, Reveal: c.Reveal}
		if c.Reveal && !revealed {
			f.Hidden = true
		} else {
			f.Value = v
		}
		fields = append(fields, f)
	}
	return fields
}

func columnLetter(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
