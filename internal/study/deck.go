package study

import (
	"math/rand/v2"
	"strings"

	"github.com/ashureev/vocabook/internal/sheet"
)

// Normalize turns raw tables into deck rows. The first row of every table
// is a header and is dropped, as is any row without a primary term. Tables
// are concatenated in the order given.
func Normalize(tables []sheet.Table) []sheet.Row {
	var rows []sheet.Row
	for _, t := range tables {
		if len(t.Rows) < 2 {
			continue
		}
		for _, cells := range t.Rows[1:] {
			if len(cells) == 0 || strings.TrimSpace(cells[0]) == "" {
				continue
			}
			rows = append(rows, sheet.NewRow(t.Sheet, cells))
		}
	}
	return rows
}

// Shuffler returns a random permutation of rows without modifying them.
type Shuffler func(rows []sheet.Row) []sheet.Row

// NewShuffler returns a Shuffler drawing from rng. A nil rng uses the
// package-level source. rng must not be shared with other goroutines.
func NewShuffler(rng *rand.Rand) Shuffler {
	return func(rows []sheet.Row) []sheet.Row {
		return Shuffle(rows, rng)
	}
}

// Shuffle returns a Fisher-Yates permutation of a copy of rows.
func Shuffle(rows []sheet.Row, rng *rand.Rand) []sheet.Row {
	out := make([]sheet.Row, len(rows))
	copy(out, rows)

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(out) - 1; i > 0; i-- {
		j := intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
