// Package source provides adapters that fetch raw sheet tables. Adapters
// never fail: a sheet that cannot be fetched comes back with no rows.
package source

import (
	"context"
	"errors"

	"github.com/ashureev/vocabook/internal/sheet"
)

// ErrSourceUnavailable marks a sheet that could not be fetched because of a
// network, auth, or API failure. It is logged, never returned to callers.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source fetches sheet tables. Implementations return one table per
// requested id, in request order, with empty Rows for sheets that failed.
// A cancelled context yields an empty result.
type Source interface {
	Fetch(ctx context.Context, ids []sheet.ID) []sheet.Table
}

// Static is an in-memory Source.
type Static map[sheet.ID][][]string

// Fetch returns the stored rows for each id.
func (s Static) Fetch(ctx context.Context, ids []sheet.ID) []sheet.Table {
	if ctx.Err() != nil {
		return nil
	}
	tables := make([]sheet.Table, 0, len(ids))
	for _, id := range ids {
		tables = append(tables, sheet.Table{Sheet: id, Rows: s[id]})
	}
	return tables
}
