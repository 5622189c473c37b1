// Package rowcache materializes full rows for a candidate set of row ids.
//
// A cache is built per query from a single pass over the record source and
// discarded afterwards. Rows are keyed by their id, so two rows with equal
// content but different ids never collapse.
package rowcache

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"airportsearch/internal/index"
	"airportsearch/internal/record"
)

// Rows holds materialized rows keyed by row id.
type Rows map[record.RowID]record.Row

// Materialize scans src once and keeps the rows whose id is in ids. Rows with
// an unparseable id cannot be candidates and are passed over. A source error
// fails the whole call; no partial cache is returned.
//
// An empty ids set returns immediately without touching src.
func Materialize(ctx context.Context, src record.Source, ids index.Set) (Rows, error) {
	rows := make(Rows, len(ids))
	if len(ids) == 0 {
		return rows, nil
	}

	for row, err := range src.Scan(ctx) {
		if err != nil {
			return nil, fmt.Errorf("materialize rows: %w", err)
		}
		id, err := row.ID()
		if err != nil || !ids.Contains(id) {
			continue
		}
		if _, ok := rows[id]; ok {
			continue
		}
		rows[id] = row
		if len(rows) == len(ids) {
			break
		}
	}
	return rows, nil
}

// IDs returns the materialized ids in ascending order.
func (r Rows) IDs() []record.RowID {
	return slices.Sorted(maps.Keys(r))
}

// Missing returns the ids in want that were not materialized, ascending.
func (r Rows) Missing(want index.Set) []record.RowID {
	var missing []record.RowID
	for id := range want {
		if _, ok := r[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return missing
}
