// Package query provides the query engine. It owns query semantics: picking
// candidates from the name index, materializing their rows, filtering,
// prefix matching and ordering.
//
// Design:
//   - The engine holds an immutable *index.NameIndex; a rebuilt index is
//     swapped in whole with SetIndex, never mutated
//   - Row caches and compiled filters are per query and discarded after it
//   - Per-row evaluation errors exclude the row and are counted, they never
//     fail the query
//   - Logger is dependency-injected via the constructor
package query

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"airportsearch/internal/filter"
	"airportsearch/internal/index"
	"airportsearch/internal/logging"
	"airportsearch/internal/record"
	"airportsearch/internal/rowcache"

	"github.com/google/uuid"
)

// ErrEmptyPrefix is returned when the name prefix is empty after
// normalization.
var ErrEmptyPrefix = errors.New("name prefix is empty")

// Config configures an Engine.
type Config struct {
	// Index is the name index used for candidate lookup. Required.
	Index *index.NameIndex

	// Source supplies full rows for materialization. Required.
	Source record.Source

	// FilterMode selects how SearchText compiles "||" groups.
	// Zero value is filter.ModeFlatten.
	FilterMode filter.Mode

	Logger *slog.Logger
}

// Engine runs name-prefix queries. Queries may run concurrently with
// SetIndex; each query uses the index current when it started.
type Engine struct {
	mu  sync.RWMutex
	idx *index.NameIndex

	src  record.Source
	mode filter.Mode

	// Logger for this engine instance.
	// Scoped with component="query-engine" at construction time.
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	mode := cfg.FilterMode
	if mode == "" {
		mode = filter.ModeFlatten
	}
	return &Engine{
		idx:    cfg.Index,
		src:    cfg.Source,
		mode:   mode,
		logger: logging.Default(cfg.Logger).With("component", "query-engine"),
	}
}

// Index returns the current name index.
func (e *Engine) Index() *index.NameIndex {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

// SetIndex replaces the name index used by subsequent queries.
func (e *Engine) SetIndex(idx *index.NameIndex) {
	e.mu.Lock()
	e.idx = idx
	e.mu.Unlock()
}

// FilterMode returns the mode SearchText compiles filters with.
func (e *Engine) FilterMode() filter.Mode {
	return e.mode
}

// Result is the outcome of one query.
type Result struct {
	// ID identifies the query in logs.
	ID uuid.UUID

	// Prefix is the normalized prefix that was searched for.
	Prefix string

	// Rows are the matching rows ordered by name.
	Rows []record.Row

	// Candidates is the size of the candidate set from the name index.
	Candidates int

	// Excluded counts rows dropped because the filter could not be
	// evaluated on them (too few columns, non-numeric field).
	Excluded int

	Elapsed time.Duration
}

// Count returns the number of matching rows.
func (r *Result) Count() int {
	return len(r.Rows)
}

// NormalizePrefix trims, lowercases and removes spaces from a name prefix.
func NormalizePrefix(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
}

// SearchText compiles filterText with the engine's filter mode and searches.
// A malformed filter returns the parse error (matching
// filter.ErrMalformedFilter) before any data is read.
func (e *Engine) SearchText(ctx context.Context, prefix, filterText string) (*Result, error) {
	if NormalizePrefix(prefix) == "" {
		return nil, ErrEmptyPrefix
	}
	m, err := filter.Compile(filterText, e.mode)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, prefix, m)
}

// Search returns the rows whose name starts with prefix (case-insensitive,
// spaces ignored) and that m matches, ordered by name. A nil m matches every
// row. No match is an empty result, not an error.
func (e *Engine) Search(ctx context.Context, prefix string, m filter.Matcher) (*Result, error) {
	start := time.Now()
	prefix = NormalizePrefix(prefix)
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}

	res := &Result{ID: uuid.Must(uuid.NewV7()), Prefix: prefix}
	idx := e.Index()
	if idx == nil {
		return nil, errors.New("search: no name index")
	}

	candidates := idx.Candidates(prefix)
	res.Candidates = candidates.Len()

	rows, err := rowcache.Materialize(ctx, e.src, candidates)
	if err != nil {
		e.logger.Warn("query failed", "query_id", res.ID, "prefix", prefix, "error", err)
		return nil, fmt.Errorf("search: %w", err)
	}
	if missing := rows.Missing(candidates); len(missing) > 0 {
		e.logger.Warn("name index references rows no longer in the data",
			"query_id", res.ID,
			"missing", len(missing),
			"first_id", missing[0])
	}

	for _, id := range rows.IDs() {
		row := rows[id]
		if !strings.HasPrefix(foldName(row.Name()), prefix) {
			continue
		}
		if m != nil {
			ok, err := m.Match(row)
			if err != nil {
				res.Excluded++
				continue
			}
			if !ok {
				continue
			}
		}
		res.Rows = append(res.Rows, row)
	}

	SortRows(res.Rows)
	res.Elapsed = time.Since(start)

	e.logger.Debug("query complete",
		"query_id", res.ID,
		"prefix", prefix,
		"candidates", res.Candidates,
		"rows", res.Count(),
		"excluded", res.Excluded,
		"elapsed", res.Elapsed)
	return res, nil
}

// foldName puts a name in the same form as a normalized prefix.
func foldName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

// SortRows orders rows by name, case-insensitively, ties broken by row id.
// The sort is stable, so sorting sorted rows leaves them unchanged.
func SortRows(rows []record.Row) {
	type keyed struct {
		key string
		id  record.RowID
		row record.Row
	}
	ks := make([]keyed, len(rows))
	for i, r := range rows {
		id, _ := r.ID()
		ks[i] = keyed{key: strings.ToLower(r.Name()), id: id, row: r}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return cmp.Or(strings.Compare(a.key, b.key), cmp.Compare(a.id, b.id))
	})
	for i := range ks {
		rows[i] = ks[i].row
	}
}
