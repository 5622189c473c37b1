package record

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync/atomic"
)

// MemorySource is an in-memory Source. It can be told to fail partway
// through a scan, which makes it useful for exercising error paths.
type MemorySource struct {
	rows []Row

	failErr   error
	failAfter int

	scans atomic.Int64
}

// NewMemorySource creates a source over the given rows.
func NewMemorySource(rows ...Row) *MemorySource {
	return &MemorySource{rows: rows}
}

// FromLines creates a source by parsing raw delimited lines.
func FromLines(lines ...string) *MemorySource {
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, ParseLine(l))
	}
	return NewMemorySource(rows...)
}

// FailAfter makes subsequent scans yield err after n rows. A nil err clears
// the failure.
func (m *MemorySource) FailAfter(n int, err error) {
	m.failAfter = n
	m.failErr = err
}

// Scans reports how many times Scan has been started.
func (m *MemorySource) Scans() int {
	return int(m.scans.Load())
}

// Scan implements Source.
func (m *MemorySource) Scan(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		m.scans.Add(1)
		for i, row := range m.rows {
			if m.failErr != nil && i == m.failAfter {
				yield(nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, m.failErr))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(slices.Clone(row), nil) {
				return
			}
		}
		if m.failErr != nil && m.failAfter >= len(m.rows) {
			yield(nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, m.failErr))
		}
	}
}
