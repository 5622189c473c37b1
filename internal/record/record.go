// Package record defines the row model and the Record Source abstraction.
//
// A Record Source yields delimited rows as ordered string fields. Field 0 is
// the row's unique integer identifier and field 1 its display name; the
// remaining fields are untyped attributes. Sources are restartable: every call
// to Scan reads the underlying data again from the start, and any resources
// it acquires are released before the sequence finishes.
package record

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

var (
	// ErrSourceUnavailable reports that the underlying data cannot be read.
	ErrSourceUnavailable = errors.New("record source unavailable")

	// ErrMalformedRow reports a row without a usable identifier or name.
	ErrMalformedRow = errors.New("malformed row")
)

// RowID is the numeric identifier held in field 0 of a row.
type RowID int64

// Row is one data record. Identity is field 0.
type Row []string

// ID parses field 0 as the row identifier.
func (r Row) ID() (RowID, error) {
	if len(r) == 0 {
		return 0, fmt.Errorf("%w: empty row", ErrMalformedRow)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(r[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q: %v", ErrMalformedRow, r[0], err)
	}
	return RowID(n), nil
}

// Name returns field 1, or "" for rows narrower than two fields.
func (r Row) Name() string {
	if len(r) < 2 {
		return ""
	}
	return r[1]
}

// Field returns the field at a zero-based index.
func (r Row) Field(i int) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	return r[i], true
}

// String formats the row as a bracketed, comma-separated list.
func (r Row) String() string {
	return "[" + strings.Join(r, ", ") + "]"
}

// ParseLine splits a raw line into fields. Quote characters are stripped, not
// interpreted: a comma inside a quoted field still separates fields.
func ParseLine(line string) Row {
	line = strings.TrimRight(line, "\r\n")
	line = strings.ReplaceAll(line, `"`, "")
	return Row(strings.Split(line, ","))
}

// Source supplies rows. Implementations must be restartable.
type Source interface {
	// Scan returns a sequence over every row from the start of the data.
	// A read failure is yielded once as an error wrapping
	// ErrSourceUnavailable, after which the sequence ends.
	Scan(ctx context.Context) iter.Seq2[Row, error]
}

// Partitioned is implemented by sources made of independent parts that can
// be scanned concurrently. Scanning the parts in order yields the same rows
// as scanning the whole source.
type Partitioned interface {
	Source
	Partitions() ([]Source, error)
}
