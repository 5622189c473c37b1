package filter

import (
	"fmt"
	"strconv"
	"strings"

	"airportsearch/internal/record"
)

// Matcher decides whether a row is included. An error concerns only that row
// (ErrColumnOutOfRange, ErrNotNumeric) and means the row is excluded.
type Matcher interface {
	Match(row record.Row) (bool, error)
}

// Holds reports whether field satisfies the condition.
func (c Condition) Holds(field string) (bool, error) {
	switch c.Op {
	case OpEq:
		return field == c.Text, nil
	case OpLt, OpGt:
		n, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrNotNumeric, field)
		}
		if c.Op == OpLt {
			return n < c.Num, nil
		}
		return n > c.Num, nil
	default:
		return false, fmt.Errorf("unknown operator %d", c.Op)
	}
}

// Match reports whether every condition on every constrained column holds for
// row. Columns are checked in ascending order and evaluation stops at the
// first failed condition. A nil or empty predicate matches every row.
func (p *Predicate) Match(row record.Row) (bool, error) {
	if p.Empty() {
		return true, nil
	}
	for _, col := range p.Columns() {
		field, ok := row.Field(col)
		if !ok {
			return false, fmt.Errorf("%w: column[%d] on a row with %d fields", ErrColumnOutOfRange, col+1, len(row))
		}
		for _, c := range p.cols[col] {
			holds, err := c.Holds(field)
			if err != nil {
				return false, fmt.Errorf("column[%d]%s: %w", col+1, c, err)
			}
			if !holds {
				return false, nil
			}
		}
	}
	return true, nil
}

// Disjunction matches a row if any of its predicates does. An empty
// disjunction matches every row.
type Disjunction []*Predicate

// Match implements Matcher. A predicate that fails with a row error counts as
// not matching; the first such error is returned only if no predicate matched.
func (d Disjunction) Match(row record.Row) (bool, error) {
	if len(d) == 0 {
		return true, nil
	}
	var firstErr error
	for _, p := range d {
		ok, err := p.Match(row)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

func (d Disjunction) String() string {
	parts := make([]string, len(d))
	for i, p := range d {
		parts[i] = p.String()
	}
	return strings.Join(parts, orSep)
}

// Mode selects how "||" groups are compiled.
type Mode string

const (
	// ModeFlatten merges all groups into one conjunctive predicate.
	ModeFlatten Mode = "flatten"

	// ModeDisjunctive keeps groups and matches if any group matches.
	ModeDisjunctive Mode = "disjunctive"
)

// ParseMode validates a mode name. The empty string selects ModeFlatten.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFlatten:
		return ModeFlatten, nil
	case ModeDisjunctive:
		return ModeDisjunctive, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q (want %s or %s)", s, ModeFlatten, ModeDisjunctive)
	}
}

// Compile parses text according to mode.
func Compile(text string, mode Mode) (Matcher, error) {
	if mode == ModeDisjunctive {
		d, err := ParseDisjunctive(text)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	p, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return p, nil
}
