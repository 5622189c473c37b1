package filter

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Op is a comparison operator.
type Op uint8

const (
	// OpEq requires the field text to equal the value exactly.
	OpEq Op = iota + 1

	// OpLt requires the field to be numerically less than the threshold.
	OpLt

	// OpGt requires the field to be numerically greater than the threshold.
	OpGt
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	default:
		return "?"
	}
}

func opFor(b byte) (Op, bool) {
	switch b {
	case '=':
		return OpEq, true
	case '<':
		return OpLt, true
	case '>':
		return OpGt, true
	}
	return 0, false
}

// Condition is one comparison on a column. Num holds the parsed threshold
// for OpLt and OpGt; Text is the value as written (for OpEq, after artifact
// stripping).
type Condition struct {
	Op   Op
	Text string
	Num  float64
}

func (c Condition) String() string {
	return c.Op.String() + c.Text
}

// Predicate maps zero-based column index → conditions on that column.
// Conditions within a column are deduplicated and kept in canonical order, so
// two predicates parsed from equivalent text compare equal.
// A nil or empty predicate matches every row.
type Predicate struct {
	cols map[int][]Condition
}

func newPredicate() *Predicate {
	return &Predicate{cols: make(map[int][]Condition)}
}

func (p *Predicate) add(col int, c Condition) {
	conds := p.cols[col]
	i, found := slices.BinarySearchFunc(conds, c, compareConditions)
	if found {
		return
	}
	p.cols[col] = slices.Insert(conds, i, c)
}

func compareConditions(a, b Condition) int {
	if a.Op != b.Op {
		return int(a.Op) - int(b.Op)
	}
	return strings.Compare(a.Text, b.Text)
}

// Empty reports whether the predicate has no conditions.
func (p *Predicate) Empty() bool {
	return p == nil || len(p.cols) == 0
}

// Columns returns the constrained column indexes in ascending order.
func (p *Predicate) Columns() []int {
	if p == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(p.cols))
}

// Conditions returns a copy of the conditions on a column.
func (p *Predicate) Conditions(col int) []Condition {
	if p == nil {
		return nil
	}
	return slices.Clone(p.cols[col])
}

// Len returns the total number of conditions.
func (p *Predicate) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, conds := range p.cols {
		n += len(conds)
	}
	return n
}

// Equal reports whether two predicates hold the same conditions.
func (p *Predicate) Equal(other *Predicate) bool {
	if p.Empty() || other.Empty() {
		return p.Empty() == other.Empty()
	}
	return maps.EqualFunc(p.cols, other.cols, slices.Equal[[]Condition])
}

// String renders the predicate in filter syntax, columns ascending. Parsing
// the result yields an equal predicate.
func (p *Predicate) String() string {
	var parts []string
	for _, col := range p.Columns() {
		ref := "column[" + strconv.Itoa(col+1) + "]"
		for _, c := range p.cols[col] {
			parts = append(parts, ref+c.String())
		}
	}
	return strings.Join(parts, "&")
}
