// Package filter compiles filter expressions over row columns and evaluates
// them against rows.
//
// Grammar:
//
//	filter    = group ( "||" group )*
//	group     = condition ( "&" condition )*
//	condition = "column[" N "]" op value
//	op        = "=" | "<" | ">"
//
// N is a 1-based column number. Empty conditions left by doubled or trailing
// separators are ignored. Parse merges every condition of every group into a
// single conjunctive Predicate; ParseDisjunctive keeps the groups and matches
// a row if any group does.
package filter

import (
	"iter"
	"math"
	"strconv"
	"strings"
)

const (
	orSep      = "||"
	andSep     = "&"
	columnOpen = "column["
)

// artifacts are stripped from equality values. The data source carries a
// right single quotation mark, sometimes mis-decoded as Latin-1.
var artifacts = strings.NewReplacer("â€™", "", "\u2019", "")

// term is one parsed condition and the column it applies to.
type term struct {
	col  int
	cond Condition
}

// Parse compiles text into a Predicate in which all conditions, across all
// "||" groups, are combined with AND per column. Whitespace-only text yields
// an empty predicate. Any malformed condition fails the whole parse.
func Parse(text string) (*Predicate, error) {
	groups, err := parseGroups(text)
	if err != nil {
		return nil, err
	}
	p := newPredicate()
	for _, g := range groups {
		for _, t := range g {
			p.add(t.col, t.cond)
		}
	}
	return p, nil
}

// ParseDisjunctive compiles text keeping the "||" groups: the result matches a
// row if any group's conditions all hold.
func ParseDisjunctive(text string) (Disjunction, error) {
	groups, err := parseGroups(text)
	if err != nil {
		return nil, err
	}
	var d Disjunction
	for _, g := range groups {
		p := newPredicate()
		for _, t := range g {
			p.add(t.col, t.cond)
		}
		d = append(d, p)
	}
	return d, nil
}

// parseGroups splits text into groups of terms, dropping empty groups. Only
// the end of the whole text is trimmed; an equality value inside it keeps its
// trailing whitespace.
func parseGroups(text string) ([][]term, error) {
	text = strings.TrimRight(text, " \t\r\n")
	var groups [][]term
	for group, gpos := range split(text, orSep, 0) {
		var terms []term
		for cond, cpos := range split(group, andSep, gpos) {
			trimmed := strings.TrimLeft(cond, " \t")
			cpos += len(cond) - len(trimmed)
			if strings.TrimSpace(trimmed) == "" {
				continue
			}
			t, err := parseCondition(trimmed, cpos)
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		if len(terms) > 0 {
			groups = append(groups, terms)
		}
	}
	return groups, nil
}

// split yields the pieces of s between occurrences of sep along with each
// piece's byte offset, shifted by base.
func split(s, sep string, base int) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		pos := 0
		for {
			i := strings.Index(s[pos:], sep)
			if i < 0 {
				yield(s[pos:], base+pos)
				return
			}
			if !yield(s[pos:pos+i], base+pos) {
				return
			}
			pos += i + len(sep)
		}
	}
}

// parseCondition parses `column[N]<op><value>`. pos is the offset of s in the
// original input.
func parseCondition(s string, pos int) (term, error) {
	opIdx := strings.IndexAny(s, "=<>")
	if opIdx < 0 {
		return term{}, newParseError(pos, ErrMissingOperator, "condition %q has no operator (=, < or >)", s)
	}
	if j := strings.IndexAny(s[opIdx+1:], "=<>"); j >= 0 {
		return term{}, newParseError(pos+opIdx+1+j, ErrMultipleOperators, "condition %q has more than one operator", s)
	}
	op, _ := opFor(s[opIdx])

	col, err := parseColumn(strings.TrimSpace(s[:opIdx]), pos)
	if err != nil {
		return term{}, err
	}

	value := s[opIdx+1:]
	vpos := pos + opIdx + 1
	if strings.TrimSpace(value) == "" {
		return term{}, newParseError(vpos, ErrEmptyValue, "condition %q has no value", s)
	}

	cond := Condition{Op: op}
	switch op {
	case OpEq:
		cond.Text = artifacts.Replace(value)
	default:
		cond.Text = strings.TrimSpace(value)
		n, err := strconv.ParseFloat(cond.Text, 64)
		if err != nil || math.IsNaN(n) {
			return term{}, newParseError(vpos, ErrBadThreshold, "threshold %q is not a number", cond.Text)
		}
		cond.Num = n
	}
	return term{col: col, cond: cond}, nil
}

// parseColumn parses `column[N]` into the zero-based index N-1.
func parseColumn(ref string, pos int) (int, error) {
	inner, ok := strings.CutPrefix(ref, columnOpen)
	if ok {
		inner, ok = strings.CutSuffix(inner, "]")
	}
	if !ok {
		return 0, newParseError(pos, ErrBadColumn, "expected column[N], got %q", ref)
	}
	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil {
		return 0, newParseError(pos+len(columnOpen), ErrBadColumn, "column number %q is not an integer", inner)
	}
	if n < 1 {
		return 0, newParseError(pos+len(columnOpen), ErrBadColumn, "column numbers start at 1, got %d", n)
	}
	return n - 1, nil
}
