package filter

import (
	"errors"
	"testing"

	"airportsearch/internal/record"
)

func mustParse(t *testing.T, text string) *Predicate {
	t.Helper()
	p, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return p
}

func TestPredicateMatch(t *testing.T) {
	boston := record.Row{"1", "Boston Logan", "Boston", "150", "BOS"}
	berlin := record.Row{"2", "Berlin Brandenburg", "Berlin", "50", "BER"}

	tests := []struct {
		name   string
		filter string
		row    record.Row
		want   bool
	}{
		{"empty predicate matches", "", boston, true},
		{"greater than passes", "column[4]>100", boston, true},
		{"greater than fails", "column[4]>100", berlin, false},
		{"less than passes", "column[4]<100", berlin, true},
		{"less than is strict", "column[4]<50", berlin, false},
		{"greater than is strict", "column[4]>150", boston, false},
		{"equality exact", "column[5]=BOS", boston, true},
		{"equality is case sensitive", "column[5]=bos", boston, false},
		{"all columns must hold", "column[4]>100&column[5]=BER", boston, false},
		{"both hold", "column[4]>100&column[5]=BOS", boston, true},
		{"conflicting equalities exclude", "column[5]=BOS&column[5]=BER", boston, false},
		{"flattened or still requires every condition", "column[5]=BOS||column[5]=BER", berlin, false},
		{"range on one column", "column[4]>100&column[4]<200", boston, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustParse(t, tt.filter).Match(tt.row)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.filter, tt.row, got, tt.want)
			}
		})
	}
}

func TestPredicateMatchNilMatchesAll(t *testing.T) {
	var p *Predicate
	ok, err := p.Match(record.Row{"1"})
	if err != nil || !ok {
		t.Errorf("nil predicate Match = %v, %v; want true, nil", ok, err)
	}
}

func TestPredicateMatchRowErrors(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		row     record.Row
		wantErr error
	}{
		{"narrow row", "column[6]=X", record.Row{"1", "Boston"}, ErrColumnOutOfRange},
		{"non-numeric field", "column[3]>5", record.Row{"1", "Boston", "n/a"}, ErrNotNumeric},
		{"empty field", "column[3]<5", record.Row{"1", "Boston", ""}, ErrNotNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := mustParse(t, tt.filter).Match(tt.row)
			if ok {
				t.Error("row with evaluation error must be excluded")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Numeric failures are malformed-filter class; range failures are not.
	_, err := mustParse(t, "column[3]>5").Match(record.Row{"1", "Boston", "n/a"})
	if !errors.Is(err, ErrMalformedFilter) {
		t.Errorf("ErrNotNumeric should match ErrMalformedFilter, got %v", err)
	}
}

func TestConditionHoldsTrimsNumericField(t *testing.T) {
	c := Condition{Op: OpGt, Text: "10", Num: 10}
	ok, err := c.Holds(" 11 ")
	if err != nil || !ok {
		t.Errorf("Holds(\" 11 \") = %v, %v", ok, err)
	}
}

func TestDisjunctionMatch(t *testing.T) {
	boston := record.Row{"1", "Boston Logan", "Boston", "150", "BOS"}
	berlin := record.Row{"2", "Berlin Brandenburg", "Berlin", "50", "BER"}
	oslo := record.Row{"3", "Oslo Gardermoen", "Oslo", "n/a", "OSL"}

	d, err := ParseDisjunctive("column[5]=BOS||column[5]=BER")
	if err != nil {
		t.Fatalf("ParseDisjunctive: %v", err)
	}
	for _, row := range []record.Row{boston, berlin} {
		if ok, err := d.Match(row); !ok || err != nil {
			t.Errorf("Match(%v) = %v, %v; want true", row, ok, err)
		}
	}
	if ok, _ := d.Match(oslo); ok {
		t.Error("Oslo should not match")
	}

	// An erroring group does not prevent another group from matching.
	d, err = ParseDisjunctive("column[4]>100||column[5]=OSL")
	if err != nil {
		t.Fatalf("ParseDisjunctive: %v", err)
	}
	if ok, err := d.Match(oslo); !ok || err != nil {
		t.Errorf("Match(oslo) = %v, %v; want true, nil", ok, err)
	}

	// When nothing matches the row error is reported.
	d, err = ParseDisjunctive("column[4]>100||column[5]=XXX")
	if err != nil {
		t.Fatalf("ParseDisjunctive: %v", err)
	}
	if ok, err := d.Match(oslo); ok || !errors.Is(err, ErrNotNumeric) {
		t.Errorf("Match(oslo) = %v, %v; want false, ErrNotNumeric", ok, err)
	}

	if ok, err := (Disjunction{}).Match(oslo); !ok || err != nil {
		t.Errorf("empty disjunction Match = %v, %v; want true", ok, err)
	}
}

func TestCompile(t *testing.T) {
	berlin := record.Row{"2", "Berlin Brandenburg", "Berlin", "50", "BER"}
	const text = "column[5]=BOS||column[5]=BER"

	flat, err := Compile(text, ModeFlatten)
	if err != nil {
		t.Fatalf("Compile flatten: %v", err)
	}
	if ok, _ := flat.Match(berlin); ok {
		t.Error("flattened filter should exclude Berlin")
	}

	or, err := Compile(text, ModeDisjunctive)
	if err != nil {
		t.Fatalf("Compile disjunctive: %v", err)
	}
	if ok, _ := or.Match(berlin); !ok {
		t.Error("disjunctive filter should include Berlin")
	}

	for _, mode := range []Mode{ModeFlatten, ModeDisjunctive} {
		m, err := Compile("column[x]=5", mode)
		if !errors.Is(err, ErrMalformedFilter) || m != nil {
			t.Errorf("Compile(%s) = %v, %v; want nil, ErrMalformedFilter", mode, m, err)
		}
	}
}
