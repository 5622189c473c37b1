package record

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Row
	}{
		{"quoted fields", `1,"Goroka Airport","Goroka","Papua New Guinea","GKA"`, Row{"1", "Goroka Airport", "Goroka", "Papua New Guinea", "GKA"}},
		{"unquoted", `2,Madang,PNG`, Row{"2", "Madang", "PNG"}},
		{"trailing CRLF", "3,Mount Hagen,PNG\r\n", Row{"3", "Mount Hagen", "PNG"}},
		{"empty trailing fields kept", `4,Nadzab,,`, Row{"4", "Nadzab", "", ""}},
		{"comma inside quotes still splits", `5,"Port Moresby, Jacksons",PNG`, Row{"5", "Port Moresby", " Jacksons", "PNG"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.line)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseLine(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestRowID(t *testing.T) {
	id, err := Row{"42", "Boston"}.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if id != 42 {
		t.Errorf("ID = %d, want 42", id)
	}

	for _, row := range []Row{{}, {"x", "Boston"}, {"", "Boston"}} {
		if _, err := row.ID(); !errors.Is(err, ErrMalformedRow) {
			t.Errorf("Row%q.ID() error = %v, want ErrMalformedRow", []string(row), err)
		}
	}
}

func TestRowAccessors(t *testing.T) {
	row := Row{"1", "Boston", "USA"}

	if got := row.Name(); got != "Boston" {
		t.Errorf("Name = %q, want Boston", got)
	}
	if got := (Row{"1"}).Name(); got != "" {
		t.Errorf("Name of narrow row = %q, want empty", got)
	}

	if v, ok := row.Field(2); !ok || v != "USA" {
		t.Errorf("Field(2) = %q, %v", v, ok)
	}
	if _, ok := row.Field(3); ok {
		t.Error("Field(3) should be out of range")
	}
	if _, ok := row.Field(-1); ok {
		t.Error("Field(-1) should be out of range")
	}

	if got := row.String(); got != "[1, Boston, USA]" {
		t.Errorf("String = %q", got)
	}
}

func TestMemorySourceRestartable(t *testing.T) {
	src := FromLines(`1,"Boston"`, `2,"Berlin"`)

	for pass := range 2 {
		var names []string
		for row, err := range src.Scan(context.Background()) {
			if err != nil {
				t.Fatalf("pass %d: %v", pass, err)
			}
			names = append(names, row.Name())
		}
		if !slices.Equal(names, []string{"Boston", "Berlin"}) {
			t.Errorf("pass %d: names = %v", pass, names)
		}
	}
	if src.Scans() != 2 {
		t.Errorf("Scans = %d, want 2", src.Scans())
	}
}

func TestMemorySourceFailAfter(t *testing.T) {
	src := FromLines(`1,"Boston"`, `2,"Berlin"`, `3,"Bern"`)
	src.FailAfter(1, errors.New("disk gone"))

	var rows int
	var gotErr error
	for _, err := range src.Scan(context.Background()) {
		if err != nil {
			gotErr = err
			break
		}
		rows++
	}
	if rows != 1 {
		t.Errorf("rows before failure = %d, want 1", rows)
	}
	if !errors.Is(gotErr, ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", gotErr)
	}

	src.FailAfter(0, nil)
	for _, err := range src.Scan(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error after clearing failure: %v", err)
		}
	}
}
