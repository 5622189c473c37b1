package rowcache

import (
	"context"
	"errors"
	"slices"
	"testing"

	"airportsearch/internal/index"
	"airportsearch/internal/record"
)

func set(ids ...record.RowID) index.Set {
	s := make(index.Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestMaterialize(t *testing.T) {
	src := record.FromLines(
		`1,"Boston Logan","Boston"`,
		`2,"Berlin Brandenburg","Berlin"`,
		`3,"Amsterdam Schiphol","Amsterdam"`,
		`4,"Boston Logan","Boston"`,
	)

	tests := []struct {
		name    string
		ids     index.Set
		want    []record.RowID
		missing []record.RowID
	}{
		{"subset", set(1, 3), []record.RowID{1, 3}, nil},
		{"same content different id", set(1, 4), []record.RowID{1, 4}, nil},
		{"unknown id", set(2, 99), []record.RowID{2}, []record.RowID{99}},
		{"empty", set(), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Materialize(context.Background(), src, tt.ids)
			if err != nil {
				t.Fatalf("Materialize: %v", err)
			}
			if got := rows.IDs(); !slices.Equal(got, tt.want) {
				t.Errorf("IDs = %v, want %v", got, tt.want)
			}
			if got := rows.Missing(tt.ids); !slices.Equal(got, tt.missing) {
				t.Errorf("Missing = %v, want %v", got, tt.missing)
			}
		})
	}
}

func TestMaterializeKeepsAllFields(t *testing.T) {
	src := record.FromLines(`7,"Oslo Gardermoen","Oslo","Norway","OSL"`)

	rows, err := Materialize(context.Background(), src, set(7))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	want := record.Row{"7", "Oslo Gardermoen", "Oslo", "Norway", "OSL"}
	if !slices.Equal(rows[7], want) {
		t.Errorf("row = %q, want %q", rows[7], want)
	}
}

func TestMaterializeEmptySetSkipsScan(t *testing.T) {
	src := record.FromLines(`1,"Boston"`)
	if _, err := Materialize(context.Background(), src, set()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if src.Scans() != 0 {
		t.Errorf("Scans = %d, want 0", src.Scans())
	}
}

func TestMaterializeSourceFailure(t *testing.T) {
	src := record.FromLines(`1,"Boston"`, `2,"Berlin"`, `3,"Bern"`)
	src.FailAfter(1, errors.New("disk gone"))

	rows, err := Materialize(context.Background(), src, set(1, 3))
	if !errors.Is(err, record.ErrSourceUnavailable) {
		t.Fatalf("error = %v, want ErrSourceUnavailable", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil on failure", rows)
	}
}

func TestMaterializeStopsWhenComplete(t *testing.T) {
	src := record.FromLines(`1,"Boston"`, `2,"Berlin"`)
	// A failure after the last wanted row is never reached.
	src.FailAfter(1, errors.New("unreachable"))

	rows, err := Materialize(context.Background(), src, set(1))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}
}
