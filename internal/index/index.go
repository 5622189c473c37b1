// Package index provides the Name Index: an immutable first-letter index over
// the dataset mapping the uppercase first letter of a row's name to the
// names in that bucket and their row ids.
//
// The index is built once from a full scan of a record.Source (or loaded
// from a snapshot, see snapshot.go) and is read-only afterwards. A query uses
// it to obtain a Candidate Set without scanning the whole dataset.
package index

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"airportsearch/internal/record"
)

var ErrIndexNotFound = errors.New("index not found")

// Set is a Candidate Set: row ids keyed by value.
type Set map[record.RowID]struct{}

// Contains reports whether id is in the set.
func (s Set) Contains(id record.RowID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids in the set.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []record.RowID {
	return slices.Sorted(maps.Keys(s))
}

// NameIndex maps bucket letter → name → row id.
// Invariant: never mutated after Build or a snapshot load returns it.
type NameIndex struct {
	buckets map[string]map[string]record.RowID
	entries int

	// Rows that could not be indexed (bad id, missing name) and names that
	// were already present in their bucket.
	skipped    int
	duplicates int
}

// BucketKey returns the bucket letter for a name or prefix: its first
// character, uppercased. ok is false for an empty string.
func BucketKey(s string) (key string, ok bool) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return "", false
	}
	return strings.ToUpper(string(r)), true
}

func newNameIndex() *NameIndex {
	return &NameIndex{buckets: make(map[string]map[string]record.RowID)}
}

func (idx *NameIndex) insert(row record.Row) {
	id, err := row.ID()
	if err != nil {
		idx.skipped++
		return
	}
	name := row.Name()
	key, ok := BucketKey(name)
	if !ok {
		idx.skipped++
		return
	}

	bucket := idx.buckets[key]
	if bucket == nil {
		bucket = make(map[string]record.RowID)
		idx.buckets[key] = bucket
	}
	if _, exists := bucket[name]; exists {
		idx.duplicates++
		return
	}
	bucket[name] = id
	idx.entries++
}

// merge folds a partial index built from later data into idx. Names already
// present keep their existing id.
func (idx *NameIndex) merge(part *NameIndex) {
	idx.skipped += part.skipped
	idx.duplicates += part.duplicates
	for key, names := range part.buckets {
		bucket := idx.buckets[key]
		if bucket == nil {
			idx.buckets[key] = names
			idx.entries += len(names)
			continue
		}
		for name, id := range names {
			if _, exists := bucket[name]; exists {
				idx.duplicates++
				continue
			}
			bucket[name] = id
			idx.entries++
		}
	}
}

// Candidates returns the ids in the bucket selected by prefix's first letter.
// An empty prefix or unknown letter yields an empty set.
func (idx *NameIndex) Candidates(prefix string) Set {
	key, ok := BucketKey(prefix)
	if !ok {
		return Set{}
	}
	bucket := idx.buckets[key]
	set := make(Set, len(bucket))
	for _, id := range bucket {
		set[id] = struct{}{}
	}
	return set
}

// Letters returns the bucket letters in sorted order.
func (idx *NameIndex) Letters() []string {
	return slices.Sorted(maps.Keys(idx.buckets))
}

// Bucket returns a copy of one bucket's name → id mapping.
func (idx *NameIndex) Bucket(letter string) map[string]record.RowID {
	return maps.Clone(idx.buckets[letter])
}

// Len returns the number of indexed names.
func (idx *NameIndex) Len() int {
	return idx.entries
}

// Skipped returns how many rows were not indexed because they lacked a
// usable id or name.
func (idx *NameIndex) Skipped() int {
	return idx.skipped
}

// Duplicates returns how many rows were dropped because their name was
// already present in the bucket.
func (idx *NameIndex) Duplicates() int {
	return idx.duplicates
}

// Equal reports whether two indexes have identical bucket contents.
func (idx *NameIndex) Equal(other *NameIndex) bool {
	if idx == nil || other == nil {
		return idx == other
	}
	return maps.EqualFunc(idx.buckets, other.buckets, func(a, b map[string]record.RowID) bool {
		return maps.Equal(a, b)
	})
}
