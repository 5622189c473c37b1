package index

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"airportsearch/internal/format"
	"airportsearch/internal/record"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped whenever the encoded layout changes.
const snapshotVersion = 2

// ErrSnapshotMismatch reports a snapshot built from different data or by an
// incompatible version.
var ErrSnapshotMismatch = errors.New("index snapshot does not match data")

// snapshot is the msgpack layout of a persisted NameIndex.
type snapshot struct {
	Fingerprint string                             `msgpack:"fp"`
	Buckets     map[string]map[string]record.RowID `msgpack:"b"`
	Skipped     int                                `msgpack:"s"`
	Duplicates  int                                `msgpack:"d"`
}

// WriteSnapshot writes a format header followed by the index as
// zstd-compressed msgpack, tagged with the fingerprint of the data it was
// built from.
func (idx *NameIndex) WriteSnapshot(w io.Writer, fingerprint string) error {
	hdr := format.Header{Type: format.TypeNameIndex, Version: snapshotVersion, Flags: format.FlagCompressed}
	if _, err := hdr.WriteTo(w); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("open zstd writer: %w", err)
	}
	snap := snapshot{
		Fingerprint: fingerprint,
		Buckets:     idx.buckets,
		Skipped:     idx.skipped,
		Duplicates:  idx.duplicates,
	}
	if err := msgpack.NewEncoder(enc).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot. It fails with
// ErrSnapshotMismatch unless the snapshot's fingerprint equals fingerprint.
func ReadSnapshot(r io.Reader, fingerprint string) (*NameIndex, error) {
	if _, err := format.Read(r, format.TypeNameIndex, snapshotVersion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMismatch, err)
	}
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("open zstd reader: %w", err)
	}
	defer dec.Close()

	var snap snapshot
	if err := msgpack.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: fingerprint %s, want %s", ErrSnapshotMismatch, snap.Fingerprint, fingerprint)
	}

	idx := newNameIndex()
	for letter, bucket := range snap.Buckets {
		if len(bucket) == 0 {
			continue
		}
		idx.buckets[letter] = bucket
		idx.entries += len(bucket)
	}
	idx.skipped = snap.Skipped
	idx.duplicates = snap.Duplicates
	return idx, nil
}

// SaveSnapshot writes the snapshot to path via temp-file-then-rename.
func SaveSnapshot(path, fingerprint string, idx *NameIndex) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := idx.WriteSnapshot(tmp, fingerprint); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// LoadSnapshot reads the snapshot at path. A missing file is ErrIndexNotFound.
func LoadSnapshot(path, fingerprint string) (*NameIndex, error) {
	f, err := os.Open(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadSnapshot(f, fingerprint)
}

// SnapshotPath returns the snapshot file for a fingerprint within dir.
func SnapshotPath(dir, fingerprint string) string {
	return filepath.Join(dir, fingerprint+".msgpack.zst")
}

// PruneSnapshots removes snapshot files in dir other than the one for keep.
// It returns how many were removed. A missing dir is not an error.
func PruneSnapshots(dir, keep string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.msgpack.zst"))
	if err != nil {
		return 0, err
	}
	keepPath := SnapshotPath(dir, keep)
	removed := 0
	for _, m := range matches {
		if m == keepPath {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove stale snapshot: %w", err)
		}
		removed++
	}
	return removed, nil
}
